package handlers

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"asperitas/pkg/communities"
	"asperitas/pkg/posts"
	"asperitas/pkg/session"
	"asperitas/pkg/user"
	"asperitas/pkg/vote"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PostHandler struct {
	Sm              session.SessionManager
	PostsRepo       PostsRepo
	UsersRepo       UsersRepo
	CommentsRepo    CommentsRepo
	CommunitiesRepo CommunitiesRepo
	Logger          *zap.SugaredLogger
}

type PostsRepo interface {
	GetAll(context.Context) ([]*posts.Post, error)
	GetByID(context.Context, interface{}) (*posts.Post, error)
	Lookup(context.Context, interface{}) (*posts.Post, error)
	GetByCommunity(context.Context, string) ([]*posts.Post, error)
	GetByAuthorID(context.Context, int64) ([]*posts.Post, error)
	Add(context.Context, *posts.Post) (interface{}, error)
	Delete(context.Context, interface{}) (bool, error)
	ApplyVote(context.Context, interface{}, int64, vote.Direction) (*posts.Post, vote.State, error)
	ScoreByAuthor(context.Context, int64) (int64, error)

	ParseID(string) (interface{}, error)
}

type UsersRepo interface {
	GetByID(id int64) (*user.User, error)
	GetByUsername(username string) (*user.User, error)
	Resolve(id int64) (user.Identity, error)
	Add(user *user.User) (int64, error)
}

type CreatePostReq struct {
	Community *string
	Type      *posts.PostType
	Title     *string
	URL       *string
	Text      *string
}

func (p *CreatePostReq) validate() []*CustomError {
	title := &Validator{value: p.Title, location: "body", field: "title"}
	titleErr := func() *CustomError {
		err := title.Required()
		if err != nil {
			return err
		}
		err = title.Empty()
		if err != nil {
			return err
		}
		err = title.MaxLength(100)
		if err != nil {
			return err
		}
		return title.Custom(func(value string) bool {
			return strings.TrimSpace(value) == value
		}, "cannot start or end with whitespace")
	}()

	typeErr := func() *CustomError {
		if p.Type == nil {
			return &CustomError{Location: "body", Param: "type", Msg: "is required"}
		}
		return nil
	}()
	if typeErr != nil {
		return mergeErrors(titleErr, typeErr)
	}

	var urlOrTextErr *CustomError
	if *p.Type == posts.Text {
		text := &Validator{value: p.Text, location: "body", field: "text"}
		urlOrTextErr = func() *CustomError {
			err := text.Required()
			if err != nil {
				return err
			}
			return text.MinLength(4)
		}()
	} else {
		url := &Validator{value: p.URL, location: "body", field: "url"}
		urlOrTextErr = func() *CustomError {
			err := url.Required()
			if err != nil {
				return err
			}
			return url.URL()
		}()
	}

	community := &Validator{value: p.Community, location: "body", field: "community"}
	communityErr := func() *CustomError {
		err := community.Required()
		if err != nil {
			return err
		}
		return community.Empty()
	}()

	return mergeErrors(titleErr, urlOrTextErr, communityErr)
}

func (h *PostHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	postsDb, err := h.PostsRepo.GetAll(ctx)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	postsResp, err := h.getPostsWithData(postsDb)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.Logger, postsResp, http.StatusOK)
}

func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := h.PostsRepo.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.Logger.Error(err.Error())
		WriteResponse(w, "invalid post id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	post, err := h.PostsRepo.GetByID(ctx, id)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	postWithData, err := getPostData(post, h.UsersRepo, h.CommentsRepo, h.Logger)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.Logger, postWithData, http.StatusOK)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return
	}

	var req CreatePostReq
	err = json.Unmarshal(body, &req)
	if err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return
	}

	validationErrors := req.validate()

	if len(validationErrors) > 0 {
		writeErrorsResponse(w, validationErrors, http.StatusUnprocessableEntity)
		return
	}

	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	communityName := communities.CanonicalName(*req.Community)
	if _, err := h.CommunitiesRepo.GetByName(ctx, communityName); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	post := posts.NewPost(*req.Title, *req.Type, communityName, sess.User.ID)
	if *req.Type == posts.Text {
		post.Text = *req.Text
	} else {
		post.URL = *req.URL
	}

	id, err := h.PostsRepo.Add(ctx, post)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	post.ID = id

	author, err := h.UsersRepo.Resolve(sess.User.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	postResp, err := MapToPostResponse(post, author, nil, h.UsersRepo)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.Logger, postResp, http.StatusCreated)
}

func (h *PostHandler) GetByCommunity(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["community"]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	postsDb, err := h.PostsRepo.GetByCommunity(ctx, communities.CanonicalName(name))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	postsWithData, err := h.getPostsWithData(postsDb)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.Logger, postsWithData, http.StatusOK)
}

func (h *PostHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	u, err := h.UsersRepo.GetByUsername(username)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if u == nil {
		writeDomainError(w, h.Logger, user.ErrUnknownIdentity)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	postsDb, err := h.PostsRepo.GetByAuthorID(ctx, u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	postsWithData, err := h.getPostsWithData(postsDb)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.Logger, postsWithData, http.StatusOK)
}

// Karma is derived on read: the sum of the user's post and comment scores.
func (h *PostHandler) Karma(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	u, err := h.UsersRepo.GetByUsername(username)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if u == nil {
		writeDomainError(w, h.Logger, user.ErrUnknownIdentity)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	postScore, err := h.PostsRepo.ScoreByAuthor(ctx, u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	commentScore, err := h.CommentsRepo.ScoreByAuthor(ctx, u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	writeJSON(w, h.Logger, map[string]int64{"karma": postScore + commentScore}, http.StatusOK)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.PostsRepo.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.Logger.Error(err.Error())
		WriteResponse(w, "invalid post id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ok, err := h.PostsRepo.Delete(ctx, id)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	if ok {
		WriteResponse(w, "success", http.StatusOK)
		return
	}

	WriteResponse(w, "post not found", http.StatusNotFound)
}

func (h *PostHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, vote.Up)
}

func (h *PostHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, vote.Down)
}

func (h *PostHandler) vote(w http.ResponseWriter, r *http.Request, d vote.Direction) {
	id, err := h.PostsRepo.ParseID(mux.Vars(r)["post_id"])
	if err != nil {
		h.Logger.Error(err.Error())
		WriteResponse(w, "invalid post id", http.StatusBadRequest)
		return
	}

	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	post, state, err := h.PostsRepo.ApplyVote(ctx, id, sess.User.ID, d)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	writeJSON(w, h.Logger, &VoteResponse{Score: post.Score, VoterState: state.String()}, http.StatusOK)
}

func (h *PostHandler) getPostsWithData(postsDb []*posts.Post) ([]*PostResponse, error) {
	result := make([]*PostResponse, 0, len(postsDb))
	for _, p := range postsDb {
		postWithData, err := getPostData(p, h.UsersRepo, h.CommentsRepo, h.Logger)
		if err != nil {
			return nil, err
		}

		result = append(result, postWithData)
	}

	return result, nil
}
