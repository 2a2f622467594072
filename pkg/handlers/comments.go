package handlers

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"asperitas/pkg/comments"
	"asperitas/pkg/session"
	"asperitas/pkg/vote"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CommentHandler struct {
	CommentsRepo CommentsRepo
	PostsRepo    PostsRepo
	UsersRepo    UsersRepo
	Logger       *zap.SugaredLogger
}

type AddCommentRequest struct {
	Comment string `json:"comment"`
	Parent  string `json:"parent,omitempty"`
}

type CommentsRepo interface {
	GetByPostID(context.Context, interface{}) ([]*comments.Comment, error)
	Tree(context.Context, interface{}) ([]*comments.Node, error)
	GetByID(context.Context, interface{}) (*comments.Comment, error)
	Record(ctx context.Context, postID, parentID interface{}, authorID int64, body string) (*comments.Comment, error)
	Delete(ctx context.Context, postID, id interface{}) (bool, error)
	ApplyVote(context.Context, interface{}, int64, vote.Direction) (*comments.Comment, vote.State, error)
	ScoreByAuthor(context.Context, int64) (int64, error)

	ParseID(in string) (interface{}, error)
}

// Add records a comment (optionally a reply) and bumps the post's comment
// counter in the same repo call, then answers with the refreshed post.
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	postID, err := h.PostsRepo.ParseID(mux.Vars(r)["post_id"])
	if err != nil {
		h.Logger.Errorf(err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var req AddCommentRequest
	err = json.Unmarshal(body, &req)
	if err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return
	}

	if req.Comment == "" {
		writeErrorsResponse(w, []*CustomError{
			{Location: "body", Param: "comment", Msg: "cannot be blank"},
		}, http.StatusUnprocessableEntity)
		return
	}

	var parentID interface{}
	if req.Parent != "" {
		parentID, err = h.CommentsRepo.ParseID(req.Parent)
		if err != nil {
			h.Logger.Errorf(err.Error())
			WriteResponse(w, "invalid parent id", http.StatusBadRequest)
			return
		}
	}

	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = h.CommentsRepo.Record(ctx, postID, parentID, sess.User.ID, req.Comment)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	h.writePostData(w, postID, http.StatusCreated)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postID, err := h.PostsRepo.ParseID(mux.Vars(r)["post_id"])
	if err != nil {
		h.Logger.Errorf(err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	commentID, err := h.CommentsRepo.ParseID(mux.Vars(r)["comment_id"])
	if err != nil {
		h.Logger.Errorf(err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ok, err := h.CommentsRepo.Delete(ctx, postID, commentID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	if !ok {
		WriteResponse(w, "not found", http.StatusNotFound)
		return
	}

	h.writePostData(w, postID, http.StatusOK)
}

// Tree serves just the comment forest of a post.
func (h *CommentHandler) Tree(w http.ResponseWriter, r *http.Request) {
	postID, err := h.PostsRepo.ParseID(mux.Vars(r)["post_id"])
	if err != nil {
		h.Logger.Errorf(err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := h.PostsRepo.Lookup(ctx, postID); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	forest, err := h.CommentsRepo.Tree(ctx, postID)
	if err == comments.ErrMalformedInput {
		h.Logger.Warnw("cyclic comment parent chain", "post_id", postID)
	} else if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	resp, err := mapForestToResponse(forest, h.UsersRepo)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.Logger, resp, http.StatusOK)
}

func (h *CommentHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, vote.Up)
}

func (h *CommentHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, vote.Down)
}

func (h *CommentHandler) vote(w http.ResponseWriter, r *http.Request, d vote.Direction) {
	commentID, err := h.CommentsRepo.ParseID(mux.Vars(r)["comment_id"])
	if err != nil {
		h.Logger.Errorf(err.Error())
		WriteResponse(w, "invalid comment id", http.StatusBadRequest)
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
	comment, state, err := h.CommentsRepo.ApplyVote(ctx, commentID, sess.User.ID, d)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	writeJSON(w, h.Logger, &VoteResponse{Score: comment.Score, VoterState: state.String()}, http.StatusOK)
}

// writePostData re-renders the full post after a comment change. The lookup
// must not count a view, the reader never left the page.
func (h *CommentHandler) writePostData(w http.ResponseWriter, postID interface{}, status int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	post, err := h.PostsRepo.Lookup(ctx, postID)
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

	writeJSON(w, h.Logger, postWithData, status)
}
