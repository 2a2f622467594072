package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"asperitas/pkg/comments"
	"asperitas/pkg/communities"
	"asperitas/pkg/messages"
	"asperitas/pkg/posts"
	"asperitas/pkg/user"
	"asperitas/pkg/vote"

	"go.uber.org/zap"
)

type Response struct {
	Message string `json:"message"`
}

type CustomError struct {
	Location string `json:"location"`
	Param    string `json:"param"`
	Value    string `json:"value"`
	Msg      string `json:"msg"`
}

type ErrorsResponse struct {
	Errors []*CustomError `json:"errors"`
}

func WriteResponse(w http.ResponseWriter, msg string, status int) {
	resp := &Response{Message: msg}
	res, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(status)
		return
	}

	w.WriteHeader(status)
	w.Write(res)
}

func writeErrorsResponse(w http.ResponseWriter, errors []*CustomError, status int) {
	errorsJSON, err := json.Marshal(&ErrorsResponse{Errors: errors})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}

	w.WriteHeader(status)
	w.Write(errorsJSON)
}

func writeJSON(w http.ResponseWriter, logger *zap.SugaredLogger, v interface{}, status int) {
	respBytes, err := json.Marshal(v)
	if err != nil {
		logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	w.Write(respBytes)
}

// writeDomainError maps the domain sentinels to statuses; everything else is
// a 500.
func writeDomainError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	logger.Error(err.Error())

	switch {
	case errors.Is(err, posts.ErrNotFound),
		errors.Is(err, comments.ErrNotFound),
		errors.Is(err, communities.ErrNotFound),
		errors.Is(err, messages.ErrNotFound):
		WriteResponse(w, "not found", http.StatusNotFound)
	case errors.Is(err, user.ErrUnknownIdentity):
		WriteResponse(w, "unknown identity", http.StatusNotFound)
	case errors.Is(err, comments.ErrCrossPostParent):
		WriteResponse(w, "parent comment belongs to another post", http.StatusUnprocessableEntity)
	case errors.Is(err, posts.ErrConflict),
		errors.Is(err, comments.ErrConflict),
		errors.Is(err, communities.ErrConflict):
		WriteResponse(w, "concurrent update, try again", http.StatusConflict)
	case errors.Is(err, communities.ErrAlreadyExists):
		WriteResponse(w, "already exists", http.StatusUnprocessableEntity)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type PostResponse struct {
	Score            int                `json:"score"`
	Views            uint64             `json:"views"`
	Type             posts.PostType     `json:"type"`
	Title            string             `json:"title"`
	Author           *user.Identity     `json:"author"`
	Community        string             `json:"community"`
	URL              string             `json:"url,omitempty"`
	Text             string             `json:"text,omitempty"`
	Votes            []*vote.Vote       `json:"votes"`
	CommentCount     int64              `json:"commentCount"`
	Comments         []*CommentResponse `json:"comments"`
	Created          time.Time          `json:"created"`
	UpvotePercentage uint8              `json:"upvotePercentage"`
	ID               interface{}        `json:"id"`
}

type CommentResponse struct {
	Created time.Time          `json:"created"`
	Author  *user.Identity     `json:"author"`
	Body    string             `json:"body"`
	Score   int                `json:"score"`
	Votes   []*vote.Vote       `json:"votes"`
	Replies []*CommentResponse `json:"replies"`
	ID      interface{}        `json:"id"`
}

// VoteResponse is what a vote operation reports back: the new score and
// where the voter ended up (up, down or none).
type VoteResponse struct {
	Score      int    `json:"score"`
	VoterState string `json:"voterState"`
}

func mapForestToResponse(forest []*comments.Node, usersRepo UsersRepo) ([]*CommentResponse, error) {
	result := make([]*CommentResponse, 0, len(forest))
	for _, node := range forest {
		author, err := usersRepo.Resolve(node.Comment.AuthorID)
		if err != nil {
			return nil, err
		}

		replies, err := mapForestToResponse(node.Children, usersRepo)
		if err != nil {
			return nil, err
		}

		mapped := &CommentResponse{
			Created: node.Comment.Created,
			Author:  &author,
			Body:    node.Comment.Body,
			Score:   node.Comment.Score,
			Votes:   node.Comment.Votes(),
			Replies: replies,
			ID:      node.Comment.ID,
		}
		result = append(result, mapped)
	}

	return result, nil
}

func getPostData(p *posts.Post, ur UsersRepo, cr CommentsRepo, logger *zap.SugaredLogger) (*PostResponse, error) {
	author, err := ur.Resolve(p.AuthorID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	forest, err := cr.Tree(ctx, p.ID)
	if err == comments.ErrMalformedInput {
		// the forest is still complete, serve it but leave a trace
		logger.Warnw("cyclic comment parent chain", "post_id", p.ID)
	} else if err != nil {
		return nil, err
	}

	return MapToPostResponse(p, author, forest, ur)
}

func MapToPostResponse(post *posts.Post, author user.Identity, forest []*comments.Node, usersRepo UsersRepo) (*PostResponse, error) {
	commentsResp, err := mapForestToResponse(forest, usersRepo)
	if err != nil {
		return nil, err
	}

	votes := post.Votes()

	resp := &PostResponse{
		ID:               post.ID,
		Score:            post.Score,
		Views:            post.Views,
		Type:             post.Type,
		Title:            post.Title,
		Author:           &author,
		Community:        post.Community,
		Votes:            votes,
		CommentCount:     post.CommentCount,
		Comments:         commentsResp,
		Created:          post.Created,
		UpvotePercentage: calculateUpvotePercentage(votes),
	}

	if resp.Type == posts.Text {
		resp.Text = post.Text
	} else {
		resp.URL = post.URL
	}

	return resp, nil
}

func calculateUpvotePercentage(postVotes []*vote.Vote) uint8 {
	if len(postVotes) == 0 {
		return uint8(0)
	}

	upvoteCnt := 0
	for _, v := range postVotes {
		if v.Vote > 0 {
			upvoteCnt++
		}
	}

	return uint8(math.Round((float64(upvoteCnt) / float64(len(postVotes))) * 100))
}
