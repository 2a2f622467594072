package posts

import (
	"errors"
	"time"

	"asperitas/pkg/vote"
)

var (
	ErrNotFound = errors.New("post not found")
	ErrConflict = errors.New("post update conflict")
)

type PostType string

const (
	Text PostType = "text"
	Link PostType = "link"
)

type Post struct {
	ID           interface{} `bson:"_id,omitempty"`
	Title        string      `bson:"title"`
	Type         PostType    `bson:"type"`
	Text         string      `bson:"text,omitempty"`
	URL          string      `bson:"URL,omitempty"`
	Community    string      `bson:"community"`
	AuthorID     int64       `bson:"authorID"`
	Created      time.Time   `bson:"created"`
	Score        int         `bson:"score"`
	vote.Ledger  `bson:",inline"`
	CommentCount int64  `bson:"commentCount"`
	Views        uint64 `bson:"views"`
	Version      int64  `bson:"version"`
}

// NewPost builds a post in its creation state: auto-upvoted by the author,
// score 1, no comments yet.
func NewPost(title string, postType PostType, community string, authorID int64) *Post {
	return &Post{
		Title:     title,
		Type:      postType,
		Community: community,
		AuthorID:  authorID,
		Created:   time.Now(),
		Score:     1,
		Ledger:    vote.NewLedger(authorID),
	}
}
