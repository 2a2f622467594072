package comments

import (
	"errors"
	"time"

	"asperitas/pkg/vote"
)

var (
	ErrNotFound        = errors.New("comment or post not found")
	ErrConflict        = errors.New("comment update conflict")
	ErrCrossPostParent = errors.New("parent comment belongs to a different post")
	ErrMalformedInput  = errors.New("comment parent chain is cyclic")
)

// Comment references its post and, for replies, a parent comment by id.
// Comments form a forest per post; a nil ParentID marks a top-level comment.
type Comment struct {
	ID          interface{} `bson:"_id,omitempty"`
	PostID      interface{} `bson:"postID"`
	ParentID    interface{} `bson:"parentID,omitempty"`
	AuthorID    int64       `bson:"authorID"`
	Body        string      `bson:"body"`
	Created     time.Time   `bson:"created"`
	Score       int         `bson:"score"`
	vote.Ledger `bson:",inline"`
	Version     int64 `bson:"version"`
}

// NewComment follows the post rule: the author's vote is pre-seeded and the
// score starts at 1.
func NewComment(postID, parentID interface{}, authorID int64, body string) *Comment {
	return &Comment{
		PostID:   postID,
		ParentID: parentID,
		AuthorID: authorID,
		Body:     body,
		Created:  time.Now(),
		Score:    1,
		Ledger:   vote.NewLedger(authorID),
	}
}
