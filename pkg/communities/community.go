package communities

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("community not found")
	ErrAlreadyExists = errors.New("community already exists")
	ErrConflict      = errors.New("community update conflict")
)

// Community keeps its member set and the derived memberCount in the same
// document; every write recomputes the count from the set, so the two can
// never drift apart.
type Community struct {
	ID          interface{} `bson:"_id,omitempty"`
	Name        string      `bson:"name"`
	Description string      `bson:"description"`
	CreatorID   int64       `bson:"creatorID"`
	Created     time.Time   `bson:"created"`
	Members     []int64     `bson:"members"`
	MemberCount int64       `bson:"memberCount"`
	Version     int64       `bson:"version"`
}

// CanonicalName is the unique lookup form: lowercase, no leading "r/"
// marker.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(name, "/r/"), "r/"))
}

// NewCommunity seeds the creator as the first member.
func NewCommunity(name, description string, creatorID int64) *Community {
	return &Community{
		Name:        CanonicalName(name),
		Description: description,
		CreatorID:   creatorID,
		Created:     time.Now(),
		Members:     []int64{creatorID},
		MemberCount: 1,
	}
}

// IsMember reports whether id is in the member set.
func (c *Community) IsMember(id int64) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}
