package messages

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("message not found")

type Message struct {
	ID      interface{} `bson:"_id,omitempty"`
	FromID  int64       `bson:"fromID"`
	ToID    int64       `bson:"toID"`
	Body    string      `bson:"body"`
	Created time.Time   `bson:"created"`
	Read    bool        `bson:"read"`
}

func NewMessage(fromID, toID int64, body string) *Message {
	return &Message{
		FromID:  fromID,
		ToID:    toID,
		Body:    body,
		Created: time.Now(),
	}
}
