package user

import "errors"

// ErrUnknownIdentity is returned when a referenced user does not resolve.
var ErrUnknownIdentity = errors.New("unknown identity")

type User struct {
	ID       int64
	Username string
	Password []byte
}

// Identity is the value passed through every core operation in place of the
// raw user row: opaque id plus display handle, nothing else.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
