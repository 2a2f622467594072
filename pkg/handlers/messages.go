package handlers

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"asperitas/pkg/messages"
	"asperitas/pkg/session"
	"asperitas/pkg/user"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type MessageHandler struct {
	Repo      MessagesRepo
	UsersRepo UsersRepo
	Logger    *zap.SugaredLogger
}

type MessagesRepo interface {
	Add(context.Context, *messages.Message) (interface{}, error)
	Inbox(context.Context, int64) ([]*messages.Message, error)
	Sent(context.Context, int64) ([]*messages.Message, error)
	MarkRead(ctx context.Context, id interface{}, userID int64) error

	ParseID(in string) (interface{}, error)
}

type SendMessageRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type MessageResponse struct {
	From    *user.Identity `json:"from"`
	To      *user.Identity `json:"to"`
	Body    string         `json:"body"`
	Created time.Time      `json:"created"`
	Read    bool           `json:"read"`
	ID      interface{}    `json:"id"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return
	}

	var req SendMessageRequest
	err = json.Unmarshal(body, &req)
	if err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return
	}

	if req.To == "" || req.Body == "" {
		writeErrorsResponse(w, []*CustomError{
			{Location: "body", Param: "to", Msg: "recipient and body are required"},
		}, http.StatusUnprocessableEntity)
		return
	}

	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	recipient, err := h.UsersRepo.GetByUsername(req.To)
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if recipient == nil {
		writeDomainError(w, h.Logger, user.ErrUnknownIdentity)
		return
	}

	msg := messages.NewMessage(sess.User.ID, recipient.ID, req.Body)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := h.Repo.Add(ctx, msg)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	msg.ID = id

	resp, err := h.mapToMessageResponse(msg)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	writeJSON(w, h.Logger, resp, http.StatusCreated)
}

func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Repo.Inbox)
}

func (h *MessageHandler) Sent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Repo.Sent)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := h.Repo.ParseID(mux.Vars(r)["message_id"])
	if err != nil {
		h.Logger.Errorf(err.Error())
		WriteResponse(w, "invalid message id", http.StatusBadRequest)
		return
	}

	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = h.Repo.MarkRead(ctx, id, sess.User.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	WriteResponse(w, "success", http.StatusOK)
}

func (h *MessageHandler) list(w http.ResponseWriter, r *http.Request,
	fetch func(context.Context, int64) ([]*messages.Message, error)) {
	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	msgs, err := fetch(ctx, sess.User.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	resp := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		mapped, err := h.mapToMessageResponse(m)
		if err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}
		resp = append(resp, mapped)
	}

	writeJSON(w, h.Logger, resp, http.StatusOK)
}

func (h *MessageHandler) mapToMessageResponse(m *messages.Message) (*MessageResponse, error) {
	from, err := h.UsersRepo.Resolve(m.FromID)
	if err != nil {
		return nil, err
	}
	to, err := h.UsersRepo.Resolve(m.ToID)
	if err != nil {
		return nil, err
	}

	return &MessageResponse{
		From:    &from,
		To:      &to,
		Body:    m.Body,
		Created: m.Created,
		Read:    m.Read,
		ID:      m.ID,
	}, nil
}
