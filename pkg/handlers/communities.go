package handlers

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"asperitas/pkg/communities"
	"asperitas/pkg/session"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CommunityHandler struct {
	Repo      CommunitiesRepo
	UsersRepo UsersRepo
	Logger    *zap.SugaredLogger
}

type CommunitiesRepo interface {
	GetAll(context.Context) ([]*communities.Community, error)
	GetByName(context.Context, string) (*communities.Community, error)
	Add(context.Context, *communities.Community) (interface{}, error)
	Join(ctx context.Context, name string, memberID int64) (*communities.Community, error)
	Leave(ctx context.Context, name string, memberID int64) (*communities.Community, error)
}

type CreateCommunityReq struct {
	Name        *string
	Description *string
}

func (req *CreateCommunityReq) validate() []*CustomError {
	name := &Validator{value: req.Name, location: "body", field: "name"}
	nameErr := func() *CustomError {
		err := name.Required()
		if err != nil {
			return err
		}
		err = name.Empty()
		if err != nil {
			return err
		}
		err = name.MaxLength(32)
		if err != nil {
			return err
		}
		return name.Matches("^[a-zA-Z0-9_]+$")
	}()

	description := &Validator{value: req.Description, location: "body", field: "description"}
	descriptionErr := func() *CustomError {
		err := description.Required()
		if err != nil {
			return err
		}
		return description.MaxLength(500)
	}()

	return mergeErrors(nameErr, descriptionErr)
}

type CommunityResponse struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Creator     int64       `json:"creator"`
	MemberCount int64       `json:"memberCount"`
	Created     time.Time   `json:"created"`
	ID          interface{} `json:"id"`
}

type MembershipResponse struct {
	MemberCount int64 `json:"memberCount"`
}

func mapToCommunityResponse(c *communities.Community) *CommunityResponse {
	return &CommunityResponse{
		Name:        c.Name,
		Description: c.Description,
		Creator:     c.CreatorID,
		MemberCount: c.MemberCount,
		Created:     c.Created,
		ID:          c.ID,
	}
}

func (h *CommunityHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	communitiesDb, err := h.Repo.GetAll(ctx)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	resp := make([]*CommunityResponse, 0, len(communitiesDb))
	for _, c := range communitiesDb {
		resp = append(resp, mapToCommunityResponse(c))
	}

	writeJSON(w, h.Logger, resp, http.StatusOK)
}

func (h *CommunityHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, err := h.Repo.GetByName(ctx, mux.Vars(r)["name"])
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	writeJSON(w, h.Logger, mapToCommunityResponse(c), http.StatusOK)
}

func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return
	}

	var req CreateCommunityReq
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

	c := communities.NewCommunity(*req.Name, *req.Description, sess.User.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	id, err := h.Repo.Add(ctx, c)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	c.ID = id
	writeJSON(w, h.Logger, mapToCommunityResponse(c), http.StatusCreated)
}

func (h *CommunityHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.updateMembership(w, r, h.Repo.Join)
}

func (h *CommunityHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.updateMembership(w, r, h.Repo.Leave)
}

func (h *CommunityHandler) updateMembership(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string, int64) (*communities.Community, error)) {
	sess, err := session.SessionFromContext(r.Context())
	if err != nil {
		h.Logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// the session may outlive the account
	ident, err := h.UsersRepo.Resolve(sess.User.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, err := op(ctx, mux.Vars(r)["name"], ident.ID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	writeJSON(w, h.Logger, &MembershipResponse{MemberCount: c.MemberCount}, http.StatusOK)
}
