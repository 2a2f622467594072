package handlers

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"asperitas/pkg/session"
	"asperitas/pkg/user"

	"github.com/golang/mock/gomock"
	"go.uber.org/zap"
)

var username = "vectoreal"
var password = "secret_password"
var token = "test_token"
var passwordDB = HashPass(getSalt(), password)

func getSalt() []byte {
	salt := make([]byte, 8)
	rand.Read(salt)
	return salt
}

type authCase struct {
	name             string
	expectedRepoUser *user.User
	execHandler      func(h *UserHandler, w http.ResponseWriter, r *http.Request)
	expectedResponse []byte
	expectedStatus   int
}

var authCases = []authCase{
	{
		name:             "LoginHappyCase",
		expectedRepoUser: &user.User{Username: username, Password: passwordDB, ID: int64(1)},
		execHandler: func(h *UserHandler, w http.ResponseWriter, r *http.Request) {
			h.Login(w, r)
		},
		expectedResponse: []byte(`{"token":"test_token"}`),
		expectedStatus:   http.StatusOK,
	},
	{
		name:             "LoginUserNotExistCase",
		expectedRepoUser: nil,
		execHandler: func(h *UserHandler, w http.ResponseWriter, r *http.Request) {
			h.Login(w, r)
		},
		expectedResponse: []byte(`{"message":"user not found"}`),
		expectedStatus:   http.StatusUnauthorized,
	},
	{
		name:             "RegisterHappyCase",
		expectedRepoUser: nil,
		execHandler: func(h *UserHandler, w http.ResponseWriter, r *http.Request) {
			h.Register(w, r)
		},
		expectedResponse: []byte(`{"token":"test_token"}`),
		expectedStatus:   http.StatusCreated,
	},
	{
		name:             "RegisterUserAlreadyExistCase",
		expectedRepoUser: &user.User{Username: username, Password: passwordDB, ID: int64(1)},
		execHandler: func(h *UserHandler, w http.ResponseWriter, r *http.Request) {
			h.Register(w, r)
		},
		expectedResponse: []byte(`{"errors":[{"location":"body","param":"username","value":"vectoreal","msg":"already exists"}]}`),
		expectedStatus:   http.StatusUnprocessableEntity,
	},
}

func TestLogin(t *testing.T) {
	for _, tc := range authCases {
		ctrl := gomock.NewController(t)
		repo := NewMockUsersRepo(ctrl)
		sm := session.NewMockSessionManager(ctrl)
		h := &UserHandler{Sm: sm, Repo: repo, Logger: zap.NewNop().Sugar()}
		w := httptest.NewRecorder()

		body := map[string]string{"username": username, "password": password}
		bodyBytes, _ := json.Marshal(body)
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(bodyBytes))

		sm.EXPECT().
			Create(gomock.Any(),
				w, &user.Identity{ID: int64(1), Username: username},
				gomock.Any(), gomock.Any()).
			Return(token, nil).AnyTimes()

		repo.EXPECT().GetByUsername(username).Return(tc.expectedRepoUser, nil)
		repo.EXPECT().Add(gomock.Any()).Return(int64(1), nil).AnyTimes()

		tc.execHandler(h, w, r)

		if w.Result().StatusCode != tc.expectedStatus {
			t.Fatalf("%s: wrong status code: %d, but expected %d", tc.name, w.Result().StatusCode, tc.expectedStatus)
		}

		res, err := ioutil.ReadAll(w.Body)
		if err != nil {
			t.Fatalf("unexpected error while reading response body: %s", err.Error())
		}

		if !reflect.DeepEqual(res, tc.expectedResponse) {
			t.Fatalf("%s: unexpected response: %s but expected %s", tc.name, res, tc.expectedResponse)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockUsersRepo(ctrl)
	h := &UserHandler{Repo: repo, Logger: zap.NewNop().Sugar()}
	w := httptest.NewRecorder()

	repo.EXPECT().GetByUsername(username).
		Return(&user.User{Username: username, Password: passwordDB, ID: int64(1)}, nil)

	body, _ := json.Marshal(map[string]string{"username": username, "password": "wrong_password"})
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(body))

	h.Login(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong status code: %d, but expected %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthValidation(t *testing.T) {
	cases := []map[string]string{
		{"password": password},
		{"username": username},
		{"username": "", "password": password},
		{"username": "has spaces", "password": password},
		{"username": username, "password": "short"},
	}

	for i, body := range cases {
		ctrl := gomock.NewController(t)
		repo := NewMockUsersRepo(ctrl)
		h := &UserHandler{Repo: repo, Logger: zap.NewNop().Sugar()}
		w := httptest.NewRecorder()

		bodyBytes, _ := json.Marshal(body)
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(bodyBytes))

		h.Register(w, r)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("test #%d fail, expected %d but was %d", i, http.StatusUnprocessableEntity, w.Code)
		}
	}
}
