package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"asperitas/pkg/session"

	"go.uber.org/zap"
)

// authRoutes lists exact path+method pairs that require a session; the
// prefix rules below cover the parameterized ones.
var authRoutes = map[string]string{
	"/api/posts":       http.MethodPost,
	"/api/communities": http.MethodPost,
}

func requiresAuth(r *http.Request) bool {
	if m, ok := authRoutes[r.URL.Path]; ok && m == r.Method {
		return true
	}
	if strings.HasSuffix(r.URL.Path, "/upvote") || strings.HasSuffix(r.URL.Path, "/downvote") {
		return true
	}
	if strings.HasSuffix(r.URL.Path, "/join") || strings.HasSuffix(r.URL.Path, "/leave") {
		return true
	}
	if strings.HasPrefix(r.URL.Path, "/api/post/") &&
		(r.Method == http.MethodPost || r.Method == http.MethodDelete) {
		return true
	}
	// the whole messages surface is private
	if strings.HasPrefix(r.URL.Path, "/api/messages") {
		return true
	}
	return false
}

func Auth(logger *zap.SugaredLogger, sm session.SessionManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requiresAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess, err := sm.Check(ctx, r)
		if err != nil {
			logger.Error(err.Error())
			w.Header().Set("Content-type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			errorBody, _ := json.Marshal(map[string]string{"message": "unauthorized"})
			w.Write(errorBody)

			return
		}

		ctx = context.WithValue(r.Context(), session.SessionKey, sess)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
