package http

import (
	"context"
	"net/http"
	"strings"

	"bajeti/internal/auth"
	"bajeti/internal/core"
	"bajeti/internal/log"
)

// requireUser resolves the bearer token before next runs. Requests without a
// valid token never reach the handler.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, core.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, "authenticate", core.Unauthorized(auth.MsgInvalidCredentials))
			return
		}
		user, err := s.auth.Authenticate(r.Context(), raw)
		if err != nil {
			s.writeError(w, r, "authenticate", err)
			return
		}
		logger := log.FromContext(r.Context()).With(log.FieldUserID, user.ID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, logger)
		next(w, r.WithContext(ctx), user)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
