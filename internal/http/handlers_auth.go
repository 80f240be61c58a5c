package http

import (
	"net/http"
	"sync/atomic"

	"bajeti/internal/api"
	"bajeti/internal/auth"
	"bajeti/internal/core"
	"bajeti/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "register", err)
		return
	}
	user, err := s.auth.Register(r.Context(), auth.Registration{
		FirstName:      sanitizeInput(req.FirstName),
		LastName:       sanitizeInput(req.LastName),
		Email:          req.Email,
		Password:       req.Password,
		SecurityAnswer: req.SecurityAnswer,
	})
	if err != nil {
		s.writeError(w, r, "register", err)
		return
	}
	s.countWrite()
	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, user.ID)
	writeJSON(w, http.StatusCreated, api.FromUser(user))
}

// handleLogin accepts the OAuth2 password form (username, password) as well
// as a JSON body with email and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, "login", core.Invalid("Invalid request body"))
		return
	}
	email, password := p.Get("username", "email"), p.Raw("password")
	if email == "" || password == "" {
		s.writeError(w, r, "login", core.Invalid("username and password are required"))
		return
	}
	token, err := s.auth.Login(r.Context(), email, password)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.failedLogins, 1)
		s.writeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: token.AccessToken, TokenType: token.TokenType})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user core.User) {
	writeJSON(w, http.StatusOK, api.FromUser(user))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user core.User) {
	var req api.ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "update profile", err)
		return
	}
	updated, err := s.auth.UpdateProfile(r.Context(), user.ID, auth.ProfileUpdate{
		FirstName:      sanitizeInput(req.FirstName),
		LastName:       sanitizeInput(req.LastName),
		Email:          req.Email,
		SecurityAnswer: req.SecurityAnswer,
	})
	if err != nil {
		s.writeError(w, r, "update profile", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusOK, api.FromUser(updated))
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "reset password", err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Email, req.SecurityAnswer, req.NewPassword); err != nil {
		s.writeError(w, r, "reset password", err)
		return
	}
	s.countWrite()
	NewResponse().NoContent().Write(w)
}
