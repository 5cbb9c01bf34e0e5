package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/nhle/timetrack/internal/auth"
	"github.com/nhle/timetrack/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

func (req registerRequest) validate() error {
	if _, err := mail.ParseAddress(req.Email); err != nil || strings.ContainsAny(req.Email, "<> ") {
		return model.Invalid("email", "must be a valid address")
	}
	if len(req.Password) < auth.MinPasswordLength {
		return model.Invalid("password", "must be at least 6 characters")
	}
	if strings.TrimSpace(req.Name) == "" {
		return model.Invalid("name", "must not be empty")
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := &model.User{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, model.ErrConflict) {
			writeErrorMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeError(w, r, err)
		return
	}

	if !s.setSession(w, r, user.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, model.Invalid("", "email and password are required"))
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, model.ErrNotFound) {
		writeErrorMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeErrorMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !s.setSession(w, r, user.ID) {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearedCookie())
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

// setSession issues a token for userID and sets it as the session
// cookie. The token is also exposed in a header for non-browser
// clients. It reports false after writing an error response.
func (s *Server) setSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	token, err := s.issuer.Issue(userID)
	if err != nil {
		writeError(w, r, err)
		return false
	}
	http.SetCookie(w, s.issuer.SessionCookie(token))
	w.Header().Set(TokenHeader, token)
	return true
}

// TokenHeader carries the session token on login and register responses.
const TokenHeader = "X-Session-Token"
