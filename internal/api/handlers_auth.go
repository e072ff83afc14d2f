package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/unbindai/unbind/internal/auth"
	"github.com/unbindai/unbind/internal/store"
)

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Picture  string `json:"picture,omitempty"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Picture:  u.Picture,
	}
}

func (s *Server) sessionTTL() time.Duration {
	return time.Duration(s.cfg.JWTExpireDays) * 24 * time.Hour
}

func (s *Server) issueSession(w http.ResponseWriter, userID string) error {
	token, err := auth.CreateToken(userID, s.cfg.JWTSecret, s.sessionTTL())
	if err != nil {
		return err
	}
	auth.SetCookie(w, s.cfg.CookieName, token, s.sessionTTL())
	return nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		jsonError(w, "username, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, "failed to process password", http.StatusInternalServerError)
		return
	}

	u, err := s.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if errors.Is(err, store.ErrEmailExists) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.log.Error("create user", "error", err)
		jsonError(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	if err := s.issueSession(w, u.ID); err != nil {
		s.log.Error("issue session", "error", err)
		jsonError(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(req.Password, u.PasswordHash)) {
		jsonError(w, "incorrect email or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.log.Error("lookup user", "error", err)
		jsonError(w, "login failed", http.StatusInternalServerError)
		return
	}

	if err := s.issueSession(w, u.ID); err != nil {
		s.log.Error("issue session", "error", err)
		jsonError(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, s.cfg.CookieName)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.UserByID(r.Context(), UserID(r))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "account no longer exists", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.log.Error("lookup user", "error", err)
		jsonError(w, "failed to load account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
