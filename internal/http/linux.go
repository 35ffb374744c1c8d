package http

import (
	"net/http"

	"github.com/google/uuid"
)

type gitUserResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleCreateGitUser provisions a git account named after the student id.
// The generated password is returned once and never stored here.
func (s *Server) handleCreateGitUser(w http.ResponseWriter, r *http.Request) {
	if s.forge == nil {
		writeError(w, http.StatusServiceUnavailable, "forge_not_configured")
		return
	}
	claims := claimsFromContext(r.Context())
	password := uuid.NewString()
	email := claims.UserID + "@git.local"
	if err := s.forge.CreateUser(r.Context(), claims.UserID, email, password); err != nil {
		writeError(w, http.StatusBadGateway, "forge_error")
		return
	}
	writeJSON(w, http.StatusCreated, gitUserResponse{Username: claims.UserID, Password: password})
}

func (s *Server) handleResetGitUser(w http.ResponseWriter, r *http.Request) {
	if s.forge == nil {
		writeError(w, http.StatusServiceUnavailable, "forge_not_configured")
		return
	}
	claims := claimsFromContext(r.Context())
	password := uuid.NewString()
	if err := s.forge.ResetPassword(r.Context(), claims.UserID, password); err != nil {
		writeError(w, http.StatusBadGateway, "forge_error")
		return
	}
	writeJSON(w, http.StatusOK, gitUserResponse{Username: claims.UserID, Password: password})
}
