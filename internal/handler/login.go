package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/bloglist/internal/service"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

// LoginHandler serves POST /api/login.
type LoginHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewLoginHandler creates a LoginHandler.
func NewLoginHandler(auth Authenticator, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{auth: auth, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and returns a bearer token.
//
// HTTP: POST /api/login
// REQUEST BODY:  {"username": "mluukkai", "password": "salainen"}
// RESPONSE BODY: {"token": "eyJ...", "username": "mluukkai", "name": "Matti Luukkainen"}
//
// The client sends the token back as "Authorization: Bearer <token>".
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
