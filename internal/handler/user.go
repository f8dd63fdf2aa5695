package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/bloglist/internal/model"
	"github.com/sakif/bloglist/internal/service"
)

// UserService is the part of *service.UserService the handler needs.
// Tests substitute a stub.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns every user with their blogs.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleCreate registers a user.
//
// HTTP: POST /api/users
// REQUEST BODY: {"username": "mluukkai", "name": "Matti Luukkainen", "password": "salainen"}
//
// The response never contains the password or its hash.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleGet returns a single user with their blogs.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
