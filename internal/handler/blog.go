package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/bloglist/internal/auth"
	"github.com/sakif/bloglist/internal/model"
	"github.com/sakif/bloglist/internal/service"
)

// BlogService is the part of *service.BlogService the handler needs.
type BlogService interface {
	List(ctx context.Context) ([]model.Blog, error)
	GetByID(ctx context.Context, id string) (*model.Blog, error)
	Create(ctx context.Context, userID string, in service.BlogInput) (*model.Blog, error)
	Update(ctx context.Context, requesterID, id string, patch service.BlogPatch) (*model.Blog, error)
	Delete(ctx context.Context, requesterID, id string) error
}

// BlogHandler serves /api/blogs.
//
// The handler never decides who may do what. It reads the identity that
// auth.RequireAuth or auth.OptionalAuth put in the context and passes the
// user id (empty for anonymous callers) to the service.
type BlogHandler struct {
	blogs  BlogService
	logger *slog.Logger
}

// NewBlogHandler creates a BlogHandler.
func NewBlogHandler(blogs BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{blogs: blogs, logger: logger}
}

// HandleList returns every blog with its owner.
//
// HTTP: GET /api/blogs
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.blogs.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

// HandleGet returns a single blog.
//
// HTTP: GET /api/blogs/{id}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleCreate stores a blog owned by the caller.
//
// HTTP: POST /api/blogs (Bearer token required)
// REQUEST BODY: {"title": "...", "author": "...", "url": "...", "likes": 0}
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.BlogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	blog, err := h.blogs.Create(r.Context(), requesterID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, blog)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/blogs/{id} (Bearer token optional)
//
// Fields left out of the body are not changed. Sending only "likes" works
// without a token; any other field needs the owner's token.
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.BlogPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	blog, err := h.blogs.Update(r.Context(), requesterID(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleDelete removes a blog owned by the caller.
//
// HTTP: DELETE /api/blogs/{id} (Bearer token required)
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.blogs.Delete(r.Context(), requesterID(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requesterID returns the authenticated user's id, or "" for anonymous
// requests.
func requesterID(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return ""
}
