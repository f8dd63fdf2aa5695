package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/auth"
	"github.com/sakif/bloglist/internal/handler"
	"github.com/sakif/bloglist/internal/model"
	"github.com/sakif/bloglist/internal/service"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// MockUserService records the last registration and returns canned results.
type MockUserService struct {
	CapturedIn service.RegisterInput
	ReturnUser *model.User
	ReturnErr  error
}

func (m *MockUserService) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
	m.CapturedIn = in
	return m.ReturnUser, m.ReturnErr
}

func (m *MockUserService) List(context.Context) ([]model.User, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return []model.User{*m.ReturnUser}, nil
}

func (m *MockUserService) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnUser, nil
}

// MockBlogService records the requester and payload of the last call.
type MockBlogService struct {
	CapturedRequester string
	CapturedID        string
	CapturedIn        service.BlogInput
	CapturedPatch     service.BlogPatch
	ReturnBlog        *model.Blog
	ReturnErr         error
}

func (m *MockBlogService) List(context.Context) ([]model.Blog, error) {
	return []model.Blog{*m.ReturnBlog}, m.ReturnErr
}

func (m *MockBlogService) GetByID(_ context.Context, id string) (*model.Blog, error) {
	m.CapturedID = id
	return m.ReturnBlog, m.ReturnErr
}

func (m *MockBlogService) Create(_ context.Context, userID string, in service.BlogInput) (*model.Blog, error) {
	m.CapturedRequester = userID
	m.CapturedIn = in
	return m.ReturnBlog, m.ReturnErr
}

func (m *MockBlogService) Update(_ context.Context, requesterID, id string, patch service.BlogPatch) (*model.Blog, error) {
	m.CapturedRequester = requesterID
	m.CapturedID = id
	m.CapturedPatch = patch
	return m.ReturnBlog, m.ReturnErr
}

func (m *MockBlogService) Delete(_ context.Context, requesterID, id string) error {
	m.CapturedRequester = requesterID
	m.CapturedID = id
	return m.ReturnErr
}

type MockAuthenticator struct {
	ReturnRes *service.LoginResult
	ReturnErr error
}

func (m *MockAuthenticator) Login(context.Context, string, string) (*service.LoginResult, error) {
	return m.ReturnRes, m.ReturnErr
}

type MockMaintainer struct {
	ResetCalled bool
	HealthErr   error
}

func (m *MockMaintainer) Reset(context.Context) error {
	m.ResetCalled = true
	return nil
}

func (m *MockMaintainer) Healthy(context.Context) error { return m.HealthErr }

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func sampleBlog() *model.Blog {
	return &model.Blog{
		ID:     "blog-1",
		Title:  "Go Proverbs",
		URL:    "https://go-proverbs.github.io/",
		Likes:  2,
		UserID: "user-1",
		User:   &model.UserSummary{ID: "user-1", Username: "owner", Name: "Owner"},
	}
}

func TestUserHandler(t *testing.T) {
	t.Run("create returns 201 without the hash", func(t *testing.T) {
		mock := &MockUserService{ReturnUser: &model.User{
			ID: "u1", Username: "mluukkai", Name: "Matti", PasswordHash: "$2a$10$secret", Blogs: []model.BlogSummary{},
		}}
		h := handler.NewUserHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/users",
			bytes.NewBufferString(`{"username":"mluukkai","name":"Matti","password":"salainen"}`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.NotContains(t, rr.Body.String(), "secret")
		assert.NotContains(t, rr.Body.String(), "passwordHash")
		assert.Equal(t, "salainen", mock.CapturedIn.Password)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "mluukkai", body["username"])
		assert.Equal(t, []any{}, body["blogs"])
	})

	t.Run("invalid password is a 400 with the message", func(t *testing.T) {
		mock := &MockUserService{ReturnErr: apperror.ValidationFailed("password", "invalid password")}
		h := handler.NewUserHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(`{"username":"abc","password":"x"}`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeError(t, rr)
		assert.Equal(t, "invalid password", body.Error)
		assert.Equal(t, "validation_error", body.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{}, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(`{"username":`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid JSON body", decodeError(t, rr).Error)
	})

	t.Run("trailing data after the object", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{}, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(`{"username":"a"} {}`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{}, logger)

		big := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(big))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("get unknown user is 404", func(t *testing.T) {
		mock := &MockUserService{ReturnErr: apperror.NotFound("user", "nope")}
		h := handler.NewUserHandler(mock, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/users/nope", nil)
		req.SetPathValue("id", "nope")
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeError(t, rr).Code)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		mock := &MockUserService{ReturnErr: errors.New("sqlite: no such table: users")}
		h := handler.NewUserHandler(mock, logger)

		rr := httptest.NewRecorder()
		h.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decodeError(t, rr)
		assert.Equal(t, "An internal error occurred", body.Error)
		assert.NotContains(t, body.Error, "sqlite")
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("success returns token and identity", func(t *testing.T) {
		mock := &MockAuthenticator{ReturnRes: &service.LoginResult{Token: "tok", Username: "mluukkai", Name: "Matti"}}
		h := handler.NewLoginHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(`{"username":"mluukkai","password":"salainen"}`))
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res service.LoginResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "tok", res.Token)
		assert.Equal(t, "Matti", res.Name)
	})

	t.Run("bad credentials are 401", func(t *testing.T) {
		mock := &MockAuthenticator{ReturnErr: apperror.Unauthorized("invalid username or password")}
		h := handler.NewLoginHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(`{"username":"x","password":"y"}`))
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "invalid username or password", decodeError(t, rr).Error)
	})
}

func TestBlogHandler(t *testing.T) {
	withClaims := func(r *http.Request, userID string) *http.Request {
		return r.WithContext(auth.WithClaims(r.Context(), &auth.Claims{UserID: userID, Username: "owner"}))
	}

	t.Run("create passes the caller's id", func(t *testing.T) {
		mock := &MockBlogService{ReturnBlog: sampleBlog()}
		h := handler.NewBlogHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/blogs",
			bytes.NewBufferString(`{"title":"Go Proverbs","url":"https://go-proverbs.github.io/"}`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, withClaims(req, "user-1"))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, "user-1", mock.CapturedRequester)
		assert.Nil(t, mock.CapturedIn.Likes, "omitted likes should stay nil for the service to default")

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "blog-1", body["id"])
		user, ok := body["user"].(map[string]any)
		require.True(t, ok, "user should be an embedded object")
		assert.Equal(t, "owner", user["username"])
		assert.NotContains(t, body, "userId")
	})

	t.Run("anonymous update passes an empty requester", func(t *testing.T) {
		mock := &MockBlogService{ReturnBlog: sampleBlog()}
		h := handler.NewBlogHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPut, "/api/blogs/blog-1", bytes.NewBufferString(`{"likes":3}`))
		req.SetPathValue("id", "blog-1")
		rr := httptest.NewRecorder()
		h.HandleUpdate(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, mock.CapturedRequester)
		assert.Equal(t, "blog-1", mock.CapturedID)
		require.NotNil(t, mock.CapturedPatch.Likes)
		assert.Equal(t, 3, *mock.CapturedPatch.Likes)
		assert.Nil(t, mock.CapturedPatch.Title)
	})

	t.Run("forbidden update is 403", func(t *testing.T) {
		mock := &MockBlogService{ReturnErr: apperror.Forbidden("only the creator of a blog can edit it")}
		h := handler.NewBlogHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPut, "/api/blogs/blog-1", bytes.NewBufferString(`{"title":"x"}`))
		req.SetPathValue("id", "blog-1")
		rr := httptest.NewRecorder()
		h.HandleUpdate(rr, withClaims(req, "user-2"))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "forbidden", decodeError(t, rr).Code)
	})

	t.Run("delete is 204 with no body", func(t *testing.T) {
		mock := &MockBlogService{}
		h := handler.NewBlogHandler(mock, logger)

		req := httptest.NewRequest(http.MethodDelete, "/api/blogs/blog-1", nil)
		req.SetPathValue("id", "blog-1")
		rr := httptest.NewRecorder()
		h.HandleDelete(rr, withClaims(req, "user-1"))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.Equal(t, "user-1", mock.CapturedRequester)
	})

	t.Run("get unknown blog is 404", func(t *testing.T) {
		mock := &MockBlogService{ReturnErr: apperror.NotFound("blog", "nope")}
		h := handler.NewBlogHandler(mock, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/blogs/nope", nil)
		req.SetPathValue("id", "nope")
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "nope", mock.CapturedID)
	})
}

func TestMaintenanceHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := handler.NewMaintenanceHandler(&MockMaintainer{}, logger)
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unhealthy store is 503", func(t *testing.T) {
		h := handler.NewMaintenanceHandler(&MockMaintainer{HealthErr: errors.New("down")}, logger)
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("reset", func(t *testing.T) {
		mock := &MockMaintainer{}
		h := handler.NewMaintenanceHandler(mock, logger)
		rr := httptest.NewRecorder()
		h.HandleReset(rr, httptest.NewRequest(http.MethodPost, "/api/testing/reset", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.True(t, mock.ResetCalled)
	})
}
