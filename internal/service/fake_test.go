package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/auth"
	"github.com/sakif/bloglist/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of repository.UserRepository,
// repository.BlogRepository and Maintainer. It keeps insertion order so the
// list methods behave like the real stores.
type fakeStore struct {
	users     map[string]*model.User
	userOrder []string
	blogs     map[string]*model.Blog
	blogOrder []string
	nextID    int

	// set to a non-nil error to simulate a storage failure
	createUserErr error
	createBlogErr error
	lookupErr     error
	pingErr       error

	// skipUsernameIndex makes GetUserByUsername miss, to simulate a
	// concurrent registration that slips past the pre-check.
	skipUsernameIndex bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*model.User),
		blogs: make(map[string]*model.Blog),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", "username", user.Username)
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	f.userOrder = append(f.userOrder, user.ID)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	out.Blogs = f.summariesFor(id)
	return &out, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if !f.skipUsernameIndex {
		for _, u := range f.users {
			if u.Username == username {
				out := *u
				return &out, nil
			}
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) ListUsersWithBlogs(_ context.Context) ([]model.User, error) {
	users := []model.User{}
	for _, id := range f.userOrder {
		u := *f.users[id]
		u.Blogs = f.summariesFor(id)
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeStore) summariesFor(userID string) []model.BlogSummary {
	out := []model.BlogSummary{}
	for _, id := range f.blogOrder {
		b := f.blogs[id]
		if b.UserID == userID {
			out = append(out, model.BlogSummary{ID: b.ID, Title: b.Title, Author: b.Author, URL: b.URL, Likes: b.Likes})
		}
	}
	return out
}

func (f *fakeStore) CreateBlog(_ context.Context, blog *model.Blog) error {
	if f.createBlogErr != nil {
		return f.createBlogErr
	}
	if _, ok := f.users[blog.UserID]; !ok {
		return apperror.NotFound("user", blog.UserID)
	}
	blog.ID = f.id("blog")
	blog.CreatedAt = time.Now()
	blog.UpdatedAt = blog.CreatedAt
	stored := *blog
	f.blogs[blog.ID] = &stored
	f.blogOrder = append(f.blogOrder, blog.ID)
	return nil
}

func (f *fakeStore) GetBlogByID(_ context.Context, id string) (*model.Blog, error) {
	b, ok := f.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", id)
	}
	return f.withOwner(b), nil
}

func (f *fakeStore) ListBlogsWithOwner(_ context.Context) ([]model.Blog, error) {
	blogs := []model.Blog{}
	for _, id := range f.blogOrder {
		blogs = append(blogs, *f.withOwner(f.blogs[id]))
	}
	return blogs, nil
}

func (f *fakeStore) withOwner(b *model.Blog) *model.Blog {
	out := *b
	if u, ok := f.users[b.UserID]; ok {
		out.User = u.Summary()
	}
	return &out
}

func (f *fakeStore) UpdateBlog(_ context.Context, blog *model.Blog) error {
	existing, ok := f.blogs[blog.ID]
	if !ok {
		return apperror.NotFound("blog", blog.ID)
	}
	existing.Title = blog.Title
	existing.Author = blog.Author
	existing.URL = blog.URL
	existing.Likes = blog.Likes
	existing.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) DeleteBlog(_ context.Context, id string) error {
	if _, ok := f.blogs[id]; !ok {
		return apperror.NotFound("blog", id)
	}
	delete(f.blogs, id)
	for i, bid := range f.blogOrder {
		if bid == id {
			f.blogOrder = append(f.blogOrder[:i], f.blogOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) Reset(_ context.Context) error {
	f.users = make(map[string]*model.User)
	f.blogs = make(map[string]*model.Blog)
	f.userOrder = nil
	f.blogOrder = nil
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testPasswords uses the bcrypt minimum cost so tests stay fast.
func testPasswords() *auth.PasswordService {
	return auth.NewPasswordService(4)
}

func testTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// seedUser registers a user through the service so the stored hash is real.
func seedUser(t *testing.T, store *fakeStore, username, password string) *model.User {
	t.Helper()
	svc := NewUserService(store, testPasswords(), testLogger())
	u, err := svc.Register(context.Background(), RegisterInput{Username: username, Name: username + " name", Password: password})
	if err != nil {
		t.Fatalf("seeding user %q: %v", username, err)
	}
	return u
}

func ptr[T any](v T) *T { return &v }
