// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
package repository

import (
	"context"

	"github.com/sakif/bloglist/internal/model"
)

// UserRepository reads and writes user accounts.
//
// CreateUser returns apperror.ErrConflict when the username is taken and
// the lookups return apperror.ErrNotFound for unknown keys.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// ListUsersWithBlogs returns every user with Blogs filled in, oldest
	// account first and each user's blogs in creation order.
	ListUsersWithBlogs(ctx context.Context) ([]model.User, error)
}

// BlogRepository reads and writes blogs. Every blog returned has its
// owner projection (Blog.User) populated.
type BlogRepository interface {
	CreateBlog(ctx context.Context, blog *model.Blog) error
	GetBlogByID(ctx context.Context, id string) (*model.Blog, error)
	ListBlogsWithOwner(ctx context.Context) ([]model.Blog, error)
	// UpdateBlog writes title, author, url and likes. The owner is never
	// rewritten.
	UpdateBlog(ctx context.Context, blog *model.Blog) error
	DeleteBlog(ctx context.Context, id string) error
}

// Store is a complete storage backend with a lifecycle.
type Store interface {
	UserRepository
	BlogRepository
	// Reset deletes every blog and user.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
