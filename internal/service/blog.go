package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/model"
	"github.com/sakif/bloglist/internal/repository"
)

// BlogService handles blog CRUD and ownership rules.
//
// Ownership: a blog belongs to the user whose token created it. Only that
// user may delete it or edit its title, author, or url. Likes may be changed
// by anyone, with or without a token.
type BlogService struct {
	blogs  repository.BlogRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// NewBlogService creates a BlogService.
func NewBlogService(blogs repository.BlogRepository, users repository.UserRepository, logger *slog.Logger) *BlogService {
	return &BlogService{
		blogs:  blogs,
		users:  users,
		logger: logger,
	}
}

// List returns every blog with its owner summary.
func (s *BlogService) List(ctx context.Context) ([]model.Blog, error) {
	blogs, err := s.blogs.ListBlogsWithOwner(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/blog: listing blogs: %w", err)
	}
	return blogs, nil
}

// GetByID returns one blog with its owner summary.
func (s *BlogService) GetByID(ctx context.Context, id string) (*model.Blog, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "blog id is required")
	}

	blog, err := s.blogs.GetBlogByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/blog: getting blog %s: %w", id, err)
	}
	return blog, nil
}

// Create stores a new blog owned by userID.
//
// userID comes from a verified token, but the user may have been deleted
// since the token was issued, so it is looked up again. A missing user is
// an authentication failure, not a 404.
func (s *BlogService) Create(ctx context.Context, userID string, in BlogInput) (*model.Blog, error) {
	if userID == "" {
		return nil, apperror.Unauthorized(msgTokenRequired)
	}

	in = in.normalize()
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	owner, err := s.resolveOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	blog := &model.Blog{
		Title:  in.Title,
		Author: in.Author,
		URL:    in.URL,
		UserID: owner.ID,
	}
	if in.Likes != nil {
		blog.Likes = *in.Likes
	}

	if err := s.blogs.CreateBlog(ctx, blog); err != nil {
		// The user can be removed between the lookup and the insert.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgUserGone)
		}
		return nil, fmt.Errorf("service/blog: creating blog: %w", err)
	}
	blog.User = owner.Summary()

	s.logger.Info("blog created",
		slog.String("blogID", blog.ID),
		slog.String("userID", owner.ID),
	)
	return blog, nil
}

// Update applies a partial update.
//
// requesterID is empty for anonymous callers. A patch that only touches
// likes is allowed for anyone; a patch that touches title, author, or url
// needs the owner. The id and owner of a blog never change.
func (s *BlogService) Update(ctx context.Context, requesterID, id string, patch BlogPatch) (*model.Blog, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "blog id is required")
	}
	if patch.empty() {
		return nil, apperror.ValidationFailed("", "Blog validation failed: no fields to update")
	}

	blog, err := s.blogs.GetBlogByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/blog: loading blog %s: %w", id, err)
	}

	if patch.touchesContent() {
		if err := checkOwner(requesterID, blog, "edit"); err != nil {
			return nil, err
		}
	}

	if patch.Title != nil {
		blog.Title = strings.TrimSpace(*patch.Title)
		if verr := validateTitle(blog.Title); verr != nil {
			return nil, verr
		}
	}
	if patch.Author != nil {
		blog.Author = strings.TrimSpace(*patch.Author)
	}
	if patch.URL != nil {
		blog.URL = strings.TrimSpace(*patch.URL)
		if verr := validateURL(blog.URL); verr != nil {
			return nil, verr
		}
	}
	if patch.Likes != nil {
		if verr := validateLikes(*patch.Likes); verr != nil {
			return nil, verr
		}
		blog.Likes = *patch.Likes
	}

	if err := s.blogs.UpdateBlog(ctx, blog); err != nil {
		return nil, fmt.Errorf("service/blog: updating blog %s: %w", id, err)
	}

	s.logger.Info("blog updated",
		slog.String("blogID", blog.ID),
		slog.Bool("contentChanged", patch.touchesContent()),
	)
	return blog, nil
}

// Delete removes a blog. Only its owner may do so.
func (s *BlogService) Delete(ctx context.Context, requesterID, id string) error {
	if requesterID == "" {
		return apperror.Unauthorized(msgTokenRequired)
	}
	if id == "" {
		return apperror.ValidationFailed("id", "blog id is required")
	}

	blog, err := s.blogs.GetBlogByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/blog: loading blog %s: %w", id, err)
	}
	if err := checkOwner(requesterID, blog, "delete"); err != nil {
		return err
	}

	if err := s.blogs.DeleteBlog(ctx, id); err != nil {
		return fmt.Errorf("service/blog: deleting blog %s: %w", id, err)
	}

	s.logger.Info("blog deleted",
		slog.String("blogID", id),
		slog.String("userID", requesterID),
	)
	return nil
}

const (
	msgTokenRequired = "token missing or invalid"
	msgUserGone      = "user for token no longer exists"
)

func (s *BlogService) resolveOwner(ctx context.Context, userID string) (*model.User, error) {
	owner, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgUserGone)
		}
		return nil, fmt.Errorf("service/blog: resolving owner %s: %w", userID, err)
	}
	return owner, nil
}

func checkOwner(requesterID string, blog *model.Blog, action string) error {
	if requesterID == "" {
		return apperror.Unauthorized(msgTokenRequired)
	}
	if blog.UserID != requesterID {
		return apperror.Forbidden(fmt.Sprintf("only the creator of a blog can %s it", action))
	}
	return nil
}
