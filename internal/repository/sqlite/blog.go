package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/model"
)

// selectBlogWithOwner joins each blog with its owner so every read returns
// the owner projection without a second round trip.
const selectBlogWithOwner = `
	SELECT b.id, b.title, b.author, b.url, b.likes, b.user_id,
	       b.created_at, b.updated_at,
	       u.username, u.name
	FROM blogs b
	JOIN users u ON u.id = b.user_id`

// CreateBlog inserts a new blog owned by blog.UserID.
//
// xid ids are 20 chars, URL-safe and unique across processes, so no two
// blogs ever share an id. Owner must exist: a dangling user id is reported
// as apperror.ErrNotFound.
func (db *DB) CreateBlog(ctx context.Context, blog *model.Blog) error {
	blog.ID = xid.New().String()
	now := time.Now().UTC()
	blog.CreatedAt = now
	blog.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO blogs (id, title, author, url, likes, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		blog.ID,
		blog.Title,
		blog.Author,
		blog.URL,
		blog.Likes,
		blog.UserID,
		blog.CreatedAt,
		blog.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", blog.UserID)
		}
		return fmt.Errorf("sqlite: creating blog: %w", err)
	}

	return nil
}

// GetBlogByID retrieves a single blog with its owner.
func (db *DB) GetBlogByID(ctx context.Context, id string) (*model.Blog, error) {
	b, err := scanBlog(db.conn.QueryRowContext(ctx, selectBlogWithOwner+` WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("blog", id)
		}
		return nil, fmt.Errorf("sqlite: getting blog %s: %w", id, err)
	}
	return b, nil
}

// ListBlogsWithOwner returns every blog, oldest first, each with its owner.
func (db *DB) ListBlogsWithOwner(ctx context.Context) ([]model.Blog, error) {
	rows, err := db.conn.QueryContext(ctx, selectBlogWithOwner+` ORDER BY b.created_at, b.rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs: %w", err)
	}
	defer rows.Close()

	blogs := []model.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning blog row: %w", err)
		}
		blogs = append(blogs, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating blogs: %w", err)
	}

	return blogs, nil
}

// UpdateBlog writes the mutable fields. user_id and created_at are never
// touched. RowsAffected == 0 means the id is unknown.
func (db *DB) UpdateBlog(ctx context.Context, blog *model.Blog) error {
	blog.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE blogs
		 SET title = ?, author = ?, url = ?, likes = ?, updated_at = ?
		 WHERE id = ?`,
		blog.Title,
		blog.Author,
		blog.URL,
		blog.Likes,
		blog.UpdatedAt,
		blog.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating blog %s: %w", blog.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("blog", blog.ID)
	}

	return nil
}

// DeleteBlog removes a blog by id.
func (db *DB) DeleteBlog(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting blog %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("blog", id)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*model.Blog, error) {
	var (
		b     model.Blog
		owner model.UserSummary
	)
	if err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &b.UserID,
		&b.CreatedAt, &b.UpdatedAt,
		&owner.Username, &owner.Name,
	); err != nil {
		return nil, err
	}
	owner.ID = b.UserID
	b.User = &owner
	return &b, nil
}
