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

// CreateUser inserts a new user, assigning its ID and CreatedAt.
//
// The UNIQUE constraint on username is the last line of defence against two
// concurrent registrations of the same name; it surfaces as
// apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()
	if user.Blogs == nil {
		user.Blogs = []model.BlogSummary{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Name,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "username", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user and their blogs by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM users WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	if u.Blogs, err = db.blogSummariesFor(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername is the login lookup. Blogs are not loaded.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM users WHERE username = ?`,
		username,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with username %s", username),
				Field:   "username",
			}
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

// ListUsersWithBlogs loads all users, then all blogs in a single second
// query, and attaches each blog summary to its owner. Two queries total,
// regardless of the number of users.
func (db *DB) ListUsersWithBlogs(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM users
		 ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}

	users := []model.User{}
	index := map[string]int{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		u.Blogs = []model.BlogSummary{}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	// Release the single pooled connection before the next query.
	rows.Close()

	blogRows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, author, url, likes, user_id
		 FROM blogs
		 ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blog summaries: %w", err)
	}
	defer blogRows.Close()

	for blogRows.Next() {
		var (
			b      model.BlogSummary
			userID string
		)
		if err := blogRows.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning blog summary: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Blogs = append(users[i].Blogs, b)
		}
	}
	if err := blogRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating blog summaries: %w", err)
	}

	return users, nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Blogs = []model.BlogSummary{}
	return &u, nil
}

// blogSummariesFor returns one user's blogs in creation order.
func (db *DB) blogSummariesFor(ctx context.Context, userID string) ([]model.BlogSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, author, url, likes
		 FROM blogs
		 WHERE user_id = ?
		 ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs of user %s: %w", userID, err)
	}
	defer rows.Close()

	blogs := []model.BlogSummary{}
	for rows.Next() {
		var b model.BlogSummary
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes); err != nil {
			return nil, fmt.Errorf("sqlite: scanning blog summary: %w", err)
		}
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating blogs of user %s: %w", userID, err)
	}
	return blogs, nil
}
