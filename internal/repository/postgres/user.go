package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/model"
)

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()
	if user.Blogs == nil {
		user.Blogs = []model.BlogSummary{}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (id, username, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Name, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return apperror.Conflict("user", "username", user.Username)
		}
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, title, author, url, likes FROM blogs
		 WHERE user_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing blogs of user %s: %w", id, err)
	}
	blogs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.BlogSummary])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning blogs of user %s: %w", id, err)
	}
	if len(blogs) > 0 {
		u.Blogs = blogs
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with username %s", username),
				Field:   "username",
			}
		}
		return nil, fmt.Errorf("postgres: getting user %q: %w", username, err)
	}
	return u, nil
}

// ListUsersWithBlogs loads all users and then all blog summaries, attaching
// each summary to its owner. Two queries, regardless of the number of users.
func (db *DB) ListUsersWithBlogs(ctx context.Context) ([]model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, username, name, password_hash, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}

	users := []model.User{}
	index := map[string]int{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: scanning user row: %w", err)
		}
		index[u.ID] = len(users)
		users = append(users, *u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating users: %w", err)
	}

	blogRows, err := db.pool.Query(ctx,
		`SELECT id, title, author, url, likes, user_id FROM blogs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing blog summaries: %w", err)
	}
	defer blogRows.Close()

	for blogRows.Next() {
		var (
			b      model.BlogSummary
			userID string
		)
		if err := blogRows.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &userID); err != nil {
			return nil, fmt.Errorf("postgres: scanning blog summary: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Blogs = append(users[i].Blogs, b)
		}
	}
	if err := blogRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating blog summaries: %w", err)
	}

	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Blogs = []model.BlogSummary{}
	return &u, nil
}
