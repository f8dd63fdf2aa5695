package service

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sakif/bloglist/internal/apperror"
	"github.com/sakif/bloglist/internal/auth"
)

// Validation constants. Lengths are in characters, except MaxURLLength,
// which is in bytes.
const (
	MinPasswordLength = 3
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MaxTitleLength    = 300
	MaxURLLength      = 2048
	// MaxLikes is the largest value both stores can hold (PostgreSQL INTEGER).
	MaxLikes = math.MaxInt32
)

// msgInvalidPassword is part of the public API contract: clients match on it.
const msgInvalidPassword = "invalid password"

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// normalize trims the fields that are stored verbatim. Passwords are never
// trimmed: a leading space is part of the secret.
func (in RegisterInput) normalize() RegisterInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	return in
}

// Validate checks the registration pre-conditions that need no store access.
// The password is checked first, so a request that is wrong on both counts
// reports the password.
func (in RegisterInput) Validate() *apperror.AppError {
	if utf8.RuneCountInString(in.Password) < MinPasswordLength || len(in.Password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", msgInvalidPassword)
	}

	switch n := utf8.RuneCountInString(in.Username); {
	case n == 0:
		return userValidation("is required")
	case n < MinUsernameLength:
		return userValidation(fmt.Sprintf("must be at least %d characters", MinUsernameLength))
	case n > MaxUsernameLength:
		return userValidation(fmt.Sprintf("must be at most %d characters", MaxUsernameLength))
	}

	return nil
}

func userValidation(detail string) *apperror.AppError {
	return apperror.ValidationFailed("username", "User validation failed: username: "+detail)
}

// BlogInput is the create payload. Likes is a pointer so an omitted value
// can default to zero while an explicit negative value is still rejected.
type BlogInput struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
}

func (in BlogInput) normalize() BlogInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.URL = strings.TrimSpace(in.URL)
	return in
}

// Validate checks a create payload after normalization.
func (in BlogInput) Validate() *apperror.AppError {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateURL(in.URL); err != nil {
		return err
	}
	if in.Likes != nil {
		return validateLikes(*in.Likes)
	}
	return nil
}

// BlogPatch is the update payload. Nil fields are left unchanged.
type BlogPatch struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
	Likes  *int    `json:"likes"`
}

// touchesContent reports whether the patch edits anything other than likes.
func (p BlogPatch) touchesContent() bool {
	return p.Title != nil || p.Author != nil || p.URL != nil
}

func (p BlogPatch) empty() bool {
	return !p.touchesContent() && p.Likes == nil
}

func validateTitle(title string) *apperror.AppError {
	if title == "" {
		return blogValidation("title", "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return blogValidation("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	return nil
}

func validateURL(url string) *apperror.AppError {
	if url == "" {
		return blogValidation("url", "is required")
	}
	if len(url) > MaxURLLength {
		return blogValidation("url", fmt.Sprintf("must be at most %d bytes", MaxURLLength))
	}
	return nil
}

func validateLikes(likes int) *apperror.AppError {
	if likes < 0 {
		return blogValidation("likes", "must not be negative")
	}
	if likes > MaxLikes {
		return blogValidation("likes", fmt.Sprintf("must be at most %d", MaxLikes))
	}
	return nil
}

func blogValidation(field, detail string) *apperror.AppError {
	return apperror.ValidationFailed(field, fmt.Sprintf("Blog validation failed: %s: %s", field, detail))
}
