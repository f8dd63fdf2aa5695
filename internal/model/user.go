// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// PasswordHash carries a `json:"-"` tag: it is loaded from storage for login
// checks but can never leak into an API response, whichever handler encodes
// the struct.
type User struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Blogs        []BlogSummary `json:"blogs"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// UserSummary is the owner projection embedded in a Blog.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Summary returns the owner projection of u.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Username: u.Username, Name: u.Name}
}
