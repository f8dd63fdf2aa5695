package model

import "time"

// Blog is a bookmarked blog post. UserID is the owning user and is set once,
// at creation; User is the owner projection filled in by read queries.
type Blog struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Author    string       `json:"author"`
	URL       string       `json:"url"`
	Likes     int          `json:"likes"`
	UserID    string       `json:"-"`
	User      *UserSummary `json:"user"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// BlogSummary is the projection of a blog listed under its owner.
type BlogSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
}
