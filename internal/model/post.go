package model

import "time"

// Post is a titled piece of content written by a User under a Category.
//
// AuthorName and CategoryName are not columns of the posts table: stores fill
// them from a join so list pages don't need a lookup per row.
type Post struct {
	ID           int64
	Title        string
	Content      string
	UserID       int64
	CategoryID   int64
	CreatedAt    time.Time
	AuthorName   string
	CategoryName string
}

// OwnedBy reports whether userID is the post's author.
func (p *Post) OwnedBy(userID int64) bool {
	return p.UserID == userID
}
