package model

import "time"

// Comment is a free-text reply attached to one Post and one User.
// Only Text is ever modified after creation.
type Comment struct {
	ID         int64
	Text       string
	UserID     int64
	PostID     int64
	CreatedAt  time.Time
	AuthorName string
}

// OwnedBy reports whether userID wrote the comment.
func (c *Comment) OwnedBy(userID int64) bool {
	return c.UserID == userID
}
