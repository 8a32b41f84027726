package postgres

import (
	"time"

	"github.com/sakif/miniblog/internal/model"
)

// GORM STRUCT TAGS:
// gorm reads the `gorm:"..."` tag on each field to build the schema:
//   - primaryKey           → the column is the primary key (BIGSERIAL for int64)
//   - not null, uniqueIndex, index → the obvious constraints
//   - type:text            → TEXT instead of gorm's default VARCHAR
//   - check:name,expr      → a named CHECK constraint
//   - foreignKey / constraint:OnDelete:CASCADE → the foreign key and what
//     happens to this row when the referenced row is deleted
//
// Length limits are CHECKs on TEXT columns rather than VARCHAR(n): a
// VARCHAR overflow (22001) does not say which column overflowed, a named
// CHECK (23514) does.

// userRecord is a row of the users table.
type userRecord struct {
	ID           int64     `gorm:"primaryKey"`
	Username     string    `gorm:"type:text;not null;uniqueIndex;check:chk_users_username,char_length(username) <= 100"`
	Email        string    `gorm:"type:text;not null;uniqueIndex;check:chk_users_email,char_length(email) <= 100"`
	PasswordHash string    `gorm:"size:256;not null;uniqueIndex"`
	IsActive     bool      `gorm:"not null"`
	GitHubID     *int64    `gorm:"column:github_id;uniqueIndex"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName overrides gorm's default naming (which would also be "users",
// but spelling it out keeps the SQL in this package greppable).
func (userRecord) TableName() string { return "users" }

func (r *userRecord) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Active:       r.IsActive,
		GitHubID:     r.GitHubID,
		CreatedAt:    r.CreatedAt,
	}
}

// categoryRecord is a row of the categories lookup table.
type categoryRecord struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null"`
}

// TableName maps categoryRecord to the categories table.
func (categoryRecord) TableName() string { return "categories" }

func (r *categoryRecord) toModel() model.Category {
	return model.Category{ID: r.ID, Name: r.Name}
}

// postRecord is a row of the posts table. Author and Category are filled
// only when the query Preloads them.
type postRecord struct {
	ID         int64          `gorm:"primaryKey"`
	Title      string         `gorm:"type:text;not null;uniqueIndex;check:chk_posts_title,char_length(title) <= 100"`
	Content    string         `gorm:"type:text;not null;uniqueIndex;check:chk_posts_content,char_length(content) <= 300"`
	CreatedAt  time.Time      `gorm:"not null;index"`
	UserID     int64          `gorm:"not null;index"`
	CategoryID int64          `gorm:"not null"`
	Author     userRecord     `gorm:"foreignKey:UserID"`
	Category   categoryRecord `gorm:"foreignKey:CategoryID"`
}

// TableName maps postRecord to the posts table.
func (postRecord) TableName() string { return "posts" }

func (r *postRecord) toModel() model.Post {
	return model.Post{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		UserID:       r.UserID,
		CategoryID:   r.CategoryID,
		CreatedAt:    r.CreatedAt,
		AuthorName:   r.Author.Username,
		CategoryName: r.Category.Name,
	}
}

// commentRecord is a row of the comments table.
//
// The Post association exists for its constraint tag alone: it makes
// AutoMigrate create comments.post_id REFERENCES posts(id) ON DELETE
// CASCADE. Nothing preloads it.
type commentRecord struct {
	ID        int64      `gorm:"primaryKey"`
	Text      string     `gorm:"type:text;not null;check:chk_comments_text,char_length(text) <= 200"`
	CreatedAt time.Time  `gorm:"not null"`
	UserID    int64      `gorm:"not null"`
	PostID    int64      `gorm:"not null;index"`
	Author    userRecord `gorm:"foreignKey:UserID"`
	Post      postRecord `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;"`
}

// TableName maps commentRecord to the comments table.
func (commentRecord) TableName() string { return "comments" }

func (r *commentRecord) toModel() model.Comment {
	return model.Comment{
		ID:         r.ID,
		Text:       r.Text,
		UserID:     r.UserID,
		PostID:     r.PostID,
		CreatedAt:  r.CreatedAt,
		AuthorName: r.Author.Username,
	}
}

// sessionRecord is one login. RevokedAt is nil until logout.
type sessionRecord struct {
	ID        string     `gorm:"primaryKey;size:36"`
	UserID    int64      `gorm:"not null;index"`
	User      userRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time  `gorm:"not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time
}

// TableName maps sessionRecord to the sessions table.
func (sessionRecord) TableName() string { return "sessions" }

func (r *sessionRecord) toModel() *model.Session {
	return &model.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		RevokedAt: r.RevokedAt,
	}
}
