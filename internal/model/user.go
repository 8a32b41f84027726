// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Stores fill them in, services
// pass them around, and templates render them.
package model

import "time"

// User is a registered account.
//
// PasswordHash is a bcrypt string and never leaves the server.
// GitHubID is nil for users who registered with a password; it is set for
// accounts created through GitHub login, and the UNIQUE constraint on
// github_id maps one GitHub account to exactly one user.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	GitHubID     *int64
	CreatedAt    time.Time
}
