// Package models defines server-side data models persisted in the database.
package models

import "time"

type User struct {
	ID       string
	UserName string
	// PasswordHash is an encoded argon2id hash (see cryptox.HashPassword).
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the public part of a user. FriendCode is empty until the
// allocator has claimed one.
type Profile struct {
	UserID     string
	Nickname   string
	FriendCode string
}
