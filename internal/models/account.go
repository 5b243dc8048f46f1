package models

import "time"

// User is a registered account.
type User struct {
	ID           string    `db:"id" json:"$id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"$createdAt"`
}

// Session is a login session. Secret is only filled on creation.
type Session struct {
	ID        string    `db:"id" json:"$id"`
	UserID    string    `db:"user_id" json:"userId"`
	ExpiresAt time.Time `db:"expires_at" json:"expire"`
	CreatedAt time.Time `db:"created_at" json:"$createdAt"`
	Secret    string    `db:"-" json:"secret,omitempty"`
}
