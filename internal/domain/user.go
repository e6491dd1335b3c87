package domain

import "time"

// User represents an account: an admin or a dog owner.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	Name         string
	Phone        *string
	IsAdmin      bool
	CreatedAt    time.Time
}
