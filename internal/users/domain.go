package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account for management.
type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Email    string
	FullName string
	Password string
	Role     string
}
