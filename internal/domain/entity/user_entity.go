package entity

import (
	"time"
)

// User owns items and logs in by email.
// Password holds the bcrypt hash, never the plain text.
type User struct {
	ID        string
	Name      string
	Email     string
	TaxID     string
	Phone     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
