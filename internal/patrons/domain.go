// internal/patrons/domain.go
package patrons

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role determines what a patron may do and how many tokens they hold.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleStudent || r == RoleFaculty || r == RoleAdmin
}

// Patron is a library account. Students carry academic profile fields;
// admins are privileged accounts that cannot be deleted through the
// patron-delete path.
type Patron struct {
	ID             uuid.UUID `json:"id" db:"id"`
	FullName       string    `json:"full_name" db:"full_name"`
	Email          string    `json:"email" db:"email"`
	Role           Role      `json:"role" db:"role"`
	Mobile         string    `json:"mobile,omitempty" db:"mobile"`
	RegistrationNo string    `json:"registration_number,omitempty" db:"registration_no"`
	Branch         string    `json:"branch,omitempty" db:"branch"`
	Year           string    `json:"year,omitempty" db:"year"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	PasswordSalt   string    `json:"-" db:"password_salt"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

var (
	// ErrNotFound is returned when no patron matches the given id or email.
	ErrNotFound = errors.New("patron not found")

	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidProfile is returned when signup input fails validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrForbidden is returned when an admin account is targeted for deletion.
	ErrForbidden = errors.New("admin accounts cannot be deleted")

	// ErrRateLimited is returned when signups arrive faster than allowed.
	ErrRateLimited = errors.New("too many signup attempts")
)
