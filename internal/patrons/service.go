// internal/patrons/service.go
package patrons

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Signup is the input to Register.
type Signup struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           Role   `json:"role"`
	Mobile         string `json:"mobile"`
	RegistrationNo string `json:"registration_number"`
	Branch         string `json:"branch"`
	Year           string `json:"year"`
}

// Registry owns patron accounts. Credential verification happens in the
// external auth collaborator; the registry only stores the hashes it needs.
type Registry struct {
	store         Store
	limiter       *rate.Limiter
	studentDomain string
}

// NewRegistry creates a registry whose student emails must belong to
// studentDomain (e.g. "cbit.edu.in").
func NewRegistry(store Store, studentDomain string) *Registry {
	return &Registry{
		store:         store,
		limiter:       rate.NewLimiter(rate.Every(time.Minute), 5),
		studentDomain: strings.ToLower(studentDomain),
	}
}

// Register validates the signup, hashes the password and creates the patron.
// Student emails must structurally match the registration number under the
// institutional domain.
func (r *Registry) Register(ctx context.Context, in Signup) (*Patron, error) {
	if !r.limiter.Allow() {
		return nil, ErrRateLimited
	}

	role := Role(strings.ToLower(string(in.Role)))
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, in.Role)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email required", ErrInvalidProfile)
	}
	if in.FullName == "" {
		return nil, fmt.Errorf("%w: full name required", ErrInvalidProfile)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidProfile)
	}

	if role == RoleStudent {
		if in.RegistrationNo == "" || in.Branch == "" || in.Year == "" || in.Mobile == "" {
			return nil, fmt.Errorf("%w: students must provide registration number, branch, year and mobile", ErrInvalidProfile)
		}
		want := strings.ToLower(in.RegistrationNo) + "@" + r.studentDomain
		if email != want {
			return nil, fmt.Errorf("%w: student email must be %s", ErrInvalidProfile, want)
		}
	}

	hash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &Patron{
		ID:             uuid.New(),
		FullName:       in.FullName,
		Email:          email,
		Role:           role,
		Mobile:         in.Mobile,
		RegistrationNo: in.RegistrationNo,
		Branch:         in.Branch,
		Year:           in.Year,
		PasswordHash:   hash,
		PasswordSalt:   salt,
	}
	if err := r.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a patron account. Admin accounts are never deletable
// through this path.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Role == RoleAdmin {
		return ErrForbidden
	}
	return r.store.Delete(ctx, id)
}

// Get returns a patron by id.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Patron, error) {
	return r.store.Get(ctx, id)
}

// GetByEmail returns a patron by email.
func (r *Registry) GetByEmail(ctx context.Context, email string) (*Patron, error) {
	return r.store.GetByEmail(ctx, email)
}

// List returns every patron.
func (r *Registry) List(ctx context.Context) ([]*Patron, error) {
	return r.store.List(ctx)
}

// SeedAdmin creates the default admin account when none exists yet.
func (r *Registry) SeedAdmin(ctx context.Context, email, password, fullName string) error {
	_, err := r.store.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &Patron{
		ID:           uuid.New(),
		FullName:     fullName,
		Email:        strings.ToLower(email),
		Role:         RoleAdmin,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := r.store.Insert(ctx, admin); err != nil {
		return err
	}
	log.Printf("[INFO] seeded default admin account %s", admin.Email)
	return nil
}
