package domain

import (
	"context"
	"time"
)

// Role codes carried on the user record and in session tokens.
const (
	RoleOwner = "owner"
	RoleUser  = "user"
)

// User represents a registered user. PasswordHash and Salt never leave the credential store.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(name, email, role string, createdAt, updatedAt time.Time) *User {
	return &User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// PublicProfile is the subset of a user that may be shown to other users.
// swagger:model PublicProfile
type PublicProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Profile returns the public view of u.
func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Identity is the authenticated caller recovered from a verified session token.
type Identity struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the identity it was issued for.
// Missing, malformed, expired or badly signed tokens yield ErrUnauthorized.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*User, error)
}

// AuthService registers users, exchanges credentials for session tokens and validates them.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	// Login returns ErrUserNotFound for an unknown email and ErrInvalidCredentials for a wrong password.
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	Verify(ctx context.Context, token string) (*Identity, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
