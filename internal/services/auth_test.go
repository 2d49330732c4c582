package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/adapters/auth"
	"eventhub/internal/domain"
	"eventhub/internal/repository/memory"
)

type failingUserRepo struct {
	domain.UserRepository
	err error
}

func (f *failingUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, f.err
}

func (f *failingUserRepo) Create(ctx context.Context, u *domain.User) error { return f.err }

func newAuthService(t *testing.T, emails domain.EmailService) (domain.AuthService, *memory.UserRepository) {
	t.Helper()
	repo := memory.NewUserRepository()
	jwt := auth.NewJWT("test-secret")
	return NewAuthService(repo, auth.NewBcryptHasher(4), jwt, jwt, emails, testLogger, 0, time.Second), repo
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{"success", "Alice", "Alice@Example.com ", "password123", nil},
		{"missing name", " ", "bob@example.com", "password123", domain.ErrValidation},
		{"invalid email", "Bob", "not-an-email", "password123", domain.ErrValidation},
		{"short password", "Bob", "bob@example.com", "short", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emails := &fakeEmailService{}
			svc, repo := newAuthService(t, emails)
			user, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, emails.last)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", user.Email)
			assert.Equal(t, domain.RoleUser, user.Role)
			assert.NotEqual(t, tt.password, user.PasswordHash)

			stored, err := repo.GetByEmail(ctx, "alice@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, stored.ID)

			require.NotNil(t, emails.last)
			assert.Equal(t, user.ID, emails.last.UserID)
		})
	}
}

func TestAuthService_Register_duplicate_email(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Alice Again", "ALICE@example.com", "password456")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthService_Register_email_failure_is_not_fatal(t *testing.T) {
	svc, _ := newAuthService(t, &fakeEmailService{err: errors.New("ses down")})
	user, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
}

func TestAuthService_Register_storage_failure(t *testing.T) {
	jwt := auth.NewJWT("s")
	svc := NewAuthService(&failingUserRepo{err: errors.New("db down")}, auth.NewBcryptHasher(4), jwt, jwt, nil, testLogger, 0, time.Second)
	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)
	registered, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	t.Run("correct credentials issue a verifiable token", func(t *testing.T) {
		token, user, err := svc.Login(ctx, " ALICE@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		identity, err := svc.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, identity.UserID)
		assert.Equal(t, []string{domain.RoleUser}, identity.Roles)
		assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), identity.ExpiresAt, time.Minute)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "password123")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		jwt := auth.NewJWT("s")
		broken := NewAuthService(&failingUserRepo{err: errors.New("db down")}, auth.NewBcryptHasher(4), jwt, jwt, nil, testLogger, 0, time.Second)
		_, _, err := broken.Login(ctx, "alice@example.com", "password123")
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestAuthService_Verify(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)

	_, err := svc.Verify(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Expired the moment it was issued.
	expired, err := auth.NewJWT("test-secret").Issue("user-1", "a@example.com", nil, -time.Second)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_GetByID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)
	registered, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	user, err := svc.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
