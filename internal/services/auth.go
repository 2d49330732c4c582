package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"eventhub/internal/domain"
)

const (
	minPasswordLen = 8
	// DefaultTokenTTL is the lifetime of a session token.
	DefaultTokenTTL = 24 * time.Hour
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type authService struct {
	userRepo       domain.UserRepository
	hasher         domain.PasswordHasher
	issuer         domain.TokenIssuer
	verifier       domain.TokenVerifier
	emailService   domain.EmailService
	logger         *slog.Logger
	tokenTTL       time.Duration
	contextTimeout time.Duration
}

// NewAuthService creates an AuthService. emailService may be nil, in which case no welcome email is sent.
func NewAuthService(
	userRepo domain.UserRepository,
	hasher domain.PasswordHasher,
	issuer domain.TokenIssuer,
	verifier domain.TokenVerifier,
	emailService domain.EmailService,
	logger *slog.Logger,
	tokenTTL time.Duration,
	timeout time.Duration,
) domain.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		userRepo:       userRepo,
		hasher:         hasher,
		issuer:         issuer,
		verifier:       verifier,
		emailService:   emailService,
		logger:         logger,
		tokenTTL:       tokenTTL,
		contextTimeout: timeout,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := domain.NewUser(name, email, domain.RoleUser, now, now)
	user.PasswordHash = hash
	user.Salt = salt
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w: %w", domain.ErrStorage, err)
	}

	if s.emailService != nil {
		data := &domain.WelcomeMessageEmailData{Email: user.Email, Name: user.Name, UserID: user.ID}
		if err := s.emailService.SendWelcomeMessage(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "welcome email failed", "user_id", user.ID, "err", err)
		}
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrUserNotFound
		}
		return "", nil, fmt.Errorf("get user: %w: %w", domain.ErrStorage, err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("compare password: %w", err)
	}

	token, err := s.issuer.Issue(user.ID, user.Email, []string{user.Role}, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

func (s *authService) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	identity, err := s.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return identity, nil
}

func (s *authService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w: %w", domain.ErrStorage, err)
	}
	return user, nil
}
