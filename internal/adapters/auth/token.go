package auth

import (
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// JWT signs and verifies HS256 session tokens with a shared secret.
// It implements both domain.TokenIssuer and domain.TokenVerifier.
type JWT struct {
	secret []byte
	now    func() time.Time
}

// NewJWT returns a JWT issuer/verifier using the given secret.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), now: time.Now}
}

// Issue returns a token for userID that expires after expiry.
func (j *JWT) Issue(userID, email string, roles []string, expiry time.Duration) (string, error) {
	now := j.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature, algorithm and expiry. Every failure is reported as domain.ErrUnauthorized.
func (j *JWT) Verify(tokenString string) (*domain.Identity, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return &domain.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
