// Package memory provides in-process repositories for local development and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := r.byEmail[key]; ok {
		return domain.ErrDuplicateEmail
	}
	u.ID = uuid.NewString()
	stored := *u
	r.byID[u.ID] = &stored
	r.byEmail[key] = u.ID
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *stored
	return &u, nil
}

func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if stored, ok := r.byID[id]; ok {
			u := *stored
			users = append(users, &u)
		}
	}
	return users, nil
}
