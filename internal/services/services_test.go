package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"eventhub/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeNotifier records published updates.
type fakeNotifier struct {
	mu      sync.Mutex
	updates []domain.AttendeeUpdate
}

func (f *fakeNotifier) Publish(ctx context.Context, update domain.AttendeeUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
}

func (f *fakeNotifier) Updates() []domain.AttendeeUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AttendeeUpdate(nil), f.updates...)
}

// fakeEmailService records welcome messages.
type fakeEmailService struct {
	last *domain.WelcomeMessageEmailData
	err  error
}

func (f *fakeEmailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeMessageEmailData) error {
	f.last = data
	return f.err
}

func strPtr(s string) *string { return &s }
