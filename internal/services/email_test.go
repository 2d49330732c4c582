package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

type fakeMailer struct {
	to, subject, html, text string
	err                     error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html, text string) error {
	f.to, f.subject, f.html, f.text = to, subject, html, text
	return f.err
}

type fakeRenderer struct {
	lastTemplate string
	err          error
}

func (f *fakeRenderer) Render(templateName string, data any) (string, string, string, error) {
	f.lastTemplate = templateName
	if f.err != nil {
		return "", "", "", f.err
	}
	return "Welcome", "<p>hi</p>", "hi", nil
}

func TestEmailService_SendWelcomeMessage(t *testing.T) {
	ctx := context.Background()
	data := &domain.WelcomeMessageEmailData{Email: "alice@example.com", Name: "Alice", UserID: "user-1"}

	t.Run("renders and sends", func(t *testing.T) {
		mailer := &fakeMailer{}
		renderer := &fakeRenderer{}
		svc := NewEmailService(mailer, renderer, testLogger)

		require.NoError(t, svc.SendWelcomeMessage(ctx, data))
		assert.Equal(t, "welcome", renderer.lastTemplate)
		assert.Equal(t, "alice@example.com", mailer.to)
		assert.Equal(t, "Welcome", mailer.subject)
		assert.Equal(t, "<p>hi</p>", mailer.html)
		assert.Equal(t, "hi", mailer.text)
	})

	t.Run("nil data", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{}, testLogger)
		assert.Error(t, svc.SendWelcomeMessage(ctx, nil))
	})

	t.Run("render error", func(t *testing.T) {
		mailer := &fakeMailer{}
		svc := NewEmailService(mailer, &fakeRenderer{err: errors.New("bad template")}, testLogger)
		assert.Error(t, svc.SendWelcomeMessage(ctx, data))
		assert.Empty(t, mailer.to)
	})

	t.Run("send error", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{err: errors.New("throttled")}, &fakeRenderer{}, testLogger)
		assert.Error(t, svc.SendWelcomeMessage(ctx, data))
	})
}
