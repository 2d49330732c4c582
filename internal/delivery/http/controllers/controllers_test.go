package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	eventID1 = "6f1c2b3a-4d5e-4f60-8a7b-9c0d1e2f3a4b"
	userID1  = "11111111-1111-4111-8111-111111111111"
	userID2  = "22222222-2222-4222-8222-222222222222"
)

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	registerErr  error
	loginErr     error
	getByIDErr   error
	token        string
	user         *domain.User
	lastName     string
	lastEmail    string
	lastPassword string
	lastGetByID  string
}

func (f *fakeAuthService) Register(_ context.Context, name, email, password string) (*domain.User, error) {
	f.lastName, f.lastEmail, f.lastPassword = name, email, password
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &domain.User{ID: userID1, Name: name, Email: email, Role: domain.RoleUser, PasswordHash: "hash", Salt: "salt"}, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	f.lastEmail, f.lastPassword = email, password
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) Verify(_ context.Context, token string) (*domain.Identity, error) {
	return nil, domain.ErrUnauthorized
}

func (f *fakeAuthService) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.lastGetByID = id
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.user, nil
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err         error
	event       *domain.Event
	events      []*domain.Event
	total       int
	attendees   []domain.PublicProfile
	lastOp      string
	lastEventID string
	lastUserID  string
	lastDraft   domain.EventDraft
	lastPatch   domain.EventPatch
	lastFilter  domain.EventFilter
}

func (f *fakeEventService) record(op, eventID, userID string) {
	f.lastOp, f.lastEventID, f.lastUserID = op, eventID, userID
}

func (f *fakeEventService) CreateEvent(_ context.Context, organiserID string, draft domain.EventDraft) (*domain.Event, error) {
	f.record("create", "", organiserID)
	f.lastDraft = draft
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Event{ID: eventID1, Name: draft.Name, OrganiserID: organiserID, Attendees: []string{}}, nil
}

func (f *fakeEventService) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	f.record("get", eventID, "")
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(_ context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	f.lastOp = "list"
	f.lastFilter = filter
	return f.events, f.total, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, eventID, callerID string, patch domain.EventPatch) (*domain.Event, error) {
	f.record("update", eventID, callerID)
	f.lastPatch = patch
	return f.event, f.err
}

func (f *fakeEventService) DeleteEvent(_ context.Context, eventID, callerID string) error {
	f.record("delete", eventID, callerID)
	return f.err
}

func (f *fakeEventService) JoinEvent(_ context.Context, eventID, userID string) (*domain.Event, error) {
	f.record("join", eventID, userID)
	return f.event, f.err
}

func (f *fakeEventService) LeaveEvent(_ context.Context, eventID, userID string) (*domain.Event, error) {
	f.record("leave", eventID, userID)
	return f.event, f.err
}

func (f *fakeEventService) ListAttendees(_ context.Context, eventID string) ([]domain.PublicProfile, error) {
	f.record("attendees", eventID, "")
	return f.attendees, f.err
}

// fakeImageStorage implements domain.ImageStorage.
type fakeImageStorage struct {
	err             error
	lastUserID      string
	lastContentType string
}

func (f *fakeImageStorage) PresignUpload(_ context.Context, userID, contentType string) (*domain.ImageUpload, error) {
	f.lastUserID, f.lastContentType = userID, contentType
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageUpload{
		Key:       "events/" + userID + "/img.png",
		UploadURL: "https://bucket.example/events/" + userID + "/img.png?X-Amz-Signature=abc",
		ImageURL:  "https://cdn.example/events/" + userID + "/img.png",
		ExpiresAt: time.Date(2025, 1, 1, 12, 15, 0, 0, time.UTC),
	}, nil
}

// fakeVerifier accepts exactly one token.
type fakeVerifier struct {
	valid  string
	userID string
}

func (f *fakeVerifier) Verify(token string) (*domain.Identity, error) {
	if token == "" || token != f.valid {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Identity{UserID: f.userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// fakeConnServer records served identities and echoes one frame.
type fakeConnServer struct {
	mu     sync.Mutex
	served []*domain.Identity
}

func (f *fakeConnServer) Serve(conn *websocket.Conn, identity *domain.Identity) {
	f.mu.Lock()
	f.served = append(f.served, identity)
	f.mu.Unlock()
	_ = conn.WriteJSON(map[string]string{"hello": identity.UserID})
	_ = conn.Close()
}

func (f *fakeConnServer) servedIdentities() []*domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Identity(nil), f.served...)
}

func newJSONRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), userID))
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&envelope), "response must be valid JSON envelope")
	return envelope
}

// decodeData re-decodes envelope.Data into dest.
func decodeData(t *testing.T, envelope helpers.APIResponse, dest any) {
	t.Helper()
	require.Nil(t, envelope.Error, "success response must have error nil")
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}
