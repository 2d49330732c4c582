package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"eventhub/internal/domain"
)

const eventsNS = "eventhub.events"

func eventBSON(id, organiserID string, attendees ...string) bson.D {
	at := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	arr := bson.A{}
	for _, a := range attendees {
		arr = append(arr, a)
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Go Meetup"},
		{Key: "description", Value: "talks"},
		{Key: "scheduled_at", Value: at},
		{Key: "image", Value: ""},
		{Key: "category", Value: "Technology"},
		{Key: "organiser_id", Value: organiserID},
		{Key: "attendees", Value: arr},
		{Key: "attendee_count", Value: len(attendees)},
		{Key: "created_at", Value: at},
		{Key: "updated_at", Value: at},
	}
}

func updated(doc bson.D) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func noMatch() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
}

func found(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, docs...)
}

func TestEventRepository_AddAttendee(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	tests := []struct {
		name      string
		responses []bson.D
		wantErr   error
		wantCount int
	}{
		{
			name:      "joined",
			responses: []bson.D{updated(eventBSON("ev-1", "org-1", "user-2"))},
			wantCount: 1,
		},
		{
			name:      "organiser rejected",
			responses: []bson.D{noMatch(), found(eventBSON("ev-1", "user-2"))},
			wantErr:   domain.ErrForbidden,
		},
		{
			name:      "already attending",
			responses: []bson.D{noMatch(), found(eventBSON("ev-1", "org-1", "user-2"))},
			wantErr:   domain.ErrAlreadyJoined,
		},
		{
			name:      "missing event",
			responses: []bson.D{noMatch(), found()},
			wantErr:   domain.ErrNotFound,
		},
		{
			name: "retries after concurrent leave",
			responses: []bson.D{
				noMatch(), found(eventBSON("ev-1", "org-1")),
				updated(eventBSON("ev-1", "org-1", "user-2")),
			},
			wantCount: 1,
		},
	}
	for _, tt := range tests {
		mt.Run(tt.name, func(mt *mtest.T) {
			mt.AddMockResponses(tt.responses...)
			e, err := NewEventRepository(mt.DB).AddAttendee(ctx, "ev-1", "user-2")
			if tt.wantErr != nil {
				assert.ErrorIs(mt, err, tt.wantErr)
				assert.Nil(mt, e)
				return
			}
			require.NoError(mt, err)
			assert.Equal(mt, []string{"user-2"}, e.Attendees)
			assert.Equal(mt, tt.wantCount, e.AttendeeCount)
		})
	}

	mt.Run("gives up when the event keeps changing", func(mt *mtest.T) {
		for range maxJoinAttempts {
			mt.AddMockResponses(noMatch(), found(eventBSON("ev-1", "org-1")))
		}
		_, err := NewEventRepository(mt.DB).AddAttendee(ctx, "ev-1", "user-2")
		require.Error(mt, err)
		assert.False(mt, errors.Is(err, domain.ErrNotFound))
		assert.Contains(mt, err.Error(), "kept changing")
	})
}

func TestEventRepository_RemoveAttendee(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("removed", func(mt *mtest.T) {
		mt.AddMockResponses(updated(eventBSON("ev-1", "org-1")))
		e, err := NewEventRepository(mt.DB).RemoveAttendee(ctx, "ev-1", "user-2")
		require.NoError(mt, err)
		assert.Empty(mt, e.Attendees)
		assert.Equal(mt, 0, e.AttendeeCount)
	})

	mt.Run("not attending returns the unchanged event", func(mt *mtest.T) {
		mt.AddMockResponses(noMatch(), found(eventBSON("ev-1", "org-1", "user-3")))
		e, err := NewEventRepository(mt.DB).RemoveAttendee(ctx, "ev-1", "user-2")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"user-3"}, e.Attendees)
		assert.Equal(mt, 1, e.AttendeeCount)
	})

	mt.Run("missing event", func(mt *mtest.T) {
		mt.AddMockResponses(noMatch(), found())
		_, err := NewEventRepository(mt.DB).RemoveAttendee(ctx, "ev-1", "user-2")
		assert.ErrorIs(mt, err, domain.ErrNotFound)
	})
}

func TestEventRepository_Delete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("deleted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(mt, NewEventRepository(mt.DB).Delete(ctx, "ev-1"))
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		assert.ErrorIs(mt, NewEventRepository(mt.DB).Delete(ctx, "ev-1"), domain.ErrNotFound)
	})
}

func TestUserRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		u := domain.NewUser("Alice", "alice@example.com", domain.RoleUser, time.Now(), time.Now())
		require.NoError(mt, NewUserRepository(mt.DB).Create(ctx, u))
		assert.NotEmpty(mt, u.ID)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: eventhub.users index: email_1",
		}))
		u := domain.NewUser("Alice", "alice@example.com", domain.RoleUser, time.Now(), time.Now())
		err := NewUserRepository(mt.DB).Create(ctx, u)
		assert.ErrorIs(mt, err, domain.ErrDuplicateEmail)
		assert.Empty(mt, u.ID)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eventhub.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "user-1"},
			{Key: "name", Value: "Alice"},
			{Key: "email", Value: "alice@example.com"},
			{Key: "role", Value: domain.RoleUser},
			{Key: "password_hash", Value: "hash"},
		}))
		u, err := NewUserRepository(mt.DB).GetByEmail(ctx, "alice@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, "user-1", u.ID)
		assert.Equal(mt, "hash", u.PasswordHash)
	})

	mt.Run("unknown", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eventhub.users", mtest.FirstBatch))
		_, err := NewUserRepository(mt.DB).GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(mt, err, domain.ErrUserNotFound)
	})
}
