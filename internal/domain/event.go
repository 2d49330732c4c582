package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Layouts accepted for the date and time parts of an event schedule.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Event represents an event created by an organiser and joined by attendees.
// AttendeeCount always equals len(Attendees) once persisted.
// swagger:model Event
type Event struct {
	ID            string    `json:"id"`
	Name          string    `json:"eventName"`
	Description   string    `json:"description"`
	ScheduledAt   time.Time `json:"date"`
	Image         string    `json:"image"`
	Category      string    `json:"category"`
	OrganiserID   string    `json:"organiser"`
	Attendees     []string  `json:"attendees"`
	AttendeeCount int       `json:"attendeeCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewEvent returns an active event with an empty attendee set. ID is typically set by the repository on create.
func NewEvent(name, description string, scheduledAt time.Time, image, category, organiserID string, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Name:        name,
		Description: description,
		ScheduledAt: scheduledAt,
		Image:       image,
		Category:    category,
		OrganiserID: organiserID,
		Attendees:   []string{},
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// IsOrganiser reports whether userID owns the event. It is the single authorization
// predicate for edit and delete.
func (e *Event) IsOrganiser(userID string) bool {
	return userID != "" && e.OrganiserID == userID
}

// HasAttendee reports whether userID is in the attendee set.
func (e *Event) HasAttendee(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

// Reschedule combines optional date and time parts with the current schedule.
// A missing part keeps its previous value.
func (e *Event) Reschedule(date, clock *string) (time.Time, error) {
	current := e.ScheduledAt.UTC()
	d := current.Format(DateLayout)
	if date != nil {
		d = *date
	}
	c := current.Format("15:04:05")
	if clock != nil {
		c = *clock
	}
	if date != nil && clock == nil {
		// A full timestamp in date carries its own clock.
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(d)); err == nil {
			return ts.UTC(), nil
		}
	}
	return ParseSchedule(d, c)
}

// ParseSchedule combines a date (YYYY-MM-DD or RFC 3339) and an optional clock (HH:MM or HH:MM:SS) into a UTC instant.
func ParseSchedule(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, date)
		if tsErr != nil {
			return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC 3339", ErrValidation)
		}
		day = ts.UTC()
		if clock == "" {
			return day, nil
		}
	}
	if clock == "" {
		return day.UTC(), nil
	}
	tod, err := time.Parse(TimeLayout, clock)
	if err != nil {
		tod, err = time.Parse("15:04:05", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: time must be HH:MM", ErrValidation)
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC), nil
}

// EventDraft holds the fields supplied when creating an event.
type EventDraft struct {
	Name        string
	Description string
	Date        string
	Time        string
	Image       string
	Category    string
}

// EventPatch holds the editable fields of an event. Nil fields are left unchanged.
type EventPatch struct {
	Name        *string
	Description *string
	Date        *string
	Time        *string
	Image       *string
	Category    *string
}

// EventUpdate is the field-wise override applied by the repository. Nil fields are not written.
type EventUpdate struct {
	Name        *string
	Description *string
	ScheduledAt *time.Time
	Image       *string
	Category    *string
}

// IsEmpty reports whether the update writes no field.
func (u EventUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.ScheduledAt == nil && u.Image == nil && u.Category == nil
}

// EventFilter narrows List results. Pagination is applied only when non-nil.
type EventFilter struct {
	Search     string
	Category   string
	Pagination *PaginationParams
}

// Matches reports whether e satisfies the search and category parts of the filter.
func (f EventFilter) Matches(e *Event) bool {
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q)
}

// EventRepository defines the interface for event storage.
// AddAttendee and RemoveAttendee must mutate the attendee set and count in one atomic update.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, int, error)
	Update(ctx context.Context, id string, update EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
	// AddAttendee returns ErrNotFound, ErrForbidden (caller is the organiser) or ErrAlreadyJoined when nothing was written.
	AddAttendee(ctx context.Context, eventID, userID string) (*Event, error)
	// RemoveAttendee is a no-op when userID is not attending. Returns ErrNotFound if the event is absent.
	RemoveAttendee(ctx context.Context, eventID, userID string) (*Event, error)
}

// EventService defines the event lifecycle: ownership-gated edits and membership changes.
type EventService interface {
	CreateEvent(ctx context.Context, organiserID string, draft EventDraft) (*Event, error)
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, eventID, callerID string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, callerID string) error
	JoinEvent(ctx context.Context, eventID, userID string) (*Event, error)
	LeaveEvent(ctx context.Context, eventID, userID string) (*Event, error)
	ListAttendees(ctx context.Context, eventID string) ([]PublicProfile, error)
}
