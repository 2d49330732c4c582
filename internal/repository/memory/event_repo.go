package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

// EventRepository keeps events in insertion order. Every mutation happens under one lock,
// so attendee changes are atomic with their count.
type EventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
	order  []string
	now    func() time.Time
}

func NewEventRepository() *EventRepository {
	return &EventRepository{
		events: make(map[string]*domain.Event),
		now:    time.Now,
	}
}

func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.NewString()
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	e.AttendeeCount = len(e.Attendees)
	r.events[e.ID] = clone(e)
	r.order = append(r.order, e.ID)
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(e), nil
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*domain.Event, 0, len(r.order))
	for _, id := range r.order {
		if e := r.events[id]; filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	if p := filter.Pagination; p != nil {
		start, end := p.Window(total)
		matched = matched[start:end]
	}
	out := make([]*domain.Event, 0, len(matched))
	for _, e := range matched {
		out = append(out, clone(e))
	}
	return out, total, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, u domain.EventUpdate) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.IsEmpty() {
		return clone(e), nil
	}
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.ScheduledAt != nil {
		e.ScheduledAt = u.ScheduledAt.UTC()
	}
	if u.Image != nil {
		e.Image = *u.Image
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	e.UpdatedAt = r.now().UTC()
	return clone(e), nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.events, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return nil
}

func (r *EventRepository) AddAttendee(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if e.IsOrganiser(userID) {
		return nil, domain.ErrForbidden
	}
	if e.HasAttendee(userID) {
		return nil, domain.ErrAlreadyJoined
	}
	e.Attendees = append(e.Attendees, userID)
	e.AttendeeCount = len(e.Attendees)
	e.UpdatedAt = r.now().UTC()
	return clone(e), nil
}

func (r *EventRepository) RemoveAttendee(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !e.HasAttendee(userID) {
		return clone(e), nil
	}
	e.Attendees = slices.DeleteFunc(e.Attendees, func(s string) bool { return s == userID })
	e.AttendeeCount = len(e.Attendees)
	e.UpdatedAt = r.now().UTC()
	return clone(e), nil
}

func clone(e *domain.Event) *domain.Event {
	c := *e
	c.Attendees = slices.Clone(e.Attendees)
	if c.Attendees == nil {
		c.Attendees = []string{}
	}
	return &c
}
