package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventhub/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	notifier       domain.Notifier
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

func NewEventService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// passThrough reports whether err is a domain outcome that callers translate themselves.
func passThrough(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound, domain.ErrForbidden, domain.ErrAlreadyJoined, domain.ErrValidation, domain.ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func storageErr(op string, err error) error {
	if passThrough(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, organiserID string, draft domain.EventDraft) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if organiserID == "" {
		return nil, domain.ErrUnauthorized
	}
	for _, f := range []struct{ name, value string }{
		{"eventName", draft.Name},
		{"description", draft.Description},
		{"date", draft.Date},
		{"category", draft.Category},
	} {
		if err := required(f.name, f.value); err != nil {
			return nil, err
		}
	}
	scheduledAt, err := domain.ParseSchedule(draft.Date, draft.Time)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := domain.NewEvent(
		strings.TrimSpace(draft.Name),
		strings.TrimSpace(draft.Description),
		scheduledAt,
		strings.TrimSpace(draft.Image),
		strings.TrimSpace(draft.Category),
		organiserID,
		now, now,
	)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, storageErr("create event", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storageErr("get event", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageErr("list events", err)
	}
	return events, total, nil
}

// UpdateEvent applies patch field by field. Omitted fields keep their value; organiser and attendees are never touched.
func (s *eventService) UpdateEvent(ctx context.Context, eventID, callerID string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storageErr("get event", err)
	}
	if !event.IsOrganiser(callerID) {
		return nil, domain.ErrForbidden
	}

	update, err := buildUpdate(event, patch)
	if err != nil {
		return nil, err
	}
	updated, err := s.eventRepo.Update(ctx, eventID, update)
	if err != nil {
		return nil, storageErr("update event", err)
	}
	return updated, nil
}

func buildUpdate(event *domain.Event, patch domain.EventPatch) (domain.EventUpdate, error) {
	var u domain.EventUpdate
	trimmed := func(field string, v *string, allowEmpty bool) (*string, error) {
		if v == nil {
			return nil, nil
		}
		t := strings.TrimSpace(*v)
		if !allowEmpty && t == "" {
			return nil, fmt.Errorf("%w: %s cannot be empty", domain.ErrValidation, field)
		}
		return &t, nil
	}
	var err error
	if u.Name, err = trimmed("eventName", patch.Name, false); err != nil {
		return u, err
	}
	if u.Description, err = trimmed("description", patch.Description, false); err != nil {
		return u, err
	}
	if u.Category, err = trimmed("category", patch.Category, false); err != nil {
		return u, err
	}
	if u.Image, err = trimmed("image", patch.Image, true); err != nil {
		return u, err
	}
	if patch.Date != nil || patch.Time != nil {
		at, err := event.Reschedule(patch.Date, patch.Time)
		if err != nil {
			return u, err
		}
		u.ScheduledAt = &at
	}
	return u, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return storageErr("get event", err)
	}
	if !event.IsOrganiser(callerID) {
		return domain.ErrForbidden
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return storageErr("delete event", err)
	}
	return nil
}

// JoinEvent adds userID to the attendee set. Organisers and existing attendees are rejected.
func (s *eventService) JoinEvent(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	event, err := s.eventRepo.AddAttendee(ctx, eventID, userID)
	if err != nil {
		return nil, storageErr("join event", err)
	}
	s.publish(ctx, event)
	return event, nil
}

// LeaveEvent removes userID from the attendee set; leaving an event the user never joined succeeds unchanged.
func (s *eventService) LeaveEvent(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	event, err := s.eventRepo.RemoveAttendee(ctx, eventID, userID)
	if err != nil {
		return nil, storageErr("leave event", err)
	}
	s.publish(ctx, event)
	return event, nil
}

func (s *eventService) publish(ctx context.Context, event *domain.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, domain.AttendeeUpdate{EventID: event.ID, AttendeeCount: event.AttendeeCount})
	s.logger.DebugContext(ctx, "attendee update published", "event_id", event.ID, "attendee_count", event.AttendeeCount)
}

// ListAttendees resolves the attendee set to public profiles, in join order.
func (s *eventService) ListAttendees(ctx context.Context, eventID string) ([]domain.PublicProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storageErr("get event", err)
	}
	users, err := s.userRepo.ListByIDs(ctx, event.Attendees)
	if err != nil {
		return nil, storageErr("list attendees", err)
	}
	profiles := make([]domain.PublicProfile, 0, len(users))
	for _, u := range users {
		p := u.Profile()
		p.Role = ""
		profiles = append(profiles, p)
	}
	return profiles, nil
}
