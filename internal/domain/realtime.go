package domain

import "context"

// EventUpdateName is the realtime event name carrying attendee count changes.
const EventUpdateName = "eventUpdate"

// AttendeeUpdate is published after a successful join or leave.
type AttendeeUpdate struct {
	EventID       string `json:"eventId"`
	AttendeeCount int    `json:"attendeeCount"`
}

// Notifier fans attendee updates out to connected clients. Publish must not block
// on slow or disconnected clients and gives no delivery guarantee.
type Notifier interface {
	Publish(ctx context.Context, update AttendeeUpdate)
}
