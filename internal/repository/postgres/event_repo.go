package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"eventhub/internal/domain"
)

const eventColumns = `id, name, description, scheduled_at, image, category, organiser_id, attendees, attendee_count, created_at, updated_at`

// maxJoinAttempts bounds how often AddAttendee re-runs its conditional update when the
// row changed between the update and the follow-up read.
const maxJoinAttempts = 3

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (name, description, scheduled_at, image, category, organiser_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return r.DB.QueryRowContext(ctx, query,
		e.Name, e.Description, e.ScheduledAt, e.Image, e.Category, e.OrganiserID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return e, nil
}

// List returns matching events in creation order and the total number of matches before pagination.
func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	where, args := eventFilterClause(filter)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY created_at ASC, id ASC`
	if p := filter.Pagination; p != nil {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, p.PageSize, p.Offset())
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func eventFilterClause(filter domain.EventFilter) (string, []any) {
	var conds []string
	var args []any
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("LOWER(category) = LOWER($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *eventRepository) Update(ctx context.Context, eventID string, u domain.EventUpdate) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	if u.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", n))
		args = append(args, *u.Name)
		n++
	}
	if u.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", n))
		args = append(args, *u.Description)
		n++
	}
	if u.ScheduledAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("scheduled_at = $%d", n))
		args = append(args, *u.ScheduledAt)
		n++
	}
	if u.Image != nil {
		setClauses = append(setClauses, fmt.Sprintf("image = $%d", n))
		args = append(args, *u.Image)
		n++
	}
	if u.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", n))
		args = append(args, *u.Category)
		n++
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return notFoundOr(err, domain.ErrNotFound)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddAttendee appends userID and recomputes the count in a single conditional UPDATE.
// When no row qualifies, the current row decides which error applies.
func (r *eventRepository) AddAttendee(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	query := `
		UPDATE events
		SET attendees = array_append(attendees, $2::uuid),
		    attendee_count = cardinality(attendees) + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND organiser_id <> $2::uuid
		  AND NOT ($2::uuid = ANY(attendees))
		RETURNING ` + eventColumns
	for range maxJoinAttempts {
		e, err := scanEvent(r.DB.QueryRowContext(ctx, query, eventID, userID))
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundOr(err, domain.ErrNotFound)
		}
		current, err := r.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		switch {
		case current.IsOrganiser(userID):
			return nil, domain.ErrForbidden
		case current.HasAttendee(userID):
			return nil, domain.ErrAlreadyJoined
		}
	}
	return nil, fmt.Errorf("add attendee: event %s kept changing", eventID)
}

// RemoveAttendee drops userID from the set. A caller that is not attending gets the unchanged event.
func (r *eventRepository) RemoveAttendee(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	query := `
		UPDATE events
		SET attendees = array_remove(attendees, $2::uuid),
		    attendee_count = cardinality(array_remove(attendees, $2::uuid)),
		    updated_at = NOW()
		WHERE id = $1
		  AND $2::uuid = ANY(attendees)
		RETURNING ` + eventColumns
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return r.GetByID(ctx, eventID)
	}
	if err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return e, nil
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var attendees pq.StringArray
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.ScheduledAt, &e.Image, &e.Category, &e.OrganiserID,
		&attendees, &e.AttendeeCount, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Attendees = []string(attendees)
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return e, nil
}
