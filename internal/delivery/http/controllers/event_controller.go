package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// CreateEventRequest is the request body for POST /api/events.
type CreateEventRequest struct {
	EventName   string `json:"eventName"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

// Validate implements Validator. Returns error messages for required fields.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.EventName) == "" {
		errs = append(errs, "eventName is required")
	}
	if strings.TrimSpace(c.Date) == "" {
		errs = append(errs, "date is required")
	}
	return errs
}

// UpdateEventRequest is the request body for PUT /api/events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	EventName   *string `json:"eventName"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Image       *string `json:"image"`
	Category    *string `json:"category"`
}

func (u UpdateEventRequest) patch() domain.EventPatch {
	return domain.EventPatch{
		Name:        u.EventName,
		Description: u.Description,
		Date:        u.Date,
		Time:        u.Time,
		Image:       u.Image,
		Category:    u.Category,
	}
}

// EventView is an event as seen by a particular caller.
// swagger:model EventView
type EventView struct {
	*domain.Event
	IsOrganiser bool `json:"isOrganiser"`
	IsAttending bool `json:"isAttending"`
}

func newEventView(e *domain.Event, viewerID string) EventView {
	return EventView{
		Event:       e,
		IsOrganiser: e.IsOrganiser(viewerID),
		IsAttending: viewerID != "" && e.HasAttendee(viewerID),
	}
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  EventView         `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for GET /api/events.
type EventListSuccessResponse struct {
	Data  []EventView       `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// eventIDFromPath returns the event ID path value, writing 404 when it is not a UUID.
func (c *EventController) eventIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
		return "", false
	}
	return eventID, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return userID, ok
}

// ListEvents godoc
// @Summary List events
// @Description Lists events in creation order. Optional search matches name and description case-insensitively; category matches exactly (case-insensitive). page/page_size paginate only when supplied. The total is returned in X-Total-Count.
// @Tags events
// @Produce json
// @Param search query string false "Substring of name or description"
// @Param category query string false "Category"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Header 200 {integer} X-Total-Count "Total matching events"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Search:     strings.TrimSpace(q.Get("search")),
		Category:   strings.TrimSpace(q.Get("category")),
		Pagination: helpers.ParsePagination(r),
	}
	events, total, err := c.Service.ListEvents(r.Context(), filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e, viewerID))
	}
	helpers.SetTotalCount(w, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventIDFromPath(w, r)
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	helpers.WriteJSONSuccess(w, http.StatusOK, newEventView(event, viewerID))
}

// CreateEvent godoc
// @Summary Create a new event
// @Description The authenticated user becomes the organiser. date is YYYY-MM-DD (or RFC 3339) and time is HH:MM.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), userID, domain.EventDraft{
		Name:        req.EventName,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Image:       req.Image,
		Category:    req.Category,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, newEventView(event, userID))
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Organiser only. Omitted fields keep their values.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param event body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	eventID, ok := c.eventIDFromPath(w, r)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, userID, req.patch())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newEventView(event, userID))
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Organiser only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.message confirms deletion"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	eventID, ok := c.eventIDFromPath(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, userID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "event deleted"})
}

// JoinEvent godoc
// @Summary Join an event
// @Description Adds the caller to the attendee set. Joining twice is rejected; organisers cannot join their own event.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: already_joined"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/join [post]
func (c *EventController) JoinEvent(w http.ResponseWriter, r *http.Request) {
	c.changeMembership(w, r, c.Service.JoinEvent)
}

// LeaveEvent godoc
// @Summary Leave an event
// @Description Removes the caller from the attendee set. Leaving an event the caller has not joined succeeds without change.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/leave [post]
func (c *EventController) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	c.changeMembership(w, r, c.Service.LeaveEvent)
}

func (c *EventController) changeMembership(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, eventID, userID string) (*domain.Event, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	eventID, ok := c.eventIDFromPath(w, r)
	if !ok {
		return
	}
	event, err := op(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newEventView(event, userID))
}

// ListAttendees godoc
// @Summary List attendees of an event
// @Description Returns the public profiles (id, name, email) of the attendee set, in join order.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains public profiles"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendees [get]
func (c *EventController) ListAttendees(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventIDFromPath(w, r)
	if !ok {
		return
	}
	profiles, err := c.Service.ListAttendees(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profiles)
}
