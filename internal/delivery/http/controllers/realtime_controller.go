package controllers

import (
	"log/slog"
	"net/http"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/gorilla/websocket"
)

// ConnectionServer runs an upgraded connection until it closes.
type ConnectionServer interface {
	Serve(conn *websocket.Conn, identity *domain.Identity)
}

type RealtimeController struct {
	Logger   *slog.Logger
	Verifier domain.TokenVerifier
	Server   ConnectionServer
	upgrader websocket.Upgrader
}

// NewRealtimeController accepts upgrades from the given browser origins. Requests without
// an Origin header (non-browser clients) are always accepted.
func NewRealtimeController(logger *slog.Logger, verifier domain.TokenVerifier, server ConnectionServer, allowedOrigins []string) *RealtimeController {
	allowed := middleware.NormalizeOrigins(allowedOrigins)
	return &RealtimeController{
		Logger:   logger,
		Verifier: verifier,
		Server:   server,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Connect godoc
// @Summary Subscribe to attendee updates
// @Description Upgrades to a WebSocket. The session token is read from the token query parameter, the Authorization header or the session cookie. Server frames look like {"event":"eventUpdate","payload":{"eventId":"...","attendeeCount":3}}.
// @Tags realtime
// @Param token query string false "Session token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /ws [get]
func (c *RealtimeController) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		if token, err = middleware.TokenFromRequest(r); err != nil {
			helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, err.Error())
			return
		}
	}
	identity, err := c.Verifier.Verify(token)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid or expired token")
		return
	}
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		c.Logger.WarnContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	c.Server.Serve(conn, identity)
}
