package http

import (
	"log/slog"
	"net/http"

	_ "eventhub/docs"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	Events   *controllers.EventController
	Uploads  *controllers.UploadController
	Realtime *controllers.RealtimeController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(verifier, logger)
	optionalAuth := middleware.OptionalAuth(verifier, logger)

	mux.HandleFunc("GET /api/health", controllers.Health)

	// Auth
	mux.HandleFunc("POST /api/auth/register", c.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", c.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", requireAuth(c.Auth.Logout))
	mux.HandleFunc("GET /api/auth/me", requireAuth(c.Auth.Me))

	// Events
	mux.HandleFunc("GET /api/events", optionalAuth(c.Events.ListEvents))
	mux.HandleFunc("POST /api/events", requireAuth(c.Events.CreateEvent))
	mux.HandleFunc("GET /api/events/{eventID}", optionalAuth(c.Events.GetEvent))
	mux.HandleFunc("PUT /api/events/{eventID}", requireAuth(c.Events.UpdateEvent))
	mux.HandleFunc("DELETE /api/events/{eventID}", requireAuth(c.Events.DeleteEvent))
	mux.HandleFunc("POST /api/events/{eventID}/join", requireAuth(c.Events.JoinEvent))
	mux.HandleFunc("POST /api/events/{eventID}/leave", requireAuth(c.Events.LeaveEvent))
	mux.HandleFunc("GET /api/events/{eventID}/attendees", optionalAuth(c.Events.ListAttendees))

	// Uploads
	mux.HandleFunc("POST /api/uploads/images", requireAuth(c.Uploads.PresignImage))

	// Realtime
	mux.HandleFunc("GET /api/ws", c.Realtime.Connect)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with request logging and CORS.
func NewHandler(mux http.Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	return middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, mux))
}
