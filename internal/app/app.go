// Package app wires configuration, storage, adapters and services into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventhub/config"
	"eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/email"
	"eventhub/internal/adapters/realtime"
	"eventhub/internal/adapters/storage"
	delivery "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/domain"
	"eventhub/internal/repository/memory"
	"eventhub/internal/repository/mongodb"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"

	"golang.org/x/sync/errgroup"
)

const (
	passwordHashCost  = 10
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	hub     *realtime.Hub
	closers []func(context.Context) error
}

// stores holds the repositories of the selected driver, with schema and indexes up to date.
type stores struct {
	users  domain.UserRepository
	events domain.EventRepository
	close  func(context.Context) error
}

// New opens the configured store, applies pending schema changes and builds the HTTP server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &App{cfg: cfg, logger: logger, closers: []func(context.Context) error{st.close}}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("create mailer: %w", err)
	}

	images, err := newImageStorage(ctx, cfg.Images, logger)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	jwt := auth.NewJWT(cfg.JWTSecret)
	app.hub = realtime.NewHub(logger)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	authService := services.NewAuthService(st.users, auth.NewBcryptHasher(passwordHashCost), jwt, jwt, emailService, logger, cfg.TokenTTL, cfg.RequestTimeout)
	eventService := services.NewEventService(st.events, st.users, app.hub, logger, cfg.RequestTimeout)

	mux := delivery.NewRouter(delivery.Controllers{
		Auth:     controllers.NewAuthController(logger, authService, cfg.TokenTTL, cfg.CookieSecure),
		Events:   controllers.NewEventController(logger, eventService),
		Uploads:  controllers.NewUploadController(logger, images),
		Realtime: controllers.NewRealtimeController(logger, jwt, app.hub, cfg.CORSAllowedOrigins),
	}, jwt, logger)

	app.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           delivery.NewHandler(mux, cfg.CORSAllowedOrigins, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return app, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", "addr", a.server.Addr, "store", a.cfg.StoreDriver, "env", a.cfg.Environment)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown.
		a.hub.Close()
		err := a.server.Shutdown(shutdownCtx)
		a.close(shutdownCtx)
		return err
	})
	return g.Wait()
}

func (a *App) close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			a.logger.Error("close store", "err", err)
		}
	}
	a.closers = nil
}

// Migrate applies schema changes for the configured store and exits.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "store", cfg.StoreDriver)
	return st.close(ctx)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DBUrl)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{
			users:  postgres.NewUserRepository(db),
			events: postgres.NewEventRepository(db),
			close:  func(context.Context) error { return db.Close() },
		}, nil
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			users:  mongodb.NewUserRepository(db),
			events: mongodb.NewEventRepository(db),
			close:  client.Disconnect,
		}, nil
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &stores{
			users:  memory.NewUserRepository(),
			events: memory.NewEventRepository(),
			close:  func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newImageStorage(ctx context.Context, cfg config.ImagesConfig, logger *slog.Logger) (domain.ImageStorage, error) {
	if cfg.Bucket == "" {
		logger.Info("image uploads disabled: no bucket configured")
		return storage.Disabled(), nil
	}
	s, err := storage.NewS3ImageStorage(ctx, storage.S3Config{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create image storage: %w", err)
	}
	return s, nil
}
