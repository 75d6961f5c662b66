package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/cache"
	"github.com/user-records-service/internal/config"
	"github.com/user-records-service/internal/handler"
	"github.com/user-records-service/internal/handler/admin"
	"github.com/user-records-service/internal/middleware"
	"github.com/user-records-service/internal/service"
	"github.com/user-records-service/internal/storage"
	"github.com/user-records-service/internal/store"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	db := store.NewPostgres(pool)
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	images, err := storage.NewImages(cfg.MediaDir)
	if err != nil {
		return err
	}

	router, err := buildRouter(ctx, cfg, db, images)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildRouter(ctx context.Context, cfg *config.Config, db store.Store, images *storage.Images) (chi.Router, error) {
	userSvc := service.NewUserService(db, images)
	keySvc := service.NewAPIKeyService(db)

	rateLimiter := middleware.NewRateLimiter(cache.NewMemory())
	authLimiter := middleware.NewAuthAttemptLimiter(5, 5*time.Minute, 15*time.Minute)
	sanitizer := middleware.NewSanitizer(cfg.MaxRequestBytes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBytes))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(sanitizer.Middleware)

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(db, version))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	mediaServer := http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir)))
	r.Method(http.MethodGet, "/media/*", mediaServer)

	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(db, authLimiter))

		// Key introspection needs authentication but no resource permission.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitMiddleware(rateLimiter))
			r.Method(http.MethodGet, "/api-key/info/", handler.NewKeyInfoHandler(rateLimiter))
			r.Method(http.MethodPost, "/api-key/validate/", handler.NewValidateKeyHandler())
		})

		// Permission checks run before the rate limiter so denied
		// requests never consume quota.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(middleware.DefaultResource))
			r.Use(middleware.RateLimitMiddleware(rateLimiter))

			r.Method(http.MethodGet, "/", handler.NewListUsersHandler(userSvc, cfg.BaseURL))
			r.Method(http.MethodPost, "/", handler.NewCreateUserHandler(userSvc, cfg.BaseURL))
			r.Method(http.MethodGet, "/{id}/", handler.NewGetUserHandler(userSvc, cfg.BaseURL))
			r.Method(http.MethodPut, "/{id}/", handler.NewUpdateUserHandler(userSvc, cfg.BaseURL))
			r.Method(http.MethodPatch, "/{id}/", handler.NewUpdateUserHandler(userSvc, cfg.BaseURL))
			r.Method(http.MethodDelete, "/{id}/", handler.NewDeleteUserHandler(userSvc))
		})
	})

	if cfg.AdminEnabled() {
		googleAuth, err := middleware.NewGoogleAuth(ctx, cfg.GoogleClientID, cfg.GoogleAllowedDomain, cfg.GoogleAllowedEmails)
		if err != nil {
			return nil, err
		}
		r.Route("/admin/api-keys", func(r chi.Router) {
			r.Use(googleAuth.Middleware)

			r.Method(http.MethodGet, "/", admin.NewListAPIKeysHandler(keySvc))
			r.Method(http.MethodPost, "/", admin.NewCreateAPIKeyHandler(keySvc))
			r.Method(http.MethodGet, "/{id}/", admin.NewGetAPIKeyHandler(keySvc))
			r.Method(http.MethodPost, "/{id}/revoke/", admin.NewRevokeAPIKeyHandler(keySvc))
		})
	} else {
		log.Warn().Msg("admin API disabled: GOOGLE_CLIENT_ID is not set")
	}

	return r, nil
}
