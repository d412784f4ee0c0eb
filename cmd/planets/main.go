// cmd/planets/main.go

package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	_ "github.com/lib/pq"

	"planethub/internal/membership"
	"planethub/internal/planet"
	"planethub/internal/platform/config"
	"planethub/internal/platform/identity"
	"planethub/internal/platform/migrations"
	"planethub/internal/platform/telemetry"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "planets").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	shutdown, err := telemetry.Setup(ctx, "planets", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup telemetry")
	}
	defer shutdown(ctx)

	membershipSvc := membership.NewService(db)
	planetSvc := planet.NewService(db, membershipSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware)
		planet.NewHandler(planetSvc).Register(r)
		membership.NewHandler(membershipSvc).Register(r)
	})

	logger.Info().Str("port", cfg.Port).Msg("starting planets service")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
