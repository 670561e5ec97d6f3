package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"medicare-pro/internal/auth"
	"medicare-pro/internal/booking"
	"medicare-pro/internal/catalog"
	"medicare-pro/internal/maintenance"
	"medicare-pro/internal/observability"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators NewRouter mounts. Cleanup may be nil.
type Deps struct {
	Logger       *observability.Logger
	Auth         *auth.Service
	LoginLimiter *auth.LoginRateLimiter
	Tests        catalog.Lister
	Bookings     booking.Store
	Cleanup      *maintenance.CleanupHandler
	Health       Pinger
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	authHandler := auth.NewHandler(deps.Auth)
	catalogHandler := catalog.NewHandler(deps.Tests)
	bookingHandler := booking.NewHandler(deps.Bookings)
	protect := deps.Auth.Verifier().Middleware

	login := http.Handler(http.HandlerFunc(authHandler.Login))
	if deps.LoginLimiter != nil {
		login = deps.LoginLimiter.Middleware(login)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /clinic/patient/register", authHandler.Register)
	mux.Handle("POST /clinic/patient/login", login)

	for _, prefix := range []string{"/auth", "/clinic/auth"} {
		mux.HandleFunc("POST "+prefix+"/verify", authHandler.Verify)
		mux.HandleFunc("POST "+prefix+"/refresh", authHandler.Refresh)
		mux.HandleFunc("POST "+prefix+"/logout", authHandler.Logout)
	}

	mux.HandleFunc("GET /clinic/test", catalogHandler.ListTests)
	mux.Handle("POST /clinic/booking/create", protect(http.HandlerFunc(bookingHandler.Create)))
	mux.Handle("GET /clinic/booking/get", protect(http.HandlerFunc(bookingHandler.List)))

	if deps.Cleanup != nil {
		mux.HandleFunc("GET /internal/maintenance/cleanup", deps.Cleanup.Handle)
		mux.HandleFunc("POST /internal/maintenance/cleanup", deps.Cleanup.Handle)
	}

	mux.HandleFunc("GET /health", healthHandler(deps.Health))
	mux.Handle("GET /metrics", observability.MetricsHandler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("This is a clinic"))
	})

	return observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger,
			observability.MetricsMiddleware(mux)))
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if database == nil || database.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
