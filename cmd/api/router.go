package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/observability"
)

// NewRouter builds the HTTP routing tree: operational endpoints at the root,
// the versioned API under /v1 with everything except auth behind the JWT
// middleware.
func NewRouter(d *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(d.Logger))
	r.Use(observability.Tracing)
	r.Use(d.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(rateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.Ping(r.Context()); err != nil {
			httputil.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if d.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	auth := authhandler.Auth(d.AuthService, d.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/auth", d.AuthHandler.Routes(auth))

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Mount("/subscriptions", d.SubscriptionsHandler.Routes())
			r.Mount("/analytics", d.AnalyticsHandler.Routes())
			r.Mount("/import", d.ImportHandler.Routes())

			// Seeding and manual job triggers are only exposed on
			// demo/dev deployments.
			if d.Config.Seed.Enabled {
				r.Mount("/admin", d.AdminHandler.Routes())
			}
		})
	})

	return r
}

// rateLimit applies a per-client token bucket keyed by remote IP. RealIP runs
// before this middleware, so RemoteAddr carries the client address even behind
// a proxy.
func rateLimit(perSecond, burst int) func(next http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if lim, ok := limiters[ip]; ok {
			return lim
		}
		lim := rate.NewLimiter(rate.Limit(perSecond), burst)
		limiters[ip] = lim
		return lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(r.RemoteAddr).Allow() {
				httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
