package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register(registerMetadata) }

// Fetching makes this server issue outbound requests, so it is rate limited
// per client IP.
func registerMetadata(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.FetchRateBurst,
		RefillPerMin: d.FetchRatePerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Now:          d.TimeNow,
	}, d.Logger)

	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), limit).Post("/api/metadata", handlers.Metadata(d))
}
