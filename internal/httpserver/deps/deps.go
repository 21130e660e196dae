package deps

import (
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/shelf"
)

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time // for testing, defaults to time.Now
	AllowedHosts    []string         // Host headers allowed to reach the API
	AllowedCIDRS    []string         // IPs allowed to reach readyz/infra
	TrustProxy      bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CookieSecure    bool             // sets Secure on the session cookie
	SessionTTL      time.Duration    // cookie Max-Age
	FetchRateBurst  int              // metadata endpoint bucket size per client IP
	FetchRatePerMin int              // metadata endpoint refill per client IP
	Shelf           *shelf.Service
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
