package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports each backend separately. A dead drive degrades the service
// (changes stay in sessions), a dead session store makes it unusable.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		sessionsKind, driveKind := d.Shelf.Backends()
		sessions := probe(ctx, sessionsKind, d.Shelf.PingSessions, "no logins possible")
		if sessions.OK {
			n, ok, err := d.Shelf.SessionCount(ctx)
			switch {
			case err != nil:
				d.Logger.Warn("failed to count sessions", logger.Error(err))
			case ok:
				sessions.Count = &n
			}
		}
		components := map[string]componentStatus{
			"sessions": sessions,
			"drive":    probe(ctx, driveKind, d.Shelf.PingDrive, "changes not persisted"),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func probe(ctx context.Context, backend string, ping func(context.Context) error, impact string) componentStatus {
	if err := ping(ctx); err != nil {
		return componentStatus{OK: false, Backend: backend, Impact: impact, Error: err.Error()}
	}
	return componentStatus{OK: true, Backend: backend}
}

func overallStatus(components map[string]componentStatus) string {
	if s, ok := components["sessions"]; ok && !s.OK {
		return "critical"
	}
	if s, ok := components["drive"]; ok && !s.OK {
		return "degraded"
	}
	return "ok"
}
