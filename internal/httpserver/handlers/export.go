package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/sheet"
)

// Export downloads the session's links as an xlsx workbook.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, data, err := d.Shelf.Export(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		w.Header().Set("Content-Type", sheet.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
