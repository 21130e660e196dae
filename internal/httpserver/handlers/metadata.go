package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/metadata"
)

type metadataRequest struct {
	URL string `json:"url"`
}

type metadataResponse struct {
	metadata.Metadata
	Warning string `json:"warning,omitempty"`
}

// Metadata fetches title, description and keywords of a page. A failed fetch
// still answers 200 with the url as title and a warning.
func Metadata(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req metadataRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			writeError(w, r, d, &domain.ValidationError{Field: "url", Message: "please enter a URL"})
			return
		}

		md, warn, err := d.Shelf.Fetch(r.Context(), sessionID(r), req.URL)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		resp := metadataResponse{Metadata: md}
		if warn != nil {
			resp.Warning = "couldn't fetch metadata: " + warn.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
