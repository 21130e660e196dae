package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type linksResponse struct {
	Links   domain.Table `json:"links"`
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Warning string       `json:"warning,omitempty"`
}

// ListLinks filters by ?q= and repeated ?tag=. A query string that cannot be
// parsed is reported in warning and the full table is returned instead.
func ListLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := sessionID(r)

		all, err := d.Shelf.Search(ctx, id, "", nil)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		resp := linksResponse{Links: all, Total: len(all)}
		params, perr := url.ParseQuery(r.URL.RawQuery)
		if perr != nil {
			d.Logger.Warn("malformed search parameters", logger.Error(perr))
			resp.Warning = "search parameters ignored: " + perr.Error()
		} else if q, tags := params.Get("q"), splitTags(params["tag"]); strings.TrimSpace(q) != "" || len(tags) > 0 {
			resp.Links, err = d.Shelf.Search(ctx, id, q, tags)
			if err != nil {
				writeError(w, r, d, err)
				return
			}
		}

		resp.Count = len(resp.Links)
		writeJSON(w, http.StatusOK, resp)
	}
}

// SaveLink upserts the posted link by url.
func SaveLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.LinkInput
		if err := decodeBody(w, r, &in); err != nil {
			writeError(w, r, d, err)
			return
		}

		out, err := d.Shelf.Save(r.Context(), sessionID(r), in)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		status := http.StatusOK
		if out.Action == domain.ActionSaved {
			status = http.StatusCreated
		}
		writeJSON(w, status, out)
	}
}

type deleteRequest struct {
	URLs []string `json:"urls"`
}

// DeleteLinks removes the posted urls.
func DeleteLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		out, err := d.Shelf.Delete(r.Context(), sessionID(r), req.URLs)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Tags lists the tag vocabulary for the add-link form.
func Tags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := d.Shelf.Tags(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
	}
}

// splitTags accepts both ?tag=a&tag=b and ?tag=a,b.
func splitTags(values []string) []string {
	return domain.NormalizeTags(values)
}
