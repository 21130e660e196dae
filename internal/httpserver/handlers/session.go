package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type loginRequest struct {
	Password string `json:"password"`
	Username string `json:"username"`
}

// Login runs the access gate and starts a session.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		info, err := d.Shelf.Login(r.Context(), sessionID(r), req.Password, req.Username)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		setSessionCookie(w, d, info.SessionID)
		writeJSON(w, http.StatusOK, info)
	}
}

// ContinuePublic starts a public session.
func ContinuePublic(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := d.Shelf.ContinuePublic(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		setSessionCookie(w, d, info.SessionID)
		writeJSON(w, http.StatusOK, info)
	}
}

// SessionInfo returns the mode, username and link count of the current session.
func SessionInfo(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := d.Shelf.Info(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// Exit clears the session and its cookie.
func Exit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := sessionID(r); id != "" {
			if err := d.Shelf.Exit(r.Context(), id); err != nil {
				writeError(w, r, d, err)
				return
			}
		}
		clearSessionCookie(w, d)
		w.WriteHeader(http.StatusNoContent)
	}
}

// Resync reloads the working table from the drive.
func Resync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := d.Shelf.Resync(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}
