package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register(registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Route("/api/session", func(r chi.Router) {
		r.Get("/", handlers.SessionInfo(d))
		r.Delete("/", handlers.Exit(d))
		r.Post("/login", handlers.Login(d))
		r.Post("/public", handlers.ContinuePublic(d))
		r.Post("/resync", handlers.Resync(d))
	})
}
