package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register(registerLinks) }

func registerLinks(r chi.Router, d deps.Deps) {
	api := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	api.Get("/api/links", handlers.ListLinks(d))
	api.Post("/api/links", handlers.SaveLink(d))
	api.Delete("/api/links", handlers.DeleteLinks(d))
	api.Get("/api/tags", handlers.Tags(d))
	api.Get("/api/export", handlers.Export(d))
}
