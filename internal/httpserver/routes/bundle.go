package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/httpserver/handlers"
)

func init() { Register(registerBundle) }

func registerBundle(r chi.Router, d deps.Deps) {
	r.Get("/api/export/bundle", handlers.ExportBundle(d))
	r.Post("/api/import/bundle", handlers.ImportBundle(d))
}
