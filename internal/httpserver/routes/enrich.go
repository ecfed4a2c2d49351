package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/httpserver/handlers"
)

func init() { Register(registerEnrich) }

func registerEnrich(r chi.Router, d deps.Deps) {
	r.Post("/api/enrich/start", handlers.EnrichStart(d))
}
