package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/httpserver/handlers"
)

func init() { Register(registerDiscovery) }

func registerDiscovery(r chi.Router, d deps.Deps) {
	r.Post("/api/discovery/start", handlers.DiscoveryStart(d))
	r.Post("/api/discovery/stop", handlers.DiscoveryStop(d))
	r.Get("/api/discovery/progress", handlers.DiscoveryProgress(d))
}
