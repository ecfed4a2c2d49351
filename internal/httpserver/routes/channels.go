package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/httpserver/handlers"
)

func init() { Register(registerChannels) }

func registerChannels(r chi.Router, d deps.Deps) {
	r.Get("/api/channels", handlers.ListChannels(d))
	r.Get("/api/channels/{id}", handlers.GetChannel(d))
}
