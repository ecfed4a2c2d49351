package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
)

// Registrar binds one endpoint group onto the router.
type Registrar func(r chi.Router, d deps.Deps)

var registry []Registrar

// Register queues a registrar; each route file calls it from init.
func Register(reg Registrar) {
	registry = append(registry, reg)
}

// Mount attaches every registered endpoint group. Called once from server.New.
func Mount(r chi.Router, d deps.Deps) {
	for _, reg := range registry {
		reg(r, d)
	}
}
