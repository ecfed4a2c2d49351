package handlers

import (
	"net/http"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store"`
	Cache string `json:"cache,omitempty"`
}

// Readyz reports whether the backing stores answer. The page cache is
// optional: a missing cache is omitted, a configured but unreachable cache
// degrades the report without flipping readiness.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Store: "ok"}
		status := http.StatusOK

		if err := d.Store.Ping(r.Context()); err != nil {
			d.Logger.Error("store ping failed", logger.Error(err))
			resp.Ready = false
			resp.Store = "unreachable"
			status = http.StatusServiceUnavailable
		}

		if d.PageCache != nil {
			resp.Cache = "ok"
			if err := d.PageCache.Ping(r.Context()); err != nil {
				d.Logger.Warn("page cache ping failed", logger.Error(err))
				resp.Cache = "unreachable"
			}
		}

		writeJSON(w, status, resp)
	}
}
