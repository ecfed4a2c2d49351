package handlers

import (
	"net/http"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
)

type statsResponse struct {
	Total       int `json:"total"`
	New         int `json:"new"`
	Active      int `json:"active"`
	Blacklisted int `json:"blacklisted"`
	Archived    int `json:"archived"`
	// RunningKeyword is null while no discovery runner is active.
	RunningKeyword *string `json:"running_keyword"`
}

func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := d.Store.CountByStatus(r.Context())
		if err != nil {
			d.Logger.Error("stats query failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read stats")
			return
		}

		resp := statsResponse{
			New:         counts[domain.StatusNew],
			Active:      counts[domain.StatusActive],
			Blacklisted: counts[domain.StatusBlacklisted],
			Archived:    counts[domain.StatusArchived],
		}
		for _, n := range counts {
			resp.Total += n
		}
		if d.Supervisor != nil {
			if kw := d.Supervisor.RunningKeyword(); kw != "" {
				resp.RunningKeyword = &kw
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
