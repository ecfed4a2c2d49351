package handlers

import (
	"net/http"
	"strings"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/scheduler"
)

type discoveryStartRequest struct {
	Keywords        []string `json:"keywords"`
	RunUntilStopped bool     `json:"run_until_stopped"`
	AutoEnrich      bool     `json:"auto_enrich"`
}

type discoveryStartResponse struct {
	Started []string `json:"started"`
}

// DiscoveryStart launches one runner per keyword. Keywords already running
// are left alone; the request returns 202 once the runners are spawned,
// discovery itself proceeds in the background.
func DiscoveryStart(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req discoveryStartRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		keywords := make([]string, 0, len(req.Keywords))
		for _, kw := range req.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			writeError(w, http.StatusBadRequest, "keywords must contain at least one non-empty term")
			return
		}

		opts := scheduler.StartOptions{
			RunUntilStopped: req.RunUntilStopped,
			AutoEnrich:      req.AutoEnrich,
		}
		if err := d.Supervisor.Start(r.Context(), keywords, opts); err != nil {
			d.Logger.Error("discovery start failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start discovery")
			return
		}

		d.Logger.Info("discovery started",
			logger.Int("keywords", len(keywords)),
			logger.Bool("run_until_stopped", req.RunUntilStopped),
			logger.Bool("auto_enrich", req.AutoEnrich))
		writeJSON(w, http.StatusAccepted, discoveryStartResponse{Started: keywords})
	}
}

func DiscoveryStop(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Supervisor.StopAll()
		d.Logger.Info("discovery stopped")
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	}
}

func DiscoveryProgress(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		progress, err := d.Supervisor.Progress(r.Context())
		if err != nil {
			d.Logger.Error("progress query failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read progress")
			return
		}
		writeJSON(w, http.StatusOK, progress)
	}
}
