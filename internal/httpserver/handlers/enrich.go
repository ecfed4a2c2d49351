package handlers

import (
	"errors"
	"net/http"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

type enrichStartRequest struct {
	// Scope selects the channels to enrich: "active" covers new and active
	// channels (pending re-classification included), "all" covers every
	// channel already admitted as active. Ignored when ChannelIDs is set.
	Scope      string                     `json:"scope"`
	ChannelIDs []string                   `json:"channel_ids,omitempty"`
	Settings   *domain.EnrichmentSettings `json:"settings,omitempty"`
}

type enrichStartResponse struct {
	Queued int `json:"queued"`
}

// EnrichStart queues one enrichment job per channel in scope. Settings are
// validated before any job is queued; jobs run on the shared worker pool.
func EnrichStart(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrichStartRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		// Requests without settings fall back to the dashboard's saved
		// settings, then to the defaults.
		settings := domain.DefaultEnrichmentSettings()
		if req.Settings != nil {
			settings = *req.Settings
		} else if saved, err := d.Store.GetEnrichSettings(r.Context()); err != nil {
			d.Logger.Error("settings read failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read settings")
			return
		} else if saved != nil {
			settings = *saved
		}
		if err := settings.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ids := req.ChannelIDs
		if len(ids) == 0 {
			var err error
			ids, err = scopedChannelIDs(r, d, req.Scope)
			if errors.Is(err, errInvalidScope) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err != nil {
				d.Logger.Error("enrichment scope query failed", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to resolve scope")
				return
			}
		}

		queued := 0
		for _, id := range ids {
			if err := d.Pool.EnqueueWith(r.Context(), id, settings); err != nil {
				d.Logger.Error("enrichment enqueue failed",
					logger.String("channel", id),
					logger.Int("queued", queued),
					logger.Error(err))
				writeError(w, http.StatusServiceUnavailable, "enrichment queue unavailable")
				return
			}
			queued++
		}

		d.Logger.Info("enrichment queued", logger.Int("channels", queued))
		writeJSON(w, http.StatusAccepted, enrichStartResponse{Queued: queued})
	}
}

var errInvalidScope = errors.New(`scope must be "active" or "all"`)

func scopedChannelIDs(r *http.Request, d deps.Deps, scope string) ([]string, error) {
	var statuses []domain.ChannelStatus
	switch scope {
	case "", "active":
		statuses = []domain.ChannelStatus{domain.StatusNew, domain.StatusActive}
	case "all":
		statuses = []domain.ChannelStatus{domain.StatusActive}
	default:
		return nil, errInvalidScope
	}

	var ids []string
	for _, status := range statuses {
		channels, err := d.Store.ListChannels(r.Context(), sqlite.ChannelScope{Status: status})
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			ids = append(ids, ch.ID)
		}
	}
	return ids, nil
}
