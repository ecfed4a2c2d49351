package handlers

import (
	"net/http"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
)

type saveSettingsResponse struct {
	Status string `json:"status"`
}

// GetEnrichSettings serves the dashboard's saved enrichment settings, or the
// defaults when nothing was saved yet.
func GetEnrichSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Store.GetEnrichSettings(r.Context())
		if err != nil {
			d.Logger.Error("settings read failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read settings")
			return
		}
		if st == nil {
			def := domain.DefaultEnrichmentSettings()
			st = &def
		}

		writeJSON(w, http.StatusOK, st)
	}
}

// SaveEnrichSettings validates and persists the dashboard's enrichment
// settings. Saved settings become the default for enrichment runs that do
// not carry their own.
func SaveEnrichSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st domain.EnrichmentSettings
		if err := decodeJSON(r, &st); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := st.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := d.Store.SaveEnrichSettings(r.Context(), st); err != nil {
			d.Logger.Error("settings save failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}

		writeJSON(w, http.StatusOK, saveSettingsResponse{Status: "saved"})
	}
}
