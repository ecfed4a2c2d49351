package handlers

import (
	"net/http"

	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

type importResponse struct {
	Channels int `json:"channels"`
	Keywords int `json:"keywords"`
}

// ExportBundle dumps the whole store as one JSON document, usable as a
// backup or to move a harvest between machines.
func ExportBundle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundle, err := d.Store.ExportBundle(r.Context())
		if err != nil {
			d.Logger.Error("bundle export failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to export bundle")
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="harvester-bundle.json"`)
		writeJSON(w, http.StatusOK, bundle)
	}
}

// ImportBundle merges an exported bundle into the store. Existing channels
// follow the usual merge rules, so an import never downgrades local state.
func ImportBundle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var bundle sqlite.Bundle
		if err := decodeJSON(r, &bundle); err != nil {
			writeError(w, http.StatusBadRequest, "invalid bundle: "+err.Error())
			return
		}

		channels, keywords, err := d.Store.ImportBundle(r.Context(), &bundle)
		if err != nil {
			d.Logger.Error("bundle import failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to import bundle")
			return
		}

		d.Logger.Info("bundle imported",
			logger.Int("channels", channels),
			logger.Int("keywords", keywords))
		writeJSON(w, http.StatusOK, importResponse{Channels: channels, Keywords: keywords})
	}
}
