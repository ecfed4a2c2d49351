package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ListChannels serves the dashboard's channel table as a bare array of
// rows. Every filter is optional; absent parameters widen the scope.
func ListChannels(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := parseChannelScope(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		channels, err := d.Store.ListChannels(r.Context(), scope)
		if err != nil {
			d.Logger.Error("channel list failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list channels")
			return
		}
		if channels == nil {
			channels = []*domain.Channel{}
		}

		writeJSON(w, http.StatusOK, channels)
	}
}

func GetChannel(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		ch, err := d.Store.GetChannel(r.Context(), id)
		if err != nil {
			if errors.Is(err, sqlite.ErrChannelNotFound) {
				writeError(w, http.StatusNotFound, "channel not found")
				return
			}
			d.Logger.Error("channel read failed",
				logger.String("channel", id), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read channel")
			return
		}

		writeJSON(w, http.StatusOK, ch)
	}
}

func parseChannelScope(r *http.Request) (sqlite.ChannelScope, error) {
	q := r.URL.Query()
	scope := sqlite.ChannelScope{
		Language:     strings.ToUpper(strings.TrimSpace(q.Get("language"))),
		NameContains: strings.TrimSpace(q.Get("keyword")),
	}

	if raw := q.Get("status"); raw != "" {
		status := domain.ChannelStatus(raw)
		if !domain.ValidStatus(status) {
			return scope, errors.New("unknown status " + strconv.Quote(raw))
		}
		scope.Status = status
	}

	var err error
	if scope.HasEmail, err = queryBool(q.Get("has_email")); err != nil {
		return scope, errors.New("has_email must be true or false")
	}
	if scope.HasTelegram, err = queryBool(q.Get("has_telegram")); err != nil {
		return scope, errors.New("has_telegram must be true or false")
	}

	if raw := q.Get("min_subscribers"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return scope, errors.New("min_subscribers must be a non-negative integer")
		}
		scope.MinSubscribers = n
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return scope, errors.New("page must be a positive integer")
		}
		page = n
	}

	scope.Limit = defaultPageSize
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return scope, errors.New("page_size must be between 1 and 500")
		}
		scope.Limit = n
	}
	scope.Offset = (page - 1) * scope.Limit

	return scope, nil
}

func queryBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
