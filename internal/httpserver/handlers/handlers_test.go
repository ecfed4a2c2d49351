package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tubeharvest/harvester/internal/crawler"
	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/scheduler"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

// terminalFetcher always returns an empty final page, so runners exhaust
// on the first fetch.
type terminalFetcher struct{}

func (terminalFetcher) FetchSearchPage(context.Context, string, string) (*crawler.SearchPage, error) {
	return &crawler.SearchPage{}, nil
}

type recordingEnricher struct {
	mu       sync.Mutex
	ids      []string
	settings []domain.EnrichmentSettings
}

func (e *recordingEnricher) Enrich(_ context.Context, channelID string, st domain.EnrichmentSettings) error {
	e.mu.Lock()
	e.ids = append(e.ids, channelID)
	e.settings = append(e.settings, st)
	e.mu.Unlock()
	return nil
}

func (e *recordingEnricher) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ids)
}

func (e *recordingEnricher) lastSettings() domain.EnrichmentSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings[len(e.settings)-1]
}

func testDeps(t *testing.T) (deps.Deps, *recordingEnricher) {
	t.Helper()
	log := logger.New("error", false)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	filter := domain.FilterConfig{MinSubscribers: 1000}
	enricher := &recordingEnricher{}
	pool := scheduler.NewEnrichPool(context.Background(), enricher, 2, 16, log)
	t.Cleanup(pool.Close)

	sup := scheduler.NewSupervisor(context.Background(), terminalFetcher{}, store, pool, filter, 5, 3, log)

	return deps.Deps{
		Logger:     log,
		StartTime:  time.Now(),
		Store:      store,
		Supervisor: sup,
		Pool:       pool,
		Filters:    filter,
	}, enricher
}

func seedChannel(t *testing.T, d deps.Deps, id string, status domain.ChannelStatus) {
	t.Helper()
	ch := &domain.Channel{
		ID:                 id,
		Name:               "Channel " + id,
		URL:                "https://www.youtube.com/channel/" + id,
		SubscriberCount:    5000,
		LongformVideoCount: -1,
		SourceKeyword:      "bitcoin",
		Status:             status,
	}
	if err := d.Store.UpsertChannel(context.Background(), ch); err != nil {
		t.Fatalf("seed channel %s: %v", id, err)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestStats(t *testing.T) {
	d, _ := testDeps(t)
	seedChannel(t, d, "UC1", domain.StatusActive)
	seedChannel(t, d, "UC2", domain.StatusActive)
	seedChannel(t, d, "UC3", domain.StatusBlacklisted)

	rec := httptest.NewRecorder()
	Stats(d)(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp statsResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 3 || resp.Active != 2 || resp.Blacklisted != 1 {
		t.Errorf("stats = %+v, want total 3, active 2, blacklisted 1", resp)
	}
}

func TestStatsRunningKeywordNullWhenIdle(t *testing.T) {
	d, _ := testDeps(t)

	rec := httptest.NewRecorder()
	Stats(d)(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	var raw map[string]json.RawMessage
	decodeBody(t, rec, &raw)
	v, ok := raw["running_keyword"]
	if !ok {
		t.Fatal("running_keyword missing from stats response")
	}
	if string(v) != "null" {
		t.Errorf("running_keyword = %s, want null while idle", v)
	}
}

func TestListChannelsStatusFilter(t *testing.T) {
	d, _ := testDeps(t)
	seedChannel(t, d, "UC1", domain.StatusActive)
	seedChannel(t, d, "UC2", domain.StatusBlacklisted)

	rec := httptest.NewRecorder()
	ListChannels(d)(rec, httptest.NewRequest(http.MethodGet, "/api/channels?status=active", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var channels []*domain.Channel
	decodeBody(t, rec, &channels)
	if len(channels) != 1 || channels[0].ID != "UC1" {
		t.Errorf("channels = %+v, want only UC1", channels)
	}
}

func TestListChannelsEmptyIsBareArray(t *testing.T) {
	d, _ := testDeps(t)

	rec := httptest.NewRecorder()
	ListChannels(d)(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %s, want bare empty array", got)
	}
}

func TestListChannelsRejectsBadParams(t *testing.T) {
	d, _ := testDeps(t)

	for _, query := range []string{
		"status=bogus",
		"min_subscribers=-5",
		"page=0",
		"page_size=9999",
		"has_email=maybe",
	} {
		rec := httptest.NewRecorder()
		ListChannels(d)(rec, httptest.NewRequest(http.MethodGet, "/api/channels?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestGetChannelNotFound(t *testing.T) {
	d, _ := testDeps(t)

	r := chi.NewRouter()
	r.Get("/api/channels/{id}", GetChannel(d))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels/UC-missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDiscoveryStartRejectsEmptyKeywords(t *testing.T) {
	d, _ := testDeps(t)

	body := strings.NewReader(`{"keywords": ["", "   "]}`)
	rec := httptest.NewRecorder()
	DiscoveryStart(d)(rec, httptest.NewRequest(http.MethodPost, "/api/discovery/start", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDiscoveryStartAccepted(t *testing.T) {
	d, _ := testDeps(t)

	body := strings.NewReader(`{"keywords": ["Bitcoin"], "auto_enrich": false}`)
	rec := httptest.NewRecorder()
	DiscoveryStart(d)(rec, httptest.NewRequest(http.MethodPost, "/api/discovery/start", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp discoveryStartResponse
	decodeBody(t, rec, &resp)
	if len(resp.Started) != 1 || resp.Started[0] != "bitcoin" {
		t.Errorf("started = %v, want [bitcoin]", resp.Started)
	}
	d.Supervisor.StopAll()
}

func TestEnrichStartRejectsInvalidSettings(t *testing.T) {
	d, enricher := testDeps(t)
	seedChannel(t, d, "UC1", domain.StatusActive)

	body := strings.NewReader(`{"scope": "active", "settings": {"email_enabled": true, "email_mode": "WAT"}}`)
	rec := httptest.NewRecorder()
	EnrichStart(d)(rec, httptest.NewRequest(http.MethodPost, "/api/enrich/start", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if enricher.count() != 0 {
		t.Errorf("enricher ran %d jobs, want none on invalid settings", enricher.count())
	}
}

func TestEnrichStartQueuesActiveScope(t *testing.T) {
	d, enricher := testDeps(t)
	seedChannel(t, d, "UC1", domain.StatusActive)
	seedChannel(t, d, "UC2", domain.StatusNew)
	seedChannel(t, d, "UC3", domain.StatusBlacklisted)

	body := strings.NewReader(`{"scope": "active"}`)
	rec := httptest.NewRecorder()
	EnrichStart(d)(rec, httptest.NewRequest(http.MethodPost, "/api/enrich/start", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp enrichStartResponse
	decodeBody(t, rec, &resp)
	if resp.Queued != 2 {
		t.Errorf("queued = %d, want 2 (new + active, blacklisted excluded)", resp.Queued)
	}

	deadline := time.After(5 * time.Second)
	for enricher.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("enricher ran %d jobs, want 2", enricher.count())
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestEnrichStartAllScopeSelectsActiveOnly(t *testing.T) {
	d, _ := testDeps(t)
	seedChannel(t, d, "UC1", domain.StatusActive)
	seedChannel(t, d, "UC2", domain.StatusNew)
	seedChannel(t, d, "UC3", domain.StatusBlacklisted)

	body := strings.NewReader(`{"scope": "all"}`)
	rec := httptest.NewRecorder()
	EnrichStart(d)(rec, httptest.NewRequest(http.MethodPost, "/api/enrich/start", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp enrichStartResponse
	decodeBody(t, rec, &resp)
	if resp.Queued != 1 {
		t.Errorf("queued = %d, want 1 (only the active channel)", resp.Queued)
	}
}

func TestEnrichSettingsDefaultsWhenUnsaved(t *testing.T) {
	d, _ := testDeps(t)

	rec := httptest.NewRecorder()
	GetEnrichSettings(d)(rec, httptest.NewRequest(http.MethodGet, "/api/settings/enrich", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got domain.EnrichmentSettings
	decodeBody(t, rec, &got)
	if got != domain.DefaultEnrichmentSettings() {
		t.Errorf("settings = %+v, want defaults", got)
	}
}

func TestEnrichSettingsSaveRoundTrip(t *testing.T) {
	d, _ := testDeps(t)

	body := strings.NewReader(`{
		"email_enabled": true, "email_mode": "CHANNEL_ONLY",
		"language_enabled": true, "language_mode": "BASIC",
		"refresh_channel_metadata": false, "update_last_upload": false
	}`)
	rec := httptest.NewRecorder()
	SaveEnrichSettings(d)(rec, httptest.NewRequest(http.MethodPost, "/api/settings/enrich", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	GetEnrichSettings(d)(rec, httptest.NewRequest(http.MethodGet, "/api/settings/enrich", nil))
	var got domain.EnrichmentSettings
	decodeBody(t, rec, &got)
	if got.EmailMode != domain.EmailChannelOnly || got.LanguageMode != domain.LanguageBasic {
		t.Errorf("settings = %+v, want saved values back", got)
	}
	if got.RefreshChannelMetadata || got.UpdateLastUpload {
		t.Errorf("settings = %+v, want metadata refresh off", got)
	}
}

func TestEnrichSettingsSaveRejectsInvalid(t *testing.T) {
	d, _ := testDeps(t)

	body := strings.NewReader(`{"email_enabled": true, "email_mode": "WAT"}`)
	rec := httptest.NewRecorder()
	SaveEnrichSettings(d)(rec, httptest.NewRequest(http.MethodPost, "/api/settings/enrich", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if saved, err := d.Store.GetEnrichSettings(context.Background()); err != nil || saved != nil {
		t.Errorf("saved = %+v, err = %v; invalid settings must not persist", saved, err)
	}
}

func TestEnrichStartUsesSavedSettings(t *testing.T) {
	d, enricher := testDeps(t)
	seedChannel(t, d, "UC1", domain.StatusActive)

	saved := domain.DefaultEnrichmentSettings()
	saved.LanguageMode = domain.LanguageBasic
	saved.UpdateLastUpload = false
	if err := d.Store.SaveEnrichSettings(context.Background(), saved); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	body := strings.NewReader(`{"scope": "active"}`)
	rec := httptest.NewRecorder()
	EnrichStart(d)(rec, httptest.NewRequest(http.MethodPost, "/api/enrich/start", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	deadline := time.After(5 * time.Second)
	for enricher.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("enrichment job never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if got := enricher.lastSettings(); got != saved {
		t.Errorf("job settings = %+v, want saved settings %+v", got, saved)
	}
}

func TestBundleExportImport(t *testing.T) {
	src, _ := testDeps(t)
	seedChannel(t, src, "UC1", domain.StatusActive)

	rec := httptest.NewRecorder()
	ExportBundle(src)(rec, httptest.NewRequest(http.MethodGet, "/api/export/bundle", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", rec.Code)
	}

	dst, _ := testDeps(t)
	importRec := httptest.NewRecorder()
	ImportBundle(dst)(importRec, httptest.NewRequest(http.MethodPost, "/api/import/bundle", rec.Body))
	if importRec.Code != http.StatusOK {
		t.Fatalf("import status = %d, want 200: %s", importRec.Code, importRec.Body.String())
	}

	var resp importResponse
	decodeBody(t, importRec, &resp)
	if resp.Channels != 1 {
		t.Errorf("imported channels = %d, want 1", resp.Channels)
	}
	if _, err := dst.Store.GetChannel(context.Background(), "UC1"); err != nil {
		t.Errorf("imported channel missing: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	d, _ := testDeps(t)
	d.Version = "v1.2.3"

	rec := httptest.NewRecorder()
	Healthz(d)(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthzResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" || resp.Version != "v1.2.3" {
		t.Errorf("healthz = %+v", resp)
	}
}

func TestReadyz(t *testing.T) {
	d, _ := testDeps(t)

	rec := httptest.NewRecorder()
	Readyz(d)(rec, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp readyzResponse
	decodeBody(t, rec, &resp)
	if !resp.Ready || resp.Store != "ok" {
		t.Errorf("readyz = %+v", resp)
	}
}
