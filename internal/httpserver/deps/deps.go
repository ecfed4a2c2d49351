package deps

import (
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/scheduler"
	"github.com/tubeharvest/harvester/internal/store/rediscache"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	// CORSOrigin is the dashboard origin allowed to call the API.
	CORSOrigin string

	// Store persists channels and keywords.
	Store *sqlite.Store

	Supervisor *scheduler.Supervisor
	Pool       *scheduler.EnrichPool

	// Filters are the admission defaults applied to new discovery runs.
	Filters domain.FilterConfig

	// PageCache is nil when redis is disabled; readyz skips it then.
	PageCache *rediscache.Store
}
