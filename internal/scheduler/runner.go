package scheduler

import (
	"context"
	"time"

	"github.com/tubeharvest/harvester/internal/crawler"
	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/logger"
)

// failedPagePause spaces out reattempts of a page whose retries were
// exhausted, so a flapping upstream is not hammered.
const failedPagePause = 5 * time.Second

// PageFetcher is the slice of the crawler a runner needs.
type PageFetcher interface {
	FetchSearchPage(ctx context.Context, keyword, cursor string) (*crawler.SearchPage, error)
}

// RunnerStore is the slice of the channel store a runner needs.
type RunnerStore interface {
	HasChannel(ctx context.Context, id string) (bool, error)
	UpsertChannel(ctx context.Context, ch *domain.Channel) error
	UpsertKeyword(ctx context.Context, kw *domain.Keyword) error
}

// EnrichQueuer accepts auto-enrichment jobs for freshly admitted channels.
type EnrichQueuer interface {
	Enqueue(ctx context.Context, channelID string) error
}

// KeywordRunner drives the discovery state machine for one search term:
// fetch a page, drop known channels, classify the rest, persist the cursor,
// repeat until exhaustion, a stop request, or the bounded page budget.
// Keywords are fully independent; runners never share cursors.
type KeywordRunner struct {
	kw       *domain.Keyword
	fetch    PageFetcher
	store    RunnerStore
	queue    EnrichQueuer
	filter   domain.FilterConfig
	maxPages int
	pause    time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      logger.Logger
}

// NewKeywordRunner builds a runner around a loaded (or freshly created)
// keyword row. maxPages bounds a single pass when run_until_stopped is off.
func NewKeywordRunner(
	kw *domain.Keyword,
	fetch PageFetcher,
	store RunnerStore,
	queue EnrichQueuer,
	filter domain.FilterConfig,
	maxPages int,
	log logger.Logger,
) *KeywordRunner {
	if maxPages <= 0 {
		maxPages = 5
	}
	return &KeywordRunner{
		kw:       kw,
		fetch:    fetch,
		store:    store,
		queue:    queue,
		filter:   filter,
		maxPages: maxPages,
		pause:    failedPagePause,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      log,
	}
}

// Stop asks the runner to finish after its in-flight page, if any. The page
// already being processed is still committed.
func (r *KeywordRunner) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// Done is closed when the runner has fully finished and persisted its final
// state.
func (r *KeywordRunner) Done() <-chan struct{} { return r.doneCh }

// Run executes the discovery loop until a terminal transition. It is meant
// to be launched as a goroutine by the Supervisor.
func (r *KeywordRunner) Run(ctx context.Context) {
	defer close(r.doneCh)

	r.kw.State = domain.KeywordRunning
	now := time.Now().UTC()
	r.kw.LastRunAt = &now
	r.persist(ctx)

	pages := 0
	for {
		select {
		case <-r.stopCh:
			r.finish(ctx, domain.KeywordStopped)
			return
		case <-ctx.Done():
			r.finish(ctx, domain.KeywordStopped)
			return
		default:
		}

		page, err := r.fetch.FetchSearchPage(ctx, r.kw.Text, r.kw.ContinuationCursor)
		if err != nil {
			if ctx.Err() != nil {
				r.finish(ctx, domain.KeywordStopped)
				return
			}
			// A page lost to retry exhaustion is skipped, not counted as
			// content-empty; the next iteration reuses the same cursor.
			r.log.Warn("page fetch failed, keeping cursor",
				logger.String("keyword", r.kw.Text), logger.Error(err))
			pages++
			if !r.kw.RunUntilStopped && pages >= r.maxPages {
				r.finish(ctx, domain.KeywordIdle)
				return
			}
			select {
			case <-time.After(r.pause):
			case <-r.stopCh:
				r.finish(ctx, domain.KeywordStopped)
				return
			case <-ctx.Done():
				r.finish(ctx, domain.KeywordStopped)
				return
			}
			continue
		}

		newCount := r.processPage(ctx, page)
		if newCount > 0 {
			r.kw.EmptyPageStreak = 0
		} else {
			r.kw.EmptyPageStreak++
		}
		r.kw.ContinuationCursor = page.NextCursor
		r.persist(ctx)

		r.log.Info("discovery page processed",
			logger.String("keyword", r.kw.Text),
			logger.Int("candidates", len(page.Candidates)),
			logger.Int("new", newCount),
			logger.Int("streak", r.kw.EmptyPageStreak))

		if page.NextCursor == "" {
			// The result list is terminal; nothing left to paginate.
			r.finish(ctx, domain.KeywordExhausted)
			return
		}
		if r.kw.Exhausted() {
			r.finish(ctx, domain.KeywordExhausted)
			return
		}

		pages++
		if !r.kw.RunUntilStopped && pages >= r.maxPages {
			r.finish(ctx, domain.KeywordIdle)
			return
		}
	}
}

// processPage classifies and persists every genuinely new candidate on the
// page, returning how many there were. Candidates already in the store count
// toward streak detection but are not re-classified.
func (r *KeywordRunner) processPage(ctx context.Context, page *crawler.SearchPage) int {
	newCount := 0
	for _, cand := range page.Candidates {
		known, err := r.store.HasChannel(ctx, cand.ID)
		if err != nil {
			r.log.Error("channel lookup failed",
				logger.String("channel", cand.ID), logger.Error(err))
			continue
		}
		if known {
			continue
		}

		meta := domain.UnknownMetadata()
		meta.SubscriberCount = cand.SubscriberHint
		verdict := domain.Classify(meta, r.filter, time.Now().UTC())

		ch := &domain.Channel{
			ID:                 cand.ID,
			Name:               cand.Name,
			URL:                cand.URL,
			SubscriberCount:    cand.SubscriberHint,
			LongformVideoCount: -1,
			Status:             verdict.Status,
			BlacklistReason:    verdict.Reason,
			SourceKeyword:      r.kw.Text,
		}
		if err := r.store.UpsertChannel(ctx, ch); err != nil {
			r.log.Error("channel upsert failed",
				logger.String("channel", cand.ID), logger.Error(err))
			continue
		}
		newCount++

		if r.kw.AutoEnrich && r.queue != nil && verdict.Status != domain.StatusBlacklisted {
			if err := r.queue.Enqueue(ctx, cand.ID); err != nil {
				r.log.Warn("auto-enrich enqueue failed",
					logger.String("channel", cand.ID), logger.Error(err))
			}
		}
	}
	return newCount
}

func (r *KeywordRunner) finish(ctx context.Context, state domain.KeywordState) {
	r.kw.State = state
	r.persist(ctx)
	r.log.Info("keyword runner finished",
		logger.String("keyword", r.kw.Text), logger.String("state", string(state)))
}

func (r *KeywordRunner) persist(ctx context.Context) {
	// Persist with a detached context so a cancelled run still records its
	// final state.
	pctx := ctx
	if pctx.Err() != nil {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
	}
	if err := r.store.UpsertKeyword(pctx, r.kw); err != nil {
		r.log.Error("keyword persist failed",
			logger.String("keyword", r.kw.Text), logger.Error(err))
	}
}
