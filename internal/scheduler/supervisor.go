package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

// SupervisorStore widens RunnerStore with keyword reads.
type SupervisorStore interface {
	RunnerStore
	GetKeyword(ctx context.Context, text string) (*domain.Keyword, error)
	ListKeywords(ctx context.Context) ([]*domain.Keyword, error)
}

// StartOptions carries per-start discovery flags.
type StartOptions struct {
	RunUntilStopped bool
	AutoEnrich      bool
}

// Progress is a point-in-time snapshot of discovery for the dashboard.
type Progress struct {
	Running        bool       `json:"running"`
	CurrentKeyword string     `json:"current_keyword,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// Supervisor owns one KeywordRunner per active keyword. Starting a keyword
// that is already running is a no-op; runners for different keywords proceed
// independently.
type Supervisor struct {
	base     context.Context // outlives requests; runners run under it
	fetch    PageFetcher
	store    SupervisorStore
	queue    EnrichQueuer
	filter   domain.FilterConfig
	maxPages int
	exhaust  int
	log      logger.Logger

	mu      sync.Mutex
	runners map[string]*runnerHandle
	seq     int
}

type runnerHandle struct {
	runner    *KeywordRunner
	startedAt int // monotonic start sequence
}

// NewSupervisor builds a Supervisor. Runners are spawned under ctx, not the
// per-request context that triggers them. exhaust is the empty-page streak
// threshold applied to keywords created on first start.
func NewSupervisor(
	ctx context.Context,
	fetch PageFetcher,
	store SupervisorStore,
	queue EnrichQueuer,
	filter domain.FilterConfig,
	maxPages, exhaust int,
	log logger.Logger,
) *Supervisor {
	if exhaust <= 0 {
		exhaust = 5
	}
	return &Supervisor{
		base:     ctx,
		fetch:    fetch,
		store:    store,
		queue:    queue,
		filter:   filter,
		maxPages: maxPages,
		exhaust:  exhaust,
		log:      log,
		runners:  make(map[string]*runnerHandle),
	}
}

// Start launches one runner per keyword not already running. A keyword seen
// for the first time gets a fresh row; a restarted keyword keeps its cursor
// but starts a clean streak.
func (s *Supervisor) Start(ctx context.Context, keywords []string, opts StartOptions) error {
	started := 0
	for _, text := range keywords {
		if text == "" {
			continue
		}
		if err := s.startOne(ctx, text, opts); err != nil {
			return err
		}
		started++
	}
	if started == 0 {
		return errors.New("scheduler: no keywords to start")
	}
	return nil
}

func (s *Supervisor) startOne(ctx context.Context, text string, opts StartOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.runners[text]; ok {
		select {
		case <-h.runner.Done():
			// Finished; fall through and start a fresh run.
		default:
			s.log.Info("keyword already running", logger.String("keyword", text))
			return nil
		}
	}

	kw, err := s.store.GetKeyword(ctx, text)
	if errors.Is(err, sqlite.ErrKeywordNotFound) {
		kw = &domain.Keyword{Text: text, ExhaustionThreshold: s.exhaust}
		err = nil
	}
	if err != nil {
		return err
	}

	// A restart resumes the persisted cursor but resets the streak, giving
	// previously exhausted keywords a full fresh window.
	kw.EmptyPageStreak = 0
	kw.RunUntilStopped = opts.RunUntilStopped
	kw.AutoEnrich = opts.AutoEnrich
	if kw.ExhaustionThreshold <= 0 {
		kw.ExhaustionThreshold = s.exhaust
	}

	runner := NewKeywordRunner(kw, s.fetch, s.store, s.queue, s.filter, s.maxPages, s.log)
	s.seq++
	s.runners[text] = &runnerHandle{runner: runner, startedAt: s.seq}
	go runner.Run(s.base)

	s.log.Info("keyword runner started",
		logger.String("keyword", text),
		logger.Bool("run_until_stopped", opts.RunUntilStopped),
		logger.Bool("auto_enrich", opts.AutoEnrich))
	return nil
}

// Stop requests a stop for one keyword's runner, if it is running.
func (s *Supervisor) Stop(text string) {
	s.mu.Lock()
	h, ok := s.runners[text]
	s.mu.Unlock()
	if ok {
		h.runner.Stop()
	}
}

// StopAll requests a stop for every runner and waits for them to finish.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	handles := make([]*runnerHandle, 0, len(s.runners))
	for _, h := range s.runners {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.runner.Stop()
	}
	for _, h := range handles {
		<-h.runner.Done()
	}
}

// RunningKeyword returns the most recently started keyword still running,
// or "" when discovery is idle. Even with several concurrent runners, the
// dashboard surfaces a single keyword for display.
func (s *Supervisor) RunningKeyword() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	best, bestSeq := "", 0
	for text, h := range s.runners {
		select {
		case <-h.runner.Done():
			continue
		default:
		}
		if h.startedAt > bestSeq {
			best, bestSeq = text, h.startedAt
		}
	}
	return best
}

// Progress reports discovery state for the dashboard, pulling last_run_at
// from the persisted keyword rows.
func (s *Supervisor) Progress(ctx context.Context) (Progress, error) {
	current := s.RunningKeyword()
	p := Progress{Running: current != "", CurrentKeyword: current}

	keywords, err := s.store.ListKeywords(ctx)
	if err != nil {
		return p, err
	}
	for _, kw := range keywords {
		if kw.LastRunAt == nil {
			continue
		}
		if p.LastRunAt == nil || kw.LastRunAt.After(*p.LastRunAt) {
			p.LastRunAt = kw.LastRunAt
		}
	}
	return p, nil
}
