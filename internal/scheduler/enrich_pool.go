package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/enrich"
	"github.com/tubeharvest/harvester/internal/logger"
)

// ErrPoolClosed is returned by Enqueue after Close.
var ErrPoolClosed = errors.New("scheduler: enrich pool closed")

// Enricher runs one enrichment pass; satisfied by *enrich.Pipeline.
type Enricher interface {
	Enrich(ctx context.Context, channelID string, settings domain.EnrichmentSettings) error
}

type enrichJob struct {
	channelID string
	settings  domain.EnrichmentSettings
}

// EnrichPool runs enrichment jobs on a bounded set of workers. The buffered
// queue is the backpressure mechanism: when it is full, senders block until
// a worker drains a slot instead of buffering jobs without limit.
type EnrichPool struct {
	pipeline Enricher
	defaults domain.EnrichmentSettings
	jobs     chan enrichJob
	quit     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	log      logger.Logger
}

// NewEnrichPool builds the pool and starts its workers immediately.
func NewEnrichPool(ctx context.Context, pipeline Enricher, workers, queueSize int, log logger.Logger) *EnrichPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	p := &EnrichPool{
		pipeline: pipeline,
		defaults: domain.DefaultEnrichmentSettings(),
		jobs:     make(chan enrichJob, queueSize),
		quit:     make(chan struct{}),
		log:      log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return p
}

func (p *EnrichPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			err := p.pipeline.Enrich(ctx, job.channelID, job.settings)
			switch {
			case err == nil:
			case errors.Is(err, enrich.ErrInFlight):
				p.log.Debug("enrichment already in flight",
					logger.String("channel", job.channelID))
			default:
				p.log.Error("enrichment job failed",
					logger.String("channel", job.channelID), logger.Error(err))
			}
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Enqueue submits an auto-enrichment job with default settings. Blocks while
// the queue is saturated.
func (p *EnrichPool) Enqueue(ctx context.Context, channelID string) error {
	return p.EnqueueWith(ctx, channelID, p.defaults)
}

// EnqueueWith submits a job with explicit settings.
func (p *EnrichPool) EnqueueWith(ctx context.Context, channelID string, settings domain.EnrichmentSettings) error {
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	select {
	case p.jobs <- enrichJob{channelID: channelID, settings: settings}:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers. Jobs still sitting in the queue are abandoned;
// jobs already picked up run to completion.
func (p *EnrichPool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
