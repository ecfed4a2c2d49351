package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/tubeharvest/harvester/internal/crawler"
	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
)

// Fetcher is the slice of the crawler the pipeline needs.
type Fetcher interface {
	FetchAbout(ctx context.Context, channelID string) (*crawler.AboutPage, error)
	FetchRecentVideos(ctx context.Context, channelID string, limit int) ([]crawler.Video, error)
	FetchVideoDescription(ctx context.Context, videoID string) (string, error)
}

// Store is the slice of the channel store the pipeline needs.
type Store interface {
	GetChannel(ctx context.Context, id string) (*domain.Channel, error)
	ApplyEnrichment(ctx context.Context, id string, e sqlite.ChannelEnrichment) error
}

// Pipeline runs single-channel enrichment passes: contact extraction,
// language detection, metadata refresh and post-enrichment re-classification
// of channels that were admitted provisionally.
type Pipeline struct {
	fetch        Fetcher
	store        Store
	filter       domain.FilterConfig
	recentVideos int
	locks        *keyedMutex
	log          logger.Logger
}

// NewPipeline builds a Pipeline. recentVideos bounds how many long-form
// video descriptions and titles a single pass may fetch.
func NewPipeline(fetch Fetcher, store Store, filter domain.FilterConfig, recentVideos int, log logger.Logger) *Pipeline {
	if recentVideos <= 0 {
		recentVideos = 3
	}
	return &Pipeline{
		fetch:        fetch,
		store:        store,
		filter:       filter,
		recentVideos: recentVideos,
		locks:        newKeyedMutex(),
		log:          log,
	}
}

// Enrich runs one enrichment pass for channelID. At most one pass per
// channel is in flight at any time; a concurrent request returns
// ErrInFlight. A failed sub-fetch degrades the pass to partial instead of
// failing it, as long as at least one source was obtained.
func (p *Pipeline) Enrich(ctx context.Context, channelID string, settings domain.EnrichmentSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := p.locks.TryLock(channelID); err != nil {
		return err
	}
	defer p.locks.Unlock(channelID)

	ch, err := p.store.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}

	pass := p.gather(ctx, ch, settings)
	update := p.buildUpdate(ch, settings, pass)
	if err := p.store.ApplyEnrichment(ctx, channelID, update); err != nil {
		return fmt.Errorf("enrich %s: %w", channelID, err)
	}

	p.log.Info("channel enriched",
		logger.String("channel", channelID),
		logger.Bool("partial", update.Partial),
		logger.String("language", update.Language),
		logger.Int("emails", len(update.Emails)))
	return nil
}

// passData holds everything one enrichment run fetched from upstream.
type passData struct {
	about      *crawler.AboutPage
	videos     []crawler.Video
	haveVideos bool
	videoDescs []string
	partial    bool
}

func (p *Pipeline) gather(ctx context.Context, ch *domain.Channel, settings domain.EnrichmentSettings) passData {
	var pass passData

	needAbout := settings.RefreshChannelMetadata || settings.LanguageEnabled ||
		(settings.EmailEnabled && settings.EmailMode != domain.EmailVideosOnly)
	needVideos := settings.UpdateLastUpload || settings.RefreshChannelMetadata ||
		(settings.LanguageEnabled && settings.LanguageMode == domain.LanguagePrecise) ||
		(settings.EmailEnabled && settings.EmailMode != domain.EmailChannelOnly)

	if needAbout {
		about, err := p.fetch.FetchAbout(ctx, ch.ID)
		if err != nil {
			p.log.Warn("about fetch failed", logger.String("channel", ch.ID), logger.Error(err))
			pass.partial = true
		} else {
			pass.about = about
		}
	}

	if needVideos {
		// Unbounded fetch so the long-form count reflects the whole first
		// page; descriptions below only touch the first few.
		videos, err := p.fetch.FetchRecentVideos(ctx, ch.ID, 0)
		if err != nil {
			p.log.Warn("videos fetch failed", logger.String("channel", ch.ID), logger.Error(err))
			pass.partial = true
		} else {
			pass.videos = videos
			pass.haveVideos = true
		}
	}

	if settings.EmailEnabled && settings.EmailMode != domain.EmailChannelOnly {
		for i, v := range pass.videos {
			if i >= p.recentVideos {
				break
			}
			desc, err := p.fetch.FetchVideoDescription(ctx, v.ID)
			if err != nil {
				p.log.Warn("description fetch failed",
					logger.String("channel", ch.ID), logger.String("video", v.ID), logger.Error(err))
				pass.partial = true
				continue
			}
			pass.videoDescs = append(pass.videoDescs, desc)
		}
	}
	return pass
}

func (p *Pipeline) buildUpdate(ch *domain.Channel, settings domain.EnrichmentSettings, pass passData) sqlite.ChannelEnrichment {
	update := sqlite.ChannelEnrichment{Partial: pass.partial}

	var channelBlobs []string
	if pass.about != nil {
		channelBlobs = append(channelBlobs, pass.about.Description, pass.about.RawText)
		channelBlobs = append(channelBlobs, pass.about.Links...)
	}

	if settings.EmailEnabled {
		var corpus []string
		if settings.EmailMode != domain.EmailVideosOnly {
			corpus = append(corpus, channelBlobs...)
		}
		if settings.EmailMode != domain.EmailChannelOnly {
			corpus = append(corpus, pass.videoDescs...)
		}
		if extracted := domain.ExtractEmails(corpus...); len(extracted) > 0 || ch.Emails != nil {
			update.Emails = domain.MergeEmails(ch.Emails, extracted)
		}
		if handle := domain.ExtractTelegram(corpus...); handle != "" {
			update.TelegramHandle = handle
		}
	}

	if settings.LanguageEnabled {
		title, desc := ch.Name, ""
		if pass.about != nil {
			if pass.about.Title != "" {
				title = pass.about.Title
			}
			desc = pass.about.Description
		}
		switch settings.LanguageMode {
		case domain.LanguagePrecise:
			texts := []string{title, desc}
			for i, v := range pass.videos {
				if i >= p.recentVideos {
					break
				}
				texts = append(texts, v.Title)
			}
			update.Language = DetectPrecise(texts...)
		default:
			update.Language = DetectBasic(title, desc)
		}
	}

	if settings.RefreshChannelMetadata {
		if pass.about != nil {
			if pass.about.Title != "" {
				update.Name = pass.about.Title
			}
			if pass.about.SubscriberCount >= 0 {
				subs := pass.about.SubscriberCount
				update.SubscriberCount = &subs
			}
		}
		if pass.haveVideos {
			count := int64(len(pass.videos))
			update.LongformVideoCount = &count
		}
	}

	if settings.UpdateLastUpload && pass.haveVideos {
		var latest time.Time
		for _, v := range pass.videos {
			if v.Published.After(latest) {
				latest = v.Published
			}
		}
		if !latest.IsZero() {
			update.LastUploadAt = &latest
		}
	}

	// Channels admitted provisionally get re-classified now that more of
	// their metadata is known.
	if ch.Status == domain.StatusNew {
		verdict := domain.Classify(p.metadataAfter(ch, update), p.filter, time.Now().UTC())
		update.Status = verdict.Status
		update.BlacklistReason = verdict.Reason
	}
	return update
}

// metadataAfter projects what the channel row will look like once update is
// applied, for re-classification.
func (p *Pipeline) metadataAfter(ch *domain.Channel, update sqlite.ChannelEnrichment) domain.CandidateMetadata {
	meta := domain.CandidateMetadata{
		SubscriberCount:    ch.SubscriberCount,
		LongformVideoCount: ch.LongformVideoCount,
		Language:           ch.Language,
	}
	if ch.LastUploadAt != nil {
		meta.LastUploadAt = *ch.LastUploadAt
	}
	if update.SubscriberCount != nil {
		meta.SubscriberCount = *update.SubscriberCount
	}
	if update.LongformVideoCount != nil {
		meta.LongformVideoCount = *update.LongformVideoCount
	}
	if update.LastUploadAt != nil {
		meta.LastUploadAt = *update.LastUploadAt
	}
	if update.Language != "" {
		meta.Language = update.Language
	}
	return meta
}
