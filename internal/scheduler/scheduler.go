package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/elonfeng/fabricpop/internal/store"
	"github.com/elonfeng/fabricpop/pkg/publish"
	"github.com/elonfeng/fabricpop/pkg/review"
)

// Importer turns a remote feed into review fields.
type Importer interface {
	Import(ctx context.Context, feedURL string) ([]review.Fields, error)
}

// Scheduler runs periodic feed imports and publication of stored reviews.
type Scheduler struct {
	store      store.Store
	builder    *review.Builder
	importer   Importer
	feeds      []string
	publisher  *publish.Manager
	log        *zap.Logger
	publishInt time.Duration
	importInt  time.Duration
	now        func() time.Time
}

// New creates a new scheduler. importer may be nil when no feeds are configured.
func New(
	s store.Store,
	builder *review.Builder,
	importer Importer,
	feeds []string,
	publisher *publish.Manager,
	publishInt, importInt time.Duration,
	log *zap.Logger,
) *Scheduler {
	if publishInt == 0 {
		publishInt = 5 * time.Minute
	}
	if importInt == 0 {
		importInt = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	if builder == nil {
		builder = review.NewBuilder(nil)
	}
	return &Scheduler{
		store:      s,
		builder:    builder,
		importer:   importer,
		feeds:      feeds,
		publisher:  publisher,
		log:        log,
		publishInt: publishInt,
		importInt:  importInt,
		now:        time.Now,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	importTicker := time.NewTicker(s.importInt)
	publishTicker := time.NewTicker(s.publishInt)
	defer importTicker.Stop()
	defer publishTicker.Stop()

	// Run immediately on start.
	s.ImportFeeds(ctx)
	s.PublishPending(ctx)

	s.log.Info("scheduler running",
		zap.Duration("import_interval", s.importInt),
		zap.Duration("publish_interval", s.publishInt),
		zap.Int("feeds", len(s.feeds)))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-importTicker.C:
			s.ImportFeeds(ctx)
		case <-publishTicker.C:
			s.PublishPending(ctx)
		}
	}
}

// ImportFeeds builds and stores a review for every rated entry of every
// configured feed. Entries that fail validation are logged and skipped.
// Entries already stored are left alone. It returns the number of new reviews.
func (s *Scheduler) ImportFeeds(ctx context.Context) int {
	if s.importer == nil || len(s.feeds) == 0 {
		return 0
	}

	saved := 0
	for _, feed := range s.feeds {
		entries, err := s.importer.Import(ctx, feed)
		if err != nil {
			s.log.Warn("import feed", zap.String("feed", feed), zap.Error(err))
			continue
		}

		for _, f := range entries {
			r, err := s.builder.Build(f)
			if err != nil {
				s.log.Warn("skip feed entry",
					zap.String("feed", feed),
					zap.String("title", f.MediaTitle),
					zap.String("kind", review.Kind(err)),
					zap.Error(err))
				continue
			}
			_, created, err := s.store.SaveReview(ctx, r)
			if err != nil {
				s.log.Error("store imported review", zap.String("feed", feed), zap.Error(err))
				continue
			}
			if created {
				saved++
			}
		}
		s.log.Info("imported feed", zap.String("feed", feed), zap.Int("entries", len(entries)))
	}
	return saved
}

// PublishPending broadcasts every unpublished review and marks the ones that
// were delivered. It returns the number of reviews published.
func (s *Scheduler) PublishPending(ctx context.Context) int {
	if s.publisher == nil || !s.publisher.HasPublishers() {
		return 0
	}

	pending, err := s.store.ListReviews(ctx, store.ListOpts{Unpublished: true})
	if err != nil {
		s.log.Error("list unpublished reviews", zap.Error(err))
		return 0
	}

	published := 0
	for i := range pending {
		rec := &pending[i]
		p, err := publish.NewPublication(rec.ID, rec.Review)
		if err != nil {
			s.log.Error("render review", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		if err := s.publisher.Broadcast(ctx, p); err != nil {
			s.log.Warn("publish review", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		if err := s.store.MarkPublished(ctx, rec.ID, s.now()); err != nil {
			s.log.Error("mark published", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		published++
		s.log.Info("published review",
			zap.String("id", rec.ID),
			zap.String("title", rec.Review.Media.Title),
			zap.String("digest", p.Digest))
	}
	return published
}
