package aggregator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/metrics"
)

// DefaultMaxPerSource is the number of items fetched per channel, account or feed.
const DefaultMaxPerSource = 5

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithVideo binds the video adapter.
func WithVideo(c VideoCollector) PipelineOption {
	return func(p *Pipeline) { p.video = c }
}

// WithMicroblog binds the microblog adapter.
func WithMicroblog(c MicroblogCollector) PipelineOption {
	return func(p *Pipeline) { p.microblog = c }
}

// WithFeeds binds the feed adapter.
func WithFeeds(c FeedCollector) PipelineOption {
	return func(p *Pipeline) { p.feed = c }
}

// WithMaxPerSource sets how many items each channel, account or feed contributes.
func WithMaxPerSource(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPerSource = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) { p.log = logger }
}

// Pipeline fans out to the bound adapters and merges their results.
// The descriptor lists are read-only for the lifetime of the Pipeline.
type Pipeline struct {
	sources      content.Sources
	video        VideoCollector
	microblog    MicroblogCollector
	feed         FeedCollector
	maxPerSource int
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewPipeline creates a pipeline over the given descriptors. Adapters that are
// not bound contribute no items.
func NewPipeline(sources content.Sources, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		sources:      sources,
		maxPerSource: DefaultMaxPerSource,
		log:          logrus.StandardLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sources returns the descriptors the pipeline was built with.
func (p *Pipeline) Sources() content.Sources {
	return p.sources
}

type stage struct {
	source content.Source
	run    func(ctx context.Context) []content.Item
}

// stages returns the adapter calls selected by req, in merge order.
func (p *Pipeline) stages(req Request) []stage {
	sources := p.sources.ForSport(req.Sport)
	selected := func(s content.Source) bool {
		return req.Source == "" || req.Source == s
	}

	var stages []stage
	if p.video != nil && selected(content.SourceVideo) {
		stages = append(stages, stage{content.SourceVideo, func(ctx context.Context) []content.Item {
			return p.video.FetchForAllChannels(ctx, sources.YouTube, p.maxPerSource)
		}})
	}
	if p.microblog != nil && selected(content.SourceMicroblog) {
		stages = append(stages, stage{content.SourceMicroblog, func(ctx context.Context) []content.Item {
			return p.microblog.FetchForAllAccounts(ctx, sources.Twitter, p.maxPerSource)
		}})
	}
	if p.feed != nil && selected(content.SourceFeed) {
		stages = append(stages, stage{content.SourceFeed, func(ctx context.Context) []content.Item {
			return p.feed.FetchForAllFeeds(ctx, sources.Podcasts, p.maxPerSource)
		}})
	}
	return stages
}

// Fetch runs every adapter selected by req concurrently, waits for all of
// them, and returns the merged items newest first together with per-source
// counts. Adapters absorb provider faults themselves; if one panics anyway,
// Fetch returns a *StageError and no result.
func (p *Pipeline) Fetch(ctx context.Context, req Request) (*Result, error) {
	log := p.log.WithFields(logrus.Fields{"filter_source": sourceOrAll(req.Source), "filter_sport": req.Sport})
	stages := p.stages(req)
	results := make([][]content.Item, len(stages))

	var g errgroup.Group
	for i, s := range stages {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &StageError{Stage: s.source, Err: fmt.Errorf("panic: %v", r)}
					log.WithField("stage", s.source).WithField("stack", string(debug.Stack())).
						Error("adapter panicked")
				}
			}()
			start := time.Now()
			results[i] = s.run(ctx)
			metrics.FetchDuration.WithLabelValues(string(s.source)).Observe(time.Since(start).Seconds())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.PipelineFailures.Inc()
		return nil, err
	}

	agg := New()
	var breakdown Breakdown
	for i, s := range stages {
		agg.AddItems(results[i])
		switch s.source {
		case content.SourceVideo:
			breakdown.Video = len(results[i])
		case content.SourceMicroblog:
			breakdown.Microblog = len(results[i])
		case content.SourceFeed:
			breakdown.Feed = len(results[i])
		}
	}
	items := agg.GetFeed(FeedOptions{})

	log.WithFields(logrus.Fields{
		"video":     breakdown.Video,
		"microblog": breakdown.Microblog,
		"feed":      breakdown.Feed,
		"total":     len(items),
	}).Info("content fetched")

	return &Result{
		Items:     items,
		Count:     len(items),
		Breakdown: breakdown,
		FetchedAt: p.now().UTC(),
	}, nil
}

func sourceOrAll(s content.Source) string {
	if s == "" {
		return "all"
	}
	return string(s)
}
