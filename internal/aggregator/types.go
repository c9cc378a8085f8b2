// Package aggregator combines items from every provider adapter into a single
// newest-first feed.
//
// This package enables packfeed to:
// - Fan out to the video, microblog and feed adapters concurrently
// - Skip adapters excluded by a source filter entirely
// - Merge results chronologically and report per-source counts
// - Window a merged feed by date range, source and limit
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/packfeed/packfeed/internal/content"
)

// VideoCollector fetches items from a set of video channels.
type VideoCollector interface {
	FetchForAllChannels(ctx context.Context, channels []content.Channel, maxPerChannel int) []content.Item
}

// MicroblogCollector fetches items from a set of microblog accounts.
type MicroblogCollector interface {
	FetchForAllAccounts(ctx context.Context, accounts []content.Account, maxPerAccount int) []content.Item
}

// FeedCollector fetches items from a set of syndication feeds.
type FeedCollector interface {
	FetchForAllFeeds(ctx context.Context, feeds []content.Feed, maxPerFeed int) []content.Item
}

// Request selects what a pipeline run fetches. Zero values mean "all".
type Request struct {
	Source content.Source
	Sport  content.Sport
}

// Breakdown is the number of items each source contributed.
type Breakdown struct {
	Video     int `json:"video"`
	Microblog int `json:"microblog"`
	Feed      int `json:"feed"`
}

// Total returns the sum of all per-source counts.
func (b Breakdown) Total() int {
	return b.Video + b.Microblog + b.Feed
}

// Result is the merged output of one pipeline run.
type Result struct {
	Items     []content.Item `json:"items"`
	Count     int            `json:"count"`
	Breakdown Breakdown      `json:"breakdown"`
	FetchedAt time.Time      `json:"timestamp"`
}

// StageError reports an unexpected fault inside one adapter stage. When it is
// returned the pipeline produces no result at all.
type StageError struct {
	Stage content.Source
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FeedOptions configures feed retrieval.
type FeedOptions struct {
	Limit   int
	Since   time.Time
	Until   time.Time
	Sources []content.Source
}
