package aggregator

import (
	"slices"

	"github.com/packfeed/packfeed/internal/content"
)

// Aggregator collects and merges content items from multiple sources.
type Aggregator struct {
	items []content.Item
}

// New creates a new Aggregator instance.
func New() *Aggregator {
	return &Aggregator{
		items: make([]content.Item, 0),
	}
}

// AddItems adds items to the aggregator. Items keep their insertion order
// among equal timestamps.
func (a *Aggregator) AddItems(items []content.Item) {
	a.items = append(a.items, items...)
}

// Len returns the number of items added so far.
func (a *Aggregator) Len() int {
	return len(a.items)
}

// GetFeed returns the items matching opts, newest first.
func (a *Aggregator) GetFeed(opts FeedOptions) []content.Item {
	feed := make([]content.Item, 0, len(a.items))
	for _, item := range a.items {
		if !opts.Since.IsZero() && item.PublishedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && item.PublishedAt.After(opts.Until) {
			continue
		}
		if len(opts.Sources) > 0 && !slices.Contains(opts.Sources, item.Source) {
			continue
		}
		feed = append(feed, item)
	}

	content.SortNewestFirst(feed)

	if opts.Limit > 0 && len(feed) > opts.Limit {
		feed = feed[:opts.Limit]
	}
	return feed
}
