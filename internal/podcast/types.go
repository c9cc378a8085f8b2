// Package podcast provides the feed adapter: it parses podcast RSS/Atom feeds
// and emits their most recent episodes as content items.
package podcast

import "time"

// Episode is the provider-neutral view of one feed entry before it is turned
// into a content.Item.
type Episode struct {
	GUID        string
	Title       string
	Description string
	Link        string
	Image       string
	PublishedAt *time.Time
}

// Channel holds the feed-level fields episodes fall back to.
type Channel struct {
	Title    string
	Link     string
	Image    string
	Episodes []Episode
}
