// Package content defines the normalized content model shared by every
// provider adapter.
//
// This package enables packfeed to:
// - Represent videos, microblog posts and podcast episodes as one Item type
// - Describe the channels, accounts and feeds each adapter fetches from
// - Order merged results newest first
package content

import "time"

// Source identifies which adapter produced an item.
type Source string

const (
	SourceVideo     Source = "video"
	SourceMicroblog Source = "microblog"
	SourceFeed      Source = "feed"
)

// AllSources returns every source kind in merge order.
func AllSources() []Source {
	return []Source{SourceVideo, SourceMicroblog, SourceFeed}
}

// Sport tags a descriptor with the sport it mostly covers.
type Sport string

const (
	SportFootball   Sport = "football"
	SportBasketball Sport = "basketball"
	SportBaseball   Sport = "baseball"
)

// Item is the normalized representation of one piece of aggregated content.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      Source    `json:"source"`
	Sport       Sport     `json:"sport,omitempty"`
}

// Channel identifies a video channel.
type Channel struct {
	ID    string `json:"id" toml:"id"`
	Name  string `json:"name" toml:"name"`
	Sport Sport  `json:"sport,omitempty" toml:"sport"`
}

// Account identifies a microblog account by its public handle.
type Account struct {
	Handle string `json:"handle" toml:"handle"`
	Name   string `json:"name" toml:"name"`
	Sport  Sport  `json:"sport,omitempty" toml:"sport"`
}

// Feed identifies a syndication feed. CanonicalURL, when set, is the landing
// page every episode links to (for example an Apple Podcasts page).
type Feed struct {
	URL          string `json:"url" toml:"url"`
	Name         string `json:"name" toml:"name"`
	CanonicalURL string `json:"canonicalUrl,omitempty" toml:"canonical_url"`
	Sport        Sport  `json:"sport,omitempty" toml:"sport"`
}

// Sources is the static list of descriptors every adapter reads from.
type Sources struct {
	YouTube  []Channel `json:"youtube" toml:"youtube"`
	Twitter  []Account `json:"twitter" toml:"twitter"`
	Podcasts []Feed    `json:"podcasts" toml:"podcasts"`
}
