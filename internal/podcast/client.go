package podcast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/entity"
	"github.com/packfeed/packfeed/internal/metrics"
)

const (
	// DefaultMaxPerFeed is used when a non-positive limit is passed.
	DefaultMaxPerFeed = 5

	// MaxFeedBytes bounds how much of a feed document is read.
	MaxFeedBytes = 10 << 20

	untitled    = "Untitled Episode"
	sourceLabel = string(content.SourceFeed)
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for provider diagnostics.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// WithConcurrency bounds how many feeds are fetched at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// Client fetches and parses podcast feeds.
type Client struct {
	httpClient  HTTPClient
	parser      *gofeed.Parser
	log         logrus.FieldLogger
	concurrency int
	now         func() time.Time
}

// NewClient creates a new podcast feed client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		parser:     gofeed.NewParser(),
		log:        logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("source", sourceLabel)
	return c
}

// FetchForAllFeeds fetches every feed concurrently and returns their episodes
// newest first. A feed that fails contributes nothing; its siblings are unaffected.
func (c *Client) FetchForAllFeeds(ctx context.Context, feeds []content.Feed, maxPerFeed int) []content.Item {
	if maxPerFeed <= 0 {
		maxPerFeed = DefaultMaxPerFeed
	}

	episodes := content.FetchAll(ctx, feeds, c.concurrency, func(ctx context.Context, f content.Feed) []content.Item {
		return c.FetchForFeed(ctx, f, maxPerFeed)
	})
	content.SortNewestFirst(episodes)

	return episodes
}

// FetchForFeed fetches one feed and returns up to maxResults of its entries in
// feed order. A non-positive maxResults means DefaultMaxPerFeed.
func (c *Client) FetchForFeed(ctx context.Context, feed content.Feed, maxResults int) []content.Item {
	if maxResults <= 0 {
		maxResults = DefaultMaxPerFeed
	}
	log := c.log.WithFields(logrus.Fields{"feed": feed.Name, "url": feed.URL})

	channel, err := c.fetchChannel(ctx, feed.URL)
	if err != nil {
		log.WithError(err).Error("failed to fetch podcast feed")
		return []content.Item{}
	}

	entries := channel.Episodes
	if len(entries) > maxResults {
		entries = entries[:maxResults]
	}

	fetchedAt := c.now()
	items := make([]content.Item, 0, len(entries))
	for _, ep := range entries {
		items = append(items, toItem(ep, channel, feed, fetchedAt))
	}

	log.WithField("count", len(items)).Debug("fetched episodes")
	metrics.ItemsFetched.WithLabelValues(sourceLabel).Add(float64(len(items)))

	return items
}

func (c *Client) fetchChannel(ctx context.Context, feedURL string) (*Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderError(sourceLabel, metrics.ReasonStatus)
		return nil, fmt.Errorf("podcast feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedBytes+1))
	if err != nil {
		metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	if len(body) > MaxFeedBytes {
		metrics.ProviderError(sourceLabel, metrics.ReasonDecode)
		return nil, fmt.Errorf("podcast feed exceeds %d bytes", MaxFeedBytes)
	}

	parsed, err := c.parser.ParseString(string(body))
	if err != nil {
		metrics.ProviderError(sourceLabel, metrics.ReasonDecode)
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return fromGofeed(parsed), nil
}

func fromGofeed(feed *gofeed.Feed) *Channel {
	ch := &Channel{
		Title:    feed.Title,
		Link:     feed.Link,
		Episodes: make([]Episode, 0, len(feed.Items)),
	}
	if feed.Image != nil {
		ch.Image = feed.Image.URL
	}
	if ch.Image == "" && feed.ITunesExt != nil {
		ch.Image = feed.ITunesExt.Image
	}

	for _, item := range feed.Items {
		ep := Episode{
			GUID:        item.GUID,
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			PublishedAt: item.PublishedParsed,
		}
		if ep.Description == "" {
			ep.Description = item.Content
		}
		if ep.PublishedAt == nil {
			ep.PublishedAt = item.UpdatedParsed
		}
		if item.Image != nil {
			ep.Image = item.Image.URL
		}
		if ep.Image == "" && item.ITunesExt != nil {
			ep.Image = item.ITunesExt.Image
		}
		ch.Episodes = append(ch.Episodes, ep)
	}
	return ch
}

func toItem(ep Episode, ch *Channel, feed content.Feed, fetchedAt time.Time) content.Item {
	title := entity.Decode(strings.TrimSpace(ep.Title))
	if title == "" {
		title = untitled
	}

	thumbnail := ep.Image
	if thumbnail == "" {
		thumbnail = ch.Image
	}

	author := ch.Title
	if author == "" {
		author = feed.Name
	}

	publishedAt := fetchedAt
	if ep.PublishedAt != nil {
		publishedAt = *ep.PublishedAt
	}

	return content.Item{
		ID:          "feed-" + episodeKey(ep),
		Title:       title,
		Description: plainText(ep.Description),
		URL:         ResolveURL(feed, ep.Link, ch.Link),
		Thumbnail:   thumbnail,
		Author:      entity.Decode(author),
		PublishedAt: publishedAt,
		Source:      content.SourceFeed,
		Sport:       feed.Sport,
	}
}

func episodeKey(ep Episode) string {
	if ep.GUID != "" {
		return ep.GUID
	}
	if ep.Link != "" {
		return ep.Link
	}
	return ep.Title
}

// ResolveURL picks the link an episode should open, in order of preference:
// the feed's canonical landing page, the entry's own link, the feed's
// homepage, and finally the feed URL. Links that point back at the feed or
// look like feed documents are skipped.
func ResolveURL(feed content.Feed, entryLink, homepage string) string {
	if feed.CanonicalURL != "" {
		return feed.CanonicalURL
	}
	if entryLink != "" && !sameURL(entryLink, feed.URL) && !looksLikeFeed(entryLink) {
		return entryLink
	}
	if homepage != "" && !sameURL(homepage, feed.URL) && !looksLikeFeed(homepage) {
		return homepage
	}
	return feed.URL
}

func sameURL(a, b string) bool {
	return strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(strings.TrimSpace(b), "/")
}

func looksLikeFeed(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	p := strings.ToLower(strings.TrimRight(u.Path, "/"))
	switch path.Ext(p) {
	case ".xml", ".rss", ".atom":
		return true
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == "feed" || segment == "rss" {
			return true
		}
	}
	return false
}

// plainText strips markup from a description and decodes its entities.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(entity.Decode(s)), " ")
}
