package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/entity"
	"github.com/packfeed/packfeed/internal/logging"
	"github.com/packfeed/packfeed/internal/metrics"
)

const (
	defaultBaseURL = "https://www.googleapis.com"
	watchURL       = "https://www.youtube.com/watch?v="

	// DefaultMaxPerChannel is used when a non-positive limit is passed.
	DefaultMaxPerChannel = 5

	untitled      = "Untitled Video"
	sourceLabel   = string(content.SourceVideo)
	redactedValue = "REDACTED"
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

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithLogger sets the logger used for provider diagnostics.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// WithConcurrency bounds how many channels are fetched at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// Client is a YouTube Data API client. It never returns provider errors:
// every failure is logged and turned into an empty result for that channel.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  HTTPClient
	log         logrus.FieldLogger
	concurrency int
	now         func() time.Time

	warnMissingKey sync.Once
}

// NewClient creates a new YouTube API client. An empty apiKey yields a client
// whose fetches always return no items.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		log:        logrus.StandardLogger(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("source", sourceLabel)

	return c
}

// FetchForAllChannels fetches up to maxPerChannel recent videos from every
// channel. Channels listed more than once are fetched once, duplicate videos
// are dropped (first occurrence wins) and the result is sorted newest first.
func (c *Client) FetchForAllChannels(ctx context.Context, channels []content.Channel, maxPerChannel int) []content.Item {
	if maxPerChannel <= 0 {
		maxPerChannel = DefaultMaxPerChannel
	}
	if !c.configured() {
		return []content.Item{}
	}

	unique := lo.UniqBy(channels, func(ch content.Channel) string {
		return ch.ID
	})

	videos := content.FetchAll(ctx, unique, c.concurrency, func(ctx context.Context, ch content.Channel) []content.Item {
		return c.FetchForChannel(ctx, ch, maxPerChannel)
	})

	videos = lo.UniqBy(videos, func(item content.Item) string {
		return item.ID
	})
	content.SortNewestFirst(videos)

	return videos
}

// FetchForChannel retrieves the most recent videos of one channel, newest first.
func (c *Client) FetchForChannel(ctx context.Context, channel content.Channel, maxResults int) []content.Item {
	if maxResults <= 0 {
		maxResults = DefaultMaxPerChannel
	}
	if !c.configured() {
		return []content.Item{}
	}
	log := c.log.WithFields(logrus.Fields{"channel": channel.Name, "channel_id": channel.ID})

	searchURL := c.searchURL(channel.ID, maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		log.WithError(err).Error("failed to create search request")
		metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
		return []content.Item{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(c.redactErr(err)).Error("YouTube API request failed")
		metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
		return []content.Item{}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Error("failed to read YouTube API response")
		metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
		return []content.Item{}
	}

	if resp.StatusCode != http.StatusOK {
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"error":  logging.TruncateBody(string(body)),
			"url":    c.redact(searchURL),
		}).Errorf("YouTube API error: %s", describeStatus(resp.StatusCode))
		metrics.ProviderError(sourceLabel, metrics.ReasonStatus)
		return []content.Item{}
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		log.WithError(err).WithField("body", logging.TruncateBody(string(body))).
			Error("failed to parse YouTube search response")
		metrics.ProviderError(sourceLabel, metrics.ReasonDecode)
		return []content.Item{}
	}

	if search.Error != nil {
		log.WithFields(logrus.Fields{
			"status": search.Error.Code,
			"error":  logging.TruncateBody(search.Error.Message),
		}).Error("YouTube API returned an error")
		metrics.ProviderError(sourceLabel, metrics.ReasonProviderError)
		return []content.Item{}
	}

	if len(search.Items) == 0 {
		log.Warn("no videos found for channel")
	}

	fetchedAt := c.now()
	videos := make([]content.Item, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, c.toItem(item, channel, fetchedAt))
	}

	log.WithField("count", len(videos)).Debug("fetched videos")
	metrics.ItemsFetched.WithLabelValues(sourceLabel).Add(float64(len(videos)))

	return videos
}

func (c *Client) toItem(item searchItem, channel content.Channel, fetchedAt time.Time) content.Item {
	title := entity.Decode(item.Snippet.Title)
	if title == "" {
		title = untitled
	}
	author := item.Snippet.ChannelTitle
	if author == "" {
		author = channel.Name
	}

	return content.Item{
		ID:          "video-" + item.ID.VideoID,
		Title:       title,
		Description: entity.Decode(item.Snippet.Description),
		URL:         watchURL + item.ID.VideoID,
		Thumbnail:   item.Snippet.Thumbnails.Medium.URL,
		Author:      entity.Decode(author),
		PublishedAt: parsePublishedAt(item.Snippet.PublishedAt, fetchedAt),
		Source:      content.SourceVideo,
		Sport:       channel.Sport,
	}
}

// configured reports whether an API key is present, warning once if not.
func (c *Client) configured() bool {
	if c.apiKey != "" {
		return true
	}
	c.warnMissingKey.Do(func() {
		c.log.Warn("YouTube API key not configured (set YOUTUBE_API_KEY); skipping video sources")
		metrics.ProviderError(sourceLabel, metrics.ReasonMissingCredential)
	})
	return false
}

func (c *Client) searchURL(channelID string, maxResults int) string {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("channelId", channelID)
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	q.Set("order", "date")
	q.Set("type", "video")
	q.Set("key", c.apiKey)
	return fmt.Sprintf("%s/youtube/v3/search?%s", c.baseURL, q.Encode())
}

func (c *Client) redact(s string) string {
	return strings.ReplaceAll(s, url.QueryEscape(c.apiKey), redactedValue)
}

func (c *Client) redactErr(err error) error {
	return fmt.Errorf("%s", c.redact(err.Error()))
}

func parsePublishedAt(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}

func describeStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "bad request - check the channel id"
	case http.StatusUnauthorized:
		return "authentication failed - check YOUTUBE_API_KEY"
	case http.StatusForbidden:
		return "access denied or daily quota exceeded"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusServiceUnavailable:
		return "temporarily unavailable"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return "server error"
	default:
		return fmt.Sprintf("status %d", statusCode)
	}
}
