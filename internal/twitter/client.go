package twitter

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
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/entity"
	"github.com/packfeed/packfeed/internal/logging"
	"github.com/packfeed/packfeed/internal/metrics"
)

const (
	defaultBaseURL = "https://api.twitter.com/2"
	statusURL      = "https://twitter.com/%s/status/%s"

	// DefaultMaxPerAccount is used when a non-positive limit is passed.
	DefaultMaxPerAccount = 5

	// the timeline endpoint rejects max_results outside this range
	minPageSize = 5
	maxPageSize = 100

	titleRunes  = 100
	sourceLabel = string(content.SourceMicroblog)
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

// WithBaseURL sets the base URL for API requests (used for testing).
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

// WithConcurrency bounds how many accounts are fetched at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// Client is a Twitter API v2 client.
type Client struct {
	bearerToken string
	baseURL     string
	httpClient  HTTPClient
	log         logrus.FieldLogger
	concurrency int
	now         func() time.Time

	warnMissingToken sync.Once
}

// NewClient creates a new Twitter API client authenticating with an app-only
// bearer token. An empty token yields a client whose fetches return no posts.
func NewClient(bearerToken string, opts ...ClientOption) *Client {
	c := &Client{
		bearerToken: bearerToken,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{},
		log:         logrus.StandardLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("source", sourceLabel)
	return c
}

// FetchForAllAccounts fetches recent posts for every account concurrently and
// returns them newest first. Accounts are independent, so no cross-account
// deduplication is done.
func (c *Client) FetchForAllAccounts(ctx context.Context, accounts []content.Account, maxPerAccount int) []content.Item {
	if maxPerAccount <= 0 {
		maxPerAccount = DefaultMaxPerAccount
	}
	if !c.configured() {
		return []content.Item{}
	}

	posts := content.FetchAll(ctx, accounts, c.concurrency, func(ctx context.Context, a content.Account) []content.Item {
		return c.FetchForAccount(ctx, a, maxPerAccount)
	})
	content.SortNewestFirst(posts)

	return posts
}

// FetchForAccount resolves the account handle to a user id, then fetches that
// user's most recent posts. Any failure yields an empty result.
func (c *Client) FetchForAccount(ctx context.Context, account content.Account, maxResults int) []content.Item {
	if maxResults <= 0 {
		maxResults = DefaultMaxPerAccount
	}
	if !c.configured() {
		return []content.Item{}
	}
	log := c.log.WithFields(logrus.Fields{"account": account.Name, "handle": account.Handle})

	author, ok := c.lookupUser(ctx, log, account.Handle)
	if !ok {
		return []content.Item{}
	}

	timelineURL := fmt.Sprintf("%s/users/%s/tweets?%s", c.baseURL, url.PathEscape(author.ID), timelineQuery(maxResults))
	body, err := c.doRequest(ctx, timelineURL)
	if err != nil {
		logFailure(log.WithField("stage", "tweets"), err)
		return []content.Item{}
	}

	var timeline timelineResponse
	if err := json.Unmarshal(body, &timeline); err != nil {
		log.WithError(err).Error("failed to parse tweets response")
		metrics.ProviderError(sourceLabel, metrics.ReasonDecode)
		return []content.Item{}
	}

	tweets := timeline.Data
	if len(tweets) > maxResults {
		tweets = tweets[:maxResults]
	}

	names := lo.SliceToMap(timeline.Includes.Users, func(u user) (string, string) {
		return u.ID, u.Name
	})
	fallbackAuthor := author.Name
	if fallbackAuthor == "" {
		fallbackAuthor = account.Name
	}

	fetchedAt := c.now()
	posts := make([]content.Item, 0, len(tweets))
	for _, tw := range tweets {
		name := names[tw.AuthorID]
		if name == "" {
			name = fallbackAuthor
		}
		posts = append(posts, toItem(tw, account, name, fetchedAt))
	}

	log.WithField("count", len(posts)).Debug("fetched posts")
	metrics.ItemsFetched.WithLabelValues(sourceLabel).Add(float64(len(posts)))

	return posts
}

func (c *Client) lookupUser(ctx context.Context, log logrus.FieldLogger, handle string) (user, bool) {
	handle = strings.TrimPrefix(handle, "@")
	lookupURL := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(handle))

	body, err := c.doRequest(ctx, lookupURL)
	if err != nil {
		logFailure(log.WithField("stage", "user"), err)
		return user{}, false
	}

	var lookup userLookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		log.WithError(err).Error("failed to parse user lookup response")
		metrics.ProviderError(sourceLabel, metrics.ReasonDecode)
		return user{}, false
	}
	if lookup.Data == nil || lookup.Data.ID == "" {
		log.Errorf("user id not found for @%s", handle)
		metrics.ProviderError(sourceLabel, metrics.ReasonNotFound)
		return user{}, false
	}

	return *lookup.Data, true
}

func toItem(tw tweet, account content.Account, author string, fetchedAt time.Time) content.Item {
	text := entity.Decode(tw.Text)
	publishedAt, err := time.Parse(time.RFC3339, tw.CreatedAt)
	if err != nil {
		publishedAt = fetchedAt
	}

	return content.Item{
		ID:          "microblog-" + tw.ID,
		Title:       titleFrom(text),
		Description: text,
		URL:         fmt.Sprintf(statusURL, strings.TrimPrefix(account.Handle, "@"), tw.ID),
		Author:      entity.Decode(author),
		PublishedAt: publishedAt,
		Source:      content.SourceMicroblog,
		Sport:       account.Sport,
	}
}

// titleFrom returns the first 100 characters of text, with "..." appended
// when anything was cut.
func titleFrom(text string) string {
	if utf8.RuneCountInString(text) <= titleRunes {
		return text
	}
	return string([]rune(text)[:titleRunes]) + "..."
}

func timelineQuery(maxResults int) string {
	pageSize := min(max(maxResults, minPageSize), maxPageSize)
	q := url.Values{}
	q.Set("max_results", fmt.Sprintf("%d", pageSize))
	q.Set("tweet.fields", "created_at,author_id")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "name,username")
	return q.Encode()
}

func (c *Client) configured() bool {
	if c.bearerToken != "" {
		return true
	}
	c.warnMissingToken.Do(func() {
		c.log.Warn("Twitter bearer token not configured (set TWITTER_BEARER_TOKEN or run 'packfeed auth twitter'); skipping microblog sources")
		metrics.ProviderError(sourceLabel, metrics.ReasonMissingCredential)
	})
	return false
}

// statusError is returned by doRequest for non-200 responses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Twitter API error: status %d", e.code)
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.bearerToken))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	return body, nil
}

func logFailure(log logrus.FieldLogger, err error) {
	if se, ok := err.(*statusError); ok {
		log.WithFields(logrus.Fields{"status": se.code, "error": logging.TruncateBody(se.body)}).Error(se.Error())
		metrics.ProviderError(sourceLabel, metrics.ReasonStatus)
		return
	}
	log.WithError(err).Error("Twitter API request failed")
	metrics.ProviderError(sourceLabel, metrics.ReasonTransport)
}
