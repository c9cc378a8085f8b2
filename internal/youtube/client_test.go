// Package youtube tests document the expected behavior of the video adapter.
//
// Test requirements (this file serves as documentation):
// - Client maps search results into content items
// - Client fetches each unique channel once and never returns duplicate ids
// - Client merges channels newest first
// - Client degrades to an empty result instead of returning errors
package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/httpcache"
	"github.com/packfeed/packfeed/internal/logging"
)

type video struct {
	id        string
	title     string
	published string
}

func searchBody(channelTitle string, videos ...video) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(videos))
	for _, v := range videos {
		items = append(items, map[string]interface{}{
			"kind": "youtube#searchResult",
			"id":   map[string]interface{}{"kind": "youtube#video", "videoId": v.id},
			"snippet": map[string]interface{}{
				"title":        v.title,
				"description":  "Highlights &amp; analysis",
				"channelTitle": channelTitle,
				"publishedAt":  v.published,
				"thumbnails": map[string]interface{}{
					"default": map[string]interface{}{"url": "https://i.ytimg.com/vi/" + v.id + "/default.jpg"},
					"medium":  map[string]interface{}{"url": "https://i.ytimg.com/vi/" + v.id + "/mqdefault.jpg"},
				},
			},
		})
	}
	return map[string]interface{}{"kind": "youtube#searchListResponse", "items": items}
}

// channelServer answers search requests from a per-channel response table and
// counts requests per channel.
type channelServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls map[string]int
}

func newChannelServer(t *testing.T, responses map[string]map[string]interface{}) *channelServer {
	t.Helper()
	cs := &channelServer{calls: make(map[string]int)}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		channelID := r.URL.Query().Get("channelId")
		cs.mu.Lock()
		cs.calls[channelID]++
		cs.mu.Unlock()

		body, ok := responses[channelID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *channelServer) callsFor(channelID string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.calls[channelID]
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestAC400_Video_MapsSearchResultToContentItem(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{
		"UC1": searchBody("Inside Pack Sports", video{"abc123", "Wolfpack&#39;s big win", "2024-10-05T18:30:00Z"}),
	})

	client := NewClient("test-key", WithBaseURL(server.URL), WithLogger(quietLogger()))
	items := client.FetchForChannel(context.Background(), content.Channel{ID: "UC1", Name: "IPS", Sport: content.SportFootball}, 5)

	if len(items) != 1 {
		t.Fatalf("user should see 1 video, got %d", len(items))
	}
	got := items[0]
	if got.ID != "video-abc123" {
		t.Errorf("id should be prefixed with source kind, got %q", got.ID)
	}
	if got.Title != "Wolfpack's big win" {
		t.Errorf("title should be entity-decoded, got %q", got.Title)
	}
	if got.Description != "Highlights & analysis" {
		t.Errorf("description should be entity-decoded, got %q", got.Description)
	}
	if got.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("unexpected watch URL %q", got.URL)
	}
	if got.Thumbnail != "https://i.ytimg.com/vi/abc123/mqdefault.jpg" {
		t.Errorf("thumbnail should come from the medium size, got %q", got.Thumbnail)
	}
	if got.Author != "Inside Pack Sports" {
		t.Errorf("author should be the channel title, got %q", got.Author)
	}
	if !got.PublishedAt.Equal(time.Date(2024, 10, 5, 18, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected publishedAt %v", got.PublishedAt)
	}
	if got.Source != content.SourceVideo {
		t.Errorf("source should be video, got %q", got.Source)
	}
	if got.Sport != content.SportFootball {
		t.Errorf("sport should be copied from the channel, got %q", got.Sport)
	}
}

func TestAC400_Video_SendsNewestFirstSearchQuery(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtube/v3/search" {
			t.Errorf("expected /youtube/v3/search, got %q", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_ = json.NewEncoder(w).Encode(searchBody("x"))
	}))
	defer server.Close()

	client := NewClient("secret-key", WithBaseURL(server.URL), WithLogger(quietLogger()))
	client.FetchForChannel(context.Background(), content.Channel{ID: "UCabc"}, 7)

	want := map[string]string{
		"part": "snippet", "channelId": "UCabc", "maxResults": "7",
		"order": "date", "type": "video", "key": "secret-key",
	}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("query %s: want %q, got %q", k, v, query[k])
		}
	}
}

func TestAC401_Video_MissingAPIKeyReturnsEmptyWithoutCalls(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{})
	logger, hook := test.NewNullLogger()

	client := NewClient("", WithBaseURL(server.URL), WithLogger(logger))
	channels := []content.Channel{{ID: "UC1", Name: "a"}, {ID: "UC2", Name: "b"}}

	items := client.FetchForAllChannels(context.Background(), channels, 5)
	items = append(items, client.FetchForChannel(context.Background(), channels[0], 5)...)

	if items == nil || len(items) != 0 {
		t.Fatalf("user without API key should see an empty (non-nil) list, got %v", items)
	}
	if server.callsFor("UC1")+server.callsFor("UC2") != 0 {
		t.Error("no request should be made without an API key")
	}
	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("missing key should be logged exactly once, got %d warnings", warnings)
	}
}

func TestAC402_Video_FetchesDuplicateChannelOnce(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{
		"UC1": searchBody("One", video{"v1", "t", "2024-10-01T00:00:00Z"}),
		"UC2": searchBody("Two", video{"v2", "t", "2024-10-02T00:00:00Z"}),
	})

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	channels := []content.Channel{
		{ID: "UC1", Name: "One"},
		{ID: "UC2", Name: "Two"},
		{ID: "UC1", Name: "One again"},
	}

	items := client.FetchForAllChannels(context.Background(), channels, 5)

	if server.callsFor("UC1") != 1 || server.callsFor("UC2") != 1 {
		t.Errorf("each unique channel should be fetched once, got UC1=%d UC2=%d",
			server.callsFor("UC1"), server.callsFor("UC2"))
	}
	if len(items) != 2 {
		t.Errorf("expected 2 videos, got %d", len(items))
	}
}

func TestAC403_Video_DropsDuplicateVideosAcrossChannels(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{
		"UC1": searchBody("One", video{"shared", "first copy", "2024-10-01T00:00:00Z"}, video{"only1", "t", "2024-10-03T00:00:00Z"}),
		"UC2": searchBody("Two", video{"shared", "second copy", "2024-10-01T00:00:00Z"}),
	})

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	items := client.FetchForAllChannels(context.Background(),
		[]content.Channel{{ID: "UC1"}, {ID: "UC2"}}, 5)

	seen := map[string]bool{}
	for _, item := range items {
		if seen[item.ID] {
			t.Fatalf("user should never see the same video twice, duplicate %q", item.ID)
		}
		seen[item.ID] = true
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 unique videos, got %d", len(items))
	}
	if items[1].Title != "first copy" {
		t.Errorf("first occurrence should win, got %q", items[1].Title)
	}
}

func TestAC404_Video_MergesChannelsNewestFirst(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{
		"channelA": searchBody("A",
			video{"v1", "v1", "2024-10-03T00:00:00Z"},
			video{"v2", "v2", "2024-10-01T00:00:00Z"}),
		"channelB": searchBody("B", video{"v3", "v3", "2024-10-02T00:00:00Z"}),
	})

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	items := client.FetchForAllChannels(context.Background(),
		[]content.Channel{{ID: "channelA"}, {ID: "channelB"}}, 5)

	want := []string{"video-v1", "video-v3", "video-v2"}
	if len(items) != len(want) {
		t.Fatalf("expected %d videos, got %d", len(want), len(items))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("position %d: want %s, got %s", i+1, id, items[i].ID)
		}
	}
}

func TestAC405_Video_ServerErrorYieldsEmptyAndLogsDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 403, "message": "quotaExceeded"},
		})
	}))
	defer server.Close()
	logger, hook := test.NewNullLogger()

	client := NewClient("super-secret", WithBaseURL(server.URL), WithLogger(logger))
	items := client.FetchForChannel(context.Background(), content.Channel{ID: "UC1", Name: "One"}, 5)

	if len(items) != 0 {
		t.Fatalf("user should see no videos from a failing channel, got %d", len(items))
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatal("provider error should be logged at error level")
	}
	if entry.Data["status"] != http.StatusForbidden {
		t.Errorf("log should carry the status, got %v", entry.Data["status"])
	}
	if entry.Data["channel"] != "One" {
		t.Errorf("log should carry the channel name, got %v", entry.Data["channel"])
	}
	if !strings.Contains(entry.Data["error"].(string), "quotaExceeded") {
		t.Errorf("log should carry the error body, got %v", entry.Data["error"])
	}
	if strings.Contains(entry.Data["url"].(string), "super-secret") {
		t.Error("logged URL must not contain the API key")
	}
}

func TestAC405_Video_ErrorFieldInSuccessfulResponseYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 400, "message": "invalid channel"},
		})
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	items := client.FetchForChannel(context.Background(), content.Channel{ID: "bad"}, 5)

	if len(items) != 0 {
		t.Errorf("error body should yield no videos, got %d", len(items))
	}
}

func TestAC406_Video_MalformedJSONYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [{"id": {"videoId": "v1"}, "snippet": {"title": "Test`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	items := client.FetchForChannel(context.Background(), content.Channel{ID: "UC1"}, 5)

	if len(items) != 0 {
		t.Errorf("partial response should yield no videos, got %d", len(items))
	}
}

func TestAC407_Video_OneFailingChannelDoesNotAffectOthers(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{
		"good": searchBody("Good", video{"v1", "t", "2024-10-01T00:00:00Z"}),
	})

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	items := client.FetchForAllChannels(context.Background(),
		[]content.Channel{{ID: "missing"}, {ID: "good"}}, 5)

	if len(items) != 1 || items[0].ID != "video-v1" {
		t.Errorf("healthy channel should still contribute, got %v", items)
	}
}

func TestAC408_Video_MissingFieldsGetDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": map[string]interface{}{"videoId": "bare"}, "snippet": map[string]interface{}{"thumbnails": nil}},
				{"id": map[string]interface{}{"kind": "youtube#channel"}, "snippet": map[string]interface{}{"title": "not a video"}},
			},
		})
	}))
	defer server.Close()

	fetchedAt := time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC)
	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	client.now = func() time.Time { return fetchedAt }

	items := client.FetchForChannel(context.Background(), content.Channel{ID: "UC1", Name: "Configured Name"}, 5)

	if len(items) != 1 {
		t.Fatalf("entries without a video id should be skipped, got %d items", len(items))
	}
	if items[0].Title != "Untitled Video" {
		t.Errorf("missing title should get a default, got %q", items[0].Title)
	}
	if items[0].Author != "Configured Name" {
		t.Errorf("missing channel title should fall back to the configured name, got %q", items[0].Author)
	}
	if !items[0].PublishedAt.Equal(fetchedAt) {
		t.Errorf("missing publish date should default to fetch time, got %v", items[0].PublishedAt)
	}
}

func TestAC409_Video_DefaultsLimitWhenNonPositive(t *testing.T) {
	var maxResults string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		maxResults = r.URL.Query().Get("maxResults")
		_ = json.NewEncoder(w).Encode(searchBody("x"))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	client.FetchForAllChannels(context.Background(), []content.Channel{{ID: "UC1"}}, 0)

	if maxResults != "5" {
		t.Errorf("default per-channel limit should be 5, got %q", maxResults)
	}
}

func TestAC409_Video_FetchForChannelDefaultsNegativeLimit(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query().Get("maxResults"))
		_ = json.NewEncoder(w).Encode(searchBody("x"))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	for _, limit := range []int{0, -1} {
		client.FetchForChannel(context.Background(), content.Channel{ID: "UC1"}, limit)
	}

	if !reflect.DeepEqual(seen, []string{"5", "5"}) {
		t.Errorf("non-positive limits should request the default of 5, got %v", seen)
	}
}

func TestAC410_Video_CachedClientReturnsSameItems(t *testing.T) {
	server := newChannelServer(t, map[string]map[string]interface{}{
		"UC1": searchBody("One", video{"v1", "Spring game", "2024-04-13T18:00:00Z"}),
		"UC2": searchBody("Two", video{"v2", "Signing day", "2024-02-07T12:00:00Z"}),
	})
	channels := []content.Channel{{ID: "UC1", Name: "One"}, {ID: "UC2", Name: "Two"}}

	plain := NewClient("k", WithBaseURL(server.URL), WithLogger(quietLogger()))
	want := plain.FetchForAllChannels(context.Background(), channels, 5)

	cached := NewClient("k",
		WithBaseURL(server.URL),
		WithHTTPClient(httpcache.New(&http.Client{}, time.Minute)),
		WithLogger(quietLogger()))
	first := cached.FetchForAllChannels(context.Background(), channels, 5)
	second := cached.FetchForAllChannels(context.Background(), channels, 5)

	if len(want) != 2 {
		t.Fatalf("expected 2 videos from the plain client, got %d", len(want))
	}
	if !reflect.DeepEqual(want, first) || !reflect.DeepEqual(want, second) {
		t.Errorf("cached client should return the same videos\nplain:  %+v\nfirst:  %+v\nsecond: %+v", want, first, second)
	}
	if server.callsFor("UC1") != 2 || server.callsFor("UC2") != 2 {
		t.Errorf("second cached run should be served from cache, got UC1=%d UC2=%d",
			server.callsFor("UC1"), server.callsFor("UC2"))
	}
}

func TestAC411_Video_ErrorBodyIsTruncatedOnRuneBoundary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("ñ", logging.MaxErrorBody+10)))
	}))
	defer server.Close()
	logger, hook := test.NewNullLogger()

	client := NewClient("k", WithBaseURL(server.URL), WithLogger(logger))
	client.FetchForChannel(context.Background(), content.Channel{ID: "UC1", Name: "One"}, 5)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("provider error should be logged")
	}
	logged, _ := entry.Data["error"].(string)
	if !utf8.ValidString(logged) {
		t.Error("logged body must remain valid UTF-8")
	}
	if logged != strings.Repeat("ñ", logging.MaxErrorBody)+"..." {
		t.Errorf("logged body should keep %d runes plus an ellipsis, got %d runes",
			logging.MaxErrorBody, utf8.RuneCountInString(logged))
	}
}
