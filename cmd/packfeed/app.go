package main

import (
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/packfeed/packfeed/internal/aggregator"
	"github.com/packfeed/packfeed/internal/config"
	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/httpcache"
	"github.com/packfeed/packfeed/internal/logging"
	"github.com/packfeed/packfeed/internal/podcast"
	"github.com/packfeed/packfeed/internal/server"
	"github.com/packfeed/packfeed/internal/twitter"
	"github.com/packfeed/packfeed/internal/youtube"
	"github.com/packfeed/packfeed/pkg/oauth"
)

// twitterProvider names the stored app-only token.
const twitterProvider = "twitter"

// app is the wired set of components shared by every command.
type app struct {
	cfg          *config.Config
	log          *log.Logger
	sources      content.Sources
	twitterToken string
	pipeline     *aggregator.Pipeline
}

// newApp loads configuration and wires the adapters into a pipeline. Logs go
// to logOut.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return nil, err
	}

	sources, err := cfg.Sources()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		log:          logger,
		sources:      sources,
		twitterToken: resolveTwitterToken(cfg, logger),
	}

	httpClient := httpcache.New(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.CacheTTL)

	video := youtube.NewClient(cfg.YouTubeAPIKey,
		youtube.WithHTTPClient(httpClient),
		youtube.WithBaseURL(cfg.YouTubeAPIURL),
		youtube.WithLogger(logger),
	)
	microblog := twitter.NewClient(a.twitterToken,
		twitter.WithHTTPClient(httpClient),
		twitter.WithBaseURL(strings.TrimRight(cfg.TwitterAPIURL, "/")+"/2"),
		twitter.WithLogger(logger),
	)
	feeds := podcast.NewClient(
		podcast.WithHTTPClient(httpClient),
		podcast.WithLogger(logger),
	)

	a.pipeline = aggregator.NewPipeline(sources,
		aggregator.WithVideo(video),
		aggregator.WithMicroblog(microblog),
		aggregator.WithFeeds(feeds),
		aggregator.WithMaxPerSource(cfg.MaxPerSource),
		aggregator.WithLogger(logger),
	)

	return a, nil
}

// credentials reports which provider credentials are available.
func (a *app) credentials() server.Credentials {
	return server.Credentials{
		YouTube: a.cfg.YouTubeAPIKey != "",
		Twitter: a.twitterToken != "",
	}
}

// resolveTwitterToken returns TWITTER_BEARER_TOKEN, or the token saved by
// "packfeed auth twitter" when the variable is unset.
func resolveTwitterToken(cfg *config.Config, logger log.FieldLogger) string {
	if cfg.TwitterBearerToken != "" {
		return cfg.TwitterBearerToken
	}
	token, err := oauth.NewTokenStorage(cfg.ConfigDir).Load(twitterProvider)
	if err != nil {
		if !errors.Is(err, oauth.ErrTokenNotFound) {
			logger.WithError(err).Warn("Could not read stored Twitter token")
		}
		return ""
	}
	return token.AccessToken
}
