package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/packfeed/packfeed/internal/aggregator"
	"github.com/packfeed/packfeed/internal/content"
	"github.com/packfeed/packfeed/internal/display"
	"github.com/packfeed/packfeed/internal/server"
	"github.com/packfeed/packfeed/pkg/browser"
	"github.com/packfeed/packfeed/pkg/oauth"
)

const fetchTimeout = 60 * time.Second

// newFeedCmd creates the feed subcommand.
func newFeedCmd() *cobra.Command {
	var source, sport string
	var limit int
	var since time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Display aggregated feed",
		Long:  "Fetch videos, posts and podcast episodes once and display them newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := content.ParseSource(source)
			if err != nil {
				return err
			}
			sp, err := content.ParseSport(sport)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
			defer cancel()

			result, err := a.pipeline.Fetch(ctx, aggregator.Request{Source: src, Sport: sp})
			if err != nil {
				return fmt.Errorf("failed to fetch content: %w", err)
			}

			agg := aggregator.New()
			agg.AddItems(result.Items)
			opts := aggregator.FeedOptions{Limit: limit}
			if since > 0 {
				opts.Since = time.Now().Add(-since)
			}
			items := agg.GetFeed(opts)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(aggregator.Result{
					Items:     items,
					Count:     len(items),
					Breakdown: result.Breakdown,
					FetchedAt: result.FetchedAt,
				})
			}

			formatter := display.NewTerminalFormatter()
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSummary(result.Breakdown))
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatFeed(items))
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Filter by source (video, microblog, feed)")
	cmd.Flags().StringVar(&sport, "sport", "", "Filter by sport (football, basketball, baseball)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of items to display")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show items published within this duration (e.g. 48h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of the terminal view")

	return cmd
}

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	var addr string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content API over HTTP",
		Long:  "Serve /api/content, /api/debug, /healthz and /metrics until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Addr
			}

			srv := server.Server(&server.ServerConfig{
				Pipeline:     a.pipeline,
				Sources:      a.sources,
				Credentials:  a.credentials(),
				FetchTimeout: fetchTimeout,
				Logger:       a.log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			a.log.WithField("addr", addr).Info("Serving packfeed")
			if open {
				if err := browser.Open(contentURL(addr)); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Could not open browser. Please visit:\n%s\n", contentURL(addr))
				}
			}

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				a.log.Info("Shutting down")
				return srv.ShutdownWithTimeout(5 * time.Second)
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default PACKFEED_ADDR or :3000)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the content endpoint in the browser")

	return cmd
}

// contentURL returns the browsable URL of the content endpoint served on addr.
func contentURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost:3000/api/content"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/content"
}

// newAuthCmd creates the auth subcommand.
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth <provider>",
		Short: "Obtain an app-only token for a provider (twitter)",
		Long: "Exchange TWITTER_API_KEY and TWITTER_API_SECRET for an app-only bearer token " +
			"and store it in the config directory.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires exactly one provider argument (twitter)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.ToLower(args[0])
			if provider == "x" {
				provider = twitterProvider
			}
			if provider != twitterProvider {
				return fmt.Errorf("invalid provider %q: must be 'twitter'", args[0])
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if a.cfg.TwitterAPIKey == "" || a.cfg.TwitterAPISecret == "" {
				return errors.New("missing credentials: set TWITTER_API_KEY and TWITTER_API_SECRET environment variables")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.HTTPTimeout)
			defer cancel()

			fmt.Fprintf(cmd.OutOrStdout(), "Requesting app-only token from %s...\n", provider)
			flow := oauth.NewFlow(
				oauth.TwitterAppConfig(a.cfg.TwitterAPIKey, a.cfg.TwitterAPISecret),
				oauth.WithTokenURL(strings.TrimRight(a.cfg.TwitterAPIURL, "/")+"/oauth2/token"),
			)
			token, err := flow.FetchAppToken(ctx)
			if err != nil {
				return fmt.Errorf("token request failed: %w", err)
			}

			storage := oauth.NewTokenStorage(a.cfg.ConfigDir)
			if err := storage.Save(provider, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully authenticated with %s!\n", provider)
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to: %s\n", storage.Dir())
			return nil
		},
	}

	return cmd
}

// newSourcesCmd creates the sources subcommand.
func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured channels, accounts and feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "YouTube channels (%d):\n", len(a.sources.YouTube))
			for _, c := range a.sources.YouTube {
				fmt.Fprintf(out, "  %s  %s%s\n", c.ID, c.Name, sportSuffix(c.Sport))
			}
			fmt.Fprintf(out, "Twitter accounts (%d):\n", len(a.sources.Twitter))
			for _, acct := range a.sources.Twitter {
				fmt.Fprintf(out, "  @%s  %s%s\n", acct.Handle, acct.Name, sportSuffix(acct.Sport))
			}
			fmt.Fprintf(out, "Podcast feeds (%d):\n", len(a.sources.Podcasts))
			for _, f := range a.sources.Podcasts {
				fmt.Fprintf(out, "  %s  %s%s\n", f.URL, f.Name, sportSuffix(f.Sport))
			}
			return nil
		},
	}

	return cmd
}

func sportSuffix(s content.Sport) string {
	if s == "" {
		return ""
	}
	return " (" + string(s) + ")"
}

// newConfigCmd creates the config subcommand.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		Long:  "Show the packfeed config directory and which credentials are configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			creds := a.credentials()
			sourcesFile := a.cfg.SourcesPath
			if sourcesFile == "" {
				sourcesFile = "(built-in defaults)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config directory: %s\n", a.cfg.ConfigDir)
			fmt.Fprintf(out, "Sources file: %s\n", sourcesFile)
			fmt.Fprintf(out, "YouTube API key: %s\n", presence(creds.YouTube))
			fmt.Fprintf(out, "Twitter bearer token: %s\n", presence(creds.Twitter))
			fmt.Fprintf(out, "Cache TTL: %s\n", a.cfg.CacheTTL)
			fmt.Fprintf(out, "Max items per source: %d\n", a.cfg.MaxPerSource)
			return nil
		},
	}

	return cmd
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}
