// Package main provides the packfeed CLI entry point.
package main

import (
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags version and falls back to the module
// version recorded by go install.
func resolveVersion(ldflagsVersion string, info *debug.BuildInfo) string {
	if ldflagsVersion != "dev" {
		return ldflagsVersion
	}
	if info == nil || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

func buildInfo() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

// newRootCmd creates the root command for packfeed CLI.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "packfeed",
		Short: "Aggregate NC State sports content",
		Long: "Packfeed aggregates NC State sports videos, posts and podcast episodes " +
			"into one newest-first feed, in the terminal or over HTTP.",
		Version:       resolveVersion(version, buildInfo()),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.SetVersionTemplate("packfeed version {{.Version}}\n")

	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newSourcesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
