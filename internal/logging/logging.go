// Package logging builds the logrus logger shared by every packfeed component.
package logging

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to out at the given level. format is "text" or
// "json".
func New(level, format string, out io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := log.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
	return logger, nil
}

// MaxErrorBody is the number of runes of a provider error body kept in logs.
const MaxErrorBody = 500

// TruncateBody shortens a provider response body for logging without
// splitting a multi-byte character.
func TruncateBody(s string) string {
	if utf8.RuneCountInString(s) <= MaxErrorBody {
		return s
	}
	return string([]rune(s)[:MaxErrorBody]) + "..."
}
