// Package display renders aggregated content for the terminal.
package display

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/packfeed/packfeed/internal/aggregator"
	"github.com/packfeed/packfeed/internal/content"
)

const (
	separator      = " • "
	descriptionLen = 140
)

var sourceLabels = map[content.Source]string{
	content.SourceVideo:     "VIDEO",
	content.SourceMicroblog: "POST",
	content.SourceFeed:      "PODCAST",
}

// TerminalFormatter formats content items for terminal display.
type TerminalFormatter struct {
	now func() time.Time
}

// NewTerminalFormatter creates a new terminal formatter.
func NewTerminalFormatter() *TerminalFormatter {
	return &TerminalFormatter{now: time.Now}
}

// FormatItem formats a single item for display.
func (f *TerminalFormatter) FormatItem(item content.Item) string {
	var lines []string

	// [SOURCE] Title
	lines = append(lines, fmt.Sprintf("[%s] %s", label(item.Source), item.Title))

	meta := "  by " + item.Author + separator + f.FormatTimestamp(item.PublishedAt)
	if item.Sport != "" {
		meta += separator + string(item.Sport)
	}
	lines = append(lines, meta)

	if desc := strings.Join(strings.Fields(item.Description), " "); desc != "" && desc != item.Title {
		lines = append(lines, "  "+f.TruncateText(desc, descriptionLen))
	}
	if item.URL != "" {
		lines = append(lines, "  "+item.URL)
	}

	return strings.Join(lines, "\n") + "\n"
}

// FormatFeed formats multiple items for display.
func (f *TerminalFormatter) FormatFeed(items []content.Item) string {
	if len(items) == 0 {
		return "No content available.\n"
	}

	formatted := make([]string, 0, len(items))
	for _, item := range items {
		formatted = append(formatted, f.FormatItem(item))
	}

	return strings.Join(formatted, "\n---\n\n")
}

// FormatSummary formats the per-source counts of a pipeline run.
func (f *TerminalFormatter) FormatSummary(b aggregator.Breakdown) string {
	return fmt.Sprintf("%d items (%d videos%s%d posts%s%d episodes)\n",
		b.Total(), b.Video, separator, b.Microblog, separator, b.Feed)
}

// FormatTimestamp formats a timestamp as relative time.
func (f *TerminalFormatter) FormatTimestamp(t time.Time) string {
	diff := f.now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralize(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralize(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return pluralize(int(diff.Hours()/24), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// pluralize returns "N unit ago" or "N units ago" based on count.
func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string([]rune(text)[:maxLen-3]) + "..."
}

func label(s content.Source) string {
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return strings.ToUpper(string(s))
}
