package content

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var sourceAliases = map[string]Source{
	"video":     SourceVideo,
	"youtube":   SourceVideo,
	"microblog": SourceMicroblog,
	"twitter":   SourceMicroblog,
	"x":         SourceMicroblog,
	"feed":      SourceFeed,
	"podcast":   SourceFeed,
	"podcasts":  SourceFeed,
}

// ParseSource maps a user supplied source name to a Source. An empty string or
// "all" yields the empty Source, meaning every source.
func ParseSource(s string) (Source, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return "", nil
	}
	if src, ok := sourceAliases[s]; ok {
		return src, nil
	}
	return "", fmt.Errorf("invalid source %q: must be one of video, microblog, feed", s)
}

// ParseSport maps a user supplied sport name to a Sport. Empty means any sport.
func ParseSport(s string) (Sport, error) {
	sport := Sport(strings.ToLower(strings.TrimSpace(s)))
	switch sport {
	case "", SportFootball, SportBasketball, SportBaseball:
		return sport, nil
	}
	return "", fmt.Errorf("invalid sport %q: must be one of football, basketball, baseball", s)
}

// ForSport returns the descriptors tagged with sport. Untagged descriptors are
// kept because they may cover any sport. An empty sport returns s unchanged.
func (s Sources) ForSport(sport Sport) Sources {
	if sport == "" {
		return s
	}
	return Sources{
		YouTube: lo.Filter(s.YouTube, func(c Channel, _ int) bool {
			return c.Sport == "" || c.Sport == sport
		}),
		Twitter: lo.Filter(s.Twitter, func(a Account, _ int) bool {
			return a.Sport == "" || a.Sport == sport
		}),
		Podcasts: lo.Filter(s.Podcasts, func(f Feed, _ int) bool {
			return f.Sport == "" || f.Sport == sport
		}),
	}
}
