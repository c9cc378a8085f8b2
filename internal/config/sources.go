package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/packfeed/packfeed/internal/content"
)

// DefaultSources returns the built-in NC State descriptor lists.
func DefaultSources() content.Sources {
	return content.Sources{
		YouTube: []content.Channel{
			{ID: "UCl_MWtDgqcNRo4MXhVd3z0w", Name: "247Sports NC State", Sport: content.SportFootball},
			{ID: "UC-gveie5Hvn2O-57sOAJjlg", Name: "Inside Pack Sports", Sport: content.SportFootball},
		},
		Twitter: []content.Account{
			{Handle: "PackFootball", Name: "NC State Football", Sport: content.SportFootball},
			{Handle: "PackMensBball", Name: "NC State Men's Basketball", Sport: content.SportBasketball},
		},
		Podcasts: []content.Feed{
			{
				URL:          "https://feeds.megaphone.fm/pack-pride",
				Name:         "Pack Power - NC State Wolfpack Podcasts on 247Sports",
				CanonicalURL: "https://podcasts.apple.com/us/podcast/pack-power-nc-state-wolfpack-podcast-on-247sports/id1845447455",
				Sport:        content.SportFootball,
			},
			{
				URL:          "https://rss.libsyn.com/shows/102525/destinations/544501.xml",
				Name:         "Inside Pack Sports Live",
				CanonicalURL: "https://podcasts.apple.com/us/podcast/inside-pack-sports-live/id1266096331",
				Sport:        content.SportFootball,
			},
		},
	}
}

// LoadSources reads descriptor lists from a TOML file.
func LoadSources(path string) (content.Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return content.Sources{}, fmt.Errorf("error reading sources file: %w", err)
	}

	var sources content.Sources
	if err := toml.Unmarshal(data, &sources); err != nil {
		return content.Sources{}, fmt.Errorf("error parsing sources file: %w", err)
	}
	if err := validate(&sources); err != nil {
		return content.Sources{}, fmt.Errorf("invalid sources file %s: %w", path, err)
	}
	return sources, nil
}

// Sources returns the descriptors from SourcesPath, or the defaults when no
// path is configured.
func (c *Config) Sources() (content.Sources, error) {
	if c.SourcesPath == "" {
		return DefaultSources(), nil
	}
	return LoadSources(c.SourcesPath)
}

// validate rejects descriptors without an identity or with an unknown sport.
// Empty names default to the identity and sports are normalized.
func validate(s *content.Sources) error {
	for i := range s.YouTube {
		c := &s.YouTube[i]
		if c.ID == "" {
			return fmt.Errorf("youtube entry %d: missing id", i+1)
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		sport, err := content.ParseSport(string(c.Sport))
		if err != nil {
			return fmt.Errorf("youtube %s: %w", c.ID, err)
		}
		c.Sport = sport
	}
	for i := range s.Twitter {
		a := &s.Twitter[i]
		if a.Handle == "" {
			return fmt.Errorf("twitter entry %d: missing handle", i+1)
		}
		if a.Name == "" {
			a.Name = a.Handle
		}
		sport, err := content.ParseSport(string(a.Sport))
		if err != nil {
			return fmt.Errorf("twitter %s: %w", a.Handle, err)
		}
		a.Sport = sport
	}
	for i := range s.Podcasts {
		f := &s.Podcasts[i]
		if f.URL == "" {
			return fmt.Errorf("podcasts entry %d: missing url", i+1)
		}
		if f.Name == "" {
			f.Name = f.URL
		}
		sport, err := content.ParseSport(string(f.Sport))
		if err != nil {
			return fmt.Errorf("podcast %s: %w", f.URL, err)
		}
		f.Sport = sport
	}
	return nil
}
