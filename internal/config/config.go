// Package config loads the TOML configuration and applies defaults and
// environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const appName = "genregraphy"

// Year range covered by the visualization.
const (
	DefaultYearFrom = 1950
	DefaultYearTo   = 2025
)

type Config struct {
	Paths       PathsConfig       `koanf:"paths"`
	Years       YearsConfig       `koanf:"years"`
	MusicBrainz MusicBrainzConfig `koanf:"musicbrainz"`
	Lastfm      LastfmConfig      `koanf:"lastfm"`
	Cache       CacheConfig       `koanf:"cache"`
}

// PathsConfig locates the text tables and the JSON data directories.
type PathsConfig struct {
	Texts    string `koanf:"texts"`    // genres.txt, genre_groups.txt, ...
	Years    string `koanf:"years"`    // per-year count files
	Detailed string `koanf:"detailed"` // per-year detailed files
	Decades  string `koanf:"decades"`  // per-decade files checked by check-missing
	Output   string `koanf:"output"`   // merged document
	Examples string `koanf:"examples"` // example albums from fetch-counts
	Report   string `koanf:"report"`   // missing genres report
}

// YearsConfig is the inclusive year range fetched by default.
type YearsConfig struct {
	From int `koanf:"from"`
	To   int `koanf:"to"`
}

// MusicBrainzConfig holds MusicBrainz-related configuration.
type MusicBrainzConfig struct {
	UserAgent     string  `koanf:"user_agent"`
	BaseURL       string  `koanf:"base_url"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// LastfmConfig holds Last.fm API credentials.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// CacheConfig controls the local count cache.
type CacheConfig struct {
	Disabled bool   `koanf:"disabled"`
	Path     string `koanf:"path"` // empty means the XDG data directory
	TTLDays  int    `koanf:"ttl_days"`
}

// Load reads the default config files, then extra (if set) with the highest
// priority.
func Load(extra string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "load config %s", path)
			}
		}
	}
	if extra != "" {
		if err := k.Load(file.Provider(extra), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config %s", extra)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.Paths.expand()
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
	cfg.MusicBrainz.BaseURL = strings.TrimSuffix(cfg.MusicBrainz.BaseURL, "/")

	// Environment wins over files for secrets
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		cfg.Lastfm.APIKey = v
	}
	if v := os.Getenv("LASTFM_API_SECRET"); v != "" {
		cfg.Lastfm.APISecret = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file sets a value. Paths
// follow the front-end repository layout.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Texts:    "scripts/texts",
			Years:    "src/api/years",
			Detailed: "src/api/detailed",
			Decades:  "src/api/decades",
			Output:   "src/api/genres.json",
			Examples: "src/api/detailed.json",
			Report:   "missing_genres_report.txt",
		},
		Years: YearsConfig{
			From: DefaultYearFrom,
			To:   DefaultYearTo,
		},
	}
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Years.From > c.Years.To {
		return errors.Errorf("years.from (%d) is after years.to (%d)", c.Years.From, c.Years.To)
	}
	if c.MusicBrainz.RatePerSecond < 0 {
		return errors.New("musicbrainz.rate_per_second must not be negative")
	}
	return nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/genregraphy/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func (p *PathsConfig) expand() {
	for _, s := range []*string{&p.Texts, &p.Years, &p.Detailed, &p.Decades, &p.Output, &p.Examples, &p.Report} {
		*s = expandPath(*s)
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm credentials are configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != ""
}

// RatePerSecond returns the MusicBrainz request rate with defaults applied.
func (c *Config) RatePerSecond() float64 {
	if c.MusicBrainz.RatePerSecond <= 0 {
		return 1
	}
	return c.MusicBrainz.RatePerSecond
}

// YearRange returns from/to overridden by the non-zero arguments.
func (c *Config) YearRange(from, to int) (int, int, error) {
	if from == 0 {
		from = c.Years.From
	}
	if to == 0 {
		to = c.Years.To
	}
	if from > to {
		return 0, 0, errors.Errorf("year range %d-%d is empty", from, to)
	}
	return from, to, nil
}
