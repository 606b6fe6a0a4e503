// Package cli implements the genregraphy commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/config"
	"github.com/notbigmuzzy/genregraphy/internal/errmsg"
	"github.com/notbigmuzzy/genregraphy/internal/mapping"
	"github.com/notbigmuzzy/genregraphy/internal/musicbrainz"
	"github.com/notbigmuzzy/genregraphy/internal/store"
)

// CLI is the command line grammar.
type CLI struct {
	Globals

	Merge           MergeCmd           `cmd:"" help:"Merge the per-year count files into the map document."`
	FetchCounts     FetchCountsCmd     `cmd:"" help:"Fetch release counts per genre and year from MusicBrainz."`
	FetchDetailed   FetchDetailedCmd   `cmd:"" help:"Fetch top albums, artists and sample tracks from MusicBrainz."`
	FetchLastfm     FetchLastfmCmd     `cmd:"" name:"fetch-lastfm" help:"Fetch top albums, artists and sample tracks from Last.fm."`
	GenerateMapping GenerateMappingCmd `cmd:"" help:"Derive the genre group table from the grouped genre list."`
	CheckMissing    CheckMissingCmd    `cmd:"" help:"Report genres missing from the decade files."`
	Cache           CacheCmd           `cmd:"" help:"Manage the release count cache."`
}

// Globals are the flags shared by every command.
type Globals struct {
	Config    string           `help:"Config file loaded after the default locations." type:"path" placeholder:"FILE"`
	LogLevel  string           `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"GENREGRAPHY_LOG_LEVEL"`
	LogFormat string           `help:"Log format." enum:"text,json" default:"text" env:"GENREGRAPHY_LOG_FORMAT"`
	Version   kong.VersionFlag `help:"Show version and exit." short:"v"`
}

// Env is what commands run with.
type Env struct {
	Ctx    context.Context
	Config *config.Config
	Log    logrus.FieldLogger
	Out    io.Writer
}

// NewEnv loads the configuration and sets up logging.
func NewEnv(ctx context.Context, g Globals, out io.Writer) (*Env, error) {
	log, err := NewLogger(g.LogLevel, g.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fail(errmsg.OpConfigLoad, g.Config, err)
	}

	return &Env{Ctx: ctx, Config: cfg, Log: log, Out: out}, nil
}

// NewLogger builds the process logger.
func NewLogger(level, format string, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// Error is a command failure with its user-facing description.
type Error struct {
	Op      errmsg.Op
	Context string
	Err     error
}

func (e *Error) Error() string {
	return errmsg.FormatWith(e.Op, e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(op errmsg.Op, subject string, err error) error {
	return &Error{Op: op, Context: subject, Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// tables loads the genre tables from the configured texts directory.
func (e *Env) tables() (*mapping.Tables, error) {
	dir := e.Config.Paths.Texts
	t, err := mapping.LoadTables(dir, e.Log)
	if err != nil {
		return nil, fail(errmsg.OpTablesLoad, dir, err)
	}
	return t, nil
}

// musicBrainz builds a MusicBrainz client from the configuration.
func (e *Env) musicBrainz() *musicbrainz.Client {
	opts := []musicbrainz.Option{
		musicbrainz.WithUserAgent(e.Config.MusicBrainz.UserAgent),
		musicbrainz.WithRateLimit(e.Config.RatePerSecond()),
		musicbrainz.WithLogger(e.Log),
	}
	if e.Config.MusicBrainz.BaseURL != "" {
		opts = append(opts, musicbrainz.WithBaseURL(e.Config.MusicBrainz.BaseURL))
	}
	return musicbrainz.NewClient(opts...)
}

// openCache opens the count cache, or returns nil when it is disabled.
func (e *Env) openCache(disabled bool) (*store.Store, error) {
	if disabled || e.Config.Cache.Disabled {
		return nil, nil
	}
	st, err := store.Open(e.Config.Cache.Path, e.Config.Cache.TTLDays)
	if err != nil {
		return nil, fail(errmsg.OpCacheOpen, e.Config.Cache.Path, err)
	}
	return st, nil
}

// RangeFlags select the years and genres of a fetch.
type RangeFlags struct {
	From  int      `help:"First year (default from config)." placeholder:"YEAR"`
	To    int      `help:"Last year (default from config)." placeholder:"YEAR"`
	Genre []string `help:"Only fetch these genres." short:"g" sep:","`
	Yes   bool     `help:"Start without asking." short:"y"`
}

// plan is what a fetch is about to do.
type plan struct {
	title    string
	genres   int
	from, to int
	requests int // per genre and year
	rate     float64
}

// confirm prints the plan. It reports whether the fetch should start.
func (e *Env) confirm(p plan, yes bool) bool {
	years := p.to - p.from + 1
	total := p.genres * years * p.requests
	eta := time.Duration(float64(total) / p.rate * float64(time.Second)).Round(time.Second)

	fmt.Fprintln(e.Out, p.title)
	fmt.Fprintf(e.Out, "Genres: %d\n", p.genres)
	fmt.Fprintf(e.Out, "Years: %d-%d\n", p.from, p.to)
	fmt.Fprintf(e.Out, "Total requests: ~%s\n", humanize.Comma(int64(total)))
	fmt.Fprintf(e.Out, "Estimated time: ~%s\n", eta)

	if !yes {
		fmt.Fprintln(e.Out, "Re-run with --yes to start.")
		return false
	}
	return true
}

func (e *Env) textsPath(name string) string {
	return filepath.Join(e.Config.Paths.Texts, name)
}
