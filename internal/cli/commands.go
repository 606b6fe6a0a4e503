package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/notbigmuzzy/genregraphy/internal/aggregate"
	"github.com/notbigmuzzy/genregraphy/internal/collect"
	"github.com/notbigmuzzy/genregraphy/internal/errmsg"
	"github.com/notbigmuzzy/genregraphy/internal/jsonfile"
	"github.com/notbigmuzzy/genregraphy/internal/lastfm"
	"github.com/notbigmuzzy/genregraphy/internal/mapping"
	"github.com/notbigmuzzy/genregraphy/internal/report"
)

// MergeCmd builds the merged document from the year files.
type MergeCmd struct {
	Years  string `help:"Directory of per-year count files (default from config)." type:"path" placeholder:"DIR"`
	Output string `help:"Merged document path (default from config)." short:"o" type:"path" placeholder:"FILE"`
}

func (c *MergeCmd) Run(env *Env) error {
	dir := firstNonEmpty(c.Years, env.Config.Paths.Years)
	out := firstNonEmpty(c.Output, env.Config.Paths.Output)

	startYears, err := mapping.LoadStartYears(env.textsPath(mapping.StartYearsFile), env.Log)
	if err != nil {
		return fail(errmsg.OpTablesLoad, env.Config.Paths.Texts, err)
	}

	merged, err := aggregate.Merge(dir, startYears, env.Log)
	if err != nil {
		return fail(errmsg.OpMerge, dir, err)
	}
	if err := aggregate.WriteMerged(out, merged); err != nil {
		return fail(errmsg.OpMergeWrite, out, err)
	}

	fmt.Fprintf(env.Out, "Merged %d years into %s\n", len(merged), out)
	return nil
}

// FetchCountsCmd fetches genre release counts into the year files.
type FetchCountsCmd struct {
	RangeFlags `embed:""`

	Examples int  `help:"Also record this many example albums per genre and year." placeholder:"N"`
	NoCache  bool `help:"Query MusicBrainz even for cached counts."`
}

func (c *FetchCountsCmd) Run(env *Env) error {
	from, to, err := env.Config.YearRange(c.From, c.To)
	if err != nil {
		return fail(errmsg.OpFetchCounts, "", err)
	}
	tables, err := env.tables()
	if err != nil {
		return err
	}

	genres := len(tables.Genres)
	if len(c.Genre) > 0 {
		genres = len(c.Genre)
	}
	ok := env.confirm(plan{
		title:    "Release counts from MusicBrainz",
		genres:   genres,
		from:     from,
		to:       to,
		requests: 1,
		rate:     env.Config.RatePerSecond(),
	}, c.Yes)
	if !ok {
		return nil
	}

	opts := []collect.Option{collect.WithLogger(env.Log)}
	cache, err := env.openCache(c.NoCache)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		opts = append(opts, collect.WithCache(cache))
	}

	collector := collect.New(env.musicBrainz(), tables, opts...)
	res, err := collector.Counts(env.Ctx, env.Config.Paths.Years, collect.CountsOptions{
		Range:    collect.Range{From: from, To: to, Genres: c.Genre},
		Examples: c.Examples,
	})
	if res != nil && len(res.Examples) > 0 {
		if werr := jsonfile.Write(env.Config.Paths.Examples, res.Examples); werr != nil {
			env.Log.WithError(werr).Error("Could not save examples")
		}
	}
	if err != nil {
		return fail(errmsg.OpFetchCounts, "", err)
	}

	fmt.Fprintf(env.Out, "Saved %d year files to %s (%s requests, %s cached, %d failed)\n",
		res.Years, env.Config.Paths.Years,
		humanize.Comma(int64(res.Requests)), humanize.Comma(int64(res.CacheHits)), res.Failed)
	fmt.Fprintln(env.Out, "Run merge to update the map document.")
	return nil
}

// FetchDetailedCmd fetches detailed year files from MusicBrainz.
type FetchDetailedCmd struct {
	RangeFlags `embed:""`

	Limit int `help:"Albums and artists kept per genre." default:"5"`
}

func (c *FetchDetailedCmd) Run(env *Env) error {
	from, to, err := env.Config.YearRange(c.From, c.To)
	if err != nil {
		return fail(errmsg.OpFetchDetailed, "", err)
	}
	tables, err := env.tables()
	if err != nil {
		return err
	}

	genres := len(tables.Genres)
	if len(c.Genre) > 0 {
		genres = len(c.Genre)
	}
	// One search page plus two lookups per sample track, at best
	ok := env.confirm(plan{
		title:    "Detailed data from MusicBrainz",
		genres:   genres,
		from:     from,
		to:       to,
		requests: 1 + 2*c.Limit,
		rate:     env.Config.RatePerSecond(),
	}, c.Yes)
	if !ok {
		return nil
	}

	collector := collect.New(env.musicBrainz(), tables, collect.WithLogger(env.Log))
	res, err := collector.DetailedMusicBrainz(env.Ctx, env.Config.Paths.Detailed, collect.DetailOptions{
		Range: collect.Range{From: from, To: to, Genres: c.Genre},
		Limit: c.Limit,
	})
	if err != nil {
		return fail(errmsg.OpFetchDetailed, "", err)
	}

	printDetailResult(env, res)
	return nil
}

// FetchLastfmCmd fetches detailed year files from Last.fm.
type FetchLastfmCmd struct {
	RangeFlags `embed:""`

	Limit int `help:"Albums and artists kept per genre." default:"5"`
}

func (c *FetchLastfmCmd) Run(env *Env) error {
	from, to, err := env.Config.YearRange(c.From, c.To)
	if err != nil {
		return fail(errmsg.OpFetchLastfm, "", err)
	}
	if !env.Config.HasLastfmConfig() {
		return fail(errmsg.OpLastfmInit, "", errors.Wrap(lastfm.ErrNoAPIKey,
			"set lastfm.api_key or LASTFM_API_KEY (get one at https://www.last.fm/api/account/create)"))
	}
	lf, err := lastfm.New(env.Config.Lastfm.APIKey, env.Config.Lastfm.APISecret)
	if err != nil {
		return fail(errmsg.OpLastfmInit, "", err)
	}
	tables, err := env.tables()
	if err != nil {
		return err
	}

	genres := len(tables.Genres)
	if len(c.Genre) > 0 {
		genres = len(c.Genre)
	}
	// Two charts, artist lookups, then an album lookup and a MusicBrainz
	// check per kept album, at best
	ok := env.confirm(plan{
		title:    "Detailed data from Last.fm",
		genres:   genres,
		from:     from,
		to:       to,
		requests: 2 + 3*c.Limit,
		rate:     env.Config.RatePerSecond(),
	}, c.Yes)
	if !ok {
		return nil
	}

	collector := collect.New(env.musicBrainz(), tables,
		collect.WithLogger(env.Log),
		collect.WithLastfm(lf),
	)
	res, err := collector.DetailedLastfm(env.Ctx, env.Config.Paths.Detailed, collect.DetailOptions{
		Range: collect.Range{From: from, To: to, Genres: c.Genre},
		Limit: c.Limit,
	})
	if err != nil {
		return fail(errmsg.OpFetchLastfm, "", err)
	}

	printDetailResult(env, res)
	return nil
}

func printDetailResult(env *Env, res *collect.DetailResult) {
	fmt.Fprintf(env.Out, "Saved %d detailed year files to %s", len(res.Written), env.Config.Paths.Detailed)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(env.Out, " (%d already existed)", len(res.Skipped))
	}
	fmt.Fprintln(env.Out)
}

// GenerateMappingCmd writes the group table derived from the genre list.
type GenerateMappingCmd struct {
	Input  string `help:"Grouped genre list (default: genres.txt in the texts directory)." type:"path" placeholder:"FILE"`
	Output string `help:"Group table (default: genre_groups.txt in the texts directory)." short:"o" type:"path" placeholder:"FILE"`
}

func (c *GenerateMappingCmd) Run(env *Env) error {
	in := firstNonEmpty(c.Input, env.textsPath(mapping.GenresFile))
	out := firstNonEmpty(c.Output, env.textsPath(mapping.GroupsFile))

	f, err := os.Open(in)
	if err != nil {
		return fail(errmsg.OpGenerateMapping, in, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	n, err := mapping.GenerateGroups(f, &buf)
	if err != nil {
		return fail(errmsg.OpGenerateMapping, in, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fail(errmsg.OpGenerateMapping, out, err)
	}

	fmt.Fprintf(env.Out, "Generated %d mappings\n", n)
	fmt.Fprintf(env.Out, "Saved to %s\n", out)
	return nil
}

// CheckMissingCmd writes the missing genres report.
type CheckMissingCmd struct {
	Decades []int  `help:"Decades to check." sep:","`
	Dir     string `help:"Directory of per-decade files (default from config)." type:"path" placeholder:"DIR"`
	Output  string `help:"Report path (default from config)." short:"o" type:"path" placeholder:"FILE"`
}

func (c *CheckMissingCmd) Run(env *Env) error {
	dir := firstNonEmpty(c.Dir, env.Config.Paths.Decades)
	out := firstNonEmpty(c.Output, env.Config.Paths.Report)
	decades := c.Decades
	if len(decades) == 0 {
		decades = report.DefaultDecades
	}

	path := env.textsPath(mapping.StartYearsFile)
	if _, err := os.Stat(path); err != nil {
		return fail(errmsg.OpCheckMissing, path, err)
	}
	startYears, err := mapping.LoadStartYears(path, env.Log)
	if err != nil {
		return fail(errmsg.OpCheckMissing, path, err)
	}
	env.Log.Infof("Loaded %d genres with start years", len(startYears))

	rep := report.MissingGenres(dir, startYears, decades, env.Log)

	var buf bytes.Buffer
	if err := report.WriteReport(&buf, rep); err != nil {
		return fail(errmsg.OpReportWrite, out, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fail(errmsg.OpReportWrite, out, err)
	}

	if len(rep) == 0 {
		fmt.Fprintln(env.Out, "No missing genres found.")
		return nil
	}
	fmt.Fprintf(env.Out, "Report generated at %s\n", out)
	return nil
}

// CacheCmd groups the cache maintenance commands.
type CacheCmd struct {
	Purge CachePurgeCmd `cmd:"" help:"Delete cached release counts."`
}

// CachePurgeCmd empties the count cache.
type CachePurgeCmd struct {
	Expired bool `help:"Only delete entries older than the cache TTL."`
}

func (c *CachePurgeCmd) Run(env *Env) error {
	st, err := env.openCache(false)
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Fprintln(env.Out, "Cache is disabled")
		return nil
	}
	defer st.Close()

	n, err := st.Purge(env.Ctx, c.Expired)
	if err != nil {
		return fail(errmsg.OpCachePurge, "", err)
	}
	fmt.Fprintf(env.Out, "Removed %s cached counts\n", humanize.Comma(n))
	return nil
}
