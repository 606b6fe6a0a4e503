package collect

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/aggregate"
	"github.com/notbigmuzzy/genregraphy/internal/musicbrainz"
)

const (
	unknownTitle  = "Unknown"
	unknownArtist = "Unknown Artist"
)

// Example is a release group listed for a genre and year.
type Example struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

// CountsOptions controls a count run.
type CountsOptions struct {
	Range
	Examples int // release groups listed per genre and year; 0 disables examples
}

// CountsResult summarizes a count run.
type CountsResult struct {
	Years     int
	Requests  int
	CacheHits int
	Failed    int
	Examples  []Example
}

// Counts fetches the release count of every genre for every year of the
// range and merges the counts into dir/<year>.json. Synonyms are summed into
// their primary genre. Groups and genres already in a year file but not
// fetched in this run are kept. A count that cannot be fetched is recorded
// as 0 and not cached.
func (c *Collector) Counts(ctx context.Context, dir string, opts CountsOptions) (*CountsResult, error) {
	genres := c.genres(opts.Range)
	res := &CountsResult{}

	for year := opts.From; year <= opts.To; year++ {
		fetched := aggregate.YearSource{}

		for _, genre := range genres {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			count, err := c.fetchCount(ctx, genre, year, opts.Examples, res)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				c.log.WithError(err).WithFields(logrus.Fields{
					"genre": genre,
					"year":  year,
				}).Warn("Count fetch failed, recording 0")
				res.Failed++
				count = 0
			}

			primary, group := c.tables.Resolve(genre)
			prev := 0
			if g := fetched.Group(group); g != nil {
				prev, _ = g.Genres.Get(primary)
			}
			fetched.Add(group, primary, prev+count)
		}

		total, err := mergeYear(dir, year, fetched)
		if err != nil {
			return res, err
		}
		res.Years++

		c.log.WithFields(logrus.Fields{
			"year":   year,
			"genres": len(genres),
		}).Infof("Year %d: %s releases", year, humanize.Comma(int64(total)))
	}

	return res, nil
}

// fetchCount returns the release count of genre in year, from the cache
// when possible. With examples > 0 the API is always queried so the first
// release groups can be recorded.
func (c *Collector) fetchCount(ctx context.Context, genre string, year, examples int, res *CountsResult) (int, error) {
	if examples <= 0 && c.cache != nil {
		count, ok, err := c.cache.GetCount(ctx, genre, year)
		if err != nil {
			c.log.WithError(err).Warn("Count cache read failed")
		} else if ok {
			res.CacheHits++
			return count, nil
		}
	}

	limit := max(examples, 1)
	page, err := c.mb.SearchReleaseGroups(ctx, musicbrainz.CountQuery(genre, year), limit, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s/%d", genre, year)
	}
	res.Requests++

	if examples > 0 {
		for _, rg := range page.ReleaseGroups {
			res.Examples = append(res.Examples, newExample(rg, genre, year))
		}
	}

	if c.cache != nil {
		if err := c.cache.SetCount(ctx, genre, year, page.Count); err != nil {
			c.log.WithError(err).Warn("Count cache write failed")
		}
	}
	return page.Count, nil
}

func newExample(rg musicbrainz.ReleaseGroup, genre string, year int) Example {
	ex := Example{
		Title:  rg.Title,
		Artist: rg.Artist,
		Year:   year,
		Genre:  genre,
	}
	if ex.Title == "" {
		ex.Title = unknownTitle
	}
	if ex.Artist == "" {
		ex.Artist = unknownArtist
	}
	return ex
}

// mergeYear overwrites the fetched genres in the year file, keeping the
// rest of its content, and returns the total of the written file.
func mergeYear(dir string, year int, fetched aggregate.YearSource) (int, error) {
	path := aggregate.YearFilePath(dir, year)
	src, err := aggregate.ReadYearSourceOrEmpty(path)
	if err != nil {
		return 0, err
	}

	for _, g := range fetched {
		for _, gc := range g.Genres {
			src.Add(g.Name, gc.Genre, gc.Count)
		}
	}

	if err := aggregate.WriteYearSource(path, src); err != nil {
		return 0, err
	}

	total := 0
	for _, g := range src {
		total += g.Genres.Sum()
	}
	return total, nil
}
