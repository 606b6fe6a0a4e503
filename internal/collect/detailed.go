package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/jsonfile"
	"github.com/notbigmuzzy/genregraphy/internal/musicbrainz"
)

const (
	// DefaultDetailLimit is how many albums and artists are kept per genre.
	DefaultDetailLimit = 5

	pageSize       = 100
	maxPages       = 5
	variousArtists = "Various Artists"
)

// Artist is a top artist of a genre.
type Artist struct {
	Name       string `json:"name"`
	MBID       string `json:"mbid"`
	AlbumCount int    `json:"album_count,omitempty"`
	Rank       int    `json:"rank,omitempty"`
}

// Album is a top album of a genre in a year.
type Album struct {
	Name   string `json:"name"`
	MBID   string `json:"mbid"`
	Artist string `json:"artist"`
	Year   string `json:"year"` // release date as published, YYYY[-MM[-DD]]
	Rank   int    `json:"rank,omitempty"`
}

// SampleTrack is a track picked from a top album.
type SampleTrack struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// GenreDetail is the detailed entry of one genre in one year.
type GenreDetail struct {
	TopArtists   []Artist      `json:"top_artists"`
	TopAlbums    []Album       `json:"top_albums"`
	SampleTracks []SampleTrack `json:"sample_tracks"`
}

func newGenreDetail() *GenreDetail {
	return &GenreDetail{
		TopArtists:   []Artist{},
		TopAlbums:    []Album{},
		SampleTracks: []SampleTrack{},
	}
}

// DetailGroup is one group of a detailed year file.
type DetailGroup struct {
	Name   string
	Genres []GenreEntry
}

// GenreEntry pairs a genre with its detail.
type GenreEntry struct {
	Genre  string
	Detail *GenreDetail
}

// YearDetail is the content of a detailed year file:
// {"<group>": {"<genre>": GenreDetail}}, in genre list order.
type YearDetail []DetailGroup

// Entry returns the detail of genre in group, creating empty entries as
// needed.
func (y *YearDetail) Entry(group, genre string) *GenreDetail {
	var g *DetailGroup
	for i := range *y {
		if (*y)[i].Name == group {
			g = &(*y)[i]
			break
		}
	}
	if g == nil {
		*y = append(*y, DetailGroup{Name: group})
		g = &(*y)[len(*y)-1]
	}
	for _, e := range g.Genres {
		if e.Genre == genre {
			return e.Detail
		}
	}
	d := newGenreDetail()
	g.Genres = append(g.Genres, GenreEntry{Genre: genre, Detail: d})
	return d
}

// MarshalJSON encodes the groups and genres as objects in slice order.
func (y YearDetail) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range y {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, g.Name); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, e := range g.Genres {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(&buf, e.Genre); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeJSON(&buf, e.Detail); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// DetailOptions controls a detailed run.
type DetailOptions struct {
	Range
	Limit int // albums and artists per genre, DefaultDetailLimit when 0
}

func (o DetailOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultDetailLimit
	}
	return o.Limit
}

// DetailResult summarizes a detailed run.
type DetailResult struct {
	Written []int
	Skipped []int // years whose file already existed
}

// DetailPath returns the path of the detailed file of year in dir.
func DetailPath(dir string, year int) string {
	return filepath.Join(dir, strconv.Itoa(year)+".json")
}

// fillFunc fills the detail of one queried genre.
type fillFunc func(ctx context.Context, genre string, year int, d *GenreDetail) error

// detailed writes dir/<year>.json for every year of the range that has no
// file yet, filling each genre with fill. Genres that fail are logged and
// left empty.
func (c *Collector) detailed(ctx context.Context, dir string, opts DetailOptions, skipUnstarted bool, fill fillFunc) (*DetailResult, error) {
	genres := c.genres(opts.Range)
	res := &DetailResult{}

	for year := opts.From; year <= opts.To; year++ {
		path := DetailPath(dir, year)
		if jsonfile.Exists(path) {
			c.log.WithField("year", year).Info("Detailed file exists, skipping")
			res.Skipped = append(res.Skipped, year)
			continue
		}

		var doc YearDetail
		for _, genre := range genres {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			primary, group := c.tables.Resolve(genre)
			entry := doc.Entry(group, primary)
			if skipUnstarted && !c.tables.StartYears.Started(primary, year) {
				continue
			}

			d := newGenreDetail()
			if err := fill(ctx, genre, year, d); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				c.log.WithError(err).WithFields(logrus.Fields{
					"genre": genre,
					"year":  year,
				}).Warn("Detail fetch failed")
			}

			// A synonym never erases what its primary genre already found
			if len(d.TopAlbums) > 0 {
				entry.TopAlbums = d.TopAlbums
			}
			if len(d.TopArtists) > 0 {
				entry.TopArtists = d.TopArtists
			}
			if len(d.SampleTracks) > 0 {
				entry.SampleTracks = d.SampleTracks
			}

			c.log.WithFields(logrus.Fields{
				"genre":   primary,
				"year":    year,
				"albums":  len(d.TopAlbums),
				"artists": len(d.TopArtists),
			}).Debug("Genre detail fetched")
		}

		if err := jsonfile.Write(path, doc); err != nil {
			return res, errors.Wrapf(err, "write detailed %d", year)
		}
		res.Written = append(res.Written, year)
		c.log.WithField("year", year).Infof("Saved %s", filepath.Base(path))
	}

	return res, nil
}

// DetailedMusicBrainz writes per-year detailed files from MusicBrainz
// searches: top albums, the artists of those albums and the first track of
// every album. Genres before their start year are written empty.
func (c *Collector) DetailedMusicBrainz(ctx context.Context, dir string, opts DetailOptions) (*DetailResult, error) {
	limit := opts.limit()
	return c.detailed(ctx, dir, opts, true, func(ctx context.Context, genre string, year int, d *GenreDetail) error {
		albums, artists, err := c.albumsAndArtists(ctx, genre, year, limit)
		d.TopAlbums = albums
		d.TopArtists = artists
		if len(albums) > 0 {
			d.SampleTracks = c.sampleTracks(ctx, albums)
		}
		return err
	})
}

// albumsAndArtists pages through the release groups tagged genre in year
// and keeps up to limit albums, at most one per artist and title. Albums
// found before a failing page are returned along with the error.
func (c *Collector) albumsAndArtists(ctx context.Context, genre string, year, limit int) ([]Album, []Artist, error) {
	albums := []Album{}
	seenAlbums := make(map[string]bool)
	seenArtists := make(map[string]bool)

	var artists []*Artist
	artistsByID := make(map[string]*Artist)

	var err error
	query := musicbrainz.TagYearQuery(genre, year)
	yearPrefix := strconv.Itoa(year)

pages:
	for page := 0; page < maxPages; page++ {
		var p *musicbrainz.ReleaseGroupPage
		p, err = c.mb.SearchReleaseGroups(ctx, query, pageSize, page*pageSize)
		if err != nil {
			err = errors.Wrapf(err, "search %s/%d page %d", genre, year, page+1)
			break
		}
		if len(p.ReleaseGroups) == 0 {
			break
		}

		for _, rg := range p.ReleaseGroups {
			if skipTitle(rg.Title, yearPrefix) {
				continue
			}
			if musicbrainz.ExtractYear(rg.FirstRelease) != yearPrefix {
				continue
			}
			artist := rg.PrimaryArtist
			if artist == "" || artist == variousArtists {
				continue
			}
			if seenAlbums[rg.Title] || seenArtists[artist] {
				continue
			}
			seenAlbums[rg.Title] = true
			seenArtists[artist] = true

			albums = append(albums, Album{
				Name:   rg.Title,
				MBID:   rg.ID,
				Artist: artist,
				Year:   rg.FirstRelease,
			})

			if rg.ArtistID != "" {
				a, ok := artistsByID[rg.ArtistID]
				if !ok {
					a = &Artist{Name: artist, MBID: rg.ArtistID}
					artistsByID[rg.ArtistID] = a
					artists = append(artists, a)
				}
				a.AlbumCount++
			}

			if len(albums) >= limit {
				break pages
			}
		}

		if p.Offset+len(p.ReleaseGroups) >= p.Count {
			break
		}
	}

	return albums, rankArtists(artists, limit), err
}

// skipTitle reports whether a release group title is a search artifact
// rather than a real album: the year itself, anything with digits, or
// titles matching the "date" query keyword.
func skipTitle(title, year string) bool {
	if title == year {
		return true
	}
	if strings.ContainsFunc(title, unicode.IsDigit) {
		return true
	}
	return strings.Contains(strings.ToLower(title), "date")
}

// rankArtists orders artists by album count, keeping discovery order among
// equals, and returns at most limit of them.
func rankArtists(artists []*Artist, limit int) []Artist {
	sort.SliceStable(artists, func(i, j int) bool {
		return artists[i].AlbumCount > artists[j].AlbumCount
	})
	out := make([]Artist, 0, min(len(artists), limit))
	for _, a := range artists {
		if len(out) == limit {
			break
		}
		out = append(out, *a)
	}
	return out
}

// sampleTracks returns the first track of the first release of every album.
// Albums whose track cannot be fetched are skipped.
func (c *Collector) sampleTracks(ctx context.Context, albums []Album) []SampleTrack {
	tracks := []SampleTrack{}
	for _, album := range albums {
		if album.MBID == "" || ctx.Err() != nil {
			continue
		}
		name, err := c.firstTrack(ctx, album.MBID)
		if err != nil {
			c.log.WithError(err).WithField("album", album.Name).Debug("No sample track")
			continue
		}
		if name == "" {
			continue
		}
		tracks = append(tracks, SampleTrack{
			Name:   name,
			Artist: album.Artist,
			Album:  album.Name,
		})
	}
	return tracks
}

func (c *Collector) firstTrack(ctx context.Context, releaseGroupID string) (string, error) {
	rg, err := c.mb.GetReleaseGroup(ctx, releaseGroupID)
	if err != nil {
		return "", err
	}
	if len(rg.Releases) == 0 {
		return "", nil
	}

	release, err := c.mb.GetRelease(ctx, rg.Releases[0].ID)
	if err != nil {
		return "", err
	}
	if len(release.Tracks) == 0 {
		return "", nil
	}
	return release.Tracks[0].Title, nil
}
