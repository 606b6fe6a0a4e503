// Package collect drives the MusicBrainz and Last.fm fetches that produce
// the per-year count files and the per-year detailed files.
package collect

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/lastfm"
	"github.com/notbigmuzzy/genregraphy/internal/mapping"
	"github.com/notbigmuzzy/genregraphy/internal/musicbrainz"
)

// MusicBrainz defines the MusicBrainz calls used by the collectors.
// This interface allows for easy mocking in tests.
type MusicBrainz interface {
	SearchReleaseGroups(ctx context.Context, query string, limit, offset int) (*musicbrainz.ReleaseGroupPage, error)
	GetReleaseGroup(ctx context.Context, mbid string) (*musicbrainz.ReleaseGroupDetails, error)
	GetRelease(ctx context.Context, mbid string) (*musicbrainz.ReleaseDetails, error)
}

// Lastfm defines the Last.fm calls used by the Last.fm collector.
type Lastfm interface {
	TagTopArtists(ctx context.Context, tag string, limit int) ([]lastfm.TopArtist, error)
	TagTopAlbums(ctx context.Context, tag string, limit int) ([]lastfm.TopAlbum, error)
	AlbumInfo(ctx context.Context, artist, album string) (*lastfm.AlbumInfo, error)
	ArtistMBID(ctx context.Context, artist string) (string, error)
}

// CountCache stores release counts between runs.
type CountCache interface {
	GetCount(ctx context.Context, genre string, year int) (int, bool, error)
	SetCount(ctx context.Context, genre string, year, count int) error
}

// Collector fetches genre data for ranges of years.
type Collector struct {
	mb     MusicBrainz
	lastfm Lastfm
	cache  CountCache
	tables *mapping.Tables
	log    logrus.FieldLogger
}

// Option configures a Collector.
type Option func(*Collector)

// WithCache makes count fetches go through cache.
func WithCache(cache CountCache) Option {
	return func(c *Collector) { c.cache = cache }
}

// WithLastfm enables DetailedLastfm.
func WithLastfm(client Lastfm) Option {
	return func(c *Collector) { c.lastfm = client }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Collector) { c.log = log }
}

// New creates a Collector querying mb and classifying genres with tables.
func New(mb MusicBrainz, tables *mapping.Tables, opts ...Option) *Collector {
	c := &Collector{
		mb:     mb,
		tables: tables,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Range is an inclusive range of years with an optional genre subset.
type Range struct {
	From   int
	To     int
	Genres []string // empty means every genre of the genre list
}

func (c *Collector) genres(r Range) []string {
	if len(r.Genres) == 0 {
		return c.tables.Genres
	}
	genres := make([]string, 0, len(r.Genres))
	for _, g := range r.Genres {
		genres = append(genres, mapping.NormalizeKey(g))
	}
	return genres
}
