// Package lastfm wraps the Last.fm tag charts and album lookups used by the
// detailed collector.
package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gcache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shkh/lastfm-go/lastfm"
	"golang.org/x/time/rate"
)

// ErrNoAPIKey is returned when the client is built without credentials.
var ErrNoAPIKey = errors.New("last.fm API key not configured")

const (
	memoTTL     = time.Hour
	memoCleanup = 10 * time.Minute

	defaultRate = 2.0 // one call every 500ms
)

// Client wraps the Last.fm API for tag chart lookups.
type Client struct {
	api     *lastfm.Api
	memo    *gcache.Cache
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit sets the maximum number of API calls per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		api:     lastfm.New(apiKey, apiSecret),
		memo:    gcache.New(memoTTL, memoCleanup),
		limiter: rate.NewLimiter(rate.Limit(defaultRate), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// memoized returns the cached value for key, or calls fetch and caches its
// result. Errors are not cached.
func memoized[T any](c *Client, key string, fetch func() (T, error)) (T, error) {
	if cached, ok := c.memo.Get(key); ok {
		if v, ok := cached.(T); ok {
			return v, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.memo.SetDefault(key, v)
	return v, nil
}

// TagTopArtists returns the most popular artists for a tag. Chart entries
// carry no MBID; see ArtistMBID.
func (c *Client) TagTopArtists(ctx context.Context, tag string, limit int) ([]TopArtist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.api.Tag.GetTopArtists(lastfm.P{
		"tag":   tag,
		"limit": limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get top artists for %q", tag)
	}

	artists := make([]TopArtist, 0, len(result.Artists))
	for i, a := range result.Artists {
		artists = append(artists, TopArtist{
			Name: a.Name,
			Rank: parseRank(a.Rank, i),
		})
	}
	return artists, nil
}

// TagTopAlbums returns the most popular albums for a tag. Results are
// memoized, since the same tag chart is scanned once per year. Chart entries
// only carry the artist's MBID; the album's comes from AlbumInfo.
func (c *Client) TagTopAlbums(ctx context.Context, tag string, limit int) ([]TopAlbum, error) {
	key := fmt.Sprintf("topalbums:%s:%d", tag, limit)
	return memoized(c, key, func() ([]TopAlbum, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		result, err := c.api.Tag.GetTopAlbums(lastfm.P{
			"tag":   tag,
			"limit": limit,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "get top albums for %q", tag)
		}

		albums := make([]TopAlbum, 0, len(result.Albums))
		for i, a := range result.Albums {
			albums = append(albums, TopAlbum{
				Name:       a.Name,
				Artist:     a.Artist.Name,
				ArtistMBID: a.Artist.Mbid,
				Rank:       parseRank(a.Rank, i),
			})
		}
		return albums, nil
	})
}

// AlbumInfo returns an album's MBID and track list. Results are memoized by
// artist and title.
func (c *Client) AlbumInfo(ctx context.Context, artist, album string) (*AlbumInfo, error) {
	key := "album:" + strings.ToLower(artist) + "/" + strings.ToLower(album)
	return memoized(c, key, func() (*AlbumInfo, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		result, err := c.api.Album.GetInfo(lastfm.P{
			"artist": artist,
			"album":  album,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "get album info for %q by %q", album, artist)
		}

		info := &AlbumInfo{
			Name:   result.Name,
			Artist: result.Artist,
			MBID:   strings.TrimSpace(result.Mbid),
			Tracks: make([]AlbumTrack, 0, len(result.Tracks)),
		}
		for _, t := range result.Tracks {
			name := t.Artist.Name
			if name == "" {
				name = artist
			}
			info.Tracks = append(info.Tracks, AlbumTrack{Name: t.Name, Artist: name})
		}
		return info, nil
	})
}

// ArtistMBID returns the MusicBrainz ID Last.fm has for an artist, which is
// empty for many artists. Results are memoized.
func (c *Client) ArtistMBID(ctx context.Context, artist string) (string, error) {
	key := "artist:" + strings.ToLower(artist)
	return memoized(c, key, func() (string, error) {
		if err := c.wait(ctx); err != nil {
			return "", err
		}
		result, err := c.api.Artist.GetInfo(lastfm.P{"artist": artist})
		if err != nil {
			return "", errors.Wrapf(err, "get artist info for %q", artist)
		}
		return strings.TrimSpace(result.Mbid), nil
	})
}

// parseRank reads a chart rank attribute, falling back on list position.
func parseRank(raw string, index int) int {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return index + 1
}
