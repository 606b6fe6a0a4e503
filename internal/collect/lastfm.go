package collect

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/lastfm"
	"github.com/notbigmuzzy/genregraphy/internal/musicbrainz"
)

// lastfmCandidates is how many of a tag's top albums are checked against
// MusicBrainz before giving up on a year.
const lastfmCandidates = 200

// ErrNoLastfm is returned by DetailedLastfm when no Last.fm client is set.
var ErrNoLastfm = errors.New("no Last.fm client configured")

// DetailedLastfm writes per-year detailed files from Last.fm tag charts.
// Top artists are the tag's all-time chart. Top albums are the tag's most
// popular albums whose MusicBrainz release date falls in the year. The
// sample track is the first track of the first album.
func (c *Collector) DetailedLastfm(ctx context.Context, dir string, opts DetailOptions) (*DetailResult, error) {
	if c.lastfm == nil {
		return nil, ErrNoLastfm
	}
	limit := opts.limit()

	return c.detailed(ctx, dir, opts, false, func(ctx context.Context, genre string, year int, d *GenreDetail) error {
		d.TopArtists = c.lastfmArtists(ctx, genre, limit)
		if err := ctx.Err(); err != nil {
			return err
		}

		albums, tracks, err := c.lastfmAlbums(ctx, genre, year, limit)
		d.TopAlbums = albums
		if err != nil {
			return err
		}

		if len(albums) > 0 && len(tracks) > 0 {
			d.SampleTracks = append(d.SampleTracks, SampleTrack{
				Name:   tracks[0].Name,
				Artist: tracks[0].Artist,
			})
		}
		return nil
	})
}

// lastfmArtists returns the tag's top artists with the MBIDs Last.fm knows.
// A failed lookup leaves the MBID empty.
func (c *Collector) lastfmArtists(ctx context.Context, genre string, limit int) []Artist {
	top, err := c.lastfm.TagTopArtists(ctx, genre, limit)
	if err != nil {
		c.log.WithError(err).WithField("genre", genre).Warn("Top artists fetch failed")
		return []Artist{}
	}

	artists := make([]Artist, 0, len(top))
	for _, a := range top {
		mbid, err := c.lastfm.ArtistMBID(ctx, a.Name)
		if err != nil {
			if ctx.Err() != nil {
				return artists
			}
			c.log.WithError(err).WithField("artist", a.Name).Debug("No artist MBID")
		}
		artists = append(artists, Artist{Name: a.Name, MBID: mbid, Rank: a.Rank})
	}
	return artists
}

// lastfmAlbums walks the tag's top albums and keeps, in chart order, up to
// limit albums released in year. Album MBIDs come from album.getInfo, whose
// track list is returned for the first kept album.
func (c *Collector) lastfmAlbums(ctx context.Context, genre string, year, limit int) ([]Album, []lastfm.AlbumTrack, error) {
	top, err := c.lastfm.TagTopAlbums(ctx, genre, lastfmCandidates)
	if err != nil {
		return []Album{}, nil, errors.Wrapf(err, "top albums %s", genre)
	}

	albums := []Album{}
	var tracks []lastfm.AlbumTrack
	for i, a := range top {
		if err := ctx.Err(); err != nil {
			return albums, tracks, err
		}

		log := c.log.WithFields(logrus.Fields{
			"checked": i + 1,
			"album":   a.Name,
			"artist":  a.Artist,
		})

		info, err := c.lastfm.AlbumInfo(ctx, a.Artist, a.Name)
		if err != nil {
			if ctx.Err() != nil {
				return albums, tracks, ctx.Err()
			}
			log.WithError(err).Debug("Album info failed, skipping")
			continue
		}
		if _, err := uuid.Parse(info.MBID); err != nil {
			log.Debug("No MBID, skipping")
			continue
		}

		date, ok, err := c.verifyYear(ctx, info.MBID, year)
		if err != nil {
			if ctx.Err() != nil {
				return albums, tracks, ctx.Err()
			}
			log.WithError(err).Debug("MusicBrainz lookup failed")
			continue
		}
		if !ok {
			log.WithField("date", date).Debug("Released another year")
			continue
		}

		if len(albums) == 0 {
			tracks = info.Tracks
		}
		albums = append(albums, Album{
			Name:   a.Name,
			MBID:   info.MBID,
			Artist: a.Artist,
			Year:   date,
			Rank:   a.Rank,
		})
		if len(albums) >= limit {
			break
		}
	}
	return albums, tracks, nil
}

// verifyYear reports whether the album identified by mbid was first released
// in year, returning the date it found. Last.fm MBIDs may identify either a
// release group or a release: a release group miss falls back to the
// release, then to that release's group.
func (c *Collector) verifyYear(ctx context.Context, mbid string, year int) (string, bool, error) {
	prefix := strconv.Itoa(year)
	inYear := func(date string) bool {
		return musicbrainz.ExtractYear(date) == prefix
	}

	rg, err := c.mb.GetReleaseGroup(ctx, mbid)
	if err == nil {
		return rg.FirstRelease, inYear(rg.FirstRelease), nil
	}
	if !errors.Is(err, musicbrainz.ErrNotFound) {
		return "", false, err
	}

	release, err := c.mb.GetRelease(ctx, mbid)
	if err != nil {
		return "", false, err
	}
	if inYear(release.Date) {
		return release.Date, true, nil
	}

	first := release.ReleaseGroupFirstRelease
	if first == "" && release.ReleaseGroupID != "" {
		group, err := c.mb.GetReleaseGroup(ctx, release.ReleaseGroupID)
		if err != nil && ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		if err == nil {
			first = group.FirstRelease
		}
	}
	if inYear(first) {
		return first, true, nil
	}
	return release.Date, false, nil
}
