// Package store keeps MusicBrainz release counts in a local SQLite database
// so interrupted collection runs resume without re-querying the API.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/notbigmuzzy/genregraphy/internal/db"
)

const (
	appName    = "genregraphy"
	dbFileName = "cache.db"

	// DefaultTTLDays is how long a fetched count stays valid.
	DefaultTTLDays = 30
)

// Store is the count cache.
type Store struct {
	db      *sql.DB
	ttlDays int
	now     func() time.Time
}

// DefaultPath returns the cache database path under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens (creating if needed) the cache database at path. An empty path
// selects DefaultPath.
func Open(path string, ttlDays int) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.Wrap(err, "resolve cache path")
		}
		path = p
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create cache directory")
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open cache %s", path)
	}
	// SQLite serializes writers; one connection also keeps :memory: stable.
	conn.SetMaxOpenConns(1)

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "init cache schema")
	}

	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	return &Store{db: conn, ttlDays: ttlDays, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// isExpired checks if a cached entry is expired.
func (s *Store) isExpired(fetchedAt int64) bool {
	expiry := s.now().AddDate(0, 0, -s.ttlDays).Unix()
	return fetchedAt < expiry
}

// GetCount returns the cached release count of genre in year. ok is false
// when there is no entry or the entry expired.
func (s *Store) GetCount(ctx context.Context, genre string, year int) (count int, ok bool, err error) {
	var fetchedAt int64
	err = s.db.QueryRowContext(ctx, `
		SELECT count, fetched_at
		FROM release_counts
		WHERE genre = ? AND year = ?
	`, genre, year).Scan(&count, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "query cached count")
	}
	if s.isExpired(fetchedAt) {
		return 0, false, nil
	}
	return count, true, nil
}

// Count is a genre/year release count.
type Count struct {
	Genre string
	Year  int
	Count int
}

// SetCount caches one count.
func (s *Store) SetCount(ctx context.Context, genre string, year, count int) error {
	return s.SetCounts(ctx, []Count{{Genre: genre, Year: year, Count: count}})
}

// SetCounts caches several counts in a single transaction.
func (s *Store) SetCounts(ctx context.Context, counts []Count) error {
	now := s.now().Unix()
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO release_counts (genre, year, count, fetched_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (genre, year) DO UPDATE SET
				count = excluded.count,
				fetched_at = excluded.fetched_at
		`)
		if err != nil {
			return errors.Wrap(err, "prepare count insert")
		}
		defer stmt.Close()

		for _, c := range counts {
			if _, err := stmt.ExecContext(ctx, c.Genre, c.Year, c.Count, now); err != nil {
				return errors.Wrapf(err, "cache count %s/%d", c.Genre, c.Year)
			}
		}
		return nil
	})
}

// Purge removes cached counts. With expiredOnly set, only entries past the
// TTL are removed. It returns the number of deleted rows.
func (s *Store) Purge(ctx context.Context, expiredOnly bool) (int64, error) {
	query := `DELETE FROM release_counts`
	var args []any
	if expiredOnly {
		query += ` WHERE fetched_at < ?`
		args = append(args, s.now().AddDate(0, 0, -s.ttlDays).Unix())
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "purge cached counts")
	}
	return res.RowsAffected()
}
