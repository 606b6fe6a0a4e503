// Package aggregate merges the per-year genre count files into the single
// document consumed by the visualization. Genres are corrected against
// their start year, totals are computed per group and per year, and every
// genre is assigned the year in which its share of production peaked.
package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// GenreCount is the number of releases tagged with a genre.
type GenreCount struct {
	Genre string
	Count int
}

// GenreCounts is an ordered genre -> count object.
type GenreCounts []GenreCount

// Get returns the count of genre and whether it is present.
func (g GenreCounts) Get(genre string) (int, bool) {
	for _, gc := range g {
		if gc.Genre == genre {
			return gc.Count, true
		}
	}
	return 0, false
}

// Set replaces the count of genre in place or appends it.
func (g *GenreCounts) Set(genre string, count int) {
	for i := range *g {
		if (*g)[i].Genre == genre {
			(*g)[i].Count = count
			return
		}
	}
	*g = append(*g, GenreCount{Genre: genre, Count: count})
}

// Sum returns the total of all counts.
func (g GenreCounts) Sum() int {
	total := 0
	for _, gc := range g {
		total += gc.Count
	}
	return total
}

// MarshalJSON encodes the counts as an object in slice order.
func (g GenreCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, gc := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, gc.Genre); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, ":%d", gc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order. A repeated key keeps
// its first position and its last value. Counts must be non-negative
// integers.
func (g *GenreCounts) UnmarshalJSON(data []byte) error {
	var counts GenreCounts
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return errors.Wrapf(err, "count of %q", key)
		}
		if n < 0 {
			return errors.Errorf("count of %q is negative: %d", key, n)
		}
		counts.Set(key, n)
		return nil
	})
	if err != nil {
		return err
	}
	*g = counts
	return nil
}

// SourceGroup is one group of a per-year source file.
type SourceGroup struct {
	Name   string
	Genres GenreCounts
}

// YearSource is the content of a per-year source file:
// {"<group>": {"<genre>": <count>}}, in file order.
type YearSource []SourceGroup

// Group returns the named group, or nil.
func (y YearSource) Group(name string) *SourceGroup {
	for i := range y {
		if y[i].Name == name {
			return &y[i]
		}
	}
	return nil
}

// Add sets the count of genre in group, creating the group when needed.
func (y *YearSource) Add(group, genre string, count int) {
	g := y.Group(group)
	if g == nil {
		*y = append(*y, SourceGroup{Name: group})
		g = &(*y)[len(*y)-1]
	}
	g.Genres.Set(genre, count)
}

// MarshalJSON encodes the groups as an object in slice order.
func (y YearSource) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range y {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, g.Name); err != nil {
			return nil, err
		}
		genres, err := g.Genres.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(genres)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping group order.
func (y *YearSource) UnmarshalJSON(data []byte) error {
	var groups YearSource
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var genres GenreCounts
		if err := json.Unmarshal(raw, &genres); err != nil {
			return errors.Wrapf(err, "group %q", key)
		}
		if g := groups.Group(key); g != nil {
			g.Genres = genres
			return nil
		}
		groups = append(groups, SourceGroup{Name: key, Genres: genres})
		return nil
	})
	if err != nil {
		return err
	}
	*y = groups
	return nil
}

// Group is a named bucket of genres with its post-correction total.
type Group struct {
	Name   string      `json:"name"`
	Genres GenreCounts `json:"genres"`
	Total  int         `json:"total"`
}

// Metadata holds the per-year aggregates.
type Metadata struct {
	MappedTotal int      `json:"mapped_total"`
	PeakGenres  []string `json:"peak_genres"`
}

// YearRecord is the merged entry of one year.
type YearRecord struct {
	Year       int      `json:"-"`
	Continents []Group  `json:"continents"`
	Metadata   Metadata `json:"metadata"`
}

// Merged maps a year string to its record.
type Merged map[string]*YearRecord

// writeString appends s as a JSON string without HTML escaping, so genres
// such as "drum & bass" stay readable.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "value of %q", key)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
