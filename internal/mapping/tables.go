package mapping

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// File names inside the texts directory.
const (
	GenresFile     = "genres.txt"
	GroupsFile     = "genre_groups.txt"
	SynonymsFile   = "genre_synonyms.txt"
	StartYearsFile = "genre_start_years.txt"
)

// DefaultStartYear applies to genres without an entry in the start-year table.
const DefaultStartYear = 1950

// DefaultGroup receives genres that are not in the group table.
const DefaultGroup = "Other"

// StartYears maps a genre to the first year it is considered to exist.
type StartYears map[string]int

// For returns the start year of genre, or DefaultStartYear.
func (s StartYears) For(genre string) int {
	if year, ok := s[NormalizeKey(genre)]; ok {
		return year
	}
	return DefaultStartYear
}

// Started reports whether genre exists in year.
func (s StartYears) Started(genre string, year int) bool {
	return year >= s.For(genre)
}

// StartYearsFromTable converts a parsed table, skipping values that are not
// integers.
func StartYearsFromTable(table Table, log logrus.FieldLogger) StartYears {
	years := make(StartYears, len(table))
	for genre, raw := range table {
		year, err := strconv.Atoi(raw)
		if err != nil {
			log.WithFields(logrus.Fields{
				"genre": genre,
				"value": raw,
			}).Warn("could not parse start year")
			continue
		}
		years[genre] = year
	}
	return years
}

// LoadStartYears loads the start-year table. A missing file yields an empty
// table, so every genre falls back to DefaultStartYear.
func LoadStartYears(path string, log logrus.FieldLogger) (StartYears, error) {
	table, err := LoadTable(path, log)
	if err != nil {
		return nil, err
	}
	return StartYearsFromTable(table, log), nil
}

// Tables bundles every static lookup table used by the collectors.
type Tables struct {
	Genres     []string
	Groups     Table
	Synonyms   Table
	StartYears StartYears
}

// Resolve maps a queried genre to the genre it is recorded under and the
// group that genre belongs to.
func (t *Tables) Resolve(genre string) (primary, group string) {
	primary = NormalizeKey(genre)
	if p, ok := t.Synonyms[primary]; ok && p != "" {
		primary = NormalizeKey(p)
	}
	group, ok := t.Groups[primary]
	if !ok || group == "" {
		group = DefaultGroup
	}
	return primary, group
}

// LoadTables reads all tables from dir. The genre list and group table are
// required; synonyms and start years are optional.
func LoadTables(dir string, log logrus.FieldLogger) (*Tables, error) {
	genres, err := LoadGenres(filepath.Join(dir, GenresFile))
	if err != nil {
		return nil, err
	}

	groupsPath := filepath.Join(dir, GroupsFile)
	if _, err := os.Stat(groupsPath); err != nil {
		return nil, errors.Wrapf(err, "group table %s", groupsPath)
	}
	groups, err := LoadTable(groupsPath, log)
	if err != nil {
		return nil, err
	}

	synonyms, err := LoadTable(filepath.Join(dir, SynonymsFile), log)
	if err != nil {
		return nil, err
	}

	startYears, err := LoadStartYears(filepath.Join(dir, StartYearsFile), log)
	if err != nil {
		return nil, err
	}

	return &Tables{
		Genres:     genres,
		Groups:     groups,
		Synonyms:   synonyms,
		StartYears: startYears,
	}, nil
}
