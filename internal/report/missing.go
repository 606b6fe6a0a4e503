// Package report checks the per-decade data files against the genre start
// years and renders the missing genres report.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/jsonfile"
	"github.com/notbigmuzzy/genregraphy/internal/mapping"
)

// DefaultDecades are the decades covered by the visualization.
var DefaultDecades = []int{1950, 1960, 1970, 1980, 1990, 2000, 2010, 2020}

// Missing is a genre expected in a decade file but absent from it.
type Missing struct {
	Genre     string
	StartYear int
}

func (m Missing) String() string {
	return fmt.Sprintf("%s (starts %d)", m.Genre, m.StartYear)
}

// Report maps a decade to its missing genres, sorted by their rendering.
type Report map[int][]Missing

// Decades returns the decades with missing genres in ascending order.
func (r Report) Decades() []int {
	decades := make([]int, 0, len(r))
	for d := range r {
		decades = append(decades, d)
	}
	slices.Sort(decades)
	return decades
}

// MissingGenres returns, for every decade, the genres whose start year falls
// within the decade but that have no entry in dir/<decade>.json. Decade
// files are {"<group>": {"<genre>": ...}}; genre keys are compared
// normalized. A decade without a file is skipped; an unreadable file counts
// as empty.
func MissingGenres(dir string, startYears mapping.StartYears, decades []int, log logrus.FieldLogger) Report {
	report := Report{}

	for _, decade := range decades {
		path := filepath.Join(dir, strconv.Itoa(decade)+".json")
		if _, err := os.Stat(path); err != nil {
			log.WithField("path", path).Warn("Decade file does not exist, skipping")
			continue
		}

		present := decadeGenres(path, log)

		var missing []Missing
		for genre, start := range startYears {
			if start < decade || start > decade+9 {
				continue
			}
			if !present[genre] {
				missing = append(missing, Missing{Genre: genre, StartYear: start})
			}
		}
		if len(missing) == 0 {
			continue
		}

		slices.SortFunc(missing, func(a, b Missing) int {
			return strings.Compare(a.String(), b.String())
		})
		report[decade] = missing
	}

	return report
}

// decadeGenres returns the normalized genre keys of a decade file.
func decadeGenres(path string, log logrus.FieldLogger) map[string]bool {
	var doc map[string]any
	if err := jsonfile.Read(path, &doc); err != nil {
		log.WithError(err).WithField("path", path).Error("Could not read decade file")
		return nil
	}

	genres := make(map[string]bool)
	for _, contents := range doc {
		group, ok := contents.(map[string]any)
		if !ok {
			continue
		}
		for genre := range group {
			genres[mapping.NormalizeKey(genre)] = true
		}
	}
	return genres
}

// WriteReport renders report as text.
func WriteReport(w io.Writer, report Report) error {
	if len(report) == 0 {
		_, err := io.WriteString(w, "No missing genres found based on start years.\n")
		return errors.Wrap(err, "write report")
	}

	ew := &errWriter{w: w}
	ew.printf("Missing Types Report\n")
	ew.printf("===================\n\n")
	for _, decade := range report.Decades() {
		ew.printf("Decade %ds:\n", decade)
		ew.printf("----------------\n")
		for _, m := range report[decade] {
			ew.printf("- %s\n", m)
		}
		ew.printf("\n")
	}
	return errors.Wrap(ew.err, "write report")
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
