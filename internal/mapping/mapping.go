// Package mapping loads the static genre tables kept as plain text files:
// the genre list, genre -> group, synonym -> primary genre and
// genre -> start year.
package mapping

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

const separator = "->"

// Table maps a normalized key to its raw value.
type Table map[string]string

// NormalizeKey lowercases and NFC-normalizes a genre name so that lookups
// are insensitive to case and to composed/decomposed accents.
func NormalizeKey(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// Parse reads "key -> value" lines. Blank lines and lines starting with '#'
// are ignored, and lines without the separator are skipped.
func Parse(r io.Reader, log logrus.FieldLogger) (Table, error) {
	table := make(Table)
	err := scanLines(r, func(lineNo int, line string) {
		key, value, ok := splitLine(line)
		if !ok {
			log.WithFields(logrus.Fields{
				"line":    lineNo,
				"content": line,
			}).Debug("skipping malformed mapping line")
			return
		}
		table[NormalizeKey(key)] = value
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// LoadTable parses the mapping file at path. A missing file yields an
// empty table.
func LoadTable(path string, log logrus.FieldLogger) (Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Debug("mapping file not found, using empty table")
		return Table{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open mapping file %s", path)
	}
	defer f.Close()

	table, err := Parse(f, log)
	if err != nil {
		return nil, errors.Wrapf(err, "read mapping file %s", path)
	}
	return table, nil
}

// LoadGenres reads the genre list: one genre per line, '#' comments.
func LoadGenres(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open genre list %s", path)
	}
	defer f.Close()

	var genres []string
	err = scanLines(f, func(_ int, line string) {
		genres = append(genres, NormalizeKey(line))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read genre list %s", path)
	}
	return genres, nil
}

// scanLines calls fn for every trimmed, non-empty, non-comment line.
func scanLines(r io.Reader, fn func(lineNo int, line string)) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(lineNo, line)
	}
	return scanner.Err()
}

func splitLine(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, separator)
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
