package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Preamble comment lines of genres.txt that are not group headers.
var preamblePrefixes = []string{
	"# Genregraphy",
	"# Add or remove",
	"# One genre",
}

// Mapping is a single genre -> group assignment.
type Mapping struct {
	Genre string
	Group string
}

// ParseGroupedGenres reads a genre list in which comment lines act as group
// headers for the genres that follow them. Genres before the first header
// are ignored.
func ParseGroupedGenres(r io.Reader) ([]Mapping, error) {
	var (
		mappings []Mapping
		group    string
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isPreamble(line) {
			continue
		}
		if strings.HasPrefix(line, "#") {
			group = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}
		if group != "" {
			mappings = append(mappings, Mapping{Genre: NormalizeKey(line), Group: group})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read genre list")
	}
	return mappings, nil
}

// WriteGroups renders mappings as a genre_groups.txt file, emitting a header
// comment whenever the group changes.
func WriteGroups(w io.Writer, mappings []Mapping) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "# Genre to Group Mapping\n")
	fmt.Fprint(bw, "# Auto-generated from genres.txt\n")
	fmt.Fprint(bw, "# Format: genre -> group name\n\n")

	current := ""
	for _, m := range mappings {
		if m.Group != current {
			fmt.Fprintf(bw, "\n# %s\n", m.Group)
			current = m.Group
		}
		fmt.Fprintf(bw, "%s -> %s\n", m.Genre, m.Group)
	}
	return bw.Flush()
}

// GenerateGroups derives the group table from a grouped genre list and
// returns the number of mappings written.
func GenerateGroups(r io.Reader, w io.Writer) (int, error) {
	mappings, err := ParseGroupedGenres(r)
	if err != nil {
		return 0, err
	}
	if err := WriteGroups(w, mappings); err != nil {
		return 0, errors.Wrap(err, "write group table")
	}
	return len(mappings), nil
}

func isPreamble(line string) bool {
	for _, p := range preamblePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
