package musicbrainz

import (
	"fmt"
	"strings"
)

// countedTypes restricts count queries to the release types plotted by the
// visualization.
const countedTypes = "(type:album OR type:compilation OR type:live OR type:single)"

// quote returns s as a Lucene phrase.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// CountQuery builds the release-group query counting genre releases in year.
func CountQuery(genre string, year int) string {
	return fmt.Sprintf("tag:%s AND date:%d AND %s", quote(genre), year, countedTypes)
}

// TagYearQuery builds the release-group query listing genre releases in year.
func TagYearQuery(genre string, year int) string {
	return fmt.Sprintf("tag:%s AND date:%d", quote(genre), year)
}
