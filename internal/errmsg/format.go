// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by command.
const (
	// Setup
	OpConfigLoad Op = "load configuration"
	OpTablesLoad Op = "load genre tables"
	OpCacheOpen  Op = "open count cache"

	// Aggregation
	OpMerge      Op = "merge year files"
	OpMergeWrite Op = "write merged output"

	// Collection
	OpFetchCounts   Op = "fetch release counts"
	OpFetchDetailed Op = "fetch detailed MusicBrainz data"
	OpFetchLastfm   Op = "fetch detailed Last.fm data"
	OpLastfmInit    Op = "initialize Last.fm client"

	// Tables and reports
	OpGenerateMapping Op = "generate genre mapping"
	OpCheckMissing    Op = "check missing genres"
	OpReportWrite     Op = "write missing genres report"

	// Cache maintenance
	OpCachePurge Op = "purge count cache"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
