//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpMerge,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpMerge,
			err:      errors.New("duplicate year 1959"),
			expected: "Failed to merge year files: duplicate year 1959",
		},
		{
			name:     "fetch operation",
			op:       OpFetchCounts,
			err:      errors.New("network error"),
			expected: "Failed to fetch release counts: network error",
		},
		{
			name:     "cache operation",
			op:       OpCachePurge,
			err:      errors.New("database is locked"),
			expected: "Failed to purge count cache: database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpMergeWrite,
			context:  "genres.json",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpMergeWrite,
			context:  "genres.json",
			err:      errors.New("permission denied"),
			expected: "Failed to write merged output 'genres.json': permission denied",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpMergeWrite,
			context:  "",
			err:      errors.New("permission denied"),
			expected: "Failed to write merged output: permission denied",
		},
		{
			name:     "tables with directory context",
			op:       OpTablesLoad,
			context:  "scripts/texts",
			err:      errors.New("no such file"),
			expected: "Failed to load genre tables 'scripts/texts': no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestOpConstants(t *testing.T) {
	ops := []Op{
		OpConfigLoad, OpTablesLoad, OpCacheOpen,
		OpMerge, OpMergeWrite,
		OpFetchCounts, OpFetchDetailed, OpFetchLastfm, OpLastfmInit,
		OpGenerateMapping, OpCheckMissing, OpReportWrite,
		OpCachePurge,
	}

	testErr := errors.New("test error")
	seen := make(map[Op]bool)

	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			if op == "" {
				t.Error("Op constant should not be empty")
			}
			if seen[op] {
				t.Errorf("Op %q is declared twice", op)
			}
			seen[op] = true

			expected := "Failed to " + string(op) + ": test error"
			if result := Format(op, testErr); result != expected {
				t.Errorf("Format(%q) = %q, want %q", op, result, expected)
			}
		})
	}
}
