package aggregate

import (
	"sort"
	"strconv"

	"github.com/notbigmuzzy/genregraphy/internal/mapping"
)

// BuildYear applies the start-year correction to one year of source counts
// and computes group and year totals. Genres counted before their start year
// are emitted with a zero count and left out of every total. Groups keep
// their source order, even when all their genres were zeroed.
func BuildYear(year int, src YearSource, startYears mapping.StartYears) *YearRecord {
	rec := &YearRecord{
		Year:       year,
		Continents: make([]Group, 0, len(src)),
		Metadata:   Metadata{PeakGenres: []string{}},
	}

	for _, sg := range src {
		group := Group{
			Name:   sg.Name,
			Genres: make(GenreCounts, 0, len(sg.Genres)),
		}
		for _, gc := range sg.Genres {
			count := gc.Count
			if !startYears.Started(gc.Genre, year) {
				count = 0
			}
			group.Genres = append(group.Genres, GenreCount{Genre: gc.Genre, Count: count})
			group.Total += count
		}
		rec.Metadata.MappedTotal += group.Total
		rec.Continents = append(rec.Continents, group)
	}

	return rec
}

// Peak is the year in which a genre held its largest share of the year's
// mapped total. Genre is the genre as spelled in that year's file.
type Peak struct {
	Genre      string
	Year       int
	Percentage float64
}

// PeakYears returns the peak of every genre that has a nonzero count in a
// year with a nonzero mapped total. Years are visited in ascending order and
// only a strictly greater share replaces the current peak, so the earliest
// year wins ties. Genres are keyed by their normalized name, so spellings
// that differ only in case share one peak.
func PeakYears(records []*YearRecord) map[string]Peak {
	sorted := make([]*YearRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Year < sorted[j].Year
	})

	peaks := make(map[string]Peak)
	for _, rec := range sorted {
		total := rec.Metadata.MappedTotal
		if total == 0 {
			continue
		}
		for _, group := range rec.Continents {
			for _, gc := range group.Genres {
				if gc.Count <= 0 {
					continue
				}
				key := mapping.NormalizeKey(gc.Genre)
				pct := 100 * float64(gc.Count) / float64(total)
				best, seen := peaks[key]
				if !seen || pct > best.Percentage {
					peaks[key] = Peak{Genre: gc.Genre, Year: rec.Year, Percentage: pct}
				}
			}
		}
	}
	return peaks
}

// AttachPeaks sets each record's peak genre list from peaks. Lists are
// sorted and never nil.
func AttachPeaks(records []*YearRecord, peaks map[string]Peak) {
	byYear := make(map[int][]string)
	for _, p := range peaks {
		byYear[p.Year] = append(byYear[p.Year], p.Genre)
	}
	for _, rec := range records {
		genres := byYear[rec.Year]
		if genres == nil {
			genres = []string{}
		}
		sort.Strings(genres)
		rec.Metadata.PeakGenres = genres
	}
}

// Build runs the start-year correction over every year and attaches peaks.
func Build(sources map[int]YearSource, startYears mapping.StartYears) Merged {
	years := make([]int, 0, len(sources))
	for year := range sources {
		years = append(years, year)
	}
	sort.Ints(years)

	records := make([]*YearRecord, 0, len(years))
	for _, year := range years {
		records = append(records, BuildYear(year, sources[year], startYears))
	}
	AttachPeaks(records, PeakYears(records))

	merged := make(Merged, len(records))
	for _, rec := range records {
		merged[strconv.Itoa(rec.Year)] = rec
	}
	return merged
}
