package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notbigmuzzy/genregraphy/internal/mapping"
)

func mustSource(t *testing.T, raw string) YearSource {
	t.Helper()
	var src YearSource
	require.NoError(t, json.Unmarshal([]byte(raw), &src))
	return src
}

func TestBuildYear_StartYearCorrection(t *testing.T) {
	src := mustSource(t, `{"Rock Group": {"jazz": 10, "blues": 5}}`)
	startYears := mapping.StartYears{"jazz": 1940, "blues": 1960}

	rec := BuildYear(1950, src, startYears)

	require.Len(t, rec.Continents, 1)
	group := rec.Continents[0]
	assert.Equal(t, "Rock Group", group.Name)
	assert.Equal(t, GenreCounts{{"jazz", 10}, {"blues", 0}}, group.Genres)
	assert.Equal(t, 10, group.Total)
	assert.Equal(t, 10, rec.Metadata.MappedTotal)
}

func TestBuildYear_DefaultStartYear(t *testing.T) {
	src := mustSource(t, `{"G": {"jazz": 3}}`)

	before := BuildYear(1949, src, nil)
	assert.Equal(t, 0, before.Metadata.MappedTotal)

	onTime := BuildYear(1950, src, nil)
	assert.Equal(t, 3, onTime.Metadata.MappedTotal)
}

func TestBuildYear_AllZeroGroupKept(t *testing.T) {
	src := mustSource(t, `{"Early": {"grunge": 7}, "Late": {"jazz": 2}}`)
	rec := BuildYear(1970, src, mapping.StartYears{"grunge": 1986})

	require.Len(t, rec.Continents, 2)
	assert.Equal(t, "Early", rec.Continents[0].Name)
	assert.Equal(t, 0, rec.Continents[0].Total)
	assert.Equal(t, GenreCounts{{"grunge", 0}}, rec.Continents[0].Genres)
	assert.Equal(t, 2, rec.Metadata.MappedTotal)
}

func TestBuildYear_PreservesSourceOrder(t *testing.T) {
	src := mustSource(t, `{"Zeta": {"b": 1, "a": 2}, "Alpha": {"d": 3, "c": 4}}`)
	rec := BuildYear(2000, src, nil)

	names := []string{rec.Continents[0].Name, rec.Continents[1].Name}
	assert.Equal(t, []string{"Zeta", "Alpha"}, names)
	assert.Equal(t, "b", rec.Continents[0].Genres[0].Genre)
	assert.Equal(t, "d", rec.Continents[1].Genres[0].Genre)
}

func TestBuildYear_TotalsAreConsistent(t *testing.T) {
	src := mustSource(t, `{
		"A": {"jazz": 10, "bebop": 4, "grunge": 9},
		"B": {"rock": 20, "emo": 6},
		"C": {}
	}`)
	startYears := mapping.StartYears{"grunge": 1986, "emo": 1985, "bebop": 1945}

	rec := BuildYear(1980, src, startYears)

	sum := 0
	genreSum := 0
	for _, g := range rec.Continents {
		sum += g.Total
		genreSum += g.Genres.Sum()
		assert.Equal(t, g.Genres.Sum(), g.Total, "group %s", g.Name)
	}
	assert.Equal(t, rec.Metadata.MappedTotal, sum)
	assert.Equal(t, rec.Metadata.MappedTotal, genreSum)
	assert.Equal(t, 34, rec.Metadata.MappedTotal)
}

func TestPeakYears(t *testing.T) {
	records := []*YearRecord{
		BuildYear(1991, mustSource(t, `{"G": {"jazz": 10, "rock": 90}}`), nil),
		BuildYear(1990, mustSource(t, `{"G": {"jazz": 50, "rock": 50}}`), nil),
		BuildYear(1992, mustSource(t, `{"G": {"jazz": 0, "rock": 10}}`), nil),
	}

	peaks := PeakYears(records)

	assert.Equal(t, 1990, peaks["jazz"].Year)
	assert.InDelta(t, 50.0, peaks["jazz"].Percentage, 1e-9)
	assert.Equal(t, 1992, peaks["rock"].Year)
	assert.InDelta(t, 100.0, peaks["rock"].Percentage, 1e-9)
}

func TestPeakYears_EarliestYearWinsTies(t *testing.T) {
	records := []*YearRecord{
		BuildYear(2001, mustSource(t, `{"G": {"jazz": 5, "rock": 5}}`), nil),
		BuildYear(2000, mustSource(t, `{"G": {"jazz": 1, "rock": 1}}`), nil),
	}

	peaks := PeakYears(records)

	assert.Equal(t, 2000, peaks["jazz"].Year)
	assert.Equal(t, 2000, peaks["rock"].Year)
}

func TestPeakYears_SkipsZeroTotalsAndZeroCounts(t *testing.T) {
	startYears := mapping.StartYears{"grunge": 1986}
	records := []*YearRecord{
		BuildYear(1980, mustSource(t, `{"G": {"grunge": 100}}`), startYears),
		BuildYear(1990, mustSource(t, `{"G": {"grunge": 1, "rock": 99}}`), startYears),
		BuildYear(1995, mustSource(t, `{"G": {"polka": 0}}`), startYears),
	}

	peaks := PeakYears(records)

	assert.Equal(t, 1990, peaks["grunge"].Year)
	_, ok := peaks["polka"]
	assert.False(t, ok, "genre without a nonzero count must not get a peak")
}

func TestPeakYears_GenreCaseInsensitive(t *testing.T) {
	records := []*YearRecord{
		BuildYear(1990, mustSource(t, `{"G": {"Jazz": 60, "rock": 40}}`), nil),
		BuildYear(1991, mustSource(t, `{"G": {"jazz": 10, "rock": 90}}`), nil),
	}

	peaks := PeakYears(records)
	require.Len(t, peaks, 2)
	assert.Equal(t, Peak{Genre: "Jazz", Year: 1990, Percentage: 60}, peaks["jazz"])

	AttachPeaks(records, peaks)
	assert.Equal(t, []string{"Jazz"}, records[0].Metadata.PeakGenres)
	assert.Equal(t, []string{"rock"}, records[1].Metadata.PeakGenres)
}

func TestBuild_AttachesExactlyOnePeakPerGenre(t *testing.T) {
	sources := map[int]YearSource{
		1990: mustSource(t, `{"A": {"jazz": 50, "rock": 50}}`),
		1991: mustSource(t, `{"A": {"jazz": 10, "rock": 90}, "B": {"emo": 0}}`),
		1992: mustSource(t, `{"A": {"jazz": 0}}`),
	}

	merged := Build(sources, nil)

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"jazz"}, merged["1990"].Metadata.PeakGenres)
	assert.Equal(t, []string{"rock"}, merged["1991"].Metadata.PeakGenres)
	assert.NotNil(t, merged["1992"].Metadata.PeakGenres)
	assert.Empty(t, merged["1992"].Metadata.PeakGenres)

	seen := map[string]int{}
	for _, rec := range merged {
		for _, g := range rec.Metadata.PeakGenres {
			seen[g]++
		}
	}
	assert.Equal(t, map[string]int{"jazz": 1, "rock": 1}, seen)
}

func TestYearRecord_JSONShape(t *testing.T) {
	src := mustSource(t, `{"Rock Group": {"jazz": 10, "blues": 5}}`)
	merged := Build(map[int]YearSource{1950: src}, mapping.StartYears{"jazz": 1940, "blues": 1960})

	data, err := json.Marshal(merged)
	require.NoError(t, err)

	want := `{"1950":{"continents":[{"name":"Rock Group","genres":{"jazz":10,"blues":0},"total":10}],` +
		`"metadata":{"mapped_total":10,"peak_genres":["jazz"]}}}`
	assert.JSONEq(t, want, string(data))
}
