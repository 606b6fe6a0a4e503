package aggregate

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notbigmuzzy/genregraphy/internal/jsonfile"
	"github.com/notbigmuzzy/genregraphy/internal/mapping"
)

const yearFileExt = ".json"

// YearFile is a per-year source file found in a directory.
type YearFile struct {
	Year int
	Path string
}

// YearFilePath returns the path of the source file for year in dir.
func YearFilePath(dir string, year int) string {
	return filepath.Join(dir, strconv.Itoa(year)+yearFileExt)
}

// ListYearFiles returns the year files of dir in ascending numeric year
// order. Files whose stem is not an integer are skipped with a warning.
func ListYearFiles(dir string, log logrus.FieldLogger) ([]YearFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list year files in %s", dir)
	}

	var files []YearFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, yearFileExt) {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSuffix(name, yearFileExt))
		if err != nil {
			log.WithField("file", name).Warn("skipping file without a year name")
			continue
		}
		files = append(files, YearFile{Year: year, Path: filepath.Join(dir, name)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Year < files[j].Year
	})
	return files, nil
}

// ReadYearSource reads one per-year source file.
func ReadYearSource(path string) (YearSource, error) {
	var src YearSource
	if err := jsonfile.Read(path, &src); err != nil {
		return nil, err
	}
	return src, nil
}

// ReadYearSourceOrEmpty reads a per-year source file, returning an empty
// source when it does not exist yet.
func ReadYearSourceOrEmpty(path string) (YearSource, error) {
	if !jsonfile.Exists(path) {
		return YearSource{}, nil
	}
	return ReadYearSource(path)
}

// WriteYearSource writes one per-year source file.
func WriteYearSource(path string, src YearSource) error {
	return jsonfile.Write(path, src)
}

// Merge reads every year file in dir and builds the merged document.
// Any unreadable or malformed year file aborts the merge.
func Merge(dir string, startYears mapping.StartYears, log logrus.FieldLogger) (Merged, error) {
	files, err := ListYearFiles(dir, log)
	if err != nil {
		return nil, err
	}

	sources := make(map[int]YearSource, len(files))
	for _, f := range files {
		src, err := ReadYearSource(f.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "year %d", f.Year)
		}
		if _, dup := sources[f.Year]; dup {
			return nil, errors.Errorf("year %d found in more than one file", f.Year)
		}
		sources[f.Year] = src
		log.WithField("file", filepath.Base(f.Path)).Debug("loaded year file")
	}

	return Build(sources, startYears), nil
}

// WriteMerged replaces the merged output document at path.
func WriteMerged(path string, merged Merged) error {
	return jsonfile.Write(path, merged)
}

// ReadMerged reads a merged output document.
func ReadMerged(path string) (Merged, error) {
	var merged Merged
	if err := jsonfile.Read(path, &merged); err != nil {
		return nil, err
	}
	for key, rec := range merged {
		if rec == nil {
			return nil, errors.Errorf("year %s has no record", key)
		}
		year, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Wrapf(err, "year key %q", key)
		}
		rec.Year = year
	}
	return merged, nil
}
