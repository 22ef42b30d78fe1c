package pokedex

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muesli/gitcha"
)

// inputPatterns are the files LoadRecords understands.
var inputPatterns = []string{"*.csv", "*.tsv", "*.xlsx", "*.xlsm"}

// FindInputs lists the readable input files under dir, honouring
// .gitignore. Spreadsheet lock files ("~$book.xlsx") are skipped.
func FindInputs(dir string) ([]string, error) {
	ch, err := gitcha.FindFilesExcept(dir, inputPatterns, []string{"~$*"})
	if err != nil {
		return nil, fmt.Errorf("unable to search %s: %w", dir, err)
	}

	var paths []string
	for res := range ch {
		if res.Info != nil && res.Info.IsDir() {
			continue
		}
		if strings.HasPrefix(filepath.Base(res.Path), "~$") {
			continue
		}
		paths = append(paths, res.Path)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no csv or xlsx files in %s", ErrInputNotFound, dir)
	}

	sort.Strings(paths)
	return paths, nil
}

// LoadAll reads every file in paths and concatenates their records. Row
// numbers restart per file.
func LoadAll(paths []string, opts LoadOptions) ([]Record, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}

	var all []Record
	for _, path := range paths {
		recs, err := LoadRecords(path, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, recs...)
	}
	return all, nil
}
