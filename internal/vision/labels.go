package vision

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrLabelsNotFound is returned when the label file does not exist.
var ErrLabelsNotFound = errors.New("labels file not found")

// LoadLabels reads one class name per line. Lines are trimmed; blank lines
// at the end of the file are dropped, blank lines in between are kept so
// indexes still line up with the model outputs.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLabelsNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("unable to open labels: %w", err)
	}
	defer f.Close() //nolint:errcheck

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	return labels, nil
}

// ReadLabels reads labels from r, see LoadLabels.
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff")))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, errors.New("no labels")
	}
	return labels, nil
}
