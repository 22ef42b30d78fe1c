package pokedex

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInputNotFound is returned when the input spreadsheet does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrUnsupportedFormat is returned for file extensions we cannot read.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// Record is a single Pokémon row.
type Record struct {
	Number      string
	Name        string
	Category    string
	Type        string
	Description string

	// Row is the 1-based position of the record among the data rows.
	Row int
}

// Column identifies one of the fields a headered input must provide.
type Column int

const (
	ColumnNumber Column = iota
	ColumnName
	ColumnCategory
	ColumnType
	ColumnDescription
)

// columnAliases maps every accepted header (lower-cased) to its column. The
// Korean names are what the source data ships with.
var columnAliases = map[string]Column{
	"번호":          ColumnNumber,
	"number":      ColumnNumber,
	"no":          ColumnNumber,
	"이름":          ColumnName,
	"name":        ColumnName,
	"분류":          ColumnCategory,
	"category":    ColumnCategory,
	"타입":          ColumnType,
	"type":        ColumnType,
	"설명":          ColumnDescription,
	"description": ColumnDescription,
}

// String returns the canonical header for the column.
func (c Column) String() string {
	switch c {
	case ColumnNumber:
		return "번호"
	case ColumnName:
		return "이름"
	case ColumnCategory:
		return "분류"
	case ColumnType:
		return "타입"
	case ColumnDescription:
		return "설명"
	default:
		return "unknown"
	}
}

// LoadOptions controls how an input file is interpreted.
type LoadOptions struct {
	// Headerless treats the first column of every non-empty row as the text
	// to narrate. There is no header row in this mode.
	Headerless bool

	// Sheet selects the worksheet of a spreadsheet. Defaults to the first.
	Sheet string
}

// LoadRecords reads all records from a CSV, TSV, XLSX or markdown file,
// preserving row order.
func LoadRecords(path string, opts LoadOptions) ([]Record, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("unable to stat input: %w", err)
	}

	if isMarkdown(path) {
		return loadMarkdown(path, opts)
	}

	rows, err := readRows(path, opts.Sheet)
	if err != nil {
		return nil, err
	}

	if opts.Headerless {
		return recordsFromColumn(rows), nil
	}
	return recordsFromTable(rows)
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// loadMarkdown reads a markdown table like a spreadsheet. Documents without
// a table are always headerless.
func loadMarkdown(path string, opts LoadOptions) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open input: %w", err)
	}
	defer f.Close() //nolint:errcheck

	rows, table, err := ReadMarkdown(f)
	if err != nil {
		return nil, err
	}
	if !table || opts.Headerless {
		if table {
			rows = rows[1:]
		}
		return recordsFromColumn(rows), nil
	}
	return recordsFromTable(rows)
}

func readRows(path, sheet string) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open input: %w", err)
		}
		defer f.Close() //nolint:errcheck

		comma := ','
		if ext == ".tsv" {
			comma = '\t'
		}
		return ReadCSV(f, comma)
	case ".xlsx", ".xlsm", ".xltx":
		return readSheet(path, sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV reads every row from r. Rows may have differing field counts, and
// a leading UTF-8 byte order mark is dropped.
func ReadCSV(r io.Reader, comma rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open spreadsheet: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("spreadsheet has no worksheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func recordsFromColumn(rows [][]string) []Record {
	var records []Record
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		text := clean(row[0])
		if text == "" {
			continue
		}
		records = append(records, Record{
			Description: text,
			Row:         len(records) + 1,
		})
	}
	return records
}

func recordsFromTable(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	index := map[Column]int{}
	for i, h := range rows[0] {
		if c, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := index[c]; !seen {
				index[c] = i
			}
		}
	}
	for _, c := range []Column{ColumnNumber, ColumnName, ColumnCategory, ColumnType, ColumnDescription} {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	cell := func(row []string, c Column) string {
		i := index[c]
		if i >= len(row) {
			return ""
		}
		return clean(row[i])
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, Record{
			Number:      cell(row, ColumnNumber),
			Name:        cell(row, ColumnName),
			Category:    cell(row, ColumnCategory),
			Type:        cell(row, ColumnType),
			Description: cell(row, ColumnDescription),
			Row:         len(records) + 1,
		})
	}
	return records, nil
}

// clean trims a cell and composes Hangul jamo. Spreadsheets saved on macOS
// often carry decomposed text that would otherwise yield different file
// names for the same Pokémon.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
