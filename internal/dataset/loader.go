// Package dataset loads the movie table once at startup and derives facet lists from it.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/normalize"
)

// table is a source file reduced to a header and string cells.
type table struct {
	header []string
	rows   [][]string
}

// IsSQLite reports whether path names a SQLite database rather than a CSV file.
func IsSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}

// Load reads the dataset at path using schema.
// Unreadable or malformed sources fail with a DATA_LOAD error, missing columns with SCHEMA.
func Load(ctx context.Context, path string, schema Schema) (*domain.Dataset, error) {
	if path == "" {
		return nil, errors.DataLoad("dataset path is empty")
	}

	var (
		t   *table
		err error
	)
	if IsSQLite(path) {
		t, err = readSQLite(ctx, path, schema.Table)
	} else {
		t, err = readCSVFile(path)
	}
	if err != nil {
		return nil, err
	}

	return build(path, t, schema)
}

// FromCSV parses CSV content from r. source names the content in errors and on the dataset.
func FromCSV(source string, r io.Reader, schema Schema) (*domain.Dataset, error) {
	t, err := readCSV(source, r)
	if err != nil {
		return nil, err
	}
	return build(source, t, schema)
}

func readCSVFile(path string) (*table, error) {
	f, err := os.Open(path) //#nosec G304 -- dataset path comes from operator config
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "open dataset %s", path)
	}
	defer f.Close()

	return readCSV(path, f)
}

func readCSV(source string, r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	// The header fixes the field count for every following row.
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.DataLoadf("dataset %s is empty", source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "read header of %s", source)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "parse %s", source)
	}

	return &table{header: header, rows: rows}, nil
}

func build(source string, t *table, schema Schema) (*domain.Dataset, error) {
	cols, err := schema.resolve(t.header)
	if err != nil {
		return nil, err
	}

	if len(t.rows) == 0 {
		return nil, errors.DataLoadf("dataset %s has no movies", source)
	}

	records := make([]domain.MovieRecord, 0, len(t.rows))
	for i, row := range t.rows {
		// Row 1 is the header.
		rec, err := parseRow(row, cols, t.header, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return &domain.Dataset{
		Source:      source,
		Records:     records,
		Fingerprint: fingerprint(records),
		HasTitle:    cols[domain.ColumnTitle] >= 0,
		HasYear:     cols[domain.ColumnYear] >= 0,
	}, nil
}

// cellError reports a malformed cell with enough context to find it in the source.
func cellError(line int, header string, raw, reason string) error {
	return errors.DataLoadf("row %d column %q: %s", line, header, reason).
		WithDetails(map[string]any{"row": line, "column": header, "value": raw})
}

func parseRow(row []string, cols columnMap, header []string, line int) (domain.MovieRecord, error) {
	cell := func(col domain.Column) (string, string) {
		pos := cols[col]
		if pos < 0 || pos >= len(row) {
			return "", ""
		}
		return strings.TrimSpace(row[pos]), header[pos]
	}

	var rec domain.MovieRecord

	raw, name := cell(domain.ColumnIndex)
	idx, err := parseInt(raw)
	if err != nil {
		return rec, cellError(line, name, raw, "index is not an integer")
	}
	rec.Index = idx

	for _, text := range []struct {
		col domain.Column
		dst *string
	}{
		{domain.ColumnGenre, &rec.Genre},
		{domain.ColumnDirector, &rec.Director},
	} {
		raw, name := cell(text.col)
		if *text.dst = normalize.Label(raw); *text.dst == "" {
			return rec, cellError(line, name, raw, string(text.col)+" is blank")
		}
	}

	for _, num := range []struct {
		col domain.Column
		dst *float64
	}{
		{domain.ColumnRating, &rec.Rating},
		{domain.ColumnProfit, &rec.Profit},
	} {
		raw, name := cell(num.col)
		v, err := parseFloat(raw)
		if err != nil {
			return rec, cellError(line, name, raw, string(num.col)+" is not a number")
		}
		*num.dst = v
	}

	if cols[domain.ColumnTitle] >= 0 {
		raw, _ := cell(domain.ColumnTitle)
		rec.Title = normalize.Label(raw)
	}

	if cols[domain.ColumnYear] >= 0 {
		raw, name := cell(domain.ColumnYear)
		if raw != "" {
			year, err := parseInt(raw)
			if err != nil {
				return rec, cellError(line, name, raw, "year is not an integer")
			}
			rec.Year = year
		}
	}

	return rec, nil
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// parseInt accepts integral floats such as "1995.0", which spreadsheet exports produce.
func parseInt(raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := parseFloat(raw)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}
