package dataset

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/directorstracker/tracker-server/internal/errors"

	_ "modernc.org/sqlite"
)

// readSQLite reads every row of tableName from a read-only SQLite database.
// Cells are converted to strings so both sources share one parser.
func readSQLite(ctx context.Context, path, tableName string) (*table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "open dataset %s", path)
	}
	if tableName == "" {
		return nil, errors.Schema("dataset table name is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "open sqlite %s", path)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(tableName))
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, errors.Schemaf("table %q not found in %s", tableName, path)
		}
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "query %s", path)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "read columns of %s", tableName)
	}

	t := &table{header: header}
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrapf(err, errors.CodeDataLoad, "scan row %d of %s", len(t.rows)+1, tableName)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = c.String
		}
		t.rows = append(t.rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeDataLoad, "iterate %s", tableName)
	}

	return t, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
