package dataset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// Schema maps logical columns to the headers used by a source file.
// An empty Index means the first column holds the row index, which is how
// the cleaned movies CSV is written.
type Schema struct {
	Index    string `yaml:"index"`
	Title    string `yaml:"title"`
	Genre    string `yaml:"genre"`
	Director string `yaml:"director"`
	Rating   string `yaml:"rating"`
	Profit   string `yaml:"profit"`
	Year     string `yaml:"year"`
	// Table is read when the source is a SQLite database.
	Table string `yaml:"table"`
}

// DefaultSchema matches the headers of data/clean/movies_clean_df.csv.
func DefaultSchema() Schema {
	return Schema{
		Title:    "Title",
		Genre:    "Major_Genre",
		Director: "Director",
		Rating:   "IMDB_Rating",
		Profit:   "Profit",
		Year:     "Release_Year",
		Table:    "movies",
	}
}

// LoadSchema reads a YAML schema file. Keys left out keep their default header.
// An empty path returns DefaultSchema.
func LoadSchema(path string) (Schema, error) {
	schema := DefaultSchema()
	if path == "" {
		return schema, nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- schema path comes from operator config
	if err != nil {
		return Schema{}, errors.Wrapf(err, errors.CodeSchema, "read schema %s", path)
	}

	var override Schema
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Schema{}, errors.Wrapf(err, errors.CodeSchema, "parse schema %s", path)
	}

	return schema.merge(override), nil
}

func (s Schema) merge(o Schema) Schema {
	pick := func(base, over string) string {
		if over = strings.TrimSpace(over); over != "" {
			return over
		}
		return base
	}
	return Schema{
		Index:    pick(s.Index, o.Index),
		Title:    pick(s.Title, o.Title),
		Genre:    pick(s.Genre, o.Genre),
		Director: pick(s.Director, o.Director),
		Rating:   pick(s.Rating, o.Rating),
		Profit:   pick(s.Profit, o.Profit),
		Year:     pick(s.Year, o.Year),
		Table:    pick(s.Table, o.Table),
	}
}

// Header returns the source header configured for a logical column.
func (s Schema) Header(col domain.Column) string {
	switch col {
	case domain.ColumnIndex:
		return s.Index
	case domain.ColumnTitle:
		return s.Title
	case domain.ColumnGenre:
		return s.Genre
	case domain.ColumnDirector:
		return s.Director
	case domain.ColumnRating:
		return s.Rating
	case domain.ColumnProfit:
		return s.Profit
	case domain.ColumnYear:
		return s.Year
	default:
		return ""
	}
}

// columnMap holds the position of each logical column in a header row, -1 when absent.
type columnMap map[domain.Column]int

// resolve locates every schema column in header. A missing required column is a SchemaError.
func (s Schema) resolve(header []string) (columnMap, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	cols := columnMap{}
	var missing []string

	for _, col := range []domain.Column{
		domain.ColumnIndex, domain.ColumnTitle, domain.ColumnGenre, domain.ColumnDirector,
		domain.ColumnRating, domain.ColumnProfit, domain.ColumnYear,
	} {
		name := s.Header(col)
		if col == domain.ColumnIndex && name == "" {
			if len(header) == 0 {
				missing = append(missing, "index")
				continue
			}
			cols[col] = 0
			continue
		}

		pos, ok := positions[name]
		if ok && name != "" {
			cols[col] = pos
			continue
		}

		cols[col] = -1
		if isRequired(col) {
			missing = append(missing, fmt.Sprintf("%s (%q)", col, name))
		}
	}

	if len(missing) > 0 {
		return nil, errors.Schemaf("missing required column: %s", strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing, "header": header})
	}
	return cols, nil
}

func isRequired(col domain.Column) bool {
	for _, r := range domain.RequiredColumns() {
		if r == col {
			return true
		}
	}
	return false
}
