package domain

// Column names a logical field of the movie table, independent of the header used in the source file.
type Column string

// Logical columns. Index, Genre, Director, Rating and Profit are required.
const (
	ColumnIndex    Column = "index"
	ColumnTitle    Column = "title"
	ColumnGenre    Column = "genre"
	ColumnDirector Column = "director"
	ColumnRating   Column = "rating"
	ColumnProfit   Column = "profit"
	ColumnYear     Column = "year"
)

// RequiredColumns lists the columns every dataset must provide, in reporting order.
func RequiredColumns() []Column {
	return []Column{ColumnIndex, ColumnGenre, ColumnDirector, ColumnRating, ColumnProfit}
}

// MovieRecord is one row of the movie table. Immutable after load.
type MovieRecord struct {
	Index    int     `json:"index"`
	Title    string  `json:"title,omitempty"`
	Genre    string  `json:"genre"`
	Director string  `json:"director"`
	Rating   float64 `json:"rating"`
	Profit   float64 `json:"profit"`
	Year     int     `json:"year,omitempty"` // 0 when the source has no year column
}

// FacetList holds the distinct values of a column in first-seen order.
type FacetList []string

// Contains reports whether v is one of the facet values.
func (f FacetList) Contains(v string) bool {
	for _, s := range f {
		if s == v {
			return true
		}
	}
	return false
}

// Dataset is the movie table loaded once at startup.
// It is shared by every session and must never be modified after construction.
type Dataset struct {
	Source      string        `json:"source"`
	Records     []MovieRecord `json:"-"`
	Fingerprint uint64        `json:"fingerprint"`
	HasTitle    bool          `json:"has_title"`
	HasYear     bool          `json:"has_year"`
}

// Len returns the number of movies.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// InGenre returns the movies whose genre equals genre exactly, in dataset order.
func (d *Dataset) InGenre(genre string) []MovieRecord {
	if d == nil {
		return nil
	}
	var out []MovieRecord
	for _, r := range d.Records {
		if r.Genre == genre {
			out = append(out, r)
		}
	}
	return out
}
