package dataset

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

const moviesCSV = `,Title,Major_Genre,Director,IMDB_Rating,Profit,Release_Year
0,Iron Man,Action,A,7.9,400000000,2008
1,Iron Man 2,Action,A,7.0,300000000.0,2010
2,Elf,Comedy,C,6.9,170000000,2003
3,Zathura,Action,B,6.1,-36000000,2005
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "movies.csv", moviesCSV)

	ds, err := Load(context.Background(), path, DefaultSchema())
	require.NoError(t, err)

	require.Equal(t, 4, ds.Len())
	assert.True(t, ds.HasTitle)
	assert.True(t, ds.HasYear)
	assert.Equal(t, path, ds.Source)
	assert.NotZero(t, ds.Fingerprint)

	assert.Equal(t, domain.MovieRecord{
		Index: 1, Title: "Iron Man 2", Genre: "Action", Director: "A",
		Rating: 7.0, Profit: 300000000, Year: 2010,
	}, ds.Records[1])
	assert.Equal(t, -36000000.0, ds.Records[3].Profit)
}

func TestLoad_MissingDirectorColumn(t *testing.T) {
	content := ",Title,Major_Genre,IMDB_Rating,Profit\n0,Iron Man,Action,7.9,1\n"

	_, err := FromCSV("movies.csv", strings.NewReader(content), DefaultSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSchema))
	assert.Contains(t, err.Error(), "director")
}

func TestLoad_DataLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "empty file",
			content: "",
			wantMsg: "empty",
		},
		{
			name:    "header only",
			content: ",Major_Genre,Director,IMDB_Rating,Profit\n",
			wantMsg: "no movies",
		},
		{
			name:    "wrong field count",
			content: ",Major_Genre,Director,IMDB_Rating,Profit\n0,Action,A,7.9\n",
			wantMsg: "parse",
		},
		{
			name:    "rating not numeric",
			content: ",Major_Genre,Director,IMDB_Rating,Profit\n0,Action,A,great,1\n",
			wantMsg: "rating is not a number",
		},
		{
			name:    "profit NaN",
			content: ",Major_Genre,Director,IMDB_Rating,Profit\n0,Action,A,7,NaN\n",
			wantMsg: "profit is not a number",
		},
		{
			name:    "index not integer",
			content: ",Major_Genre,Director,IMDB_Rating,Profit\n0.5,Action,A,7,1\n",
			wantMsg: "index is not an integer",
		},
		{
			name:    "blank director",
			content: ",Major_Genre,Director,IMDB_Rating,Profit\n0,Action, ,7,1\n",
			wantMsg: "director is blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromCSV("movies.csv", strings.NewReader(tt.content), DefaultSchema())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrDataLoad), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_CellErrorDetails(t *testing.T) {
	content := ",Major_Genre,Director,IMDB_Rating,Profit\n0,Action,A,7,1\n1,Action,B,x,1\n"

	_, err := FromCSV("movies.csv", strings.NewReader(content), DefaultSchema())

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, details["row"])
	assert.Equal(t, "IMDB_Rating", details["column"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), DefaultSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load(context.Background(), "", DefaultSchema())
	assert.True(t, errors.Is(err, errors.ErrDataLoad))
}

func TestLoad_OptionalColumnsAbsent(t *testing.T) {
	content := "\ufeffid,Major_Genre,Director,IMDB_Rating,Profit\n7,Drama,D,8.1,1e6\n"
	schema := DefaultSchema()
	schema.Index = "id"

	ds, err := FromCSV("movies.csv", strings.NewReader(content), schema)
	require.NoError(t, err)

	assert.False(t, ds.HasTitle)
	assert.False(t, ds.HasYear)
	assert.Equal(t, 7, ds.Records[0].Index)
	assert.Equal(t, 1e6, ds.Records[0].Profit)
	assert.Zero(t, ds.Records[0].Year)
}

func TestLoad_LabelsNormalized(t *testing.T) {
	content := ",Major_Genre,Director,IMDB_Rating,Profit\n0,  Action ,Steven   Spielberg,7,1\n"

	ds, err := FromCSV("movies.csv", strings.NewReader(content), DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, "Action", ds.Records[0].Genre)
	assert.Equal(t, "Steven Spielberg", ds.Records[0].Director)
}

func TestFingerprint_ContentAddressed(t *testing.T) {
	a, err := FromCSV("a.csv", strings.NewReader(moviesCSV), DefaultSchema())
	require.NoError(t, err)
	b, err := FromCSV("b.csv", strings.NewReader(moviesCSV), DefaultSchema())
	require.NoError(t, err)
	c, err := FromCSV("c.csv", strings.NewReader(strings.Replace(moviesCSV, "7.9", "8.0", 1)), DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestLoad_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE films (
		idx INTEGER, Title TEXT, Major_Genre TEXT, Director TEXT,
		IMDB_Rating REAL, Profit REAL, Release_Year INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO films VALUES
		(0, 'Iron Man', 'Action', 'A', 7.9, 400000000, 2008),
		(1, 'Elf', 'Comedy', 'C', 6.9, 170000000, 2003)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	schema := DefaultSchema()
	schema.Index = "idx"
	schema.Table = "films"

	ds, err := Load(context.Background(), path, schema)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "Elf", ds.Records[1].Title)
	assert.Equal(t, 2003, ds.Records[1].Year)
	assert.Equal(t, 400000000.0, ds.Records[0].Profit)

	schema.Table = "movies"
	_, err = Load(context.Background(), path, schema)
	assert.True(t, errors.Is(err, errors.ErrSchema))
}

func TestIsSQLite(t *testing.T) {
	assert.True(t, IsSQLite("movies.db"))
	assert.True(t, IsSQLite("/x/movies.SQLITE3"))
	assert.False(t, IsSQLite("movies.csv"))
}
