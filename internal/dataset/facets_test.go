package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

func loadMovies(t *testing.T) *domain.Dataset {
	t.Helper()
	ds, err := FromCSV("movies.csv", strings.NewReader(moviesCSV), DefaultSchema())
	require.NoError(t, err)
	return ds
}

func TestDistinctValues_FirstSeenOrder(t *testing.T) {
	ds := loadMovies(t)

	genres, err := DistinctValues(ds, domain.ColumnGenre)
	require.NoError(t, err)
	assert.Equal(t, domain.FacetList{"Action", "Comedy"}, genres)

	directors, err := DistinctValues(ds, domain.ColumnDirector)
	require.NoError(t, err)
	assert.Equal(t, domain.FacetList{"A", "C", "B"}, directors)

	assert.Equal(t, genres, Genres(ds))
	assert.Equal(t, directors, Directors(ds))
}

func TestDistinctValues_UnknownColumn(t *testing.T) {
	ds := loadMovies(t)

	for _, col := range []domain.Column{domain.ColumnRating, "studio"} {
		_, err := DistinctValues(ds, col)
		assert.True(t, errors.Is(err, errors.ErrSchema), "column %s", col)
	}
}

func TestDistinctValues_TitleRequiresColumn(t *testing.T) {
	ds := loadMovies(t)
	titles, err := DistinctValues(ds, domain.ColumnTitle)
	require.NoError(t, err)
	assert.Len(t, titles, 4)

	noTitle, err := FromCSV("x.csv", strings.NewReader(",Major_Genre,Director,IMDB_Rating,Profit\n0,Action,A,7,1\n"), DefaultSchema())
	require.NoError(t, err)
	_, err = DistinctValues(noTitle, domain.ColumnTitle)
	assert.True(t, errors.Is(err, errors.ErrSchema))
}

func TestCounts(t *testing.T) {
	ds := loadMovies(t)

	counts, err := Counts(ds, domain.ColumnDirector)
	require.NoError(t, err)
	assert.Equal(t, []FacetCount{{"A", 2}, {"C", 1}, {"B", 1}}, counts)

	counts, err = Counts(nil, domain.ColumnGenre)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
