package dataset

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// DistinctValues returns the distinct values of a text column in first-seen order.
// Only genre, director and title can be faceted; anything else is a SCHEMA error.
func DistinctValues(ds *domain.Dataset, col domain.Column) (domain.FacetList, error) {
	var get func(domain.MovieRecord) string
	switch col {
	case domain.ColumnGenre:
		get = func(r domain.MovieRecord) string { return r.Genre }
	case domain.ColumnDirector:
		get = func(r domain.MovieRecord) string { return r.Director }
	case domain.ColumnTitle:
		if ds != nil && !ds.HasTitle {
			return nil, errors.Schemaf("dataset %s has no title column", ds.Source)
		}
		get = func(r domain.MovieRecord) string { return r.Title }
	default:
		return nil, errors.Schemaf("unknown facet column %q", col)
	}

	if ds == nil {
		return domain.FacetList{}, nil
	}

	seen := make(map[string]struct{})
	out := domain.FacetList{}
	for _, r := range ds.Records {
		v := get(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Genres is DistinctValues for the genre column.
func Genres(ds *domain.Dataset) domain.FacetList {
	f, _ := DistinctValues(ds, domain.ColumnGenre)
	return f
}

// Directors is DistinctValues for the director column.
func Directors(ds *domain.Dataset) domain.FacetList {
	f, _ := DistinctValues(ds, domain.ColumnDirector)
	return f
}

// FacetCount is a facet value with the number of movies carrying it.
type FacetCount struct {
	Value  string
	Movies int
}

// Counts returns every distinct value of col with its movie count, in first-seen order.
func Counts(ds *domain.Dataset, col domain.Column) ([]FacetCount, error) {
	values, err := DistinctValues(ds, col)
	if err != nil || ds == nil {
		return nil, err
	}

	index := make(map[string]int, len(values))
	out := make([]FacetCount, len(values))
	for i, v := range values {
		index[v] = i
		out[i].Value = v
	}

	for _, r := range ds.Records {
		var v string
		switch col {
		case domain.ColumnGenre:
			v = r.Genre
		case domain.ColumnDirector:
			v = r.Director
		default:
			v = r.Title
		}
		if i, ok := index[v]; ok {
			out[i].Movies++
		}
	}
	return out, nil
}

// fingerprint hashes the parsed records so equal content gives equal cache keys
// regardless of the file it came from.
func fingerprint(records []domain.MovieRecord) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 128)
	for _, r := range records {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(r.Index), 10)
		buf = append(buf, 0)
		buf = append(buf, r.Title...)
		buf = append(buf, 0)
		buf = append(buf, r.Genre...)
		buf = append(buf, 0)
		buf = append(buf, r.Director...)
		buf = append(buf, 0)
		buf = strconv.AppendUint(buf, math.Float64bits(r.Rating), 16)
		buf = append(buf, 0)
		buf = strconv.AppendUint(buf, math.Float64bits(r.Profit), 16)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(r.Year), 10)
		buf = append(buf, '\n')
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}
