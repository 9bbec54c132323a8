package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/directorstracker/tracker-server/internal/dataset"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/normalize"
	"github.com/directorstracker/tracker-server/internal/search"
)

func (s *Server) registerFacetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGenres",
		Method:      http.MethodGet,
		Path:        "/api/v1/facets/genres",
		Summary:     "List genres",
		Description: "Returns every genre in dataset order with its movie count",
		Tags:        []string{"Facets"},
	}, s.handleListGenres)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDirectors",
		Method:      http.MethodGet,
		Path:        "/api/v1/facets/directors",
		Summary:     "List directors",
		Description: "Returns every director in dataset order, optionally restricted to one genre",
		Tags:        []string{"Facets"},
	}, s.handleListDirectors)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchFacets",
		Method:      http.MethodGet,
		Path:        "/api/v1/facets/search",
		Summary:     "Search facets",
		Description: "Typeahead over genres and directors",
		Tags:        []string{"Facets"},
	}, s.handleSearchFacets)
}

// FacetItem is one facet value in API responses.
type FacetItem struct {
	Name   string `json:"name" doc:"Value as it appears in the dataset"`
	Slug   string `json:"slug" doc:"URL and DOM safe form of the name"`
	Movies int    `json:"movies" doc:"Number of movies carrying the value"`
}

// FacetListResponse is a facet list.
type FacetListResponse struct {
	Items []FacetItem `json:"items" doc:"Facet values in first-seen order"`
	Total int         `json:"total" doc:"Number of values"`
}

// FacetListOutput wraps a facet list for Huma.
type FacetListOutput struct {
	Body FacetListResponse
}

// ListDirectorsInput filters the director list.
type ListDirectorsInput struct {
	Genre string `query:"genre" maxLength:"200" doc:"Only directors with a movie in this genre"`
}

// SearchFacetsInput is the typeahead query.
type SearchFacetsInput struct {
	Q     string `query:"q" maxLength:"200" doc:"Text typed so far"`
	Kind  string `query:"kind" maxLength:"16" doc:"Restrict to genre or director"`
	Genre string `query:"genre" maxLength:"200" doc:"Only directors with a movie in this genre"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum hits"`
}

// SearchFacetsResponse contains typeahead hits.
type SearchFacetsResponse struct {
	Query string       `json:"query" doc:"Query as received"`
	Hits  []search.Hit `json:"hits" doc:"Matching facets, best first"`
}

// SearchFacetsOutput wraps search results for Huma.
type SearchFacetsOutput struct {
	Body SearchFacetsResponse
}

func (s *Server) handleListGenres(_ context.Context, _ *struct{}) (*FacetListOutput, error) {
	counts, err := dataset.Counts(s.Dataset, domain.ColumnGenre)
	if err != nil {
		return nil, err
	}
	return &FacetListOutput{Body: facetList(counts)}, nil
}

func (s *Server) handleListDirectors(_ context.Context, input *ListDirectorsInput) (*FacetListOutput, error) {
	ds := s.Dataset
	if input.Genre != "" {
		ds = &domain.Dataset{Source: ds.Source, Records: ds.InGenre(input.Genre)}
	}

	counts, err := dataset.Counts(ds, domain.ColumnDirector)
	if err != nil {
		return nil, err
	}
	return &FacetListOutput{Body: facetList(counts)}, nil
}

func (s *Server) handleSearchFacets(ctx context.Context, input *SearchFacetsInput) (*SearchFacetsOutput, error) {
	hits, err := s.Facets.Search(ctx, search.Query{
		Text:  input.Q,
		Kind:  search.Kind(input.Kind),
		Genre: input.Genre,
		Limit: input.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &SearchFacetsOutput{Body: SearchFacetsResponse{Query: input.Q, Hits: hits}}, nil
}

func facetList(counts []dataset.FacetCount) FacetListResponse {
	items := make([]FacetItem, len(counts))
	for i, c := range counts {
		items[i] = FacetItem{Name: c.Value, Slug: normalize.Slugify(c.Value), Movies: c.Movies}
	}
	return FacetListResponse{Items: items, Total: len(items)}
}

// distinct loads a facet list, failing on an unknown column.
func distinct(ds *domain.Dataset, col domain.Column) (domain.FacetList, error) {
	return dataset.DistinctValues(ds, col)
}
