package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for facet documents.
//
// Names use the simple analyzer: people and genre labels should not be stemmed,
// but "Spielberg" must still match "spielberg". Everything used for filtering
// or ordering is a keyword.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	for _, field := range []string{"kind", "slug", "sort_name", "genres"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, fm)
	}

	moviesFieldMapping := bleve.NewNumericFieldMapping()
	moviesFieldMapping.Store = true
	moviesFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("movies", moviesFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
