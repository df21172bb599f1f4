package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for annotation documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on display names with English stemming
//  2. Full-text search over note text
//  3. Exact keyword matching for origin and label filters
//  4. Numeric timestamps for recency sorting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Name field is the primary search target
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	noteFieldMapping := bleve.NewTextFieldMapping()
	noteFieldMapping.Analyzer = en.AnalyzerName
	noteFieldMapping.Store = true
	noteFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("note", noteFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	originFieldMapping := bleve.NewTextFieldMapping()
	originFieldMapping.Analyzer = keyword.Name
	originFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("origin", originFieldMapping)

	// Keyword analyzer keeps compound label slugs intact (e.g., "follow-up")
	labelsFieldMapping := bleve.NewTextFieldMapping()
	labelsFieldMapping.Analyzer = keyword.Name
	labelsFieldMapping.Store = true
	labelsFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("labels", labelsFieldMapping)

	senderFieldMapping := bleve.NewTextFieldMapping()
	senderFieldMapping.Analyzer = keyword.Name
	senderFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("sender_id", senderFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
