package engine

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/bayardsearch/bayard/internal/metadata"
)

// buildIndexMapping translates a metadata.Schema and its named analyzer
// pipelines into a bleve index mapping: one custom analyzer per pipeline
// entry (tokenizer plus ordered token filters, registered under the
// pipeline's name), and one field mapping per schema field.
func buildIndexMapping(schema metadata.Schema, analyzers map[string]metadata.AnalyzerPipeline) (*mapping.IndexMappingImpl, error) {
	im := mapping.NewIndexMapping()

	for name, pipeline := range analyzers {
		cfg := map[string]interface{}{
			"type":      custom.Name,
			"tokenizer": pipeline.Tokenizer,
		}
		if len(pipeline.TokenFilters) > 0 {
			filters := make([]interface{}, len(pipeline.TokenFilters))
			for i, f := range pipeline.TokenFilters {
				filters[i] = f
			}
			cfg["token_filters"] = filters
		}
		if err := im.AddCustomAnalyzer(name, cfg); err != nil {
			return nil, err
		}
	}

	doc := mapping.NewDocumentMapping()
	for _, f := range schema.Fields {
		doc.AddFieldMappingsAt(f.Name, fieldMapping(f, analyzers))
	}
	im.DefaultMapping = doc
	return im, nil
}

// fieldMapping translates one schema field into a bleve field mapping.
// A text field whose tokenizer is "raw" (the reserved _id field) uses
// bleve's "keyword" analyzer; any other tokenizer name is used only if it
// is one of the index's registered analyzers. Text fields with no
// tokenizer, or with a name that is not registered, keep bleve's default
// analyzer; numeric/date fields get no analyzer.
func fieldMapping(f metadata.Field, analyzers map[string]metadata.AnalyzerPipeline) *mapping.FieldMapping {
	switch f.Type {
	case metadata.FieldText:
		fm := mapping.NewTextFieldMapping()
		fm.Store = f.Stored
		fm.Index = f.Indexed
		switch {
		case f.Tokenizer == "raw":
			fm.Analyzer = keyword.Name
		case f.Tokenizer != "":
			if _, ok := analyzers[f.Tokenizer]; ok {
				fm.Analyzer = f.Tokenizer
			}
		}
		return fm

	case metadata.FieldI64, metadata.FieldU64, metadata.FieldF64:
		fm := mapping.NewNumericFieldMapping()
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm

	case metadata.FieldDate:
		fm := mapping.NewDateTimeFieldMapping()
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm

	default:
		fm := mapping.NewTextFieldMapping()
		fm.Store = f.Stored
		fm.Index = f.Indexed
		return fm
	}
}
