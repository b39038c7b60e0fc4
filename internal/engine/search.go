package engine

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/metadata"
)

// CollectionKind selects which collectors a search runs.
type CollectionKind int

const (
	// CountAndTopDocs runs both a count collector and a top-N collector.
	CountAndTopDocs CollectionKind = iota
	// Count runs only the count collector; TotalHits is the only
	// meaningful field of the result.
	Count
	// TopDocs runs only the top-N collector; TotalHits is reported as -1.
	TopDocs
)

// Order is a sort direction.
type Order int

const (
	Asc Order = iota
	Desc
)

// Sort requests ordering by a single fast field; without a Sort, results
// are ordered by descending score.
type Sort struct {
	Field string
	Order Order
}

// SearchRequest is one shard-local search.
type SearchRequest struct {
	Query          string
	CollectionKind CollectionKind
	Sort           *Sort
	Fields         []string
	Offset         int
	Hits           int
}

// SearchResult is (total_hits, documents): total_hits is -1 when Count is
// not collected. IDs and Scores are index-aligned with Documents, carried
// alongside the field projection rather than inside it since a reserved
// field (_id) is never projected and score is not a schema field at all;
// the router's merge stage needs both to sort-merge across shards.
type SearchResult struct {
	TotalHits int64
	Documents []map[string]interface{}
	IDs       []string
	Scores    []float64
}

// Search runs one shard-local query. If req.Sort is set, the named field
// must be a fast field in schema or this fails IndexSearch. Only
// fields listed in req.Fields are projected into each returned document;
// the reserved fields are excluded from the projection even if requested.
func (e *Engine) Search(schema metadata.Schema, req SearchRequest) (SearchResult, error) {
	if req.Sort != nil {
		f, ok := schema.FieldByName(req.Sort.Field)
		if !ok || !f.Fast {
			return SearchResult{}, fmt.Errorf("%w: sort field %q is not a fast field", bayarderr.ErrIndexSearch, req.Sort.Field)
		}
	}

	// A bare "*" means match-all. bleve's query-string syntax has no
	// match-all token (the analyzer reduces "*" to zero tokens, matching
	// nothing), so it is dispatched to the dedicated query type instead.
	var searchQuery query.Query
	if req.Query == "*" {
		searchQuery = bleve.NewMatchAllQuery()
	} else {
		searchQuery = bleve.NewQueryStringQuery(req.Query)
	}
	size := req.Hits
	explain := false
	bq := bleve.NewSearchRequestOptions(searchQuery, size, req.Offset, explain)
	bq.Fields = projectionFields(req.Fields)

	switch req.CollectionKind {
	case Count:
		bq.Size = 0
	case TopDocs:
		// bleve always tallies total hits as a side effect; TopDocs simply
		// means the caller reports -1 instead of surfacing it (below).
	}

	if req.Sort != nil {
		field := req.Sort.Field
		if req.Sort.Order == Desc {
			field = "-" + field
		}
		bq.SortBy([]string{field})
	}

	res, err := e.index.Search(bq)
	if err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", bayarderr.ErrIndexSearch, err)
	}

	out := SearchResult{TotalHits: int64(res.Total)}
	if req.CollectionKind == TopDocs {
		out.TotalHits = -1
	}

	for _, hit := range res.Hits {
		doc := map[string]interface{}{}
		for name, val := range hit.Fields {
			if metadata.IsReserved(name) {
				continue
			}
			doc[name] = val
		}
		// hit.ID is the bleve document id, which PutDocs always sets equal
		// to the document's _id, independent of field projection.
		out.Documents = append(out.Documents, doc)
		out.IDs = append(out.IDs, hit.ID)
		out.Scores = append(out.Scores, hit.Score)
	}
	return out, nil
}

// projectionFields strips reserved field names from the requested
// projection, since they are never returned even when explicitly asked
// for.
func projectionFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !metadata.IsReserved(f) {
			out = append(out, f)
		}
	}
	return out
}
