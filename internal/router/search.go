package router

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/engine"
	"github.com/bayardsearch/bayard/internal/rpc"
)

// SearchRequest is the router-level search request, reusing engine's
// collection-kind/sort vocabulary since this is an in-process Go API, not
// a wire message (the wire encoding lives in internal/rpc).
type SearchRequest struct {
	Query          string
	CollectionKind engine.CollectionKind
	Sort           *engine.Sort
	Fields         []string
	Offset         int
	Hits           int
}

// ResultDoc is one merged document: its id, relevance score, and the
// projected field values.
type ResultDoc struct {
	ID     string
	Score  float64
	Fields map[string]interface{}
}

// SearchResult is the router's merged outcome across every shard of the
// index.
type SearchResult struct {
	TotalHits int64
	Docs      []ResultDoc
}

// Search is the read-side scatter-gather: one task per shard, rotating
// through replicas on retry, merged by sort-order (or descending score)
// and windowed by offset/hits. Failure of any shard task (after its
// retries exhaust) fails the whole search — no partial results.
func (r *Router) Search(ctx context.Context, indexName string, req SearchRequest) (*SearchResult, error) {
	md, err := r.indexMetadata(indexName)
	if err != nil {
		return nil, err
	}
	shards := md.Shards().Iter()
	numReplicas := md.NumReplicas()

	subFields := req.Fields
	if req.Sort != nil && !containsField(subFields, req.Sort.Field) {
		subFields = append(append([]string{}, subFields...), req.Sort.Field)
	}
	subReqTemplate := rpc.SearchRequest{
		Query:          req.Query,
		CollectionKind: collectionKindToWire(req.CollectionKind),
		Sort:           sortToWire(req.Sort),
		Fields:         subFields,
		Offset:         0,
		Hits:           req.Offset + req.Hits,
	}

	responses := make([]*rpc.SearchResponse, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range shards {
		i, shardID := i, sh.ID()
		g.Go(func() error {
			subReq := subReqTemplate
			subReq.Index = indexName
			subReq.ShardID = shardID
			resp, err := r.searchShard(gctx, shardID, numReplicas, &subReq)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", bayarderr.ErrIndexSearch, err)
	}

	return mergeResults(responses, req), nil
}

// searchShard rotates through up to searchMaxTries candidate replicas for
// shardID, with a micros-scale jitter between attempts.
func (r *Router) searchShard(ctx context.Context, shardID string, numReplicas int, req *rpc.SearchRequest) (*rpc.SearchResponse, error) {
	var lastErr error
	for attempt := 0; attempt < searchMaxTries; attempt++ {
		client, ok := r.clients.Rotate([]byte(shardID), numReplicas)
		if !ok {
			return nil, fmt.Errorf("%w: no replicas available for shard %s", bayarderr.ErrMemberNotFound, shardID)
		}
		if attempt > 0 {
			r.metrics.IncRouterRetry("search")
		}
		resp, err := client.Search(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt < searchMaxTries-1 {
			if sleepErr := sleepJitter(ctx); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, lastErr
}

// mergeResults merges per-shard responses: sum total_hits (or report -1 when
// the request asked only for top docs), concatenate documents, sort by the
// requested field or by descending score, then slice the final window.
func mergeResults(responses []*rpc.SearchResponse, req SearchRequest) *SearchResult {
	out := &SearchResult{}
	if req.CollectionKind == engine.TopDocs {
		out.TotalHits = -1
	}

	var docs []ResultDoc
	for _, resp := range responses {
		if req.CollectionKind != engine.TopDocs {
			out.TotalHits += resp.TotalHits
		}
		for i, fields := range resp.Documents {
			var id string
			var score float64
			if i < len(resp.IDs) {
				id = resp.IDs[i]
			}
			if i < len(resp.Scores) {
				score = resp.Scores[i]
			}
			docs = append(docs, ResultDoc{ID: id, Score: score, Fields: fields})
		}
	}

	sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j], req.Sort) })

	offset := req.Offset
	if offset > len(docs) {
		offset = len(docs)
	}
	end := offset + req.Hits
	if end > len(docs) {
		end = len(docs)
	}
	if end < offset {
		end = offset
	}
	out.Docs = docs[offset:end]
	return out
}

// less orders a before b. Without a sort, descending score wins.
// With one, the named field's value is compared; a NaN on either side (or
// an incomparable pairing) falls back to treating the pair as equal,
// mirroring a partial_cmp that never panics.
func less(a, b ResultDoc, s *engine.Sort) bool {
	if s == nil {
		return a.Score > b.Score
	}
	cmp := compareValues(a.Fields[s.Field], b.Fields[s.Field])
	if s.Order == engine.Desc {
		return cmp > 0
	}
	return cmp < 0
}

// compareValues returns -1, 0, or 1. Mismatched or NaN operands return 0
// (Equal), never panicking.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok || math.IsNaN(av) || math.IsNaN(bv) {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func collectionKindToWire(k engine.CollectionKind) string {
	switch k {
	case engine.Count:
		return "count"
	case engine.TopDocs:
		return "top_docs"
	default:
		return "count_and_top_docs"
	}
}

func sortToWire(s *engine.Sort) *rpc.SortSpec {
	if s == nil {
		return nil
	}
	order := "asc"
	if s.Order == engine.Desc {
		order = "desc"
	}
	return &rpc.SortSpec{Field: s.Field, Order: order}
}
