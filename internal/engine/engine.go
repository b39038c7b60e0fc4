package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/metrics"
)

// Engine is the shard-local read/write handle: one bleve.Index plus an
// in-flight batch accumulating puts and deletes between commits. Writer
// state is either Open (this Engine exists and accepts mutations) or
// Absent (no Engine for this shard) — Absent is represented simply by the
// node reconciler not holding an *Engine for that (index, shard) key.
type Engine struct {
	mu     sync.Mutex
	index  bleve.Index
	batch  *bleve.Batch
	logger *zap.Logger

	metrics            metrics.Sink
	indexName, shardID string
}

// SetMetrics attaches a metrics sink and the (index, shard) labels Commit
// and Rollback report under. Called by the reconciler right after opening
// or creating the engine; a freshly constructed Engine reports to
// metrics.Noop{} until this is called.
func (e *Engine) SetMetrics(sink metrics.Sink, indexName, shardID string) {
	if sink == nil {
		sink = metrics.Noop{}
	}
	e.metrics, e.indexName, e.shardID = sink, indexName, shardID
}

// Create opens a brand-new shard index at dir under the given schema and
// analyzers, failing IndexCreate on any underlying error. dir must not
// already contain an index.
func Create(dir string, schema metadata.Schema, analyzers map[string]metadata.AnalyzerPipeline, logger *zap.Logger) (*Engine, error) {
	im, err := buildIndexMapping(schema, analyzers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bayarderr.ErrIndexCreate, err)
	}
	idx, err := bleve.New(dir, im)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bayarderr.ErrIndexCreate, err)
	}
	return newEngine(idx, logger), nil
}

// Open opens an existing shard index at dir, failing IndexOpen on any
// underlying error, including dir not existing.
func Open(dir string, logger *zap.Logger) (*Engine, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %v", bayarderr.ErrIndexOpen, err)
	}
	idx, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bayarderr.ErrIndexOpen, err)
	}
	return newEngine(idx, logger), nil
}

func newEngine(idx bleve.Index, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{index: idx, batch: idx.NewBatch(), logger: logger, metrics: metrics.Noop{}}
}

// Close releases the underlying index handle. It does not delete the
// on-disk shard directory; that is the reconciler's responsibility once
// no metadata entry references the shard.
func (e *Engine) Close() error {
	return e.index.Close()
}

// rawDoc is the wire shape of one incoming document in a put_docs batch:
// {"id": "...", "fields": {...}}.
type rawDoc struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

// PutDocs implements put_docs: for each JSON doc, extract id
// (documents without one are skipped and logged), parse the remaining
// fields under the schema, and queue delete_term(_id=id) followed by
// add_document({..., _id, _timestamp}) into the in-flight batch so that,
// once committed, the shard contains exactly one document per id — a
// last-writer-wins upsert.
func (e *Engine) PutDocs(schema metadata.Schema, docs [][]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	for _, raw := range docs {
		var rd rawDoc
		if err := json.Unmarshal(raw, &rd); err != nil || rd.ID == "" {
			e.logger.Warn("dropping document without id", zap.Error(err))
			continue
		}

		fields := map[string]interface{}{}
		if len(rd.Fields) > 0 {
			if err := json.Unmarshal(rd.Fields, &fields); err != nil {
				e.logger.Warn("dropping document with unparsable fields", zap.String("id", rd.ID), zap.Error(err))
				continue
			}
		}
		for name := range fields {
			if metadata.IsReserved(name) {
				delete(fields, name)
			}
		}
		fields[metadata.ReservedID] = rd.ID
		fields[metadata.ReservedTimestamp] = now

		e.batch.Delete(rd.ID)
		if err := e.batch.Index(rd.ID, fields); err != nil {
			e.logger.Warn("batch index failed", zap.String("id", rd.ID), zap.Error(err))
		}
	}
}

// DeleteDocs implements delete_docs: delete_term(_id=id) for each id,
// queued into the in-flight batch.
func (e *Engine) DeleteDocs(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		e.batch.Delete(id)
	}
}

// Commit applies the in-flight batch to the index and starts a fresh one.
// After Commit, subsequent searchers reflect the new documents.
func (e *Engine) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.Batch(e.batch); err != nil {
		return fmt.Errorf("%w: %v", bayarderr.ErrIndexCommit, err)
	}
	e.batch = e.index.NewBatch()
	e.metrics.IncCommit(e.indexName, e.shardID)
	return nil
}

// Rollback discards the in-flight batch without applying it; subsequent
// searchers do not reflect its contents.
func (e *Engine) Rollback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batch = e.index.NewBatch()
	e.metrics.IncRollback(e.indexName, e.shardID)
}
