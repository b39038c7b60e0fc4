package metadata

import (
	"encoding/json"
	"sync"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/shard"
)

// Metadata is the per-index bundle: schema, analyzers, opaque
// index_settings, writer tuning, replica/shard counts, and the shard
// catalog. See doc.go for the locking discipline.
type Metadata struct {
	mu sync.RWMutex

	schema        Schema
	analyzers     map[string]AnalyzerPipeline
	indexSettings json.RawMessage
	writerThreads int
	writerMemSize int
	numReplicas   int
	catalog       *shard.Catalog
}

// New creates a Metadata with numShards freshly generated shards. Fails
// InvalidArgument if writerThreads, writerMemSize, numReplicas, or
// numShards is less than 1.
func New(fields []Field, analyzers map[string]AnalyzerPipeline, indexSettings json.RawMessage, writerThreads, writerMemSize, numReplicas, numShards int) (*Metadata, error) {
	if err := validatePositive(writerThreads, writerMemSize, numReplicas, numShards); err != nil {
		return nil, err
	}
	catalog := shard.NewCatalog()
	for i := 0; i < numShards; i++ {
		id, err := shard.NewID()
		if err != nil {
			return nil, err
		}
		catalog.Push(shard.New(id))
	}
	return newMetadata(fields, analyzers, indexSettings, writerThreads, writerMemSize, numReplicas, catalog), nil
}

// NewWithShards creates a Metadata from an explicit shard list;
// num_shards is always len(shards).
func NewWithShards(fields []Field, analyzers map[string]AnalyzerPipeline, indexSettings json.RawMessage, writerThreads, writerMemSize, numReplicas int, shards []shard.Shard) (*Metadata, error) {
	if err := validatePositive(writerThreads, writerMemSize, numReplicas, len(shards)); err != nil {
		return nil, err
	}
	catalog := shard.NewCatalog(shards...)
	return newMetadata(fields, analyzers, indexSettings, writerThreads, writerMemSize, numReplicas, catalog), nil
}

func newMetadata(fields []Field, analyzers map[string]AnalyzerPipeline, indexSettings json.RawMessage, writerThreads, writerMemSize, numReplicas int, catalog *shard.Catalog) *Metadata {
	if analyzers == nil {
		analyzers = map[string]AnalyzerPipeline{}
	}
	return &Metadata{
		schema:        Schema{Fields: withReserved(fields)},
		analyzers:     analyzers,
		indexSettings: indexSettings,
		writerThreads: writerThreads,
		writerMemSize: writerMemSize,
		numReplicas:   numReplicas,
		catalog:       catalog,
	}
}

func validatePositive(writerThreads, writerMemSize, numReplicas, numShards int) error {
	if writerThreads < 1 || writerMemSize < 1 || numReplicas < 1 || numShards < 1 {
		return bayarderr.ErrInvalidArgument
	}
	return nil
}

// Schema returns the current schema, reserved fields included.
func (m *Metadata) Schema() Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schema
}

// Analyzers returns a copy of the analyzer pipeline map.
func (m *Metadata) Analyzers() map[string]AnalyzerPipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]AnalyzerPipeline, len(m.analyzers))
	for k, v := range m.analyzers {
		out[k] = v
	}
	return out
}

// IndexSettings returns the opaque index settings handed to the shard
// engine.
func (m *Metadata) IndexSettings() json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexSettings
}

// WriterThreads returns the configured writer thread count.
func (m *Metadata) WriterThreads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writerThreads
}

// WriterMemSize returns the configured writer memory limit in bytes.
func (m *Metadata) WriterMemSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writerMemSize
}

// NumReplicas returns the configured replica count.
func (m *Metadata) NumReplicas() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.numReplicas
}

// NumShards returns the current shard count.
func (m *Metadata) NumShards() int {
	return m.Shards().Len()
}

// Shards returns the shard catalog. The catalog has its own internal
// locking; callers must not assume its state is frozen relative to other
// Metadata fields.
func (m *Metadata) Shards() *shard.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// SetWriterThreads updates writer_threads. Fails InvalidArgument if n < 1.
func (m *Metadata) SetWriterThreads(n int) error {
	if n < 1 {
		return bayarderr.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writerThreads = n
	return nil
}

// SetWriterMemSize updates writer_mem_size. Fails InvalidArgument if n < 1.
func (m *Metadata) SetWriterMemSize(n int) error {
	if n < 1 {
		return bayarderr.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writerMemSize = n
	return nil
}

// SetNumReplicas updates num_replicas. Fails InvalidArgument if n < 1.
func (m *Metadata) SetNumReplicas(n int) error {
	if n < 1 {
		return bayarderr.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.numReplicas = n
	return nil
}

// SetNumShards grows or shrinks the shard set to exactly k shards by
// appending freshly-generated shards or popping tail shards, never
// renumbering existing ones. A no-op if k equals the current count.
// Fails InvalidArgument if k < 1.
func (m *Metadata) SetNumShards(k int) error {
	if k < 1 {
		return bayarderr.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.catalog.Len()
	switch {
	case k == current:
		return nil
	case k < current:
		for i := 0; i < current-k; i++ {
			m.catalog.Pop()
		}
	default:
		for i := 0; i < k-current; i++ {
			id, err := shard.NewID()
			if err != nil {
				return err
			}
			m.catalog.Push(shard.New(id))
		}
	}
	return nil
}

// SetShards replaces the shard set wholesale and sets num_shards to
// len(shards).
func (m *Metadata) SetShards(shards []shard.Shard) error {
	if len(shards) < 1 {
		return bayarderr.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = shard.NewCatalog(shards...)
	return nil
}

// shardJSON is the on-disk form of one shard entry.
type shardJSON struct {
	ID      string      `json:"id"`
	State   shard.State `json:"state"`
	Version uint64      `json:"version"`
}

// metadataJSON is the on-disk meta.json form: {schema, analyzers,
// index_settings, writer_threads, writer_mem_size, num_replicas,
// num_shards, shards}.
type metadataJSON struct {
	Schema        []Field                     `json:"schema"`
	Analyzers     map[string]AnalyzerPipeline `json:"analyzers"`
	IndexSettings json.RawMessage             `json:"index_settings,omitempty"`
	WriterThreads int                         `json:"writer_threads"`
	WriterMemSize int                         `json:"writer_mem_size"`
	NumReplicas   int                         `json:"num_replicas"`
	NumShards     int                         `json:"num_shards"`
	Shards        []shardJSON                 `json:"shards,omitempty"`
}

// MarshalJSON emits the reserved fields stripped from schema.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shards := m.catalog.Iter()
	out := metadataJSON{
		Schema:        stripReserved(m.schema.Fields),
		Analyzers:     m.analyzers,
		IndexSettings: m.indexSettings,
		WriterThreads: m.writerThreads,
		WriterMemSize: m.writerMemSize,
		NumReplicas:   m.numReplicas,
		NumShards:     len(shards),
	}
	for _, s := range shards {
		out.Shards = append(out.Shards, shardJSON{ID: s.ID(), State: s.State(), Version: s.Version()})
	}
	return json.Marshal(out)
}

// defaults applied when a field is absent from the JSON form, so a
// minimal hand-written meta.json still loads.
const (
	defaultWriterThreads = 1
	defaultWriterMemSize = 256 << 20 // 256 MiB
	defaultNumReplicas   = 1
	defaultNumShards     = 1
)

// UnmarshalJSON accepts meta.json in any of the three documented forms: an
// explicit "shards" array (which re-aligns num_shards to its length via
// NewWithShards's constructor path), a bare "num_shards" with no "shards"
// (fresh shards generated), or all-default when both are absent.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var in metadataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return bayarderr.ErrDeserialization
	}

	writerThreads := in.WriterThreads
	if writerThreads == 0 {
		writerThreads = defaultWriterThreads
	}
	writerMemSize := in.WriterMemSize
	if writerMemSize == 0 {
		writerMemSize = defaultWriterMemSize
	}
	numReplicas := in.NumReplicas
	if numReplicas == 0 {
		numReplicas = defaultNumReplicas
	}

	var built *Metadata
	var err error
	if len(in.Shards) > 0 {
		shards := make([]shard.Shard, len(in.Shards))
		for i, sj := range in.Shards {
			shards[i] = shard.FromParts(sj.ID, sj.State, sj.Version)
		}
		built, err = NewWithShards(in.Schema, in.Analyzers, in.IndexSettings, writerThreads, writerMemSize, numReplicas, shards)
	} else {
		numShards := in.NumShards
		if numShards == 0 {
			numShards = defaultNumShards
		}
		built, err = New(in.Schema, in.Analyzers, in.IndexSettings, writerThreads, writerMemSize, numReplicas, numShards)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.schema = built.schema
	m.analyzers = built.analyzers
	m.indexSettings = built.indexSettings
	m.writerThreads = built.writerThreads
	m.writerMemSize = built.writerMemSize
	m.numReplicas = built.numReplicas
	m.catalog = built.catalog
	return nil
}
