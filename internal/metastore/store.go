package metastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/bayardsearch/bayard/internal/metadata"
)

// debounceWindow coalesces bursts of filesystem events (a single
// meta.json write often fires both a Write and a Chmod event) into one
// rescan.
const debounceWindow = 100 * time.Millisecond

// Metastore is the index_name → Metadata map, kept live by a recursive
// filesystem watch over indicesDir.
type Metastore struct {
	indicesDir string
	logger     *zap.Logger

	mu      sync.RWMutex
	indices map[string]*metadata.Metadata

	watcher *fsnotify.Watcher

	subMu sync.Mutex
	subs  []chan map[string]*metadata.Metadata
}

// Open scans indicesDir for index subdirectories, loads each meta.json,
// and starts the recursive filesystem watch. Call Run in a goroutine to
// begin processing watch events.
func Open(indicesDir string, logger *zap.Logger) (*Metastore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(indicesDir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &Metastore{
		indicesDir: indicesDir,
		logger:     logger.With(zap.String("component", "metastore")),
		indices:    make(map[string]*metadata.Metadata),
		watcher:    watcher,
	}

	if err := m.scan(); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := m.watchRecursive(); err != nil {
		watcher.Close()
		return nil, err
	}
	return m, nil
}

// scan performs the startup load: every immediate subdirectory of
// indicesDir is an index name; its meta.json is loaded if present.
func (m *Metastore) scan() error {
	entries, err := os.ReadDir(m.indicesDir)
	if err != nil {
		return err
	}

	loaded := make(map[string]*metadata.Metadata, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		md, err := m.load(name)
		if err != nil {
			m.logger.Warn("skipping index with unreadable metadata", zap.String("index", name), zap.Error(err))
			continue
		}
		loaded[name] = md
	}

	m.mu.Lock()
	m.indices = loaded
	m.mu.Unlock()
	return nil
}

func (m *Metastore) load(indexName string) (*metadata.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(m.indicesDir, indexName, "meta.json"))
	if err != nil {
		return nil, err
	}
	md := &metadata.Metadata{}
	if err := md.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return md, nil
}

// watchRecursive registers fsnotify watches on indicesDir and each of its
// existing immediate subdirectories (one per index; deeper directories are
// not watched); fsnotify is not natively recursive, so Run must
// also watch newly created subdirectories as they appear.
func (m *Metastore) watchRecursive() error {
	if err := m.watcher.Add(m.indicesDir); err != nil {
		return err
	}
	entries, err := os.ReadDir(m.indicesDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			_ = m.watcher.Add(filepath.Join(m.indicesDir, entry.Name()))
		}
	}
	return nil
}

// Run processes filesystem events until ctx is cancelled. It must be
// called exactly once, typically from its own goroutine.
func (m *Metastore) Run(ctx context.Context) {
	dirty := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	markDirty := func(name string) {
		dirty[name] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounceWindow)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounceWindow)
	}

	flush := func() {
		for name := range dirty {
			m.reload(name)
		}
		dirty = make(map[string]struct{})
		m.publish()
	}

	for {
		select {
		case <-ctx.Done():
			m.watcher.Close()
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			name, isMeta := m.indexNameForEvent(ev.Name)
			if !isMeta {
				// A newly created index subdirectory: start watching it,
				// and reload its index — meta.json may have landed in it
				// before the watch existed.
				if ev.Op&fsnotify.Create != 0 && filepath.Dir(filepath.Clean(ev.Name)) == filepath.Clean(m.indicesDir) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = m.watcher.Add(ev.Name)
						if name != "" {
							markDirty(name)
						}
					}
				}
				continue
			}
			markDirty(name)

		case <-timerC:
			flush()
			timer = nil
			timerC = nil

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("filesystem watch error", zap.Error(err))
		}
	}
}

// indexNameForEvent extracts the index name from an event path, tolerant
// of trailing slashes and arbitrary suffixes under the index directory.
// isMeta reports whether the event concerns a meta.json at the index root
// specifically.
func (m *Metastore) indexNameForEvent(path string) (name string, isMeta bool) {
	rel, err := filepath.Rel(m.indicesDir, path)
	if err != nil {
		return "", false
	}
	rel = strings.TrimRight(filepath.ToSlash(rel), "/")
	parts := strings.Split(rel, "/")
	if len(parts) == 0 || parts[0] == "" || parts[0] == "." {
		return "", false
	}
	name = parts[0]
	isMeta = len(parts) == 2 && parts[1] == "meta.json"
	return name, isMeta
}

func (m *Metastore) reload(indexName string) {
	path := filepath.Join(m.indicesDir, indexName, "meta.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		m.mu.Lock()
		delete(m.indices, indexName)
		m.mu.Unlock()
		return
	}

	md, err := m.load(indexName)
	if err != nil {
		m.logger.Warn("skipping index with unreadable metadata", zap.String("index", indexName), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.indices[indexName] = md
	m.mu.Unlock()
}

// Snapshot returns the current index_name → Metadata map.
func (m *Metastore) Snapshot() map[string]*metadata.Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*metadata.Metadata, len(m.indices))
	for k, v := range m.indices {
		out[k] = v
	}
	return out
}

// Watch returns a lazy hot stream of snapshots, seeded with the current
// one, one per batch of changes.
func (m *Metastore) Watch() <-chan map[string]*metadata.Metadata {
	ch := make(chan map[string]*metadata.Metadata, 1)
	ch <- m.Snapshot()
	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Metastore) publish() {
	snap := m.Snapshot()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
