// Package store provides document store implementations of the plugin.Store
// interface. Two drivers are available: a flat-JSON-file store (one file per
// collection, whole-file replace on write) and a SQLite-backed store.
//
// The original Boltin prototype performed the read-validate-write cycle with
// no locking, so two concurrent registrations could both pass validation
// against a stale read. Both drivers here serialize that cycle per collection;
// callers that need validation atomic with the write use Collection.Mutate.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/boltin-app/boltin/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Store      = (*JSONStore)(nil)
	_ plugin.Collection = (*jsonCollection)(nil)
)

// JSONStore implements plugin.Store with one flat JSON file per collection
// under a data directory. Writes replace the whole file atomically
// (temp file + rename).
type JSONStore struct {
	dir  string
	mu   sync.Mutex
	cols map[string]*jsonCollection
}

// NewJSON creates a JSONStore rooted at dir, creating the directory if needed.
func NewJSON(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %q: %w", dir, err)
	}
	return &JSONStore{
		dir:  dir,
		cols: make(map[string]*jsonCollection),
	}, nil
}

// Collection returns the handle for the named collection. Handles are cached
// so every caller shares the same lock.
func (s *JSONStore) Collection(name string) plugin.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cols[name]; ok {
		return c
	}
	c := &jsonCollection{path: filepath.Join(s.dir, name+".json")}
	s.cols[name] = c
	return c
}

// Close implements plugin.Store. The JSON driver holds no open resources.
func (s *JSONStore) Close() error {
	return nil
}

// jsonCollection is a single collection backed by one JSON array file.
// The RWMutex serializes the read-modify-write cycle across requests.
type jsonCollection struct {
	path string
	mu   sync.RWMutex
}

func (c *jsonCollection) ReadAll(_ context.Context) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readLocked()
}

func (c *jsonCollection) WriteAll(_ context.Context, docs [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(docs)
}

func (c *jsonCollection) Get(_ context.Context, id string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs, err := c.readLocked()
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if docID(doc) == id {
			return doc, nil
		}
	}
	return nil, nil
}

func (c *jsonCollection) Insert(_ context.Context, id string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.readLocked()
	if err != nil {
		return err
	}
	for _, d := range docs {
		if docID(d) == id {
			return fmt.Errorf("document %q already exists", id)
		}
	}
	return c.writeLocked(append(docs, doc))
}

func (c *jsonCollection) Update(_ context.Context, id string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.readLocked()
	if err != nil {
		return err
	}
	for i, d := range docs {
		if docID(d) == id {
			docs[i] = doc
			return c.writeLocked(docs)
		}
	}
	return fmt.Errorf("document %q not found", id)
}

func (c *jsonCollection) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.readLocked()
	if err != nil {
		return err
	}
	for i, d := range docs {
		if docID(d) == id {
			return c.writeLocked(append(docs[:i], docs[i+1:]...))
		}
	}
	return fmt.Errorf("document %q not found", id)
}

func (c *jsonCollection) Mutate(_ context.Context, fn func(docs [][]byte) ([][]byte, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.readLocked()
	if err != nil {
		return err
	}
	next, err := fn(docs)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return c.writeLocked(next)
}

// readLocked loads the collection file. A missing file is an empty collection.
func (c *jsonCollection) readLocked() ([][]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read collection %q: %w", c.path, err)
	}

	var raw []json.RawMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode collection %q: %w", c.path, err)
		}
	}

	docs := make([][]byte, len(raw))
	for i, r := range raw {
		docs[i] = []byte(r)
	}
	return docs, nil
}

// writeLocked replaces the collection file atomically via temp file + rename.
func (c *jsonCollection) writeLocked(docs [][]byte) error {
	raw := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		raw[i] = json.RawMessage(d)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection %q: %w", c.path, err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write collection %q: %w", c.path, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace collection %q: %w", c.path, err)
	}
	return nil
}

// docID extracts the "id" field from a raw document. Malformed documents
// yield an empty id and never match lookups.
func docID(doc []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(doc, &probe)
	return probe.ID
}
