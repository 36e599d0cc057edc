// Package storetest provides an in-memory plugin.Store fake for module tests.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/boltin-app/boltin/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Store      = (*Memory)(nil)
	_ plugin.Collection = (*memCollection)(nil)
)

// Memory is an in-memory document store with the same locking contract as the
// production drivers.
type Memory struct {
	mu   sync.Mutex
	cols map[string]*memCollection
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{cols: make(map[string]*memCollection)}
}

func (m *Memory) Collection(name string) plugin.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.cols[name]; ok {
		return c
	}
	c := &memCollection{}
	m.cols[name] = c
	return c
}

func (m *Memory) Close() error {
	return nil
}

// Seed marshals each value and inserts it into the named collection.
// Fails the calling test indirectly by panicking on marshal errors.
func (m *Memory) Seed(name string, values ...any) {
	col := m.Collection(name)
	for _, v := range values {
		doc, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("storetest: seed %s: %v", name, err))
		}
		var probe struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(doc, &probe)
		if err := col.Insert(context.Background(), probe.ID, doc); err != nil {
			panic(fmt.Sprintf("storetest: seed %s: %v", name, err))
		}
	}
}

type memCollection struct {
	mu   sync.RWMutex
	docs [][]byte
}

func (c *memCollection) ReadAll(_ context.Context) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([][]byte, len(c.docs))
	copy(out, c.docs)
	return out, nil
}

func (c *memCollection) WriteAll(_ context.Context, docs [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append([][]byte(nil), docs...)
	return nil
}

func (c *memCollection) Get(_ context.Context, id string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if docID(d) == id {
			return d, nil
		}
	}
	return nil, nil
}

func (c *memCollection) Insert(_ context.Context, id string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if docID(d) == id {
			return fmt.Errorf("document %q already exists", id)
		}
	}
	c.docs = append(c.docs, doc)
	return nil
}

func (c *memCollection) Update(_ context.Context, id string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if docID(d) == id {
			c.docs[i] = doc
			return nil
		}
	}
	return fmt.Errorf("document %q not found", id)
}

func (c *memCollection) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if docID(d) == id {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %q not found", id)
}

func (c *memCollection) Mutate(_ context.Context, fn func(docs [][]byte) ([][]byte, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([][]byte, len(c.docs))
	copy(snapshot, c.docs)

	next, err := fn(snapshot)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	c.docs = append([][]byte(nil), next...)
	return nil
}

func docID(doc []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(doc, &probe)
	return probe.ID
}
