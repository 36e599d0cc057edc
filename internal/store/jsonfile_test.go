package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *JSONStore {
	t.Helper()
	s, err := NewJSON(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSON() error = %v", err)
	}
	return s
}

func doc(id, payload string) []byte {
	return fmt.Appendf(nil, `{"id":%q,"payload":%q}`, id, payload)
}

func TestReadAllEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	docs, err := s.Collection("devices").ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty collection, got %d docs", len(docs))
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	if err := col.Insert(ctx, "d1", doc("d1", "one")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := col.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for existing document")
	}

	missing, err := col.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get(missing) error = %v", err)
	}
	if missing != nil {
		t.Error("Get(missing) should return nil")
	}
}

func TestInsertDuplicateID(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	if err := col.Insert(ctx, "d1", doc("d1", "one")); err != nil {
		t.Fatal(err)
	}
	if err := col.Insert(ctx, "d1", doc("d1", "two")); err == nil {
		t.Fatal("expected error inserting duplicate id")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	if err := col.Insert(ctx, "d1", doc("d1", "one")); err != nil {
		t.Fatal(err)
	}
	if err := col.Update(ctx, "d1", doc("d1", "changed")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := col.Get(ctx, "d1")
	var v struct {
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatal(err)
	}
	if v.Payload != "changed" {
		t.Errorf("payload = %q, want %q", v.Payload, "changed")
	}

	if err := col.Delete(ctx, "d1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := col.Delete(ctx, "d1"); err == nil {
		t.Error("expected error deleting missing document")
	}
	if err := col.Update(ctx, "d1", doc("d1", "gone")); err == nil {
		t.Error("expected error updating missing document")
	}
}

func TestMutateAtomicReadValidateWrite(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	if err := col.Insert(ctx, "d1", doc("d1", "one")); err != nil {
		t.Fatal(err)
	}

	// Appends only when not already present -- the duplicate-check shape.
	err := col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		for _, d := range docs {
			if docID(d) == "d2" {
				return nil, fmt.Errorf("conflict")
			}
		}
		return append(docs, doc("d2", "two")), nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	docs, _ := col.ReadAll(ctx)
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
}

func TestMutateNilLeavesCollectionUntouched(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	if err := col.Insert(ctx, "d1", doc("d1", "one")); err != nil {
		t.Fatal(err)
	}
	err := col.Mutate(ctx, func(_ [][]byte) ([][]byte, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	docs, _ := col.ReadAll(ctx)
	if len(docs) != 1 {
		t.Errorf("got %d docs, want 1", len(docs))
	}
}

func TestMutateErrorAbortsWrite(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	err := col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		return append(docs, doc("d1", "one")), fmt.Errorf("validation failed")
	})
	if err == nil {
		t.Fatal("expected error from Mutate")
	}

	docs, _ := col.ReadAll(ctx)
	if len(docs) != 0 {
		t.Errorf("failed Mutate must not write, got %d docs", len(docs))
	}
}

func TestConcurrentMutateSerialized(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("devices")
	ctx := context.Background()

	// Each goroutine inserts a unique doc only if absent. With serialized
	// Mutate every insert lands exactly once.
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("d%d", i)
			_ = col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
				for _, d := range docs {
					if docID(d) == id {
						return nil, fmt.Errorf("conflict")
					}
				}
				return append(docs, doc(id, "x")), nil
			})
		}()
	}
	wg.Wait()

	docs, err := col.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 20 {
		t.Errorf("got %d docs, want 20", len(docs))
	}
}

func TestCollectionHandleIsShared(t *testing.T) {
	s := newTestStore(t)
	a := s.Collection("devices")
	b := s.Collection("devices")
	if a != b {
		t.Error("Collection() must return the same handle for the same name")
	}
}

func TestWriteAllReplacesFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSON(dir)
	if err != nil {
		t.Fatal(err)
	}
	col := s.Collection("reports")
	ctx := context.Background()

	if err := col.WriteAll(ctx, [][]byte{doc("r1", "a"), doc("r2", "b")}); err != nil {
		t.Fatal(err)
	}
	if err := col.WriteAll(ctx, [][]byte{doc("r3", "c")}); err != nil {
		t.Fatal(err)
	}

	docs, _ := col.ReadAll(ctx)
	if len(docs) != 1 || docID(docs[0]) != "r3" {
		t.Errorf("WriteAll did not replace contents: %d docs", len(docs))
	}

	if _, err := os.Stat(filepath.Join(dir, "reports.json")); err != nil {
		t.Errorf("collection file missing: %v", err)
	}
}
