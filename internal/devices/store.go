package devices

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boltin-app/boltin/internal/identity"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
)

// Store provides typed access to the devices collection.
type Store struct {
	col plugin.Collection
}

// NewStore creates a Store wrapping the given collection.
func NewStore(col plugin.Collection) *Store {
	return &Store{col: col}
}

func decodeDevices(docs [][]byte) ([]models.Device, error) {
	out := make([]models.Device, 0, len(docs))
	for _, doc := range docs {
		var d models.Device
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("decode device: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// List returns all registered devices.
func (s *Store) List(ctx context.Context) ([]models.Device, error) {
	docs, err := s.col.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return decodeDevices(docs)
}

// Get returns the device with the given id, or nil if absent.
func (s *Store) Get(ctx context.Context, id string) (*models.Device, error) {
	doc, err := s.col.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var d models.Device
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	return &d, nil
}

// Save replaces an existing device record.
func (s *Store) Save(ctx context.Context, d models.Device) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode device: %w", err)
	}
	if err := s.col.Update(ctx, d.ID, doc); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

// Delete removes the device with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.col.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// CreateUnique inserts the device unless one of its identifiers collides with
// an existing record. The duplicate check and the insert run inside the
// collection's Mutate scope, so two concurrent registrations of the same
// serial cannot both pass the check.
//
// Returns the conflict (and no error) when a collision blocks the insert.
func (s *Store) CreateUnique(ctx context.Context, d models.Device) (*identity.Conflict, error) {
	var conflict *identity.Conflict

	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeDevices(docs)
		if err != nil {
			return nil, err
		}
		if c := identity.FindConflict(d, existing, ""); c != nil {
			conflict = c
			return nil, nil
		}
		doc, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode device: %w", err)
		}
		return append(docs, doc), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	return conflict, nil
}

// UpdateUnique replaces the device record after re-running the duplicate
// check against every other device. Same Mutate discipline as CreateUnique.
func (s *Store) UpdateUnique(ctx context.Context, d models.Device) (*identity.Conflict, error) {
	var conflict *identity.Conflict
	found := false

	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeDevices(docs)
		if err != nil {
			return nil, err
		}
		if c := identity.FindConflict(d, existing, d.ID); c != nil {
			conflict = c
			return nil, nil
		}
		doc, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode device: %w", err)
		}
		out := make([][]byte, len(docs))
		for i := range existing {
			if existing[i].ID == d.ID {
				out[i] = doc
				found = true
			} else {
				out[i] = docs[i]
			}
		}
		if !found {
			return nil, nil
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}
	if conflict == nil && !found {
		return nil, fmt.Errorf("device %q not found", d.ID)
	}
	return conflict, nil
}

// reportReader gives the devices module read access to the reports collection
// for status computation. Writes stay with the reports module.
type reportReader struct {
	col plugin.Collection
}

func (r *reportReader) List(ctx context.Context) ([]models.Report, error) {
	docs, err := r.col.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		var rep models.Report
		if err := json.Unmarshal(doc, &rep); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, rep)
	}
	return out, nil
}
