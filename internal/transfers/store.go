package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
)

// Sentinel errors for transfer state checks.
var (
	ErrNotPending = errors.New("transfer is not pending")
	ErrNotOwner   = errors.New("contact does not match the current owner")
)

// Store provides typed access to the transfers collection.
type Store struct {
	col plugin.Collection
}

// NewStore creates a Store wrapping the given collection.
func NewStore(col plugin.Collection) *Store {
	return &Store{col: col}
}

func decodeTransfers(docs [][]byte) ([]models.Transfer, error) {
	out := make([]models.Transfer, 0, len(docs))
	for _, doc := range docs {
		var t models.Transfer
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("decode transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Get returns the transfer with the given id, or nil if absent.
func (s *Store) Get(ctx context.Context, id string) (*models.Transfer, error) {
	doc, err := s.col.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var t models.Transfer
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("decode transfer: %w", err)
	}
	return &t, nil
}

// Create stores a new pending transfer unless the device already has one.
// Returns true when an existing pending transfer blocked the insert.
func (s *Store) Create(ctx context.Context, tr models.Transfer) (bool, error) {
	blocked := false
	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeTransfers(docs)
		if err != nil {
			return nil, err
		}
		for _, e := range existing {
			if e.DeviceID == tr.DeviceID && e.Status == models.TransferPending {
				blocked = true
				return nil, nil
			}
		}
		doc, err := json.Marshal(tr)
		if err != nil {
			return nil, fmt.Errorf("encode transfer: %w", err)
		}
		return append(docs, doc), nil
	})
	if err != nil {
		return false, fmt.Errorf("create transfer: %w", err)
	}
	return blocked, nil
}

// Redeem completes the pending transfer matching the serial number and
// transfer code. The lookup and the status change share one Mutate scope so a
// code can only be redeemed once. Returns nil when nothing matches.
func (s *Store) Redeem(ctx context.Context, serial, code string) (*models.Transfer, error) {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	var redeemed *models.Transfer

	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeTransfers(docs)
		if err != nil {
			return nil, err
		}
		for i := range existing {
			t := existing[i]
			if t.Status != models.TransferPending ||
				strings.ToUpper(t.SerialNumber) != serial ||
				t.TransferCode != code {
				continue
			}
			t.Status = models.TransferCompleted
			t.UpdatedAt = time.Now().UTC()
			doc, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("encode transfer: %w", err)
			}
			docs[i] = doc
			redeemed = &t
			return docs, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("redeem transfer: %w", err)
	}
	return redeemed, nil
}

// Cancel marks a pending transfer cancelled. Only the initiating owner's
// contact may cancel. Returns nil, nil when no transfer has the given id.
func (s *Store) Cancel(ctx context.Context, id, contact string) (*models.Transfer, error) {
	var cancelled *models.Transfer
	var stateErr error

	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeTransfers(docs)
		if err != nil {
			return nil, err
		}
		for i := range existing {
			t := existing[i]
			if t.ID != id {
				continue
			}
			if t.CurrentOwnerContact != contact {
				stateErr = ErrNotOwner
				return nil, nil
			}
			if t.Status != models.TransferPending {
				stateErr = ErrNotPending
				return nil, nil
			}
			t.Status = models.TransferCancelled
			t.UpdatedAt = time.Now().UTC()
			doc, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("encode transfer: %w", err)
			}
			docs[i] = doc
			cancelled = &t
			return docs, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel transfer: %w", err)
	}
	if stateErr != nil {
		return nil, stateErr
	}
	return cancelled, nil
}

// deviceStore gives the transfers module access to device records for the
// ownership check on initiation and the owner rewrite on acceptance.
type deviceStore struct {
	col plugin.Collection
}

func (d *deviceStore) Get(ctx context.Context, id string) (*models.Device, error) {
	doc, err := d.col.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var dev models.Device
	if err := json.Unmarshal(doc, &dev); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	return &dev, nil
}

// TransferOwner rewrites the device's owner fields after a completed
// transfer. The new owner may not hold an account, so OwnerID is cleared.
func (d *deviceStore) TransferOwner(ctx context.Context, deviceID, ownerName, contact string) error {
	err := d.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		for i, doc := range docs {
			var dev models.Device
			if err := json.Unmarshal(doc, &dev); err != nil {
				return nil, fmt.Errorf("decode device: %w", err)
			}
			if dev.ID != deviceID {
				continue
			}
			dev.OwnerID = ""
			dev.OwnerName = ownerName
			dev.Contact = contact
			dev.Verified = false
			dev.UpdatedAt = time.Now().UTC()
			next, err := json.Marshal(dev)
			if err != nil {
				return nil, fmt.Errorf("encode device: %w", err)
			}
			docs[i] = next
			return docs, nil
		}
		return nil, fmt.Errorf("device %q not found", deviceID)
	})
	if err != nil {
		return fmt.Errorf("transfer owner: %w", err)
	}
	return nil
}
