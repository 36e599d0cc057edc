package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
)

// Store provides typed access to the reports collection.
type Store struct {
	col plugin.Collection
}

// NewStore creates a Store wrapping the given collection.
func NewStore(col plugin.Collection) *Store {
	return &Store{col: col}
}

func decodeReports(docs [][]byte) ([]models.Report, error) {
	out := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		var r models.Report
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// List returns all reports, optionally filtered by serial number.
// Pass an empty serial to list everything.
func (s *Store) List(ctx context.Context, serial string) ([]models.Report, error) {
	docs, err := s.col.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	all, err := decodeReports(docs)
	if err != nil {
		return nil, err
	}
	if serial == "" {
		return all, nil
	}
	serial = strings.ToUpper(serial)
	out := make([]models.Report, 0, len(all))
	for _, r := range all {
		if strings.ToUpper(r.SerialNumber) == serial {
			out = append(out, r)
		}
	}
	return out, nil
}

// Get returns the report with the given id, or nil if absent.
func (s *Store) Get(ctx context.Context, id string) (*models.Report, error) {
	doc, err := s.col.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var r models.Report
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// FileResult is the outcome of filing a report.
type FileResult struct {
	// Report is the stored report, with links filled in.
	Report models.Report

	// Conflict is the existing open report that blocked filing, if any.
	Conflict *models.Report

	// Linked is the counterpart report a found report was matched with.
	Linked *models.Report
}

// File stores a new report, enforcing that a serial carries at most one open
// report per side (the owner's loss report and a finder's found report may
// coexist; two open loss reports, or two open found reports, may not).
//
// A found report is matched against the newest open loss report for the same
// serial; the two link to each other via LinkedMissingReport. The open-report
// check, the matching, and both writes happen inside one Mutate scope.
func (s *Store) File(ctx context.Context, rep models.Report) (FileResult, error) {
	var res FileResult
	isFound := rep.ReportType == models.ReportFound

	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeReports(docs)
		if err != nil {
			return nil, err
		}

		serial := strings.ToUpper(rep.SerialNumber)
		var match *models.Report
		var matchIdx int
		for i := range existing {
			r := &existing[i]
			if strings.ToUpper(r.SerialNumber) != serial || !r.Open() {
				continue
			}
			if (r.ReportType == models.ReportFound) == isFound {
				conflict := *r
				res.Conflict = &conflict
				return nil, nil
			}
			if isFound && (match == nil || r.CreatedAt.After(match.CreatedAt)) {
				match = r
				matchIdx = i
			}
		}

		if match != nil {
			rep.LinkedMissingReport = match.ID
			match.LinkedMissingReport = rep.ID
			match.UpdatedAt = rep.CreatedAt
			linked := *match
			res.Linked = &linked

			doc, err := json.Marshal(*match)
			if err != nil {
				return nil, fmt.Errorf("encode report: %w", err)
			}
			docs[matchIdx] = doc
		}

		doc, err := json.Marshal(rep)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		res.Report = rep
		return append(docs, doc), nil
	})
	if err != nil {
		return FileResult{}, fmt.Errorf("file report: %w", err)
	}
	return res, nil
}

// ErrBadTransition reports an attempted status change from a state the
// transition does not accept.
type ErrBadTransition struct {
	From models.ReportStatus
	To   models.ReportStatus
}

func (e *ErrBadTransition) Error() string {
	return fmt.Sprintf("cannot move report from %s to %s", e.From, e.To)
}

// Transition moves the report with the given id from one of the accepted
// states to the target state. When completeLinked is set, the linked
// counterpart report (if any) is resolved in the same write.
//
// Returns nil, nil when no report has the given id.
func (s *Store) Transition(ctx context.Context, id string, from []models.ReportStatus, to models.ReportStatus, completeLinked bool) (*models.Report, error) {
	var updated *models.Report
	var badFrom *ErrBadTransition

	err := s.col.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeReports(docs)
		if err != nil {
			return nil, err
		}

		idx := -1
		for i := range existing {
			if existing[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, nil
		}

		rep := existing[idx]
		accepted := false
		for _, f := range from {
			if rep.Status == f {
				accepted = true
				break
			}
		}
		if !accepted {
			badFrom = &ErrBadTransition{From: rep.Status, To: to}
			return nil, nil
		}

		now := time.Now().UTC()
		rep.Status = to
		rep.UpdatedAt = now
		doc, err := json.Marshal(rep)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		docs[idx] = doc

		if completeLinked && rep.LinkedMissingReport != "" {
			for i := range existing {
				if existing[i].ID != rep.LinkedMissingReport || !existing[i].Open() {
					continue
				}
				linked := existing[i]
				linked.Status = models.ReportResolved
				linked.UpdatedAt = now
				ldoc, err := json.Marshal(linked)
				if err != nil {
					return nil, fmt.Errorf("encode report: %w", err)
				}
				docs[i] = ldoc
				break
			}
		}

		updated = &rep
		return docs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("transition report: %w", err)
	}
	if badFrom != nil {
		return nil, badFrom
	}
	return updated, nil
}
