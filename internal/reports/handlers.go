package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boltin-app/boltin/internal/server"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validTypes = map[models.ReportType]bool{
	models.ReportLost:    true,
	models.ReportStolen:  true,
	models.ReportMissing: true,
	models.ReportFound:   true,
}

// handleFile files a new report against a serial number.
//
//	@Summary		File a report
//	@Description	Files a lost/stolen/missing/found report. A serial carries at most one open report per side; found reports are matched against the open loss report.
//	@Tags			reports
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	models.Report
//	@Failure		400	{object}	server.Problem
//	@Failure		409	{object}	server.Problem
//	@Router			/reports [post]
func (m *Module) handleFile(w http.ResponseWriter, r *http.Request) {
	var rep models.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	rep.SerialNumber = strings.ToUpper(strings.TrimSpace(rep.SerialNumber))
	if rep.SerialNumber == "" {
		server.BadRequest(w, "serial_number is required", r.URL.Path)
		return
	}
	if !validTypes[rep.ReportType] {
		server.BadRequest(w, "report_type must be one of lost, stolen, missing, found", r.URL.Path)
		return
	}
	if rep.ReportType == models.ReportFound {
		if rep.FinderContact == "" {
			server.BadRequest(w, "finder_contact is required for found reports", r.URL.Path)
			return
		}
	} else if rep.OwnerContact == "" {
		server.BadRequest(w, "owner_contact is required", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	rep.ID = uuid.NewString()
	rep.LinkedMissingReport = ""
	rep.CreatedAt = now
	rep.UpdatedAt = now
	if rep.ReportType == models.ReportFound {
		rep.Status = models.ReportPendingPickup
	} else {
		rep.Status = models.ReportActive
	}

	res, err := m.store.File(r.Context(), rep)
	if err != nil {
		m.logger.Error("filing report failed", zap.Error(err))
		server.InternalError(w, "could not store report", r.URL.Path)
		return
	}
	if res.Conflict != nil {
		server.Conflict(w,
			fmt.Sprintf("an open %s report already exists for this serial number", res.Conflict.ReportType),
			"serial_number", r.URL.Path)
		return
	}

	reportsFiledTotal.WithLabelValues(string(rep.ReportType)).Inc()
	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:     "report.filed",
		Source:    "reports",
		Timestamp: now,
		Payload:   res.Report,
	})
	m.logger.Info("report filed",
		zap.String("id", res.Report.ID),
		zap.String("serial", res.Report.SerialNumber),
		zap.String("type", string(res.Report.ReportType)),
	)

	if res.Linked != nil {
		m.bus.PublishAsync(r.Context(), plugin.Event{
			Topic:     "report.matched",
			Source:    "reports",
			Timestamp: now,
			Payload: MatchPayload{
				FoundReport: res.Report,
				LossReport:  *res.Linked,
			},
		})
		m.logger.Info("found report matched",
			zap.String("found_id", res.Report.ID),
			zap.String("loss_id", res.Linked.ID),
			zap.String("serial", res.Report.SerialNumber),
		)
	}

	writeJSON(w, http.StatusCreated, res.Report)
}

// MatchPayload is the report.matched event payload.
type MatchPayload struct {
	FoundReport models.Report `json:"found_report"`
	LossReport  models.Report `json:"loss_report"`
}

// handleList lists reports, optionally filtered by serial number.
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	serial := strings.TrimSpace(r.URL.Query().Get("serial"))
	reports, err := m.store.List(r.Context(), serial)
	if err != nil {
		server.InternalError(w, "could not load reports", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleGet returns a single report.
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rep, err := m.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "could not load report", r.URL.Path)
		return
	}
	if rep == nil {
		server.NotFound(w, fmt.Sprintf("report %q not found", id), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleResolve marks an active report resolved (the owner recovered the
// device).
func (m *Module) handleResolve(w http.ResponseWriter, r *http.Request) {
	m.transition(w, r, []models.ReportStatus{models.ReportActive}, models.ReportResolved, false)
}

// handleClose closes an active report without recovery.
func (m *Module) handleClose(w http.ResponseWriter, r *http.Request) {
	m.transition(w, r, []models.ReportStatus{models.ReportActive}, models.ReportClosed, false)
}

// handlePickup confirms the owner picked the device up from the finder,
// completing the found report and resolving the linked loss report.
func (m *Module) handlePickup(w http.ResponseWriter, r *http.Request) {
	m.transition(w, r, []models.ReportStatus{models.ReportPendingPickup}, models.ReportCompleted, true)
}

func (m *Module) transition(w http.ResponseWriter, r *http.Request, from []models.ReportStatus, to models.ReportStatus, completeLinked bool) {
	id := r.PathValue("id")
	rep, err := m.store.Transition(r.Context(), id, from, to, completeLinked)

	var bad *ErrBadTransition
	if errors.As(err, &bad) {
		server.Conflict(w, bad.Error(), "status", r.URL.Path)
		return
	}
	if err != nil {
		server.InternalError(w, "could not update report", r.URL.Path)
		return
	}
	if rep == nil {
		server.NotFound(w, fmt.Sprintf("report %q not found", id), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
