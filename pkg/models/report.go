package models

import "time"

// ReportType categorizes a loss/theft report.
type ReportType string

const (
	ReportLost    ReportType = "lost"
	ReportStolen  ReportType = "stolen"
	ReportMissing ReportType = "missing"
	ReportFound   ReportType = "found"
)

// ReportStatus tracks a report through its lifecycle. Found-type reports use
// pending_pickup -> completed; all other types use active -> resolved/closed.
type ReportStatus string

const (
	ReportActive        ReportStatus = "active"
	ReportResolved      ReportStatus = "resolved"
	ReportClosed        ReportStatus = "closed"
	ReportPendingPickup ReportStatus = "pending_pickup"
	ReportCompleted     ReportStatus = "completed"
)

// Report represents a filed loss/theft/found report. Reports link to devices
// by serial number, not by device id: a report can exist for a serial that was
// never registered.
type Report struct {
	ID                 string       `json:"id"`
	SerialNumber       string       `json:"serial_number"` // Upper-cased at write time
	ReportType         ReportType   `json:"report_type" example:"stolen"`
	Status             ReportStatus `json:"status" example:"active"`
	OwnerContact       string       `json:"owner_contact,omitempty"`
	IncidentDate       string       `json:"incident_date,omitempty" example:"2026-03-14"`
	Location           string       `json:"location,omitempty"`
	Description        string       `json:"description,omitempty"`
	PoliceReportNumber string       `json:"police_report_number,omitempty"`

	// Found-report fields.
	FinderName     string `json:"finder_name,omitempty"`
	FinderContact  string `json:"finder_contact,omitempty"`
	FoundLocation  string `json:"found_location,omitempty"`
	PickupLocation string `json:"pickup_location,omitempty"`

	// LinkedMissingReport back-references the counterpart report when a found
	// report matches an active lost/missing report for the same serial.
	LinkedMissingReport string `json:"linked_missing_report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the report still counts against the one-active-report
// per serial invariant.
func (r *Report) Open() bool {
	return r.Status == ReportActive || r.Status == ReportPendingPickup
}
