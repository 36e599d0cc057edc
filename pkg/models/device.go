package models

import "time"

// Device represents a registered device in the Boltin registry.
//
// SerialNumber is the primary identifier: globally unique across all devices
// and upper-cased at write time. IdentificationNumbers holds the
// category-specific identifiers (IMEI, VIN, lens serial, ...) keyed by the
// field names of the device's type profile; each value is unique within its
// own field name only.
type Device struct {
	ID                    string            `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	OwnerID               string            `json:"owner_id,omitempty"` // Absent for anonymous legacy registrations
	OwnerName             string            `json:"owner_name"`
	Contact               string            `json:"contact" example:"owner@example.com"` // Email or phone
	DeviceType            string            `json:"device_type" example:"smartphone"`
	Brand                 string            `json:"brand,omitempty" example:"Samsung"`
	Model                 string            `json:"model,omitempty" example:"Galaxy S24"`
	Description           string            `json:"description,omitempty"`
	SerialNumber          string            `json:"serial_number" example:"SN-9F3K2L8Q"`
	IdentificationNumbers map[string]string `json:"identification_numbers,omitempty"`
	Verified              bool              `json:"verified"`
	Images                []string          `json:"images,omitempty"`
	CameraSignature       string            `json:"camera_signature,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// StatusCode is a device's aggregated loss state, derived from the reports
// log at read time. It is never stored on the Device record.
type StatusCode string

const (
	StatusSafe    StatusCode = "safe"
	StatusLost    StatusCode = "lost"
	StatusStolen  StatusCode = "stolen"
	StatusMissing StatusCode = "missing"
	StatusFound   StatusCode = "found"
)

// Severity classifies how alarming a status is for display purposes.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// DeviceStatus is the aggregated view of a device's current state.
type DeviceStatus struct {
	Status     StatusCode `json:"status" example:"stolen"`
	Severity   Severity   `json:"severity" example:"danger"`
	Message    string     `json:"message"`
	ReportDate string     `json:"report_date,omitempty"`
	Location   string     `json:"location,omitempty"`
}
