package identity

import (
	"fmt"
	"strings"

	"github.com/boltin-app/boltin/pkg/models"
)

// ComputeStatus derives a serial number's current status from the reports
// log. Status is a pure derived view, recomputed on every read and never
// stored on the device record, so it always reflects the latest report.
//
// The serial alone drives the join, so the caller can compute a status for an
// unregistered serial that only exists in the reports log.
//
// The most recent report (by CreatedAt) wins. Reports sharing an identical
// timestamp tie-break on the lexically higher ID, which makes the selection
// deterministic regardless of input order.
func ComputeStatus(serial string, reports []models.Report) models.DeviceStatus {
	serial = strings.ToUpper(strings.TrimSpace(serial))

	var latest *models.Report
	for i := range reports {
		r := &reports[i]
		if strings.ToUpper(r.SerialNumber) != serial {
			continue
		}
		if latest == nil ||
			r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}

	if latest == nil {
		return models.DeviceStatus{
			Status:   models.StatusSafe,
			Severity: models.SeverityOK,
			Message:  "This device is registered and has no reports against it.",
		}
	}

	status := models.DeviceStatus{
		ReportDate: latest.IncidentDate,
		Location:   latest.Location,
	}

	switch latest.ReportType {
	case models.ReportStolen:
		status.Status = models.StatusStolen
		status.Severity = models.SeverityDanger
		status.Message = "WARNING: this device has been reported STOLEN. Do not purchase it and contact the police."
	case models.ReportFound:
		status.Status = models.StatusFound
		status.Severity = models.SeverityOK
		status.Message = "This device has been reported found and is awaiting pickup by its owner."
	default:
		status.Status = models.StatusCode(latest.ReportType)
		status.Severity = models.SeverityWarning
		status.Message = fmt.Sprintf("This device has been reported %s by its owner.", latest.ReportType)
	}

	return status
}
