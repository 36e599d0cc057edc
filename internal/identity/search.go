package identity

import (
	"strings"

	"github.com/boltin-app/boltin/pkg/models"
)

// Match is one search hit: the device plus which field and value matched, so
// callers can render "matched via IMEI" style messaging.
type Match struct {
	Device models.Device `json:"device"`
	Field  string        `json:"matched_field"`
	Value  string        `json:"matched_value"`
}

// FindBySerial returns the device whose serial number exactly equals the
// query (upper-cased), or nil. Callers try this before Search: an exact
// primary-identifier match is authoritative and takes priority over the
// substring engine.
func FindBySerial(devices []models.Device, query string) *models.Device {
	serial := strings.ToUpper(strings.TrimSpace(query))
	if serial == "" {
		return nil
	}
	for i := range devices {
		if strings.ToUpper(devices[i].SerialNumber) == serial {
			d := devices[i]
			return &d
		}
	}
	return nil
}

// Search scans the device collection for case-insensitive substring matches of
// query across each device's identification fields (per its type profile),
// then its serial number, brand, and model. Each device appears at most once,
// in input order, tagged with the first field that matched. A linear scan is
// fine at registry scale; no index is maintained.
func Search(devices []models.Device, query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var matches []Match
	for i := range devices {
		d := devices[i]
		profile := Resolve(d.DeviceType)

		matched := false
		for _, f := range profile.IdentificationFields {
			value := d.IdentificationNumbers[f.Name]
			if value == "" {
				continue
			}
			if strings.Contains(strings.ToLower(value), q) {
				matches = append(matches, Match{Device: d, Field: f.Name, Value: value})
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		for _, c := range []struct{ field, value string }{
			{SerialField, d.SerialNumber},
			{"brand", d.Brand},
			{"model", d.Model},
		} {
			if c.value != "" && strings.Contains(strings.ToLower(c.value), q) {
				matches = append(matches, Match{Device: d, Field: c.field, Value: c.value})
				break
			}
		}
	}
	return matches
}
