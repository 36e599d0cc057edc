package identity

import (
	"strings"

	"github.com/boltin-app/boltin/pkg/models"
)

// SerialField is the conflict field name reported for primary serial
// number collisions.
const SerialField = "serial number"

// Conflict describes a duplicate identifier collision. Field names the
// identifier that collided; Device is the existing record it collided with,
// so callers can report whether that device is currently flagged lost.
type Conflict struct {
	Field  string
	Value  string
	Device models.Device
}

// FindConflict determines whether any identifier of the candidate device
// collides with an existing device. excludeID skips one device id, for update
// flows where the candidate legitimately matches itself.
//
// Serial numbers are compared upper-cased and globally. Identification numbers
// are compared exactly as submitted and only within the same field name: the
// same string under "imei" on one device and "engineNumber" on another is not
// a conflict, since device categories share no identifier namespace.
func FindConflict(candidate models.Device, existing []models.Device, excludeID string) *Conflict {
	serial := strings.ToUpper(strings.TrimSpace(candidate.SerialNumber))

	for i := range existing {
		d := &existing[i]
		if d.ID == excludeID {
			continue
		}
		if serial != "" && strings.ToUpper(d.SerialNumber) == serial {
			return &Conflict{Field: SerialField, Value: serial, Device: *d}
		}
	}

	for name, value := range candidate.IdentificationNumbers {
		if strings.TrimSpace(value) == "" {
			continue
		}
		for i := range existing {
			d := &existing[i]
			if d.ID == excludeID {
				continue
			}
			if d.IdentificationNumbers[name] == value {
				return &Conflict{Field: name, Value: value, Device: *d}
			}
		}
	}

	return nil
}
