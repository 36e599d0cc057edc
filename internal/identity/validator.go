package identity

import (
	"fmt"
	"strings"
)

// ValidationResult reports whether a field value passed validation. Message is
// user-facing and safe to surface verbatim.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{Valid: false, Message: fmt.Sprintf(format, args...)}
}

var ok = ValidationResult{Valid: true}

// ValidateField validates a single identification field value against its
// descriptor. Pure function: both the registration gate and the interactive
// per-field endpoint call this so the two paths can never drift.
func ValidateField(d FieldDescriptor, value string) ValidationResult {
	value = strings.TrimSpace(value)

	if value == "" {
		if d.Required {
			return invalid("%s is required", d.Label)
		}
		return ok
	}

	// Named algorithms override the generic pattern check.
	switch d.Validator {
	case AlgorithmIMEI:
		return validateIMEI(value)
	case AlgorithmVIN:
		return validateVIN(value)
	}

	if d.Pattern != nil && !d.Pattern.MatchString(value) {
		return invalid("Invalid format for %s", d.Label)
	}
	return ok
}

// validateIMEI checks that the value is exactly 15 digits and that the 15th
// digit equals the Luhn check digit computed over the first 14.
func validateIMEI(value string) ValidationResult {
	if !imeiPattern.MatchString(value) {
		return invalid("IMEI must be exactly 15 digits")
	}
	if luhnCheckDigit(value[:14]) != int(value[14]-'0') {
		return invalid("Invalid IMEI checksum")
	}
	return ok
}

// luhnCheckDigit computes the Luhn check digit for a string of digits:
// double every second digit counting from the right (even positions from the
// left stay unchanged for a 14-digit body), subtract 9 from doubled values
// above 9, sum, and take (10 - sum mod 10) mod 10.
func luhnCheckDigit(digits string) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// validateVIN checks VIN format only: exactly 17 characters from the alphabet
// [A-HJ-NPR-Z0-9] (I, O, and Q are excluded), case-insensitive. The ISO 3779
// check digit is deliberately not verified; registrations from markets that
// do not use it would otherwise be rejected.
func validateVIN(value string) ValidationResult {
	if !vinPattern.MatchString(value) {
		return invalid("VIN must be 17 characters (letters I, O, Q are not used)")
	}
	return ok
}

// ValidateDevice validates every identification field of the candidate device
// against its resolved profile. Returns the first failure per field, keyed by
// field name; an empty map means the device passed.
func ValidateDevice(profile DeviceTypeProfile, identificationNumbers map[string]string) map[string]string {
	failures := make(map[string]string)
	for _, d := range profile.IdentificationFields {
		res := ValidateField(d, identificationNumbers[d.Name])
		if !res.Valid {
			failures[d.Name] = res.Message
		}
	}
	return failures
}
