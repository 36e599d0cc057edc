package identity

import (
	"strings"
	"testing"
)

func descriptor(typeKey, field string, t *testing.T) FieldDescriptor {
	t.Helper()
	d, ok := Resolve(typeKey).Field(field)
	if !ok {
		t.Fatalf("profile %q has no field %q", typeKey, field)
	}
	return d
}

func TestValidateIMEI(t *testing.T) {
	imei := descriptor("smartphone", "imei", t)

	tests := []struct {
		name      string
		value     string
		valid     bool
		wantInMsg string
	}{
		{"valid_checksum", "490154203237518", true, ""},
		{"wrong_check_digit", "490154203237519", false, "checksum"},
		{"another_valid", "353247104467808", true, ""},
		{"too_short", "49015420323751", false, "15 digits"},
		{"too_long", "4901542032375181", false, "15 digits"},
		{"letters", "49015420323751A", false, "15 digits"},
		{"empty_required", "", false, "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateField(imei, tt.value)
			if res.Valid != tt.valid {
				t.Fatalf("ValidateField(%q).Valid = %v, want %v (msg %q)", tt.value, res.Valid, tt.valid, res.Message)
			}
			if tt.wantInMsg != "" && !strings.Contains(strings.ToLower(res.Message), tt.wantInMsg) {
				t.Errorf("message %q does not mention %q", res.Message, tt.wantInMsg)
			}
		})
	}
}

func TestLuhnCheckDigitExhaustiveProperty(t *testing.T) {
	// For every body, exactly one check digit validates.
	bodies := []string{"49015420323751", "35324710446780", "00000000000000", "99999999999999"}
	for _, body := range bodies {
		want := luhnCheckDigit(body)
		validCount := 0
		for d := 0; d <= 9; d++ {
			candidate := body + string(rune('0'+d))
			if validateIMEI(candidate).Valid {
				validCount++
				if d != want {
					t.Errorf("body %s: digit %d validated, want only %d", body, d, want)
				}
			}
		}
		if validCount != 1 {
			t.Errorf("body %s: %d check digits validated, want exactly 1", body, validCount)
		}
	}
}

func TestValidateVIN(t *testing.T) {
	vin := descriptor("car", "vin", t)

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"valid", "1HGCM82633A123456", true},
		{"valid_lowercase", "1hgcm82633a123456", true},
		{"contains_I", "1HGCM82633I123456", false},
		{"contains_O", "1HGCM82633O123456", false},
		{"contains_Q", "1HGCM82633Q123456", false},
		{"too_short", "1HGCM82633A12345", false},
		{"too_long", "1HGCM82633A1234567", false},
		{"empty_required", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateField(vin, tt.value)
			if res.Valid != tt.valid {
				t.Errorf("ValidateField(%q).Valid = %v, want %v (msg %q)", tt.value, res.Valid, tt.valid, res.Message)
			}
		})
	}
}

func TestVINFormatOnlyNoCheckDigit(t *testing.T) {
	// The ISO 3779 check digit (position 9) is intentionally not verified:
	// any valid-charset 17-char string passes regardless of digit 9.
	vin := descriptor("car", "vin", t)
	for _, v := range []string{"1HGCM82630A123456", "1HGCM82631A123456", "1HGCM82639A123456"} {
		if res := ValidateField(vin, v); !res.Valid {
			t.Errorf("ValidateField(%q) = invalid, VIN validation must be format-only", v)
		}
	}
}

func TestValidateGenericPatternAndRequired(t *testing.T) {
	mac := descriptor("laptop", "macAddress", t)
	frame := descriptor("bicycle", "frameNumber", t)

	tests := []struct {
		name  string
		d     FieldDescriptor
		value string
		valid bool
	}{
		{"mac_valid_colons", mac, "00:1A:2B:3C:4D:5E", true},
		{"mac_valid_dashes", mac, "00-1a-2b-3c-4d-5e", true},
		{"mac_invalid", mac, "not-a-mac", false},
		{"mac_empty_optional", mac, "", true},
		{"frame_required_present", frame, "WTU123X99", true},
		{"frame_required_empty", frame, "", false},
		{"frame_required_whitespace", frame, "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateField(tt.d, tt.value)
			if res.Valid != tt.valid {
				t.Errorf("ValidateField(%q).Valid = %v, want %v (msg %q)", tt.value, res.Valid, tt.valid, res.Message)
			}
		})
	}
}

func TestValidateFieldNoPatternFreeText(t *testing.T) {
	tag := descriptor("laptop", "serviceTag", t)
	if res := ValidateField(tag, "anything at all 123!"); !res.Valid {
		t.Errorf("free-text field rejected: %q", res.Message)
	}
	if res := ValidateField(tag, ""); !res.Valid {
		t.Errorf("empty optional free-text field rejected: %q", res.Message)
	}
}

func TestValidateDevice(t *testing.T) {
	profile := Resolve("smartphone")

	failures := ValidateDevice(profile, map[string]string{
		"imei":      "490154203237518",
		"simSerial": "8901234567890123456",
	})
	if len(failures) != 0 {
		t.Errorf("valid device reported failures: %v", failures)
	}

	failures = ValidateDevice(profile, map[string]string{
		"imei":  "490154203237519", // bad checksum
		"imei2": "123",             // bad format
	})
	if _, ok := failures["imei"]; !ok {
		t.Error("bad checksum on imei not reported")
	}
	if _, ok := failures["imei2"]; !ok {
		t.Error("bad format on imei2 not reported")
	}

	failures = ValidateDevice(profile, nil)
	if _, ok := failures["imei"]; !ok {
		t.Error("missing required imei not reported")
	}
	if len(failures) != 1 {
		t.Errorf("optional empty fields must not fail: %v", failures)
	}
}
