package identity

import (
	"reflect"
	"testing"
)

func TestSuggestCriticalFields(t *testing.T) {
	s := Suggest("smartphone", "", "")

	var names []string
	for _, f := range s.CriticalFields {
		names = append(names, f.Name)
		if f.Rationale == "" {
			t.Errorf("critical field %q has no rationale", f.Name)
		}
	}
	if !reflect.DeepEqual(names, []string{"imei"}) {
		t.Errorf("critical fields = %v, want [imei]", names)
	}
}

func TestSuggestBrandTriggers(t *testing.T) {
	tests := []struct {
		brand   string
		wantHit bool
	}{
		{"Apple", true},
		{"apple inc.", true},
		{"Samsung Electronics", true},
		{"Google", true},
		{"Nokia", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			s := Suggest("smartphone", tt.brand, "")
			if (len(s.Recommendations) > 0) != tt.wantHit {
				t.Errorf("brand %q: %d recommendations, wantHit=%v", tt.brand, len(s.Recommendations), tt.wantHit)
			}
		})
	}
}

func TestSuggestSecurityTipsByType(t *testing.T) {
	car := Suggest("car", "", "")
	if len(car.SecurityTips) <= len(defaultTips) {
		t.Error("car suggestions must include type-specific tips beyond the defaults")
	}

	// Unknown types still get the default tips.
	unknown := Suggest("hoverboard", "", "")
	if len(unknown.SecurityTips) != len(defaultTips) {
		t.Errorf("unknown type got %d tips, want the %d defaults", len(unknown.SecurityTips), len(defaultTips))
	}
}

func TestSuggestDeterministic(t *testing.T) {
	a := Suggest("car", "Toyota", "Corolla")
	b := Suggest("car", "Toyota", "Corolla")
	if !reflect.DeepEqual(a, b) {
		t.Error("Suggest must be deterministic for identical inputs")
	}
}
