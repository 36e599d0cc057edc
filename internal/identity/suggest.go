package identity

import "strings"

// CriticalField is a required identification field with the rationale for
// recording it, shown in the registration form's suggestions panel.
type CriticalField struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// Suggestions is deterministic guidance for a device type and brand. It has
// no effect on validation or persistence.
type Suggestions struct {
	CriticalFields  []CriticalField `json:"critical_fields"`
	Recommendations []string        `json:"recommendations"`
	SecurityTips    []string        `json:"security_tips"`
}

// brandAdvice maps brand-name substring triggers to canned recommendations.
// Kept as an ordered slice so multi-trigger brands produce stable output.
var brandAdvice = []struct {
	trigger string
	advice  []string
}{
	{"apple", []string{
		"Enable Find My and keep it on; it survives factory resets on recent devices.",
		"Note the device's Apple ID lock state in the description.",
	}},
	{"samsung", []string{
		"Register the device with SmartThings Find before anything happens to it.",
		"Samsung Knox-enrolled devices can be locked remotely by the owner.",
	}},
	{"google", []string{
		"Enable Find My Device in the Google account settings.",
		"Google account FRP lock makes a factory-reset device useless to a thief; keep the account active.",
	}},
}

// securityTips maps normalized device type keys to canned advice lists.
var securityTips = map[string][]string{
	"smartphone": {
		"Photograph the IMEI screen (*#06#) and keep it off the device.",
		"Set a SIM PIN so the SIM cannot be moved to another handset.",
	},
	"laptop": {
		"Record the service tag from the chassis sticker before it wears off.",
		"Enable full-disk encryption; a recovered laptop is useless to a thief but safe for you.",
	},
	"car": {
		"Photograph the VIN through the windshield and on the door jamb sticker.",
		"Etch the VIN on windows; etched vehicles are stolen less often.",
	},
	"motorcycle": {
		"Photograph the frame VIN stamping, not just the plate.",
		"Use a ground anchor at home; most motorcycles are taken from the owner's address.",
	},
	"bicycle": {
		"Photograph the frame number under the bottom bracket.",
		"Register the frame number with your local bike registry as well.",
	},
	"camera": {
		"Record the serial of every lens, not just the body.",
		"Embed your contact details in the EXIF copyright field.",
	},
}

var defaultTips = []string{
	"Keep a photo of the device and its identification numbers somewhere other than the device itself.",
	"Report a loss immediately: the sooner a serial is flagged, the harder the device is to resell.",
}

// Suggest returns guidance for a device type and brand: the profile's
// required fields with their rationale, brand-triggered recommendations, and
// device-type security tips. Stateless and deterministic.
func Suggest(typeKey, brand, model string) Suggestions {
	profile := Resolve(typeKey)

	s := Suggestions{
		Recommendations: []string{},
		SecurityTips:    []string{},
	}

	for _, f := range profile.IdentificationFields {
		if !f.Required {
			continue
		}
		s.CriticalFields = append(s.CriticalFields, CriticalField{
			Name:      f.Name,
			Label:     f.Label,
			Rationale: f.Rationale,
		})
	}

	lowerBrand := strings.ToLower(brand)
	for _, b := range brandAdvice {
		if strings.Contains(lowerBrand, b.trigger) {
			s.Recommendations = append(s.Recommendations, b.advice...)
		}
	}

	if tips, ok := securityTips[normalizeTypeKey(typeKey)]; ok {
		s.SecurityTips = append(s.SecurityTips, tips...)
	}
	s.SecurityTips = append(s.SecurityTips, defaultTips...)

	return s
}
