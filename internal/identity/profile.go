// Package identity implements the device identity resolution core: the device
// type catalog, identification field validation, duplicate detection, fuzzy
// search across the identifier space, and report status aggregation.
//
// Everything in this package is pure computation over already-loaded data;
// persistence stays with the owning modules.
package identity

import (
	"regexp"
	"strings"
)

// Algorithm names a special-cased checksum/format validator that overrides
// the generic pattern check for a field.
type Algorithm string

const (
	AlgorithmNone Algorithm = ""
	AlgorithmIMEI Algorithm = "imei"
	AlgorithmVIN  Algorithm = "vin"
)

// FieldDescriptor describes one identification field of a device type.
type FieldDescriptor struct {
	Name      string
	Label     string
	Required  bool
	Pattern   *regexp.Regexp // nil when no format constraint applies
	Validator Algorithm
	Rationale string // why this field matters; surfaced by the suggestion engine
}

// DeviceTypeProfile is the immutable schema for one device category.
type DeviceTypeProfile struct {
	TypeKey                string
	DisplayName            string
	PrimaryIdentifierLabel string
	IdentificationFields   []FieldDescriptor
	AdditionalInfo         []string
}

// TypeOther is the universal fallback profile key.
const TypeOther = "other"

var (
	imeiPattern  = regexp.MustCompile(`^\d{15}$`)
	iccidPattern = regexp.MustCompile(`^\d{19,20}$`)
	macPattern   = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)
	vinPattern   = regexp.MustCompile(`^[A-HJ-NPR-Za-hj-npr-z0-9]{17}$`)
	plate        = regexp.MustCompile(`^[A-Za-z0-9 -]{2,12}$`)
)

// catalog is the static device type catalog. Keys are normalized type keys.
var catalog = map[string]DeviceTypeProfile{
	"smartphone": {
		TypeKey:                "smartphone",
		DisplayName:            "Smartphone",
		PrimaryIdentifierLabel: "Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "imei", Label: "IMEI", Required: true, Pattern: imeiPattern, Validator: AlgorithmIMEI,
				Rationale: "The IMEI uniquely identifies the handset and lets carriers block it when stolen. Dial *#06# to display it."},
			{Name: "imei2", Label: "IMEI 2 (dual SIM)", Pattern: imeiPattern, Validator: AlgorithmIMEI,
				Rationale: "Dual-SIM phones carry a second IMEI; record both so either slot can be traced."},
			{Name: "simSerial", Label: "SIM Serial (ICCID)", Pattern: iccidPattern,
				Rationale: "The ICCID ties the phone to its SIM at the time of loss."},
			{Name: "modelNumber", Label: "Model Number",
				Rationale: "The exact model number speeds up police and insurer verification."},
		},
		AdditionalInfo: []string{"color", "storage capacity", "distinctive marks"},
	},
	"laptop": {
		TypeKey:                "laptop",
		DisplayName:            "Laptop",
		PrimaryIdentifierLabel: "Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "serviceTag", Label: "Service Tag",
				Rationale: "Manufacturer service tags resolve to the exact build and warranty record."},
			{Name: "macAddress", Label: "MAC Address", Pattern: macPattern,
				Rationale: "The Wi-Fi MAC address can place a recovered laptop on a network."},
			{Name: "batterySerial", Label: "Battery Serial"},
		},
		AdditionalInfo: []string{"color", "stickers", "engravings"},
	},
	"tablet": {
		TypeKey:                "tablet",
		DisplayName:            "Tablet",
		PrimaryIdentifierLabel: "Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "imei", Label: "IMEI (cellular models)", Pattern: imeiPattern, Validator: AlgorithmIMEI,
				Rationale: "Cellular tablets carry an IMEI that carriers can blocklist."},
			{Name: "macAddress", Label: "MAC Address", Pattern: macPattern},
			{Name: "modelNumber", Label: "Model Number"},
		},
	},
	"camera": {
		TypeKey:                "camera",
		DisplayName:            "Camera",
		PrimaryIdentifierLabel: "Body Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "lensSerial", Label: "Lens Serial Number",
				Rationale: "Lenses are resold separately; their serials recover more thefts than bodies."},
			{Name: "shutterCount", Label: "Shutter Count"},
		},
		AdditionalInfo: []string{"kit contents", "strap or grip modifications"},
	},
	"car": {
		TypeKey:                "car",
		DisplayName:            "Car",
		PrimaryIdentifierLabel: "VIN",
		IdentificationFields: []FieldDescriptor{
			{Name: "vin", Label: "VIN", Required: true, Pattern: vinPattern, Validator: AlgorithmVIN,
				Rationale: "The 17-character VIN is stamped in several hidden places and survives plate swaps."},
			{Name: "engineNumber", Label: "Engine Number",
				Rationale: "Engine numbers identify the vehicle even after a VIN plate is removed."},
			{Name: "licensePlate", Label: "License Plate", Pattern: plate},
			{Name: "chassisNumber", Label: "Chassis Number"},
		},
		AdditionalInfo: []string{"color", "trim", "aftermarket parts"},
	},
	"motorcycle": {
		TypeKey:                "motorcycle",
		DisplayName:            "Motorcycle",
		PrimaryIdentifierLabel: "VIN",
		IdentificationFields: []FieldDescriptor{
			{Name: "vin", Label: "VIN", Required: true, Pattern: vinPattern, Validator: AlgorithmVIN,
				Rationale: "The frame VIN is the only identifier that survives a repaint and part swaps."},
			{Name: "engineNumber", Label: "Engine Number"},
			{Name: "licensePlate", Label: "License Plate", Pattern: plate},
		},
	},
	"bicycle": {
		TypeKey:                "bicycle",
		DisplayName:            "Bicycle",
		PrimaryIdentifierLabel: "Frame Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "frameNumber", Label: "Frame Number", Required: true,
				Rationale: "The frame number under the bottom bracket is how recovered bikes get matched to owners."},
			{Name: "wheelSerial", Label: "Wheel Serial"},
		},
		AdditionalInfo: []string{"frame size", "component groupset", "custom paint"},
	},
	"smartwatch": {
		TypeKey:                "smartwatch",
		DisplayName:            "Smartwatch",
		PrimaryIdentifierLabel: "Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "imei", Label: "IMEI (cellular models)", Pattern: imeiPattern, Validator: AlgorithmIMEI},
			{Name: "modelNumber", Label: "Model Number"},
		},
	},
	"headphones": {
		TypeKey:                "headphones",
		DisplayName:            "Headphones",
		PrimaryIdentifierLabel: "Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "modelNumber", Label: "Model Number"},
			{Name: "caseSerial", Label: "Charging Case Serial"},
		},
	},
	TypeOther: {
		TypeKey:                TypeOther,
		DisplayName:            "Other Device",
		PrimaryIdentifierLabel: "Serial Number",
		IdentificationFields: []FieldDescriptor{
			{Name: "identifier", Label: "Additional Identifier",
				Rationale: "Any secondary marking, engraving, or manufacturer code helps confirm a match."},
		},
	},
}

var separators = strings.NewReplacer("-", "", "_", "", " ", "")

// normalizeTypeKey lowercases and strips separator characters so that
// "Smartphone", "smart_phone", and "smart-phone" all resolve identically.
func normalizeTypeKey(key string) string {
	return separators.Replace(strings.ToLower(strings.TrimSpace(key)))
}

// Resolve returns the profile for the given type key, falling back to the
// "other" profile for any unknown key. It never fails: unknown device types
// must still be registrable with at least a generic identifier field.
func Resolve(typeKey string) DeviceTypeProfile {
	if p, ok := catalog[normalizeTypeKey(typeKey)]; ok {
		return p
	}
	return catalog[TypeOther]
}

// Profiles returns the full catalog in no particular order, for listing
// endpoints and registration forms.
func Profiles() []DeviceTypeProfile {
	out := make([]DeviceTypeProfile, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	return out
}

// Field returns the descriptor with the given name from the profile, if any.
func (p DeviceTypeProfile) Field(name string) (FieldDescriptor, bool) {
	for _, f := range p.IdentificationFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}
