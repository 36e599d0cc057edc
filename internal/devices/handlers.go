package devices

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/boltin-app/boltin/internal/identity"
	"github.com/boltin-app/boltin/internal/server"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeviceWithStatus pairs a device with its computed report status.
type DeviceWithStatus struct {
	Device models.Device       `json:"device"`
	Status models.DeviceStatus `json:"status"`
}

// SearchResult is one search hit with its computed status attached.
type SearchResult struct {
	Device       models.Device       `json:"device"`
	MatchedField string              `json:"matched_field"`
	MatchedValue string              `json:"matched_value"`
	Status       models.DeviceStatus `json:"status"`
}

// SearchResponse is the response for GET /search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// CheckResponse is the response for GET /check.
type CheckResponse struct {
	Serial     string              `json:"serial_number"`
	Registered bool                `json:"registered"`
	Device     *models.Device      `json:"device,omitempty"`
	Status     models.DeviceStatus `json:"status"`
}

// TypeField describes one identification field of a device type profile.
type TypeField struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Required  bool   `json:"required"`
	Rationale string `json:"rationale,omitempty"`
}

// TypeResponse describes one device type profile.
type TypeResponse struct {
	TypeKey                string      `json:"type_key"`
	DisplayName            string      `json:"display_name"`
	PrimaryIdentifierLabel string      `json:"primary_identifier_label"`
	Fields                 []TypeField `json:"identification_fields"`
	AdditionalInfo         []string    `json:"additional_info,omitempty"`
}

// ValidateFieldRequest is the request body for POST /validate-field.
type ValidateFieldRequest struct {
	DeviceType string `json:"device_type"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleRegister registers a new device.
//
//	@Summary		Register a device
//	@Description	Validates identification numbers against the device type profile and rejects duplicate identifiers.
//	@Tags			devices
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	models.Device
//	@Failure		400	{object}	server.Problem
//	@Failure		409	{object}	server.Problem
//	@Router			/devices [post]
func (m *Module) handleRegister(w http.ResponseWriter, r *http.Request) {
	var d models.Device
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	d.SerialNumber = strings.ToUpper(strings.TrimSpace(d.SerialNumber))
	if d.SerialNumber == "" || d.DeviceType == "" || d.OwnerName == "" || d.Contact == "" {
		server.BadRequest(w, "serial_number, device_type, owner_name and contact are required", r.URL.Path)
		return
	}

	profile := identity.Resolve(d.DeviceType)
	if failures := identity.ValidateDevice(profile, d.IdentificationNumbers); len(failures) > 0 {
		server.ValidationFailed(w, failures, r.URL.Path)
		return
	}

	now := time.Now().UTC()
	d.ID = uuid.NewString()
	d.Verified = false
	d.CreatedAt = now
	d.UpdatedAt = now

	conflict, err := m.store.CreateUnique(r.Context(), d)
	if err != nil {
		m.logger.Error("device registration failed", zap.Error(err))
		server.InternalError(w, "could not store device", r.URL.Path)
		return
	}
	if conflict != nil {
		conflictsTotal.Inc()
		m.writeConflict(w, r, conflict)
		return
	}

	registrationsTotal.Inc()
	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:     "device.registered",
		Source:    "devices",
		Timestamp: now,
		Payload:   d,
	})
	m.logger.Info("device registered",
		zap.String("id", d.ID),
		zap.String("serial", d.SerialNumber),
		zap.String("type", d.DeviceType),
	)

	writeJSON(w, http.StatusCreated, d)
}

// writeConflict renders a 409 for a duplicate identifier. Serial conflicts
// note when the already-registered device is currently reported lost, so a
// buyer registering a second-hand device learns immediately.
func (m *Module) writeConflict(w http.ResponseWriter, r *http.Request, c *identity.Conflict) {
	detail := fmt.Sprintf("a device with this %s is already registered", c.Field)

	if c.Field == identity.SerialField {
		if reports, err := m.reports.List(r.Context()); err == nil {
			status := identity.ComputeStatus(c.Device.SerialNumber, reports)
			if status.Severity != models.SeverityOK {
				detail += fmt.Sprintf("; the registered device is currently reported %s", status.Status)
			}
		}
	}

	server.Conflict(w, detail, c.Field, r.URL.Path)
}

// handleMine lists the caller's devices with their computed statuses.
func (m *Module) handleMine(w http.ResponseWriter, r *http.Request) {
	contact := strings.TrimSpace(r.URL.Query().Get("contact"))
	if contact == "" {
		server.BadRequest(w, "contact query parameter is required", r.URL.Path)
		return
	}

	devices, err := m.store.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load devices", r.URL.Path)
		return
	}
	reports, err := m.reports.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load reports", r.URL.Path)
		return
	}

	out := make([]DeviceWithStatus, 0)
	for _, d := range devices {
		if d.Contact != contact {
			continue
		}
		out = append(out, DeviceWithStatus{
			Device: d,
			Status: identity.ComputeStatus(d.SerialNumber, reports),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGet returns a single device with its computed status.
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := m.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "could not load device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, fmt.Sprintf("device %q not found", id), r.URL.Path)
		return
	}

	reports, err := m.reports.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load reports", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, DeviceWithStatus{
		Device: *d,
		Status: identity.ComputeStatus(d.SerialNumber, reports),
	})
}

// handleUpdate replaces a device's editable fields, re-running validation and
// the duplicate check (excluding the device itself).
func (m *Module) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := m.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "could not load device", r.URL.Path)
		return
	}
	if existing == nil {
		server.NotFound(w, fmt.Sprintf("device %q not found", id), r.URL.Path)
		return
	}

	var d models.Device
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	d.SerialNumber = strings.ToUpper(strings.TrimSpace(d.SerialNumber))
	if d.SerialNumber == "" || d.DeviceType == "" {
		server.BadRequest(w, "serial_number and device_type are required", r.URL.Path)
		return
	}

	profile := identity.Resolve(d.DeviceType)
	if failures := identity.ValidateDevice(profile, d.IdentificationNumbers); len(failures) > 0 {
		server.ValidationFailed(w, failures, r.URL.Path)
		return
	}

	// Server-controlled fields survive the update.
	d.ID = existing.ID
	d.OwnerID = existing.OwnerID
	d.Verified = existing.Verified
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	if d.OwnerName == "" {
		d.OwnerName = existing.OwnerName
	}
	if d.Contact == "" {
		d.Contact = existing.Contact
	}

	conflict, err := m.store.UpdateUnique(r.Context(), d)
	if err != nil {
		server.InternalError(w, "could not update device", r.URL.Path)
		return
	}
	if conflict != nil {
		conflictsTotal.Inc()
		m.writeConflict(w, r, conflict)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleDelete removes a device. The caller must present the device's
// registered contact; contact string equality is the ownership rule.
func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := m.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "could not load device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, fmt.Sprintf("device %q not found", id), r.URL.Path)
		return
	}

	contact := strings.TrimSpace(r.URL.Query().Get("contact"))
	if contact == "" || contact != d.Contact {
		server.Forbidden(w, "contact does not match the registered owner", r.URL.Path)
		return
	}

	if err := m.store.Delete(r.Context(), id); err != nil {
		server.InternalError(w, "could not delete device", r.URL.Path)
		return
	}
	m.logger.Info("device deleted", zap.String("id", id), zap.String("serial", d.SerialNumber))
	w.WriteHeader(http.StatusNoContent)
}

// handleVerify marks a device's identification numbers as verified.
func (m *Module) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := m.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "could not load device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, fmt.Sprintf("device %q not found", id), r.URL.Path)
		return
	}

	d.Verified = true
	d.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(r.Context(), *d); err != nil {
		server.InternalError(w, "could not update device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSearch searches the registry across identification fields, serial
// numbers, brands, and models.
//
//	@Summary		Search the registry
//	@Description	Case-insensitive substring search. An exact serial number match takes priority.
//	@Tags			devices
//	@Produce		json
//	@Param			q	query		string	true	"Search query (minimum 3 characters)"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	server.Problem
//	@Router			/devices/search [get]
func (m *Module) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < m.minSearchLength {
		server.BadRequest(w,
			fmt.Sprintf("query must be at least %d characters", m.minSearchLength), r.URL.Path)
		return
	}
	searchesTotal.Inc()

	devices, err := m.store.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load devices", r.URL.Path)
		return
	}
	reports, err := m.reports.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load reports", r.URL.Path)
		return
	}

	// An exact serial match is authoritative: return it alone.
	if d := identity.FindBySerial(devices, q); d != nil {
		resp := SearchResponse{Query: q, Count: 1, Results: []SearchResult{{
			Device:       *d,
			MatchedField: identity.SerialField,
			MatchedValue: d.SerialNumber,
			Status:       identity.ComputeStatus(d.SerialNumber, reports),
		}}}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	matches := identity.Search(devices, q)
	results := make([]SearchResult, 0, len(matches))
	for _, hit := range matches {
		results = append(results, SearchResult{
			Device:       hit.Device,
			MatchedField: hit.Field,
			MatchedValue: hit.Value,
			Status:       identity.ComputeStatus(hit.Device.SerialNumber, reports),
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Count: len(results), Results: results})
}

// handleCheck reports the status of a single serial number. Works for
// unregistered serials too: a stolen report can exist for a device that was
// never registered with Boltin.
func (m *Module) handleCheck(w http.ResponseWriter, r *http.Request) {
	serial := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("serial")))
	if serial == "" {
		server.BadRequest(w, "serial query parameter is required", r.URL.Path)
		return
	}

	devices, err := m.store.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load devices", r.URL.Path)
		return
	}
	reports, err := m.reports.List(r.Context())
	if err != nil {
		server.InternalError(w, "could not load reports", r.URL.Path)
		return
	}

	d := identity.FindBySerial(devices, serial)
	status := identity.ComputeStatus(serial, reports)
	if d == nil && status.Status == models.StatusSafe {
		status.Message = "This serial number is not in the registry and has no reports against it."
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		Serial:     serial,
		Registered: d != nil,
		Device:     d,
		Status:     status,
	})
}

// handleValidateField validates a single identification field value, for
// interactive feedback in registration forms. Shares the validation code with
// the registration gate.
func (m *Module) handleValidateField(w http.ResponseWriter, r *http.Request) {
	var req ValidateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.Field == "" {
		server.BadRequest(w, "field is required", r.URL.Path)
		return
	}

	profile := identity.Resolve(req.DeviceType)
	desc, known := profile.Field(req.Field)
	if !known {
		// Fields outside the profile carry no format constraint.
		writeJSON(w, http.StatusOK, identity.ValidationResult{Valid: true})
		return
	}
	writeJSON(w, http.StatusOK, identity.ValidateField(desc, req.Value))
}

// handleSuggestions returns registration guidance for a device type and brand.
func (m *Module) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s := identity.Suggest(q.Get("device_type"), q.Get("brand"), q.Get("model"))
	writeJSON(w, http.StatusOK, s)
}

// handleTypes lists the device type catalog for registration forms.
func (m *Module) handleTypes(w http.ResponseWriter, r *http.Request) {
	profiles := identity.Profiles()
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].TypeKey < profiles[j].TypeKey })

	out := make([]TypeResponse, 0, len(profiles))
	for _, p := range profiles {
		fields := make([]TypeField, 0, len(p.IdentificationFields))
		for _, f := range p.IdentificationFields {
			fields = append(fields, TypeField{
				Name:      f.Name,
				Label:     f.Label,
				Required:  f.Required,
				Rationale: f.Rationale,
			})
		}
		out = append(out, TypeResponse{
			TypeKey:                p.TypeKey,
			DisplayName:            p.DisplayName,
			PrimaryIdentifierLabel: p.PrimaryIdentifierLabel,
			Fields:                 fields,
			AdditionalInfo:         p.AdditionalInfo,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
