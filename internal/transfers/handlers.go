package transfers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boltin-app/boltin/internal/server"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitiateRequest is the request body for POST /.
type InitiateRequest struct {
	DeviceID            string `json:"device_id"`
	CurrentOwnerContact string `json:"current_owner_contact"`
	NewOwnerName        string `json:"new_owner_name"`
	NewOwnerContact     string `json:"new_owner_contact"`
	NewOwnerEmail       string `json:"new_owner_email,omitempty"`
	TransferReason      string `json:"transfer_reason,omitempty"`
}

// AcceptRequest is the request body for POST /accept.
type AcceptRequest struct {
	SerialNumber string `json:"serial_number"`
	TransferCode string `json:"transfer_code"`
}

// AcceptResponse returns the settled transfer and the device under its new
// owner.
type AcceptResponse struct {
	Transfer models.Transfer `json:"transfer"`
	Device   models.Device   `json:"device"`
}

// CancelRequest is the request body for POST /{id}/cancel.
type CancelRequest struct {
	Contact string `json:"contact"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleInitiate starts an ownership transfer. Only the registered owner may
// initiate: the requester's contact must equal the device's contact.
//
//	@Summary		Initiate a transfer
//	@Tags			transfers
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	models.Transfer
//	@Failure		403	{object}	server.Problem
//	@Failure		404	{object}	server.Problem
//	@Failure		409	{object}	server.Problem
//	@Router			/transfers [post]
func (m *Module) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.DeviceID == "" || req.CurrentOwnerContact == "" || req.NewOwnerName == "" || req.NewOwnerContact == "" {
		server.BadRequest(w, "device_id, current_owner_contact, new_owner_name and new_owner_contact are required", r.URL.Path)
		return
	}

	device, err := m.devices.Get(r.Context(), req.DeviceID)
	if err != nil {
		server.InternalError(w, "could not load device", r.URL.Path)
		return
	}
	if device == nil {
		server.NotFound(w, fmt.Sprintf("device %q not found", req.DeviceID), r.URL.Path)
		return
	}
	if device.Contact != req.CurrentOwnerContact {
		server.Forbidden(w, "contact does not match the registered owner", r.URL.Path)
		return
	}

	code, err := m.newCode()
	if err != nil {
		server.InternalError(w, "could not generate transfer code", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	tr := models.Transfer{
		ID:                  uuid.NewString(),
		DeviceID:            device.ID,
		SerialNumber:        device.SerialNumber,
		CurrentOwnerContact: req.CurrentOwnerContact,
		NewOwnerName:        req.NewOwnerName,
		NewOwnerContact:     req.NewOwnerContact,
		NewOwnerEmail:       req.NewOwnerEmail,
		TransferReason:      req.TransferReason,
		Status:              models.TransferPending,
		TransferCode:        code,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	blocked, err := m.store.Create(r.Context(), tr)
	if err != nil {
		m.logger.Error("transfer initiation failed", zap.Error(err))
		server.InternalError(w, "could not store transfer", r.URL.Path)
		return
	}
	if blocked {
		server.Conflict(w, "a pending transfer already exists for this device", "device_id", r.URL.Path)
		return
	}

	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:     "transfer.initiated",
		Source:    "transfers",
		Timestamp: now,
		Payload:   tr,
	})
	m.logger.Info("transfer initiated",
		zap.String("id", tr.ID),
		zap.String("device_id", tr.DeviceID),
		zap.String("serial", tr.SerialNumber),
	)

	writeJSON(w, http.StatusCreated, tr)
}

// handleAccept redeems a transfer code and hands the device to its new owner.
func (m *Module) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	req.TransferCode = strings.ToUpper(strings.TrimSpace(req.TransferCode))
	if req.SerialNumber == "" || req.TransferCode == "" {
		server.BadRequest(w, "serial_number and transfer_code are required", r.URL.Path)
		return
	}

	tr, err := m.store.Redeem(r.Context(), req.SerialNumber, req.TransferCode)
	if err != nil {
		server.InternalError(w, "could not redeem transfer", r.URL.Path)
		return
	}
	if tr == nil {
		server.NotFound(w, "no pending transfer matches this serial number and code", r.URL.Path)
		return
	}

	if err := m.devices.TransferOwner(r.Context(), tr.DeviceID, tr.NewOwnerName, tr.NewOwnerContact); err != nil {
		m.logger.Error("owner rewrite after transfer failed",
			zap.String("transfer_id", tr.ID),
			zap.String("device_id", tr.DeviceID),
			zap.Error(err),
		)
		server.InternalError(w, "transfer settled but the device record could not be updated", r.URL.Path)
		return
	}

	device, err := m.devices.Get(r.Context(), tr.DeviceID)
	if err != nil || device == nil {
		server.InternalError(w, "could not load device", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:     "transfer.completed",
		Source:    "transfers",
		Timestamp: now,
		Payload:   *tr,
	})
	m.logger.Info("transfer completed",
		zap.String("id", tr.ID),
		zap.String("device_id", tr.DeviceID),
	)

	writeJSON(w, http.StatusOK, AcceptResponse{Transfer: *tr, Device: *device})
}

// handleGet returns a transfer. The transfer code is only disclosed to the
// initiating owner (matched by contact).
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tr, err := m.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "could not load transfer", r.URL.Path)
		return
	}
	if tr == nil {
		server.NotFound(w, fmt.Sprintf("transfer %q not found", id), r.URL.Path)
		return
	}
	if r.URL.Query().Get("contact") != tr.CurrentOwnerContact {
		tr.TransferCode = ""
	}
	writeJSON(w, http.StatusOK, tr)
}

// handleCancel cancels a pending transfer.
func (m *Module) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	tr, err := m.store.Cancel(r.Context(), id, req.Contact)
	switch {
	case errors.Is(err, ErrNotOwner):
		server.Forbidden(w, "contact does not match the transfer's owner", r.URL.Path)
		return
	case errors.Is(err, ErrNotPending):
		server.Conflict(w, "transfer is no longer pending", "status", r.URL.Path)
		return
	case err != nil:
		server.InternalError(w, "could not cancel transfer", r.URL.Path)
		return
	case tr == nil:
		server.NotFound(w, fmt.Sprintf("transfer %q not found", id), r.URL.Path)
		return
	}

	m.logger.Info("transfer cancelled", zap.String("id", tr.ID))
	writeJSON(w, http.StatusOK, tr)
}
