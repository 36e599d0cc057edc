package models

import "time"

// TransferStatus tracks an ownership transfer through its lifecycle.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Transfer represents a pending or settled device ownership handover.
// The new owner redeems the transfer code to complete it.
type Transfer struct {
	ID                  string         `json:"id"`
	DeviceID            string         `json:"device_id"`
	SerialNumber        string         `json:"serial_number"`
	CurrentOwnerContact string         `json:"current_owner_contact"`
	NewOwnerName        string         `json:"new_owner_name"`
	NewOwnerContact     string         `json:"new_owner_contact"`
	NewOwnerEmail       string         `json:"new_owner_email,omitempty"`
	TransferReason      string         `json:"transfer_reason,omitempty"`
	Status              TransferStatus `json:"status" example:"pending"`
	TransferCode        string         `json:"transfer_code,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
