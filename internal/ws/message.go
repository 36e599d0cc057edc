package ws

import "time"

// MessageType discriminates WebSocket feed messages.
type MessageType string

const (
	MessageDeviceRegistered  MessageType = "device.registered"
	MessageReportFiled       MessageType = "report.filed"
	MessageReportMatched     MessageType = "report.matched"
	MessageTransferCompleted MessageType = "transfer.completed"
)

// Message is the envelope for all feed messages.
type Message struct {
	Type         MessageType `json:"type"`
	SerialNumber string      `json:"serial_number"`
	Timestamp    time.Time   `json:"timestamp"`
	Data         any         `json:"data"`
}

// DeviceRegisteredData is the payload for device.registered messages.
type DeviceRegisteredData struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	Brand      string `json:"brand,omitempty"`
}

// ReportFiledData is the payload for report.filed messages.
type ReportFiledData struct {
	ReportID   string `json:"report_id"`
	ReportType string `json:"report_type"`
	Status     string `json:"status"`
	Location   string `json:"location,omitempty"`
}

// ReportMatchedData is the payload for report.matched messages.
type ReportMatchedData struct {
	FoundReportID string `json:"found_report_id"`
	LossReportID  string `json:"loss_report_id"`
}

// TransferCompletedData is the payload for transfer.completed messages.
type TransferCompletedData struct {
	TransferID string `json:"transfer_id"`
	DeviceID   string `json:"device_id"`
}
