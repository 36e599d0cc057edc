package ws

import (
	"context"
	"net/http"

	"github.com/boltin-app/boltin/internal/auth"
	"github.com/boltin-app/boltin/internal/reports"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Handler provides a WebSocket endpoint streaming live registry activity.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to registry events.
func NewHandler(tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/feed", h.handleFeed)
}

// handleFeed upgrades the connection to WebSocket and streams registry events.
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since we validate via JWT token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	// Client disconnected -- stop write pump and unregister.
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards registry events to all connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe("device.registered", func(_ context.Context, event plugin.Event) {
		d, ok := event.Payload.(models.Device)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:         MessageDeviceRegistered,
			SerialNumber: d.SerialNumber,
			Timestamp:    event.Timestamp,
			Data: DeviceRegisteredData{
				DeviceID:   d.ID,
				DeviceType: d.DeviceType,
				Brand:      d.Brand,
			},
		})
	})

	h.bus.Subscribe("report.filed", func(_ context.Context, event plugin.Event) {
		rep, ok := event.Payload.(models.Report)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:         MessageReportFiled,
			SerialNumber: rep.SerialNumber,
			Timestamp:    event.Timestamp,
			Data: ReportFiledData{
				ReportID:   rep.ID,
				ReportType: string(rep.ReportType),
				Status:     string(rep.Status),
				Location:   rep.Location,
			},
		})
	})

	h.bus.Subscribe("report.matched", func(_ context.Context, event plugin.Event) {
		match, ok := event.Payload.(reports.MatchPayload)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:         MessageReportMatched,
			SerialNumber: match.FoundReport.SerialNumber,
			Timestamp:    event.Timestamp,
			Data: ReportMatchedData{
				FoundReportID: match.FoundReport.ID,
				LossReportID:  match.LossReport.ID,
			},
		})
	})

	h.bus.Subscribe("transfer.completed", func(_ context.Context, event plugin.Event) {
		tr, ok := event.Payload.(models.Transfer)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:         MessageTransferCompleted,
			SerialNumber: tr.SerialNumber,
			Timestamp:    event.Timestamp,
			Data: TransferCompletedData{
				TransferID: tr.ID,
				DeviceID:   tr.DeviceID,
			},
		})
	})

	h.logger.Info("subscribed to registry events for WebSocket broadcasting")
}
