// Package notify turns registry events into owner/finder notifications.
// Delivery is a logging stub: the module records exactly what would be sent
// and to whom, and a real email/SMS provider can be dropped in behind it.
package notify

import (
	"context"

	"github.com/boltin-app/boltin/internal/reports"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ plugin.Module = (*Module)(nil)

// Module implements the notify module.
type Module struct {
	logger *zap.Logger
	bus    plugin.EventBus
	unsubs []func()
}

// New creates a new notify module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.ModuleInfo {
	return plugin.ModuleInfo{
		Name:        "notify",
		Version:     "0.1.0",
		Description: "Owner and finder notifications for registry events",
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.unsubs = append(m.unsubs,
		m.bus.Subscribe("report.filed", m.onReportFiled),
		m.bus.Subscribe("report.matched", m.onReportMatched),
		m.bus.Subscribe("transfer.initiated", m.onTransferInitiated),
	)
	m.logger.Info("notify module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	return nil
}

func (m *Module) onReportFiled(ctx context.Context, event plugin.Event) {
	rep, ok := event.Payload.(models.Report)
	if !ok {
		return
	}
	contact := rep.OwnerContact
	if rep.ReportType == models.ReportFound {
		contact = rep.FinderContact
	}
	m.logger.Info("would send report confirmation",
		zap.String("to", contact),
		zap.String("report_id", rep.ID),
		zap.String("serial", rep.SerialNumber),
		zap.String("type", string(rep.ReportType)),
	)
}

func (m *Module) onReportMatched(ctx context.Context, event plugin.Event) {
	match, ok := event.Payload.(reports.MatchPayload)
	if !ok {
		return
	}
	m.logger.Info("would notify owner and finder of a match",
		zap.String("owner", match.LossReport.OwnerContact),
		zap.String("finder", match.FoundReport.FinderContact),
		zap.String("serial", match.FoundReport.SerialNumber),
		zap.String("pickup_location", match.FoundReport.PickupLocation),
	)
}

func (m *Module) onTransferInitiated(ctx context.Context, event plugin.Event) {
	tr, ok := event.Payload.(models.Transfer)
	if !ok {
		return
	}
	m.logger.Info("would send transfer code to the new owner",
		zap.String("to", tr.NewOwnerContact),
		zap.String("transfer_id", tr.ID),
		zap.String("serial", tr.SerialNumber),
	)
}
