// Package reports implements loss, theft, and found reports against serial
// numbers in the shared registry.
package reports

import (
	"context"

	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Module       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module implements the reports module.
type Module struct {
	logger *zap.Logger
	bus    plugin.EventBus
	store  *Store
}

// New creates a new reports module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.ModuleInfo {
	return plugin.ModuleInfo{
		Name:        "reports",
		Version:     "0.1.0",
		Description: "Loss, theft, and found reports",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.store = NewStore(deps.Store.Collection("reports"))
	m.logger.Info("reports module initialized")
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	return nil
}

// Routes implements plugin.HTTPProvider. Mounted under /api/v1/reports.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "", Handler: m.handleFile},
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "GET", Path: "/{id}", Handler: m.handleGet},
		{Method: "POST", Path: "/{id}/resolve", Handler: m.handleResolve},
		{Method: "POST", Path: "/{id}/close", Handler: m.handleClose},
		{Method: "POST", Path: "/{id}/pickup", Handler: m.handlePickup},
	}
}
