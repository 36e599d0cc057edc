// Package devices implements device registration, ownership, search, and
// status checks against the shared registry.
package devices

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

const defaultMinSearchLength = 3

// Module implements the devices module.
type Module struct {
	logger          *zap.Logger
	bus             plugin.EventBus
	store           *Store
	reports         *reportReader
	minSearchLength int
}

// New creates a new devices module instance.
func New() *Module {
	return &Module{minSearchLength: defaultMinSearchLength}
}

func (m *Module) Info() plugin.ModuleInfo {
	return plugin.ModuleInfo{
		Name:        "devices",
		Version:     "0.1.0",
		Description: "Device registration and search",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.store = NewStore(deps.Store.Collection("devices"))
	m.reports = &reportReader{col: deps.Store.Collection("reports")}

	if deps.Config != nil && deps.Config.IsSet("min_search_length") {
		if n := deps.Config.GetInt("min_search_length"); n > 0 {
			m.minSearchLength = n
		}
	}

	m.logger.Info("devices module initialized",
		zap.Int("min_search_length", m.minSearchLength))
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	return nil
}

// Routes implements plugin.HTTPProvider. Mounted under /api/v1/devices.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "", Handler: m.handleRegister},
		{Method: "GET", Path: "/mine", Handler: m.handleMine},
		{Method: "GET", Path: "/types", Handler: m.handleTypes},
		{Method: "GET", Path: "/search", Handler: m.handleSearch},
		{Method: "GET", Path: "/check", Handler: m.handleCheck},
		{Method: "POST", Path: "/validate-field", Handler: m.handleValidateField},
		{Method: "GET", Path: "/suggestions", Handler: m.handleSuggestions},
		{Method: "GET", Path: "/{id}", Handler: m.handleGet},
		{Method: "PUT", Path: "/{id}", Handler: m.handleUpdate},
		{Method: "DELETE", Path: "/{id}", Handler: m.handleDelete},
		{Method: "POST", Path: "/{id}/verify", Handler: m.handleVerify},
	}
}
