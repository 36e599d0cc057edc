// Package transfers implements device ownership handover via single-use
// transfer codes.
package transfers

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Module       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

const defaultCodeLength = 8

// codeAlphabet excludes 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Module implements the transfers module.
type Module struct {
	logger     *zap.Logger
	bus        plugin.EventBus
	store      *Store
	devices    *deviceStore
	codeLength int
}

// New creates a new transfers module instance.
func New() *Module {
	return &Module{codeLength: defaultCodeLength}
}

func (m *Module) Info() plugin.ModuleInfo {
	return plugin.ModuleInfo{
		Name:         "transfers",
		Version:      "0.1.0",
		Description:  "Device ownership transfers",
		Dependencies: []string{"devices"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.store = NewStore(deps.Store.Collection("transfers"))
	m.devices = &deviceStore{col: deps.Store.Collection("devices")}

	if deps.Config != nil && deps.Config.IsSet("code_length") {
		if n := deps.Config.GetInt("code_length"); n >= 6 {
			m.codeLength = n
		}
	}

	m.logger.Info("transfers module initialized", zap.Int("code_length", m.codeLength))
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	return nil
}

// Routes implements plugin.HTTPProvider. Mounted under /api/v1/transfers.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "", Handler: m.handleInitiate},
		{Method: "POST", Path: "/accept", Handler: m.handleAccept},
		{Method: "GET", Path: "/{id}", Handler: m.handleGet},
		{Method: "POST", Path: "/{id}/cancel", Handler: m.handleCancel},
	}
}

// newCode generates a random transfer code from the unambiguous alphabet.
func (m *Module) newCode() (string, error) {
	buf := make([]byte, m.codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate transfer code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
