package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

// fakeModule is a configurable test module.
type fakeModule struct {
	info    plugin.ModuleInfo
	initErr error
	started bool
	stopped bool
}

func (m *fakeModule) Info() plugin.ModuleInfo { return m.info }

func (m *fakeModule) Init(_ context.Context, _ plugin.Dependencies) error {
	return m.initErr
}

func (m *fakeModule) Start(_ context.Context) error {
	m.started = true
	return nil
}

func (m *fakeModule) Stop(_ context.Context) error {
	m.stopped = true
	return nil
}

func newFake(name string, deps ...string) *fakeModule {
	return &fakeModule{info: plugin.ModuleInfo{
		Name:         name,
		Version:      "0.1.0",
		Dependencies: deps,
		APIVersion:   plugin.APIVersionCurrent,
	}}
}

func noDeps(_ string) plugin.Dependencies { return plugin.Dependencies{} }

func TestRegisterDuplicate(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(newFake("devices")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(newFake("devices")); err == nil {
		t.Fatal("expected error registering duplicate module name")
	}
}

func TestRegisterEmptyName(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(newFake("")); err == nil {
		t.Fatal("expected error registering module with empty name")
	}
}

func TestValidateOrdersDependencies(t *testing.T) {
	r := New(zap.NewNop())
	for _, m := range []*fakeModule{
		newFake("notify", "reports"),
		newFake("reports", "devices"),
		newFake("devices"),
	} {
		if err := r.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.info.Name, err)
		}
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	pos := make(map[string]int)
	for i, m := range r.All() {
		pos[m.Info().Name] = i
	}
	if pos["devices"] > pos["reports"] || pos["reports"] > pos["notify"] {
		t.Errorf("start order does not respect dependencies: %v", pos)
	}
}

func TestValidateMissingDependencyRequired(t *testing.T) {
	r := New(zap.NewNop())
	m := newFake("reports", "devices")
	m.info.Required = true
	if err := r.Register(m); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for required module with missing dependency")
	}
}

func TestValidateMissingDependencyOptionalDisables(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(newFake("reports", "devices")); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !r.IsDisabled("reports") {
		t.Error("optional module with missing dependency should be disabled")
	}
}

func TestValidateCycle(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(newFake("a", "b")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(newFake("b", "a")); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestInitAllDisablesFailedOptional(t *testing.T) {
	r := New(zap.NewNop())
	broken := newFake("broken")
	broken.initErr = fmt.Errorf("boom")
	if err := r.Register(broken); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(newFake("devices")); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := r.InitAll(context.Background(), noDeps); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if !r.IsDisabled("broken") {
		t.Error("failed optional module should be disabled after InitAll")
	}
	if _, ok := r.Get("devices"); !ok {
		t.Error("healthy module should remain resolvable")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	r := New(zap.NewNop())
	m := newFake("devices")
	if err := r.Register(m); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := r.InitAll(context.Background(), noDeps); err != nil {
		t.Fatal(err)
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !m.started {
		t.Error("module was not started")
	}
	r.StopAll(context.Background())
	if !m.stopped {
		t.Error("module was not stopped")
	}
}
