package notify

import (
	"context"
	"testing"

	"github.com/boltin-app/boltin/internal/event"
	"github.com/boltin-app/boltin/internal/reports"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestModule(t *testing.T) (*Module, *event.Bus, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	bus := event.NewBus(zap.NewNop())

	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: logger, Bus: bus}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m, bus, logs
}

func TestReportFiledNotifiesOwner(t *testing.T) {
	_, bus, logs := newTestModule(t)

	err := bus.Publish(context.Background(), plugin.Event{
		Topic:  "report.filed",
		Source: "reports",
		Payload: models.Report{
			ID:           "rep-1",
			SerialNumber: "SN-N-01",
			ReportType:   models.ReportLost,
			OwnerContact: "ada@example.com",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("would send report confirmation").All()
	if len(entries) != 1 {
		t.Fatalf("confirmation log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["to"]; got != "ada@example.com" {
		t.Errorf("to = %v, want owner contact", got)
	}
}

func TestFoundReportNotifiesFinder(t *testing.T) {
	_, bus, logs := newTestModule(t)

	_ = bus.Publish(context.Background(), plugin.Event{
		Topic:  "report.filed",
		Source: "reports",
		Payload: models.Report{
			ID:            "rep-2",
			SerialNumber:  "SN-N-02",
			ReportType:    models.ReportFound,
			FinderContact: "finn@example.com",
		},
	})

	entries := logs.FilterMessage("would send report confirmation").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["to"]; got != "finn@example.com" {
		t.Errorf("to = %v, want finder contact", got)
	}
}

func TestMatchNotifiesBothParties(t *testing.T) {
	_, bus, logs := newTestModule(t)

	_ = bus.Publish(context.Background(), plugin.Event{
		Topic:  "report.matched",
		Source: "reports",
		Payload: reports.MatchPayload{
			FoundReport: models.Report{ID: "f-1", SerialNumber: "SN-M-01", FinderContact: "finn@example.com"},
			LossReport:  models.Report{ID: "l-1", SerialNumber: "SN-M-01", OwnerContact: "ada@example.com"},
		},
	})

	entries := logs.FilterMessage("would notify owner and finder of a match").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["owner"] != "ada@example.com" || fields["finder"] != "finn@example.com" {
		t.Errorf("fields = %v", fields)
	}
}

func TestStopUnsubscribes(t *testing.T) {
	m, bus, logs := newTestModule(t)
	if err := m.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	_ = bus.Publish(context.Background(), plugin.Event{
		Topic:   "report.filed",
		Payload: models.Report{ReportType: models.ReportLost, OwnerContact: "x@example.com"},
	})
	if n := logs.FilterMessage("would send report confirmation").Len(); n != 0 {
		t.Errorf("entries after Stop = %d, want 0", n)
	}
}
