package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boltin-app/boltin/internal/event"
	"github.com/boltin-app/boltin/internal/store/storetest"
	"github.com/boltin-app/boltin/pkg/models"
	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

func newTestModule(t *testing.T) (*Module, *storetest.Memory) {
	t.Helper()
	mem := storetest.New()
	m := New()
	err := m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Bus:    event.NewBus(zap.NewNop()),
		Store:  mem,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m, mem
}

func newTestMux(m *Module) *http.ServeMux {
	mux := http.NewServeMux()
	for _, rt := range m.Routes() {
		mux.HandleFunc(fmt.Sprintf("%s /api/v1/reports%s", rt.Method, rt.Path), rt.Handler)
	}
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		raw = string(b)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) models.Report {
	t.Helper()
	var r models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode report: %v (body: %s)", err, rec.Body.String())
	}
	return r
}

func lostReport(serial string) models.Report {
	return models.Report{
		SerialNumber: serial,
		ReportType:   models.ReportLost,
		OwnerContact: "owner@example.com",
		IncidentDate: "2026-08-01",
		Location:     "Central Station",
	}
}

func foundReport(serial string) models.Report {
	return models.Report{
		SerialNumber:  serial,
		ReportType:    models.ReportFound,
		FinderName:    "Finn Dekker",
		FinderContact: "finn@example.com",
		FoundLocation: "Platform 4",
	}
}

func TestFileLostReport(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	rec := doJSON(t, mux, "POST", "/api/v1/reports", lostReport("sn-lost-01"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rep := decodeReport(t, rec)
	if rep.ID == "" {
		t.Error("report has no id")
	}
	if rep.SerialNumber != "SN-LOST-01" {
		t.Errorf("serial = %q, want uppercased", rep.SerialNumber)
	}
	if rep.Status != models.ReportActive {
		t.Errorf("status = %q, want active", rep.Status)
	}
}

func TestSecondOpenLossReportRejected(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	if rec := doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-ONE-01")); rec.Code != http.StatusCreated {
		t.Fatalf("first report: %d", rec.Code)
	}

	stolen := lostReport("SN-ONE-01")
	stolen.ReportType = models.ReportStolen
	rec := doJSON(t, mux, "POST", "/api/v1/reports", stolen)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (one open loss report per serial)", rec.Code)
	}
}

func TestResolvedReportDoesNotBlockNewFiling(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	rec := doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-AGAIN-01"))
	first := decodeReport(t, rec)

	if rec := doJSON(t, mux, "POST", "/api/v1/reports/"+first.ID+"/resolve", nil); rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d", rec.Code)
	}

	rec = doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-AGAIN-01"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 after resolving the first report", rec.Code)
	}
}

func TestFoundReportLinksToOpenLossReport(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	rec := doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-MATCH-01"))
	loss := decodeReport(t, rec)

	rec = doJSON(t, mux, "POST", "/api/v1/reports", foundReport("SN-MATCH-01"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("found report: %d, body = %s", rec.Code, rec.Body.String())
	}
	found := decodeReport(t, rec)
	if found.Status != models.ReportPendingPickup {
		t.Errorf("found status = %q, want pending_pickup", found.Status)
	}
	if found.LinkedMissingReport != loss.ID {
		t.Errorf("found links to %q, want %q", found.LinkedMissingReport, loss.ID)
	}

	rec = doJSON(t, mux, "GET", "/api/v1/reports/"+loss.ID, nil)
	loss = decodeReport(t, rec)
	if loss.LinkedMissingReport != found.ID {
		t.Errorf("loss links to %q, want %q (links must be bidirectional)", loss.LinkedMissingReport, found.ID)
	}
}

func TestSecondFoundReportRejectedWhilePickupPending(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	if rec := doJSON(t, mux, "POST", "/api/v1/reports", foundReport("SN-TWICE-01")); rec.Code != http.StatusCreated {
		t.Fatalf("first found report: %d", rec.Code)
	}
	rec := doJSON(t, mux, "POST", "/api/v1/reports", foundReport("SN-TWICE-01"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestPickupCompletesBothReports(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	rec := doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-PICKUP-01"))
	loss := decodeReport(t, rec)
	rec = doJSON(t, mux, "POST", "/api/v1/reports", foundReport("SN-PICKUP-01"))
	found := decodeReport(t, rec)

	rec = doJSON(t, mux, "POST", "/api/v1/reports/"+found.ID+"/pickup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pickup: %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decodeReport(t, rec)
	if got.Status != models.ReportCompleted {
		t.Errorf("found status = %q, want completed", got.Status)
	}

	rec = doJSON(t, mux, "GET", "/api/v1/reports/"+loss.ID, nil)
	loss = decodeReport(t, rec)
	if loss.Status != models.ReportResolved {
		t.Errorf("loss status = %q, want resolved after pickup", loss.Status)
	}
}

func TestTransitionRejectsWrongState(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	rec := doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-STATE-01"))
	rep := decodeReport(t, rec)

	if rec := doJSON(t, mux, "POST", "/api/v1/reports/"+rep.ID+"/resolve", nil); rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d", rec.Code)
	}
	rec = doJSON(t, mux, "POST", "/api/v1/reports/"+rep.ID+"/close", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("close after resolve = %d, want 409", rec.Code)
	}

	// Pickup only applies to found reports awaiting pickup.
	rec = doJSON(t, mux, "POST", "/api/v1/reports/"+rep.ID+"/pickup", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("pickup on loss report = %d, want 409", rec.Code)
	}
}

func TestTransitionUnknownReport(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	rec := doJSON(t, mux, "POST", "/api/v1/reports/nope/resolve", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFileValidation(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	tests := []struct {
		name string
		rep  models.Report
	}{
		{"missing serial", models.Report{ReportType: models.ReportLost, OwnerContact: "o@example.com"}},
		{"bad type", models.Report{SerialNumber: "SN-X", ReportType: "misplaced", OwnerContact: "o@example.com"}},
		{"loss without owner contact", models.Report{SerialNumber: "SN-X", ReportType: models.ReportLost}},
		{"found without finder contact", models.Report{SerialNumber: "SN-X", ReportType: models.ReportFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, "POST", "/api/v1/reports", tt.rep)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListFiltersBySerial(t *testing.T) {
	m, _ := newTestModule(t)
	mux := newTestMux(m)

	doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-LIST-A"))
	doJSON(t, mux, "POST", "/api/v1/reports", lostReport("SN-LIST-B"))

	rec := doJSON(t, mux, "GET", "/api/v1/reports?serial=sn-list-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SerialNumber != "SN-LIST-A" {
		t.Errorf("list = %+v, want only SN-LIST-A", list)
	}
}
