package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

// stubSource provides a fixed set of modules and routes.
type stubSource struct {
	routes map[string][]plugin.Route
}

func (s *stubSource) AllRoutes() map[string][]plugin.Route { return s.routes }
func (s *stubSource) All() []plugin.Module                 { return nil }

func newTestServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	src := &stubSource{routes: map[string][]plugin.Route{
		"devices": {
			{Method: "GET", Path: "/ping", Handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}},
		},
	}}
	return New("127.0.0.1:0", src, zap.NewNop(), ready, nil, false)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "alive" {
		t.Errorf("status field = %q, want alive", body["status"])
	}
}

func TestReadyzNotReady(t *testing.T) {
	s := newTestServer(t, func(context.Context) error {
		return fmt.Errorf("store unavailable")
	})
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestModuleRoutesMounted(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/devices/ping", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d (module route not mounted)", rec.Code, http.StatusTeapot)
	}
}

func TestVersionHeaderPresent(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Header().Get("X-Boltin-Version") == "" {
		t.Error("X-Boltin-Version header missing")
	}
}

func TestProblemResponseShape(t *testing.T) {
	rec := httptest.NewRecorder()
	Conflict(rec, "serial number already registered", "serial number", "/api/v1/devices")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
	var p Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ConflictField != "serial number" {
		t.Errorf("conflict_field = %q, want %q", p.ConflictField, "serial number")
	}
}

func TestValidationFailedCarriesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationFailed(rec, map[string]string{"imei": "Invalid IMEI checksum"}, "/api/v1/devices")

	var p Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Fields["imei"] != "Invalid IMEI checksum" {
		t.Errorf("fields = %v", p.Fields)
	}
}
