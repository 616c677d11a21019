package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/intelguardhq/controller/internal/admission"
	"github.com/intelguardhq/controller/internal/alerting"
	"github.com/intelguardhq/controller/internal/metrics"
	"github.com/intelguardhq/controller/internal/store"
	"github.com/intelguardhq/controller/pkg/types"
)

func newTestServer(t *testing.T, cfg Config, admissionCfg admission.Config) *Server {
	t.Helper()
	svc := alerting.NewLocalService(alerting.Dependencies{Store: store.NewMemoryStore()})
	deps := Dependencies{
		Logger:    log.New(io.Discard, "", 0),
		Admission: admission.New(admissionCfg, admission.Dependencies{Alerting: svc}),
		Alerting:  svc,
		Metrics:   metrics.NewStore(),
	}
	return New(cfg, deps)
}

func monitorBody(t *testing.T, name string) *bytes.Buffer {
	t.Helper()
	def := types.ThreatIntelMonitor{
		Name:     name,
		Enabled:  true,
		Schedule: types.Schedule{Period: types.Period{Interval: 1, Unit: "MINUTES"}},
		Indices:  []string{"logs-1"},
		Triggers: []types.ThreatIntelTrigger{{Name: "ioc match", Severity: "2"}},
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(def); err != nil {
		t.Fatalf("encode monitor: %v", err)
	}
	return buf
}

func TestCreateThenConflict(t *testing.T) {
	srv := newTestServer(t, Config{}, admission.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, ""))
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rr.Code, rr.Body.String())
	}

	var created types.MonitorResponse
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Monitor.Name != admission.DefaultMonitorName {
		t.Fatalf("expected defaulted name, got %q", created.Monitor.Name)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "second"))
	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second create, got %d", rr2.Code)
	}
	var conflict struct {
		MonitorID string `json:"monitor_id"`
	}
	if err := json.NewDecoder(rr2.Body).Decode(&conflict); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if conflict.MonitorID != created.ID {
		t.Fatalf("conflict id %q, want %q", conflict.MonitorID, created.ID)
	}
}

func TestUpdateMonitor(t *testing.T) {
	srv := newTestServer(t, Config{}, admission.Config{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "tim")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status %d", rr.Code)
	}
	var created types.MonitorResponse
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, httptest.NewRequest(http.MethodPut, "/api/v1/threat-intel/monitors/"+created.ID, monitorBody(t, "tim renamed")))
	if rr2.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rr2.Code, rr2.Body.String())
	}
	var updated types.MonitorResponse
	if err := json.NewDecoder(rr2.Body).Decode(&updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.ID != created.ID || updated.Version != created.Version+1 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestForbiddenWithoutBackendRoles(t *testing.T) {
	srv := newTestServer(t, Config{}, admission.Config{FilterByBackendRoles: true})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "tim"))
	req.Header.Set("X-User-Name", "alice")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCreateAuthorizedWithBackendRoles(t *testing.T) {
	srv := newTestServer(t, Config{}, admission.Config{FilterByBackendRoles: true})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "tim"))
	req.Header.Set("X-User-Name", "alice")
	req.Header.Set("X-User-Backend-Roles", "ops, secops")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListMonitors(t *testing.T) {
	srv := newTestServer(t, Config{}, admission.Config{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/threat-intel/monitors", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status %d", rr.Code)
	}
	var empty struct {
		MonitorIDs []string `json:"monitor_ids"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&empty); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(empty.MonitorIDs) != 0 {
		t.Fatalf("expected empty list, got %v", empty.MonitorIDs)
	}

	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "tim")))
	if rr2.Code != http.StatusCreated {
		t.Fatalf("create status %d", rr2.Code)
	}

	rr3 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr3, httptest.NewRequest(http.MethodGet, "/api/v1/threat-intel/monitors", nil))
	var listed struct {
		MonitorIDs []string `json:"monitor_ids"`
	}
	if err := json.NewDecoder(rr3.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.MonitorIDs) != 1 {
		t.Fatalf("expected one monitor, got %v", listed.MonitorIDs)
	}
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{RateLimitEnabled: true, RequestsPerSecond: 1, Burst: 1}, admission.Config{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "tim")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("first write status %d", rr.Code)
	}

	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", monitorBody(t, "tim")))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr2.Code)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	srv := newTestServer(t, Config{}, admission.Config{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/threat-intel/monitors", bytes.NewBufferString("{not json")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
