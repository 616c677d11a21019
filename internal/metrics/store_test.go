package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSnapshotCounts(t *testing.T) {
	s := NewStore()
	s.RecordCreated()
	s.RecordCreated()
	s.RecordConflict()
	s.RecordFailure()

	snap := s.Snapshot()
	if snap.CreatedTotal != 2 || snap.ConflictsTotal != 1 || snap.FailuresTotal != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	s := NewStore()
	s.RecordUpdated()

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "monitors_updated_total 1") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
