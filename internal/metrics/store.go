package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Store maintains in-memory counters for admission telemetry.
type Store struct {
	createdTotal   atomic.Uint64
	updatedTotal   atomic.Uint64
	conflictsTotal atomic.Uint64
	forbiddenTotal atomic.Uint64
	rejectedTotal  atomic.Uint64
	failuresTotal  atomic.Uint64
}

// NewStore constructs a Store with zeroed counters.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) RecordCreated()   { s.createdTotal.Add(1) }
func (s *Store) RecordUpdated()   { s.updatedTotal.Add(1) }
func (s *Store) RecordConflict()  { s.conflictsTotal.Add(1) }
func (s *Store) RecordForbidden() { s.forbiddenTotal.Add(1) }
func (s *Store) RecordRejected()  { s.rejectedTotal.Add(1) }
func (s *Store) RecordFailure()   { s.failuresTotal.Add(1) }

// Snapshot captures the current counter values in a plain struct.
type Snapshot struct {
	CreatedTotal   uint64
	UpdatedTotal   uint64
	ConflictsTotal uint64
	ForbiddenTotal uint64
	RejectedTotal  uint64
	FailuresTotal  uint64
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		CreatedTotal:   s.createdTotal.Load(),
		UpdatedTotal:   s.updatedTotal.Load(),
		ConflictsTotal: s.conflictsTotal.Load(),
		ForbiddenTotal: s.forbiddenTotal.Load(),
		RejectedTotal:  s.rejectedTotal.Load(),
		FailuresTotal:  s.failuresTotal.Load(),
	}
}

// Handler exposes the counters in a plain-text line format.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snap := s.Snapshot()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "monitors_created_total %d\n", snap.CreatedTotal)
		fmt.Fprintf(w, "monitors_updated_total %d\n", snap.UpdatedTotal)
		fmt.Fprintf(w, "admission_conflicts_total %d\n", snap.ConflictsTotal)
		fmt.Fprintf(w, "admission_forbidden_total %d\n", snap.ForbiddenTotal)
		fmt.Fprintf(w, "admission_rejected_total %d\n", snap.RejectedTotal)
		fmt.Fprintf(w, "admission_failures_total %d\n", snap.FailuresTotal)
	})
}
