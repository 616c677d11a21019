package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/intelguardhq/controller/internal/store"
	"github.com/intelguardhq/controller/pkg/types"
)

// Dependencies allow test overrides for storage, clock, and logging.
type Dependencies struct {
	Store  store.Store
	Now    func() time.Time
	Logger *log.Logger
}

// LocalService implements Service on top of a store.Store. Both the memory and
// the PostgreSQL store commit synchronously, so every refresh policy behaves
// like RefreshImmediate.
type LocalService struct {
	store  store.Store
	now    func() time.Time
	logger *log.Logger
}

// NewLocalService builds a LocalService, defaulting absent dependencies.
func NewLocalService(deps Dependencies) *LocalService {
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	return &LocalService{store: deps.Store, now: deps.Now, logger: deps.Logger}
}

// IndexMonitor creates or updates a monitor with create-or-update semantics:
// an empty id requests assignment, a non-empty id targets an existing record.
func (s *LocalService) IndexMonitor(ctx context.Context, req IndexMonitorRequest) (IndexMonitorResponse, error) {
	monitor := req.Monitor
	if strings.TrimSpace(monitor.Name) == "" {
		return IndexMonitorResponse{}, &StatusError{Status: http.StatusBadRequest, Message: "monitor name is required"}
	}

	var (
		version     int64 = 1
		seqNo       int64 = 0
		primaryTerm int64 = 1
	)

	id := req.ID
	switch req.Operation {
	case types.OperationCreate:
		if id == NoID {
			id = "mon_" + uuid.NewString()
		}
	case types.OperationUpdate:
		if id == NoID {
			return IndexMonitorResponse{}, &StatusError{Status: http.StatusBadRequest, Message: "monitor id is required for update"}
		}
		existing, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return IndexMonitorResponse{}, &StatusError{Status: http.StatusNotFound, Message: fmt.Sprintf("monitor %s not found", id), Err: err}
			}
			return IndexMonitorResponse{}, &StatusError{Status: http.StatusInternalServerError, Message: "fetch existing monitor", Err: err}
		}
		version = existing.Version + 1
		seqNo = existing.SeqNo + 1
		primaryTerm = existing.PrimaryTerm
	default:
		return IndexMonitorResponse{}, &StatusError{Status: http.StatusBadRequest, Message: fmt.Sprintf("unsupported operation %q", req.Operation)}
	}

	monitor.ID = id
	monitor.Version = version

	doc, err := json.Marshal(monitor)
	if err != nil {
		return IndexMonitorResponse{}, &StatusError{Status: http.StatusInternalServerError, Message: "serialize monitor", Err: err}
	}

	rec := store.Record{
		ID:          id,
		Owner:       monitor.Owner,
		MonitorType: monitor.MonitorType,
		Version:     version,
		SeqNo:       seqNo,
		PrimaryTerm: primaryTerm,
		Document:    doc,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return IndexMonitorResponse{}, &StatusError{Status: http.StatusInternalServerError, Message: "persist monitor", Err: err}
	}

	s.logger.Printf("indexed monitor %s (operation=%s version=%d)", id, req.Operation, version)
	return IndexMonitorResponse{
		ID:          id,
		Version:     version,
		SeqNo:       seqNo,
		PrimaryTerm: primaryTerm,
		Monitor:     monitor,
	}, nil
}

// SearchMonitors returns the ids of monitors matching the filter. Store errors
// pass through wrapped so callers can classify an uninitialized store.
func (s *LocalService) SearchMonitors(ctx context.Context, filter MonitorFilter) ([]MonitorHit, error) {
	ids, err := s.store.SearchIDs(ctx, store.Filter{Owner: filter.Owner, MonitorType: filter.MonitorType})
	if err != nil {
		return nil, fmt.Errorf("search monitors: %w", err)
	}
	hits := make([]MonitorHit, 0, len(ids))
	for _, id := range ids {
		hits = append(hits, MonitorHit{ID: id})
	}
	return hits, nil
}
