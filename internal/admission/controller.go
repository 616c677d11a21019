// Package admission implements the threat-intel monitor admission controller:
// at most one threat-intel monitor may exist system-wide. Creation requests
// run a search-based existence check before delegating to the alerting
// service; updates address a known id and skip the check.
//
// The existence check is check-then-act, not transactional: two concurrent
// create requests can both observe an empty store and both proceed. Closing
// that race needs a uniqueness constraint in the backing store; it is an
// accepted limitation here.
package admission

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/intelguardhq/controller/internal/alerting"
	"github.com/intelguardhq/controller/internal/auth"
	"github.com/intelguardhq/controller/internal/store"
	"github.com/intelguardhq/controller/pkg/types"
)

const defaultIndexTimeout = 60 * time.Second

// notFoundMessage is the fallback match for search backends that report an
// uninitialized store as message text instead of a structured error.
const notFoundMessage = "configured indices are not found"

// Config holds the admission settings, loaded once at construction. A changed
// configuration takes effect for subsequent controllers only.
type Config struct {
	FilterByBackendRoles bool
	IndexTimeout         time.Duration
}

// Dependencies holds the external collaborators of the controller.
type Dependencies struct {
	Alerting alerting.Service
	Logger   *log.Logger
	Now      func() time.Time
}

// Controller is the monitor admission controller.
type Controller struct {
	cfg      Config
	alerting alerting.Service
	logger   *log.Logger
	now      func() time.Time
}

// New constructs a Controller, defaulting absent dependencies.
func New(cfg Config, deps Dependencies) *Controller {
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = defaultIndexTimeout
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		cfg:      cfg,
		alerting: deps.Alerting,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

// Handle admits one create or update request: authorize, enforce the
// singleton on create, build the generic monitor, delegate, map the response.
// Every returned error is an *Error.
func (c *Controller) Handle(ctx context.Context, req types.MonitorRequest, user *types.User) (types.MonitorResponse, error) {
	if msg := auth.ValidateBackendRoles(user, c.cfg.FilterByBackendRoles); msg != "" {
		return types.MonitorResponse{}, forbidden(msg)
	}

	switch req.Operation {
	case types.OperationUpdate:
		if strings.TrimSpace(req.ID) == "" {
			return types.MonitorResponse{}, badRequest("monitor id is required for update", nil)
		}
		// An explicit id implies the caller already knows which record to
		// target; no existence check.
	case types.OperationCreate:
		if err := c.checkNoExistingMonitor(ctx); err != nil {
			return types.MonitorResponse{}, err
		}
	default:
		return types.MonitorResponse{}, badRequest("operation must be create or update", nil)
	}

	monitor, aerr := buildMonitor(req, user, c.now())
	if aerr != nil {
		return types.MonitorResponse{}, aerr
	}

	ictx, cancel := context.WithTimeout(ctx, c.cfg.IndexTimeout)
	defer cancel()

	resp, err := c.alerting.IndexMonitor(ictx, alerting.IndexMonitorRequest{
		ID:          monitor.ID,
		SeqNo:       alerting.UnassignedSeqNo,
		PrimaryTerm: alerting.UnassignedPrimaryTerm,
		Refresh:     alerting.RefreshImmediate,
		Operation:   req.Operation,
		Monitor:     monitor,
	})
	if err != nil {
		c.logger.Printf("failed to index threat intel monitor %q: %v", monitor.Name, err)
		var se *alerting.StatusError
		if errors.As(err, &se) {
			return types.MonitorResponse{}, internal(se.Status, "failed to index threat intel monitor", err)
		}
		return types.MonitorResponse{}, internal(0, "failed to index threat intel monitor", err)
	}

	dto, err := monitorToDto(resp.Monitor)
	if err != nil {
		return types.MonitorResponse{}, internal(0, "failed to map indexed monitor", err)
	}

	verb := "created"
	if req.Operation == types.OperationUpdate {
		verb = "updated"
	}
	c.logger.Printf("%s threat intel monitor %s", verb, resp.ID)
	return types.MonitorResponse{
		ID:          resp.ID,
		Version:     resp.Version,
		SeqNo:       resp.SeqNo,
		PrimaryTerm: resp.PrimaryTerm,
		Monitor:     dto,
	}, nil
}

// checkNoExistingMonitor enforces the singleton invariant for create requests.
func (c *Controller) checkNoExistingMonitor(ctx context.Context) *Error {
	hits, err := c.alerting.SearchMonitors(ctx, alerting.MonitorFilter{
		Owner:       alerting.PluginOwner,
		MonitorType: alerting.MonitorTypeThreatIntel,
	})
	if err != nil {
		// An uninitialized store is indistinguishable from an empty one for
		// existence purposes.
		if IsStoreMissing(err) {
			c.logger.Printf("monitor store not initialized, proceeding with create: %v", err)
			return nil
		}
		return internal(0, "failed to search for existing threat intel monitors", err)
	}
	if len(hits) > 0 {
		return alreadyExists(hits[0].ID)
	}
	return nil
}

// IsStoreMissing reports whether a search failure means the backing store has
// never been initialized. The structured sentinel is preferred; the message
// match covers remote search backends that only report text.
func IsStoreMissing(err error) bool {
	if errors.Is(err, store.ErrStoreNotInitialized) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), notFoundMessage)
}
