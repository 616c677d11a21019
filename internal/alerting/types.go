package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/intelguardhq/controller/pkg/types"
)

// Reserved tags shared between the singleton existence query and the monitor
// builder. They must never be derived independently of each other.
const (
	// MonitorTypeThreatIntel marks the reserved threat-intel monitor type.
	MonitorTypeThreatIntel = "threat_intel"
	// PluginOwner marks monitors owned by the threat-intel plugin.
	PluginOwner = "security_analytics"
)

// Sentinels used when indexing a monitor.
const (
	// NoID requests id assignment by the alerting service.
	NoID = ""
	// NoVersion indicates the caller does not round-trip an existing version.
	NoVersion int64 = -1
	// UnassignedSeqNo and UnassignedPrimaryTerm leave optimistic-concurrency
	// bookkeeping to the alerting service.
	UnassignedSeqNo       int64 = -2
	UnassignedPrimaryTerm int64 = 0
)

// RefreshPolicy controls write visibility of an index operation.
type RefreshPolicy string

const (
	RefreshImmediate RefreshPolicy = "immediate"
	RefreshWaitFor   RefreshPolicy = "wait_for"
	RefreshNone      RefreshPolicy = "none"
)

// DocLevelMonitorInput is the generic document-level input: which indices the
// monitor scans and whether documents predating the monitor are skipped.
type DocLevelMonitorInput struct {
	Description        string            `json:"description"`
	Indices            []string          `json:"indices"`
	Queries            []json.RawMessage `json:"queries"`
	IgnoreOldDocuments bool              `json:"ignore_old_documents"`
}

// RemoteDocLevelMonitorInput pairs a doc-level input with an opaque payload
// that only the owning plugin's monitor runner can interpret.
type RemoteDocLevelMonitorInput struct {
	Payload       json.RawMessage      `json:"payload"`
	DocLevelInput DocLevelMonitorInput `json:"doc_level_input"`
}

// RemoteTrigger is the generic trigger representation. The plugin-specific
// parts of a trigger travel in the opaque payload.
type RemoteTrigger struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Severity string          `json:"severity"`
	Actions  []types.Action  `json:"actions,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// ThreatIntelInput is the plugin payload carried inside a remote doc-level
// input.
type ThreatIntelInput struct {
	PerIocTypeScanInputs []types.PerIocTypeScanInput `json:"per_ioc_type_scan_input_list"`
}

// Monitor is the generic monitor representation owned by the alerting
// subsystem.
type Monitor struct {
	ID             string                       `json:"id,omitempty"`
	Version        int64                        `json:"version"`
	Name           string                       `json:"name"`
	MonitorType    string                       `json:"monitor_type"`
	Enabled        bool                         `json:"enabled"`
	Schedule       types.Schedule               `json:"schedule"`
	LastUpdateTime time.Time                    `json:"last_update_time"`
	EnabledTime    *time.Time                   `json:"enabled_time,omitempty"`
	User           *types.User                  `json:"user,omitempty"`
	SchemaVersion  int                          `json:"schema_version"`
	Inputs         []RemoteDocLevelMonitorInput `json:"inputs"`
	Triggers       []RemoteTrigger              `json:"triggers"`
	Owner          string                       `json:"owner"`
}

// IndexMonitorRequest asks the alerting service to create or update a monitor.
type IndexMonitorRequest struct {
	ID          string
	SeqNo       int64
	PrimaryTerm int64
	Refresh     RefreshPolicy
	Operation   types.Operation
	Monitor     Monitor
}

// IndexMonitorResponse is the indexing outcome.
type IndexMonitorResponse struct {
	ID          string
	Version     int64
	SeqNo       int64
	PrimaryTerm int64
	Monitor     Monitor
}

// MonitorFilter narrows a monitor search to one owner and monitor type.
type MonitorFilter struct {
	Owner       string
	MonitorType string
}

// MonitorHit is one search match; the existence check only needs ids.
type MonitorHit struct {
	ID string
}

// Service is the alerting delegation surface consumed by the admission
// controller.
type Service interface {
	IndexMonitor(ctx context.Context, req IndexMonitorRequest) (IndexMonitorResponse, error)
	SearchMonitors(ctx context.Context, filter MonitorFilter) ([]MonitorHit, error)
}

// StatusError is a failure carrying a status code inherited from the alerting
// subsystem.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("alerting: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("alerting: %s (status %d): %v", e.Message, e.Status, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *StatusError) Unwrap() error {
	return e.Err
}
