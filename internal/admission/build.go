package admission

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/intelguardhq/controller/internal/alerting"
	"github.com/intelguardhq/controller/internal/trigger"
	"github.com/intelguardhq/controller/pkg/types"
)

// DefaultMonitorName is used when the request leaves the monitor name blank.
const DefaultMonitorName = "threat_intel_monitor"

var validScheduleUnits = map[string]struct{}{
	"MINUTES": {}, "HOURS": {}, "DAYS": {},
}

// buildMonitor maps the plugin monitor definition into the generic alerting
// representation. Trigger translation failures abort the whole build.
func buildMonitor(req types.MonitorRequest, user *types.User, now time.Time) (alerting.Monitor, *Error) {
	def := req.Monitor

	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = DefaultMonitorName
	}

	if err := validateSchedule(def.Schedule); err != nil {
		return alerting.Monitor{}, badRequest("invalid monitor definition", err)
	}

	input, err := buildScanInput(def)
	if err != nil {
		return alerting.Monitor{}, internal(0, "failed to build threat intel scan input", err)
	}

	triggers := make([]alerting.RemoteTrigger, 0, len(def.Triggers))
	for _, dto := range def.Triggers {
		rt, err := trigger.Translate(dto)
		if err != nil {
			return alerting.Monitor{}, internal(0, "failed to translate threat intel trigger", err)
		}
		triggers = append(triggers, rt)
	}

	id := alerting.NoID
	if req.Operation == types.OperationUpdate {
		id = req.ID
	}

	var enabledTime *time.Time
	if def.Enabled {
		t := now
		enabledTime = &t
	}

	return alerting.Monitor{
		ID:             id,
		Version:        alerting.NoVersion,
		Name:           name,
		MonitorType:    alerting.MonitorTypeThreatIntel,
		Enabled:        def.Enabled,
		Schedule:       def.Schedule,
		LastUpdateTime: now,
		EnabledTime:    enabledTime,
		User:           user,
		SchemaVersion:  1,
		Inputs:         []alerting.RemoteDocLevelMonitorInput{input},
		Triggers:       triggers,
		Owner:          alerting.PluginOwner,
	}, nil
}

// buildScanInput wraps the per-IOC-type scan inputs into one opaque payload
// attached to a generic doc-level input: all configured indices, no inline
// queries, old documents ignored.
func buildScanInput(def types.ThreatIntelMonitor) (alerting.RemoteDocLevelMonitorInput, error) {
	payload, err := json.Marshal(alerting.ThreatIntelInput{
		PerIocTypeScanInputs: def.PerIocTypeScanInputs,
	})
	if err != nil {
		return alerting.RemoteDocLevelMonitorInput{}, fmt.Errorf("serialize scan inputs: %w", err)
	}

	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = DefaultMonitorName
	}
	return alerting.RemoteDocLevelMonitorInput{
		Payload: payload,
		DocLevelInput: alerting.DocLevelMonitorInput{
			Description:        fmt.Sprintf("threat intel input for monitor named %s", name),
			Indices:            def.Indices,
			IgnoreOldDocuments: true,
		},
	}, nil
}

func validateSchedule(s types.Schedule) error {
	if s.Period.Interval < 1 {
		return fmt.Errorf("schedule period interval must be at least 1, got %d", s.Period.Interval)
	}
	unit := strings.ToUpper(s.Period.Unit)
	if _, ok := validScheduleUnits[unit]; !ok {
		return fmt.Errorf("schedule period unit %q is not one of MINUTES, HOURS, DAYS", s.Period.Unit)
	}
	return nil
}

// monitorToDto converts the generic monitor returned by the alerting service
// back into the plugin representation carried in responses.
func monitorToDto(m alerting.Monitor) (types.ThreatIntelMonitor, error) {
	dto := types.ThreatIntelMonitor{
		ID:       m.ID,
		Name:     m.Name,
		Enabled:  m.Enabled,
		Schedule: m.Schedule,
		User:     m.User,
	}

	if len(m.Inputs) > 0 {
		in := m.Inputs[0]
		dto.Indices = in.DocLevelInput.Indices

		var payload alerting.ThreatIntelInput
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &payload); err != nil {
				return types.ThreatIntelMonitor{}, fmt.Errorf("parse threat intel input payload: %w", err)
			}
		}
		dto.PerIocTypeScanInputs = payload.PerIocTypeScanInputs
	}

	dto.Triggers = make([]types.ThreatIntelTrigger, 0, len(m.Triggers))
	for _, rt := range m.Triggers {
		t, err := trigger.ToDto(rt)
		if err != nil {
			return types.ThreatIntelMonitor{}, err
		}
		dto.Triggers = append(dto.Triggers, t)
	}
	return dto, nil
}
