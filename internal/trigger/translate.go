// Package trigger translates between the plugin trigger definition and the
// alerting subsystem's remote trigger representation. The plugin-specific
// fields (data sources, IOC types) travel as an opaque payload the alerting
// subsystem stores but never interprets.
package trigger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/intelguardhq/controller/internal/alerting"
	"github.com/intelguardhq/controller/pkg/types"
)

// payload is the serialized plugin-specific part of a trigger.
type payload struct {
	DataSources []string `json:"data_sources,omitempty"`
	IocTypes    []string `json:"ioc_types,omitempty"`
}

var validSeverities = map[string]struct{}{
	"1": {}, "2": {}, "3": {}, "4": {}, "5": {},
}

// Translate converts one plugin trigger into its remote representation. A
// trigger without an id gets one assigned.
func Translate(t types.ThreatIntelTrigger) (alerting.RemoteTrigger, error) {
	if strings.TrimSpace(t.Name) == "" {
		return alerting.RemoteTrigger{}, fmt.Errorf("trigger name is required")
	}
	if _, ok := validSeverities[t.Severity]; !ok {
		return alerting.RemoteTrigger{}, fmt.Errorf("trigger %q has invalid severity %q, want 1-5", t.Name, t.Severity)
	}

	raw, err := json.Marshal(payload{DataSources: t.DataSources, IocTypes: t.IocTypes})
	if err != nil {
		return alerting.RemoteTrigger{}, fmt.Errorf("serialize trigger %q payload: %w", t.Name, err)
	}

	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	return alerting.RemoteTrigger{
		ID:       id,
		Name:     t.Name,
		Severity: t.Severity,
		Actions:  t.Actions,
		Payload:  raw,
	}, nil
}

// ToDto converts a remote trigger back into the plugin representation.
func ToDto(rt alerting.RemoteTrigger) (types.ThreatIntelTrigger, error) {
	var p payload
	if len(rt.Payload) > 0 {
		if err := json.Unmarshal(rt.Payload, &p); err != nil {
			return types.ThreatIntelTrigger{}, fmt.Errorf("parse trigger %q payload: %w", rt.Name, err)
		}
	}
	return types.ThreatIntelTrigger{
		ID:          rt.ID,
		Name:        rt.Name,
		Severity:    rt.Severity,
		DataSources: p.DataSources,
		IocTypes:    p.IocTypes,
		Actions:     rt.Actions,
	}, nil
}
