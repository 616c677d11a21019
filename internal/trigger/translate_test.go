package trigger

import (
	"testing"

	"github.com/intelguardhq/controller/pkg/types"
)

func TestTranslateRoundTrip(t *testing.T) {
	dto := types.ThreatIntelTrigger{
		ID:          "trg-1",
		Name:        "high severity ioc match",
		Severity:    "1",
		DataSources: []string{"logs-1", "logs-2"},
		IocTypes:    []string{string(types.IocTypeIPv4)},
		Actions:     []types.Action{{Name: "notify", DestinationID: "dst-9"}},
	}

	remote, err := Translate(dto)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if remote.ID != "trg-1" || remote.Severity != "1" || len(remote.Payload) == 0 {
		t.Fatalf("unexpected remote trigger: %+v", remote)
	}

	back, err := ToDto(remote)
	if err != nil {
		t.Fatalf("ToDto: %v", err)
	}
	if back.Name != dto.Name || len(back.DataSources) != 2 || len(back.IocTypes) != 1 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestTranslateAssignsID(t *testing.T) {
	remote, err := Translate(types.ThreatIntelTrigger{Name: "t", Severity: "3"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if remote.ID == "" {
		t.Fatalf("expected assigned trigger id")
	}
}

func TestTranslateRejectsMissingName(t *testing.T) {
	if _, err := Translate(types.ThreatIntelTrigger{Severity: "2"}); err == nil {
		t.Fatalf("expected error for missing name")
	}
}

func TestTranslateRejectsBadSeverity(t *testing.T) {
	if _, err := Translate(types.ThreatIntelTrigger{Name: "t", Severity: "critical"}); err == nil {
		t.Fatalf("expected error for invalid severity")
	}
}
