package types

// Operation distinguishes a create request from an update of an existing monitor.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// IocType identifies the indicator-of-compromise family a scan input covers.
type IocType string

const (
	IocTypeIPv4   IocType = "ipv4_addr"
	IocTypeIPv6   IocType = "ipv6_addr"
	IocTypeDomain IocType = "domain_name"
	IocTypeHashes IocType = "hashes"
)

// PerIocTypeScanInput maps one IOC type to the log indices and fields it is
// scanned against.
type PerIocTypeScanInput struct {
	IocType          IocType             `json:"ioc_type"`
	IndexToFieldsMap map[string][]string `json:"index_to_fields_map"`
}

// Period is the repeat interval of a monitor schedule.
type Period struct {
	Interval int    `json:"interval"`
	Unit     string `json:"unit"`
}

// Schedule describes when the alerting subsystem runs the monitor. The
// controller validates it but never interprets it beyond that.
type Schedule struct {
	Period Period `json:"period"`
}

// Action is a notification action attached to a trigger.
type Action struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	DestinationID string `json:"destination_id"`
}

// ThreatIntelTrigger is the plugin-side trigger definition. It is translated
// one-to-one into the alerting subsystem's remote trigger representation.
type ThreatIntelTrigger struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Severity    string   `json:"severity"`
	DataSources []string `json:"data_sources,omitempty"`
	IocTypes    []string `json:"ioc_types,omitempty"`
	Actions     []Action `json:"actions,omitempty"`
}

// ThreatIntelMonitor is the plugin-side monitor definition submitted by callers.
type ThreatIntelMonitor struct {
	ID                   string                `json:"id,omitempty"`
	Name                 string                `json:"name"`
	Enabled              bool                  `json:"enabled"`
	Schedule             Schedule              `json:"schedule"`
	Indices              []string              `json:"indices"`
	PerIocTypeScanInputs []PerIocTypeScanInput `json:"per_ioc_type_scan_input_list"`
	Triggers             []ThreatIntelTrigger  `json:"triggers"`
	User                 *User                 `json:"user,omitempty"`
}

// MonitorRequest is one admission request as handed over by the transport layer.
type MonitorRequest struct {
	Operation Operation
	ID        string
	Monitor   ThreatIntelMonitor
}

// MonitorResponse carries the indexing outcome back to the caller.
type MonitorResponse struct {
	ID          string             `json:"id"`
	Version     int64              `json:"version"`
	SeqNo       int64              `json:"seq_no"`
	PrimaryTerm int64              `json:"primary_term"`
	Monitor     ThreatIntelMonitor `json:"monitor"`
}
