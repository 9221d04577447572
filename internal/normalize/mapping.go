package normalize

// Attribute describes how one known Zabbix macro is carried into the
// canonical event.
type Attribute struct {
	// Key is the Zabbix macro name as it appears in the template.
	Key string
	// Dest is the destination key. It lands in the attributes map when it
	// contains a "/" or is listed in bareAttributes, and at the top level of
	// the event otherwise.
	Dest string
	// Required marks keys whose absence fails normalization.
	Required bool
	// Translate, when set, maps the upper-cased input value to the emitted
	// value. A value missing from the table is an error.
	Translate map[string]string
}

// Top-level destinations of the canonical event.
const (
	destHost             = "host"
	destValue            = "value"
	destEventDescription = "event_description"
)

// bareAttributes are destinations without a namespace that still belong in
// the attributes map.
var bareAttributes = map[string]bool{
	"state": true,
}

var triggerStatus = map[string]string{
	"PROBLEM": "alarm",
	"OK":      "ok",
}

// triggerSeverity maps Zabbix numeric severities (0 not classified,
// 1 information, 2 warning, 3 average, 4 high, 5 disaster).
var triggerSeverity = map[string]string{
	"0": "low",
	"1": "low",
	"2": "medium",
	"3": "medium",
	"4": "high",
	"5": "critical",
}

// DefaultAttributes is the mapping table of known Zabbix macros. The order is
// the order missing keys are reported in.
var DefaultAttributes = []Attribute{
	{Key: "HOST.NAME", Dest: destHost, Required: true},
	{Key: "TRIGGER.STATUS", Dest: "state", Required: true, Translate: triggerStatus},
	{Key: "TRIGGER.DESCRIPTION", Dest: destEventDescription, Required: true},
	{Key: "TRIGGER.NAME", Dest: "alert/title", Required: true},
	{Key: "TRIGGER.EXPRESSION", Dest: "alert/condition", Required: true},
	{Key: "NODE.NAME", Dest: "alert/monitoring_host", Required: true},
	{Key: "TRIGGER.NSEVERITY", Dest: destValue, Required: true, Translate: triggerSeverity},
	{Key: "TRIGGER.ID", Dest: "alert/id"},
}

// Keys handled outside the mapping table.
const (
	KeyEventDate = "EVENT.DATE"
	KeyEventTime = "EVENT.TIME"
	// KeyAPIKey lets a media type template carry the collector auth key. It is
	// consumed by the caller and never forwarded.
	KeyAPIKey = "_API_KEY"
)

// AttributeNamespace prefixes every unrecognized Zabbix key.
const AttributeNamespace = "zabbix/"
