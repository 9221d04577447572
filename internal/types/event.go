package types

import "encoding/json"

// EventSourceZabbix is the constant event_source of every relayed event.
const EventSourceZabbix = "zabbix"

// CanonicalEvent is the normalized incident document accepted by the collector.
type CanonicalEvent struct {
	Host             string            `json:"host"`
	Value            string            `json:"value" validate:"oneof=low medium high critical"`
	EventDescription string            `json:"event_description"`
	Timestamp        int64             `json:"timestamp"`
	EventSource      string            `json:"event_source" validate:"required"`
	Attributes       map[string]string `json:"attributes" validate:"required"`
}

// EventBatch is the wire envelope POSTed to the collector.
type EventBatch struct {
	Events []*CanonicalEvent `json:"events" validate:"required,min=1,dive"`
}

// NewEventBatch wraps one or more events in the collector envelope.
func NewEventBatch(events ...*CanonicalEvent) *EventBatch {
	return &EventBatch{Events: events}
}

// CollectorResponse is the JSON body returned by the collector on 2xx.
// A missing "success" key decodes as false.
type CollectorResponse struct {
	Success      bool              `json:"success"`
	FailedEvents []json.RawMessage `json:"failed_events"`
}

// DeliveryOutcome is the terminal result of one delivery attempt.
type DeliveryOutcome string

const (
	// OutcomeSuccess means the collector accepted every event.
	OutcomeSuccess DeliveryOutcome = "success"
	// OutcomeHardFailure covers connection, transport, HTTP status and
	// response decoding errors.
	OutcomeHardFailure DeliveryOutcome = "hard_failure"
	// OutcomePartialFailure means the collector was reachable and processed the
	// request but rejected all or some of the events.
	OutcomePartialFailure DeliveryOutcome = "partial_failure"
)

// DeliveryResult captures the outcome of a delivery along with the
// diagnostics gathered on the way.
type DeliveryResult struct {
	Outcome DeliveryOutcome

	// Attempts is the number of connection attempts made.
	Attempts int

	// StatusCode is the HTTP status returned by the collector, 0 if no
	// response was received.
	StatusCode int

	// ResponseBody is the raw collector response body, if one was read.
	ResponseBody string

	FailedEvents  []json.RawMessage
	FailureReason string

	// Err is nil only when Outcome is OutcomeSuccess.
	Err error
}

// OK reports whether the delivery fully succeeded.
func (r *DeliveryResult) OK() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}
