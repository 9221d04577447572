// Package normalize maps parsed Zabbix fields onto the canonical incident
// event accepted by the collector.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"zbxrelay/internal/types"
)

// Date and time layouts accepted for EVENT.DATE and EVENT.TIME. Zabbix
// expands {EVENT.DATE} as YYYY.MM.DD; YYYY-MM-DD is accepted as well.
var (
	dateLayouts = []string{"2006-01-02", "2006.01.02"}
	timeLayout  = "15:04:05"
)

// rekeyReplacer turns a Zabbix macro name into an attribute path.
var rekeyReplacer = strings.NewReplacer(
	".", "/",
	" ", "_",
	"(", "",
	")", "",
)

// Normalizer converts ParsedFields into a CanonicalEvent.
type Normalizer struct {
	attributes []Attribute
	index      map[string]Attribute
	clock      types.Clock
	location   *time.Location
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the clock used when the template carries no date.
func WithClock(c types.Clock) Option {
	return func(n *Normalizer) {
		n.clock = c
	}
}

// WithLocation overrides the zone EVENT.DATE/EVENT.TIME are interpreted in.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		n.location = loc
	}
}

// WithAttributes replaces the mapping table.
func WithAttributes(attrs []Attribute) Option {
	return func(n *Normalizer) {
		n.attributes = attrs
	}
}

// New creates a Normalizer using DefaultAttributes unless overridden.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		attributes: DefaultAttributes,
		clock:      types.RealClock{},
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(n)
	}

	n.index = make(map[string]Attribute, len(n.attributes))
	for _, a := range n.attributes {
		n.index[a.Key] = a
	}
	return n
}

// Normalize builds the canonical event.
//
// Errors are *types.AppError with code ErrCodeValidationUnmappedEnum when a
// translated key holds an unknown value, and ErrCodeValidationMissingAttrs
// listing every absent required key.
func (n *Normalizer) Normalize(fields *types.ParsedFields) (*types.CanonicalEvent, error) {
	event := &types.CanonicalEvent{
		Attributes: make(map[string]string),
	}

	seen := make(map[string]bool, len(n.attributes))
	var (
		eventDate time.Time
		eventTime time.Time
		haveDate  bool
		haveTime  bool
	)

	for _, key := range fields.Keys() {
		value, _ := fields.Get(key)

		if attr, ok := n.index[key]; ok {
			seen[key] = true

			if attr.Translate != nil {
				translated, ok := attr.Translate[strings.ToUpper(value)]
				if !ok {
					return nil, types.NewAppErrorWithDetails(
						types.ErrCodeValidationUnmappedEnum,
						fmt.Sprintf("unknown value %q for %s", value, key),
						nil,
						map[string]any{"key": key, "value": value},
					)
				}
				value = translated
			}

			n.place(event, attr.Dest, value)
			continue
		}

		switch key {
		case KeyEventDate:
			if d, ok := parseDate(value, n.location); ok {
				eventDate, haveDate = d, true
			}
		case KeyEventTime:
			if t, err := time.Parse(timeLayout, value); err == nil {
				eventTime, haveTime = t, true
			}
		case KeyAPIKey:
			// never forwarded
		default:
			event.Attributes[AttributeNamespace+Rekey(key)] = value
		}
	}

	var missing []string
	for _, a := range n.attributes {
		if a.Required && !seen[a.Key] {
			missing = append(missing, a.Key)
		}
	}
	if len(missing) > 0 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingAttrs,
			"missing attributes: "+strings.Join(missing, ", "),
			nil,
			map[string]any{"missing": missing},
		)
	}

	var stamp time.Time
	if haveDate {
		stamp = eventDate
		if haveTime {
			stamp = time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(),
				eventTime.Hour(), eventTime.Minute(), eventTime.Second(), 0, n.location)
		}
	} else {
		// A time of day without a date is ignored.
		stamp = n.clock.Now()
	}

	event.Timestamp = stamp.Unix()
	event.EventSource = types.EventSourceZabbix

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func (n *Normalizer) place(event *types.CanonicalEvent, dest, value string) {
	if strings.Contains(dest, "/") || bareAttributes[dest] {
		event.Attributes[dest] = value
		return
	}

	switch dest {
	case destHost:
		event.Host = value
	case destValue:
		event.Value = value
	case destEventDescription:
		event.EventDescription = value
	default:
		// Unknown top-level destinations have no field on the event; keep
		// them rather than dropping data.
		event.Attributes[dest] = value
	}
}

// Rekey converts a Zabbix macro name into an attribute path: lower-cased,
// dots become slashes, spaces become underscores, parentheses are dropped.
func Rekey(key string) string {
	return rekeyReplacer.Replace(strings.ToLower(key))
}

func parseDate(value string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, value, loc); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
