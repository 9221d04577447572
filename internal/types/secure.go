package types

// redactedPlaceholder replaces secret values in logs, reports and serialization.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds credentials such as the collector auth key or the crash
// reporting key. String() and MarshalJSON() return a redacted placeholder so the
// value never leaks through fmt, slog or reporter metadata.
//
// Use Unmask() when the plaintext is genuinely needed (building the
// Authorization header, configuring the crash reporter).
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsEmpty reports whether no secret was supplied.
func (s SecretString) IsEmpty() bool {
	return s == ""
}
