package types

// ParsedFields is the key/value mapping produced from a Zabbix message template.
// It remembers the order in which keys first appeared so that downstream
// processing is deterministic.
type ParsedFields struct {
	keys   []string
	values map[string]string
}

// NewParsedFields returns an empty ParsedFields.
func NewParsedFields() *ParsedFields {
	return &ParsedFields{values: make(map[string]string)}
}

// Set stores value under key, overwriting any previous value. A key keeps the
// position of its first appearance.
func (f *ParsedFields) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Append adds a continuation line to the value stored under key.
func (f *ParsedFields) Append(key, line string) {
	f.Set(key, f.values[key]+"\n"+line)
}

// Get returns the value stored under key.
func (f *ParsedFields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Delete removes key and returns its value.
func (f *ParsedFields) Delete(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok {
		return "", false
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in order of first appearance.
func (f *ParsedFields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of distinct keys.
func (f *ParsedFields) Len() int {
	return len(f.keys)
}

// Map returns a copy of the fields as a plain map.
func (f *ParsedFields) Map() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}
