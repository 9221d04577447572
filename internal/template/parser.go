// Package template parses the macro-expanded message body of a Zabbix action
// into key/value fields.
//
// The body is a sequence of "Key: Value" lines. A line without a colon
// continues the value of the previous key. A continuation line that itself
// contains a colon starts a new key: there is no way to tell the two apart, and
// this limitation is kept on purpose.
package template

import (
	"fmt"
	"strings"

	"zbxrelay/internal/types"
)

const separator = ":"

// Parse converts a raw template into ParsedFields.
//
// It returns a types.AppError with code ErrCodeValidationInvalidTemplate when
// a continuation line appears before any "Key: Value" line, which includes the
// empty template.
func Parse(text string) (*types.ParsedFields, error) {
	fields := types.NewParsedFields()

	var lastKey string
	haveKey := false

	for i, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, separator)
		if found {
			key = strings.TrimLeft(key, " \t\r")
			fields.Set(key, strings.TrimSpace(value))
			lastKey = key
			haveKey = true
			continue
		}

		if !haveKey {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidTemplate,
				fmt.Sprintf("line %d has no %q separator and no preceding key", i+1, separator),
				nil,
				map[string]any{"line": i + 1},
			)
		}
		fields.Append(lastKey, strings.TrimSpace(line))
	}

	return fields, nil
}
