package cli

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// parseJSON decodes a JSON flag value. An empty value decodes to nil.
func parseJSON(flag, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("--%s: %w: %s", flag, ErrInvalidJSON, raw)
	}
	return gjson.Parse(raw).Value(), nil
}

// formatJSON encodes v on one line, or indented when indent is set.
func formatJSON(v any, indent bool) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if indent {
		return pretty.Pretty(b), nil
	}
	return append(b, '\n'), nil
}
