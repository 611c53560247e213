package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalObject converts a JSON object to TEXT for storage. Go sorts map
// keys, so equal maps always produce equal text.
func marshalObject(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalObject parses TEXT written by marshalObject. Numbers come back as
// json.Number so integers keep their precision.
func unmarshalObject(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
