// Package model defines the core domain types for GoPanel.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Text is a server-provided scalar rendered as text. The backend is loose
// about whether ids, sizes and counts arrive as JSON strings or numbers.
type Text string

// UnmarshalJSON accepts a JSON string, number, boolean or null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("model: decode text: %w", err)
		}
		*t = Text(s)
		return nil
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("model: decode text: unexpected %s", data[:1])
	default:
		// numbers and booleans keep their literal form
		*t = Text(data)
		return nil
	}
}

func (t Text) String() string { return string(t) }
