package types

import (
	"bytes"
	"encoding/json"
)

// NullableString tracks whether a string field was present in a JSON body and
// whether it was explicitly null. Absent fields leave Valid false.
type NullableString struct {
	Valid bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	n.Valid = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed string
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// Normalized returns nil for explicit nulls and blank strings.
func (n NullableString) Normalized() *string {
	if n.Value == nil {
		return nil
	}
	trimmed := string(bytes.TrimSpace([]byte(*n.Value)))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
