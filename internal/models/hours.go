package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Hours is an optional hour count that decodes from a JSON number or a
// numeric string. null and "" leave it unset.
type Hours struct {
	value *float64
}

// HoursOf returns a set Hours
func HoursOf(v float64) Hours {
	return Hours{value: &v}
}

// Ptr returns the value, or nil when unset
func (h Hours) Ptr() *float64 {
	return h.value
}

// UnmarshalJSON accepts 2.5, "2.5", "" and null
func (h *Hours) UnmarshalJSON(b []byte) error {
	h.value = nil
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := b
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		raw = []byte(s)
	}

	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("estimated hours must be a number, got %s", b)
	}
	h.value = &v
	return nil
}

// MarshalJSON writes the number or null
func (h Hours) MarshalJSON() ([]byte, error) {
	if h.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*h.value)
}
