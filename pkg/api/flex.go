package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flexValue takes a JSON string or number and keeps its text for the coercer.
type flexValue string

func (f *flexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected number or string, got %s", data)
		}
		*f = flexValue(n.String())
	}
	return nil
}
