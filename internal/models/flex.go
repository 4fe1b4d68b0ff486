package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString accepts a JSON string, number or boolean. Web forms send age and
// the first-course checkbox in any of those shapes.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case bytes.Equal(data, []byte("true")):
		*f = "Oui"
	case bytes.Equal(data, []byte("false")):
		*f = "Non"
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

// String implements fmt.Stringer.
func (f FlexString) String() string {
	return string(f)
}

// Or returns fallback when f is empty.
func (f FlexString) Or(fallback string) string {
	if f == "" {
		return fallback
	}
	return string(f)
}
