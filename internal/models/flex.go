package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexString decodes a JSON string or number into a string.
// null, objects and arrays decode to the empty string without failing.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(s)
	case '{', '[':
		*f = ""
	default:
		// numbers and booleans keep their literal form
		*f = FlexString(string(data))
	}
	return nil
}

// String returns the decoded value
func (f FlexString) String() string {
	return string(f)
}

// FlexFloat decodes a JSON number or numeric string. Anything else is 0.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat(CoerceNumber(data))
	return nil
}

// CoerceNumber converts a raw JSON value into a float64.
// Numbers and numeric strings are parsed; everything else yields 0.
func CoerceNumber(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return 0
		}
	} else {
		raw = string(data)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// OptionalNumber holds a value that was present only when the JSON field was
// a number. Strings, booleans and null leave it invalid.
type OptionalNumber struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (n *OptionalNumber) UnmarshalJSON(data []byte) error {
	*n = OptionalNumber{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '-' || (data[0] >= '0' && data[0] <= '9') {
		if v, err := strconv.ParseFloat(string(data), 64); err == nil {
			n.Value = v
			n.Valid = true
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (n OptionalNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Int returns the value truncated to an int
func (n OptionalNumber) Int() int {
	return int(n.Value)
}

// Number returns a valid OptionalNumber
func Number(v float64) OptionalNumber {
	return OptionalNumber{Value: v, Valid: true}
}

// reference is a loose pointer to another record: either a bare id string or
// an embedded object carrying an id and a display name.
type reference struct {
	ID    string
	Name  string
	Email string
}

func (r *reference) UnmarshalJSON(data []byte) error {
	*r = reference{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '{' {
		var id FlexString
		_ = id.UnmarshalJSON(data)
		r.ID = id.String()
		return nil
	}

	var obj struct {
		MongoID FlexString `json:"_id"`
		ID      FlexString `json:"id"`
		Name    string     `json:"name"`
		Email   string     `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	r.ID = firstNonEmpty(obj.MongoID.String(), obj.ID.String())
	r.Name = obj.Name
	r.Email = obj.Email
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats the course API emits
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
