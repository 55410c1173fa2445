// Package jsonutil holds field types for the loosely typed JSON the campus
// APIs return, where the same field may arrive as a string, a number or null
// depending on the record.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

func isNumberStart(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9')
}

// Text keeps strings as they are and numbers in their literal form, anything
// else decodes as "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case isNumberStart(data[0]):
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// FirstText returns the first non-empty value.
func FirstText(values ...Text) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// Number accepts a JSON number or a string holding one, anything else
// decodes as zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(s)
	}
	value, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err == nil {
		*n = Number(value)
	}
	return nil
}

func (n Number) Int() int64 {
	return int64(n)
}

// Flag is set only by the JSON number 1.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	value, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	*f = Flag(err == nil && value == 1)
	return nil
}

// Strings accepts an array or a single scalar. Empty elements are dropped,
// null decodes as an empty list.
type Strings []string

func (s *Strings) UnmarshalJSON(data []byte) error {
	*s = Strings{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '[' {
		var single Text
		if err := single.UnmarshalJSON(data); err != nil {
			return err
		}
		if single != "" {
			*s = Strings{string(single)}
		}
		return nil
	}

	var elements []Text
	if err := json.Unmarshal(data, &elements); err != nil {
		return err
	}
	for _, e := range elements {
		if e != "" {
			*s = append(*s, string(e))
		}
	}
	return nil
}
