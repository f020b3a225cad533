package utils

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// LooseFloat decodes a JSON number that upstream feeds sometimes send as a
// string. Null, empty and unparseable values leave Valid false.
type LooseFloat struct {
	Value float64
	Valid bool
}

func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	*f = LooseFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// Or returns the value when valid, def otherwise.
func (f LooseFloat) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// LooseString decodes a JSON string or number into its textual form.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		*s = LooseString(v)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return nil
	}
	*s = LooseString(data)
	return nil
}

func (s LooseString) String() string {
	return strings.TrimSpace(string(s))
}

// Round1 rounds to one decimal place, half away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round4 rounds to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// FormatFixed1 renders v with exactly one decimal, e.g. "5.0".
func FormatFixed1(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatCoord renders a coordinate with the shortest exact representation, e.g. "39.5".
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
