package utils

import (
	"encoding/json"
	"testing"
)

func TestLooseFloat(t *testing.T) {
	tests := []struct {
		raw   string
		value float64
		valid bool
	}{
		{`4.2`, 4.2, true},
		{`"4.2"`, 4.2, true},
		{`" 3 "`, 3, true},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"abc"`, 0, false},
		{`{"x":1}`, 0, false},
	}
	for _, tt := range tests {
		var f LooseFloat
		if err := json.Unmarshal([]byte(tt.raw), &f); err != nil {
			t.Fatalf("Unmarshal(%s) returned error %v", tt.raw, err)
		}
		if f.Valid != tt.valid || f.Value != tt.value {
			t.Errorf("Unmarshal(%s)=%+v want value=%v valid=%v", tt.raw, f, tt.value, tt.valid)
		}
	}
}

func TestLooseFloat_MissingField(t *testing.T) {
	var rec struct {
		Mag LooseFloat `json:"mag"`
	}
	if err := json.Unmarshal([]byte(`{}`), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Mag.Valid {
		t.Error("missing field should not be valid")
	}
	if rec.Mag.Or(1.5) != 1.5 {
		t.Error("Or should return default")
	}
}

func TestLooseString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"abc"`, "abc"},
		{`12345`, "12345"},
		{`null`, ""},
		{`[1]`, ""},
	}
	for _, tt := range tests {
		var s LooseString
		if err := json.Unmarshal([]byte(tt.raw), &s); err != nil {
			t.Fatalf("Unmarshal(%s) returned error %v", tt.raw, err)
		}
		if s.String() != tt.want {
			t.Errorf("Unmarshal(%s)=%q want %q", tt.raw, s.String(), tt.want)
		}
	}
}

func TestRoundingAndFormatting(t *testing.T) {
	if Round1(63.04) != 63.0 {
		t.Errorf("Round1(63.04)=%v", Round1(63.04))
	}
	if Round1(4.25) != 4.3 {
		t.Errorf("Round1(4.25)=%v", Round1(4.25))
	}
	if Round4(39.123456) != 39.1235 {
		t.Errorf("Round4(39.123456)=%v", Round4(39.123456))
	}
	if FormatFixed1(5) != "5.0" {
		t.Errorf("FormatFixed1(5)=%q", FormatFixed1(5))
	}
	if FormatCoord(39.5) != "39.5" {
		t.Errorf("FormatCoord(39.5)=%q", FormatCoord(39.5))
	}
	if FormatCoord(35) != "35" {
		t.Errorf("FormatCoord(35)=%q", FormatCoord(35))
	}
}
