// Package params holds the spacecraft parameter catalog and the
// concurrent parameter store backing telemetry generation and the
// mission-operations query surface.
package params

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Validity is the per-parameter trust indicator, independent of the
// numeric value itself.
type Validity string

const (
	// Valid marks a fresh in-range update.
	Valid Validity = "VALID"
	// Stale marks a value whose last update exceeds the staleness window.
	Stale Validity = "STALE"
	// Invalid marks a parameter under an explicitly forced fault.
	Invalid Validity = "INVALID"
	// Unknown marks identifiers absent from the catalog.
	Unknown Validity = "UNKNOWN"
)

// ValueKind discriminates numeric from enumerated parameter values.
type ValueKind int

const (
	KindNumeric ValueKind = iota
	KindEnumerated
)

// Value is a parameter value, either numeric or enumerated.
type Value struct {
	Kind ValueKind
	Num  float64
	Enum string
}

// Number wraps a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumeric, Num: f} }

// Enumerated wraps an enumerated value.
func Enumerated(s string) Value { return Value{Kind: KindEnumerated, Enum: s} }

func (v Value) String() string {
	if v.Kind == KindEnumerated {
		return v.Enum
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// MarshalJSON renders numeric values as JSON numbers and enumerated
// values as JSON strings, matching the telemetry payload format.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindEnumerated {
		return json.Marshal(v.Enum)
	}
	return json.Marshal(v.Num)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = Number(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Enumerated(s)
		return nil
	}
	return fmt.Errorf("params: value must be a number or a string: %s", data)
}
