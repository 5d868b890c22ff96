package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is an optional seller-entered number. Seller forms send numbers,
// numeric strings, empty strings or null; anything that is not a usable
// positive number counts as zero when read through Value.
type Amount struct {
	value float64
	set   bool
}

// NewAmount returns a set Amount
func NewAmount(v float64) Amount {
	return Amount{value: v, set: true}
}

// Value returns the amount, or 0 when it is unset, non-finite or not positive
func (a Amount) Value() float64 {
	if !a.set || math.IsNaN(a.value) || math.IsInf(a.value, 0) || a.value <= 0 {
		return 0
	}
	return a.value
}

// IsSet reports whether a number was supplied
func (a Amount) IsSet() bool {
	return a.set
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*a = NewAmount(v)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// booleans, objects and other junk are treated as missing
		return nil
	}
	*a = NewAmount(v)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}
