package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string, number, bool or null into a string.
// Ingested spreadsheets routinely turn ids and sizes into numbers.
type FlexString string

func (s FlexString) String() string { return string(s) }

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case 't', 'f':
		*s = FlexString(data)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			// objects and arrays are not meaningful here
			*s = ""
			return nil
		}
		*s = FlexString(formatNumber(f))
	}
	return nil
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FlexInt is an optional integer. The zero value is unset and encodes as null.
type FlexInt struct {
	Value int
	Valid bool
}

// IntValue returns a set FlexInt.
func IntValue(n int) FlexInt { return FlexInt{Value: n, Valid: true} }

// ParseFlexInt parses operator input. "", "-" and "none" mean unset; any
// other non-integer input is an error.
func ParseFlexInt(s string) (FlexInt, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "none", "null":
		return FlexInt{}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return FlexInt{}, err
	}
	return IntValue(n), nil
}

// Ptr returns the value as a pointer, nil when unset.
func (n FlexInt) Ptr() *int {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func (n FlexInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.Itoa(n.Value)
}

func (n FlexInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Value)), nil
}

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	*n = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		// unreadable orders are treated as unset rather than failing the list
		return nil
	}
	*n = IntValue(int(f))
	return nil
}
