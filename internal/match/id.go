package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a canonical match identifier.
//
// The live-matches and score endpoints do not agree on whether an id is a
// JSON number or a JSON string, so every id entering the system is
// canonicalized to its trimmed decimal/string form. Comparisons must go
// through Equal (or compare canonical IDs directly); never compare raw
// upstream values.
type ID string

// NormalizeID canonicalizes any upstream identifier value. Integral floats
// drop their fractional part, in numbers and numeric strings alike, so 42,
// 42.0, "42", "42.0" and " 42 " are all "42".
// Unsupported types and nil yield the empty ID.
func NormalizeID(v interface{}) ID {
	switch x := v.(type) {
	case nil:
		return ""
	case ID:
		return NormalizeID(string(x))
	case string:
		x = strings.TrimSpace(x)
		if isDecimal(x) {
			return normalizeNumeric(x)
		}
		return ID(x)
	case json.Number:
		return normalizeNumeric(x.String())
	case int:
		return ID(strconv.Itoa(x))
	case int32:
		return ID(strconv.FormatInt(int64(x), 10))
	case int64:
		return ID(strconv.FormatInt(x, 10))
	case uint:
		return ID(strconv.FormatUint(uint64(x), 10))
	case uint32:
		return ID(strconv.FormatUint(uint64(x), 10))
	case uint64:
		return ID(strconv.FormatUint(x, 10))
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case fmt.Stringer:
		return ID(strings.TrimSpace(x.String()))
	}
	return ""
}

// isDecimal reports whether s is a plain decimal number such as "42",
// "-3" or "42.0". Exponents and NaN/Inf are not numbers here.
func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	digits, dot := 0, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

func normalizeNumeric(s string) ID {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return formatFloat(f)
	}
	return ID(s)
}

func formatFloat(f float64) ID {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64))
}

// ParseID canonicalizes a raw JSON value holding an id.
func ParseID(raw json.RawMessage) ID {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return NormalizeID(s)
	}
	return normalizeNumeric(string(raw))
}

// String returns the canonical form.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// Equal reports whether two ids denote the same match.
func (id ID) Equal(other ID) bool {
	a, b := NormalizeID(id), NormalizeID(other)
	return a != "" && a == b
}

// UnmarshalJSON accepts both string and number encodings.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '"' && trimmed[0] != '-' && (trimmed[0] < '0' || trimmed[0] > '9') && !bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("match id: unsupported JSON value %s", trimmed)
	}
	*id = ParseID(trimmed)
	return nil
}
