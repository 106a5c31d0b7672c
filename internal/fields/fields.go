// Package fields implements the delimited-record protocol spoken between
// mxctl and the Mail.app automation scripts: one record per line, fields
// joined by the ASCII unit separator.
package fields

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Separator is the reserved field delimiter (U+001F, unit separator).
// There is no escaping: a value containing it misaligns the record.
const Separator = "\x1f"

// Encode joins fields with Separator.
func Encode(fields ...string) string {
	return strings.Join(fields, Separator)
}

// Decode splits a line on Separator, preserving empty fields. An empty
// line decodes to a single empty field.
func Decode(line string) []string {
	return strings.Split(line, Separator)
}

// HasMinFields reports whether a decoded record carries at least n fields.
// Callers must check it before indexing by position.
func HasMinFields(fields []string, n int) bool {
	return len(fields) >= n
}

// ParseBool reads the "true"/"false" literals produced by the scripts.
// Anything other than "true" (case-insensitive) is false.
func ParseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// ParseInt reads a count field, returning 0 for anything non-numeric.
func ParseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// MessageID is a Mail.app message id. Ids are integers when the wire value
// is all digits; anything else is kept as an opaque string.
type MessageID struct {
	raw     string
	num     int64
	numeric bool
}

// ParseID converts a wire id. It never assumes a value is numeric without
// checking every character is a digit.
func ParseID(s string) MessageID {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return MessageID{raw: s}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return MessageID{raw: s}
	}
	return MessageID{raw: s, num: n, numeric: true}
}

// IntID builds a numeric id.
func IntID(n int64) MessageID {
	return MessageID{raw: strconv.FormatInt(n, 10), num: n, numeric: true}
}

// Int returns the numeric value and whether the id is numeric.
func (id MessageID) Int() (int64, bool) {
	return id.num, id.numeric
}

// IsNumeric reports whether the id was all digits on the wire.
func (id MessageID) IsNumeric() bool {
	return id.numeric
}

func (id MessageID) String() string {
	return id.raw
}

// MarshalJSON emits numeric ids as JSON numbers and the rest as strings.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ParseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ParseID(n.String())
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
