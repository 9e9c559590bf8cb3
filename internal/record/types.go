package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

// #region value
// kind tags the variant held by a Value.
type kind uint8

const (
	kindNull kind = iota
	kindNumber
	kindText
)

// Value is a single cell value: null, a number, or a string.
// The zero Value is null.
type Value struct {
	kind kind
	num  float64
	str  string
}

// Null returns the empty value.
func Null() Value { return Value{} }

// Number wraps a numeric value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// Text wraps a string value.
func Text(s string) Value { return Value{kind: kindText, str: s} }

// IsNull reports whether the value holds nothing at all.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsNumber reports whether the value holds a number.
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// IsEmpty is true for null and for whitespace-only text.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case kindNull:
		return true
	case kindText:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Float returns the numeric reading of the value. Text is parsed after trimming;
// ok is false when the value is null or does not parse.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the value for display. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.str
	default:
		return ""
	}
}

// MarshalJSON encodes null, number, or string. JSON has no NaN or infinity,
// so a non-finite number is written as its text form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		if !finite(v.num) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, numbers, and strings. Booleans and composite
// values are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = Number(f)
		return nil
	default:
		return fmt.Errorf("unsupported cell value %s", data)
	}
}

// Parse turns user input into a Value: blank input is null, finite numeric
// input becomes a number, anything else (including "NaN" and "Inf") stays
// text.
func Parse(s string) Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && finite(f) {
		return Number(f)
	}
	return Text(s)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// #endregion value

// #region record
// Record maps field keys to cell values. A missing key reads as null.
type Record map[string]Value

// Get returns the value under key, null when absent.
func (r Record) Get(key string) Value {
	return r[key]
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Equal compares two records cell by cell. A missing key equals null.
func (r Record) Equal(o Record) bool {
	for k, v := range r {
		if o[k] != v {
			return false
		}
	}
	for k, v := range o {
		if _, ok := r[k]; !ok && !v.IsNull() {
			return false
		}
	}
	return true
}

// IsBlank reports whether every value in the record is empty.
func (r Record) IsBlank() bool {
	for _, v := range r {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// #endregion record

// #region list
// List is the ordered record sequence. Order is display order.
type List []Record

// Clone deep-copies the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, r := range l {
		out[i] = r.Clone()
	}
	return out
}

// Equal compares two lists record by record.
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// #endregion list
