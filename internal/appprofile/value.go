package appprofile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// Kind is the JSON type held by a Value.
type Kind uint8

const (
	// KindInvalid is the zero Value's kind.
	KindInvalid Kind = iota
	KindInteger
	KindFloat
	KindBool
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "real"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a setting value: an integer, a real number, a boolean or a
// string. Integers and reals are kept apart so 7 and 7.0 stay distinct
// through a load and save cycle.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// IntValue returns an integer value.
func IntValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// FloatValue returns a real value. NaN and infinities have no JSON form
// and yield an invalid Value.
func FloatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindFloat, f: f}
}

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInteger }

// Float returns the real number held by v.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Equal reports whether two values have the same kind and contents.
func (v Value) Equal(other Value) bool {
	return v == other
}

// JSON returns the value's canonical JSON text. Integers are written in
// decimal and reals always carry a decimal point or exponent.
func (v Value) JSON() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return quoteJSON(v.s)
	default:
		return "null"
	}
}

// Display returns the value as shown to users: integers in hexadecimal,
// everything else as JSON.
func (v Value) Display() string {
	if v.kind == KindInteger {
		if v.i < 0 {
			return fmt.Sprintf("-0x%x", uint64(-v.i))
		}
		return fmt.Sprintf("0x%x", v.i)
	}
	return v.JSON()
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return v.Display()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// quoteJSON encodes s as a JSON string.
func quoteJSON(s string) string {
	out, err := sjson.SetBytes([]byte(`{"v":null}`), "v", s)
	if err != nil {
		return strconv.Quote(s)
	}
	return gjson.GetBytes(out, "v").Raw
}

// valueFromJSON converts a parsed JSON element to a Value.
func valueFromJSON(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.String:
		return StringValue(r.Str), nil
	case gjson.True:
		return BoolValue(true), nil
	case gjson.False:
		return BoolValue(false), nil
	case gjson.Number:
		if strings.ContainsAny(r.Raw, ".eE") {
			if math.IsInf(r.Num, 0) || math.IsNaN(r.Num) {
				return Value{}, &ValueError{Text: r.Raw, OutOfRange: true}
			}
			return FloatValue(r.Num), nil
		}
		i, err := strconv.ParseInt(r.Raw, 10, 64)
		if err != nil {
			return Value{}, &ValueError{Text: r.Raw, OutOfRange: true}
		}
		return IntValue(i), nil
	case gjson.Null:
		return Value{}, &ValueError{Type: "null"}
	default:
		if r.IsArray() {
			return Value{}, &ValueError{Type: "array"}
		}
		return Value{}, &ValueError{Type: "object"}
	}
}

// ParseSettingValue parses user input into a Value. Input uses the
// configuration file syntax, so "0x4500" is the integer 17664. Objects,
// arrays, null and numbers outside the int64 or finite float64 range are
// rejected.
func ParseSettingValue(text string) (Value, error) {
	js, err := loader.Parse("<value>", []byte(text))
	if err != nil || strings.TrimSpace(text) == "" {
		return Value{}, &ValueError{Text: text}
	}
	return valueFromJSON(gjson.ParseBytes(js))
}
