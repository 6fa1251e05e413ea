package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errUnsupported = errors.New("unsupported value")

// Canonicalize serializes v as canonical JSON: object keys sorted by their
// UTF-8 bytes at every depth, no insignificant whitespace. Integers and
// json.Number literals are written from their exact decimal value, floats in
// shortest ES6 form, both in the ES6 layout. Distinct decimal values never
// share bytes, and a float equals the json.Number spelling its shortest form.
func Canonicalize(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := writeCanonical(buf, v, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, value any, path string) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeString(buf, v, path)
	case json.Number:
		return writeNumber(buf, v, path)
	case float64:
		return writeFloat(buf, v, path)
	case float32:
		return writeFloat(buf, float64(v), path)
	case int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(v, 10))
	case map[string]any:
		return writeObject(buf, v, path)
	case []any:
		return writeArray(buf, v, path)
	default:
		return writeReflect(buf, value, path)
	}
	return nil
}

// writeReflect covers named map and slice types such as GraduateData or
// []string. Structs are rejected: their field names depend on tags, which
// would make the signed bytes depend on Go type definitions.
func writeReflect(buf *bytes.Buffer, value any, path string) error {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map with non-string keys at %s", errUnsupported, path)
		}
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return writeObject(buf, obj, path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		arr := make([]any, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}
		return writeArray(buf, arr, path)
	case reflect.String:
		return writeString(buf, rv.String(), path)
	case reflect.Bool:
		return writeCanonical(buf, rv.Bool(), path)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(rv.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		return writeFloat(buf, rv.Float(), path)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeCanonical(buf, rv.Elem().Interface(), path)
	default:
		return fmt.Errorf("%w: %T at %s", errUnsupported, value, path)
	}
}

func writeObject(buf *bytes.Buffer, obj map[string]any, path string) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k, path); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k], path+"."+k); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeArray(buf *bytes.Buffer, arr []any, path string) error {
	buf.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, item, path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string, path string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8 at %s", errUnsupported, path)
	}
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}

var hexLower = []byte("0123456789abcdef")

func writeFloat(buf *bytes.Buffer, f float64, path string) error {
	num, err := formatFloat(f)
	if err != nil {
		return fmt.Errorf("%w: %v at %s", errUnsupported, err, path)
	}
	buf.WriteString(num)
	return nil
}

// formatFloat renders f the way ECMAScript Number.prototype.toString does.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.New("NaN and Infinity are not representable")
	}
	if f == 0 {
		return "0", nil
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = math.Abs(f)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(s, "e")
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return "", fmt.Errorf("invalid float exponent: %w", err)
	}
	return layoutDecimal(sign, strings.ReplaceAll(mantissa, ".", ""), exp), nil
}

// maxNumberExponent bounds json.Number exponents.
const maxNumberExponent = 1 << 20

func writeNumber(buf *bytes.Buffer, n json.Number, path string) error {
	num, err := formatDecimal(n.String())
	if err != nil {
		return fmt.Errorf("%w: %v at %s", errUnsupported, err, path)
	}
	buf.WriteString(num)
	return nil
}

// formatDecimal renders a JSON number literal from its exact decimal value,
// so "3.90", "39e-1" and "3.9" agree while 9007199254740993 stays distinct
// from 9007199254740992.
func formatDecimal(lit string) (string, error) {
	sign := ""
	s := lit
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign = "-"
		s = rest
	}

	mantissa, expPart, hasExp := s, "", false
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa, expPart, hasExp = s[:i], s[i+1:], true
	}
	intPart, frac, hasFrac := strings.Cut(mantissa, ".")
	if !isDigits(intPart) || (len(intPart) > 1 && intPart[0] == '0') || (hasFrac && !isDigits(frac)) {
		return "", fmt.Errorf("malformed number %q", lit)
	}

	exp := 0
	if hasExp {
		expPart = strings.TrimPrefix(expPart, "+")
		if strings.HasPrefix(expPart, "-") {
			if !isDigits(expPart[1:]) {
				return "", fmt.Errorf("malformed number %q", lit)
			}
		} else if !isDigits(expPart) {
			return "", fmt.Errorf("malformed number %q", lit)
		}
		e, err := strconv.Atoi(expPart)
		if err != nil || e > maxNumberExponent || e < -maxNumberExponent {
			return "", fmt.Errorf("number exponent out of range in %q", lit)
		}
		exp = e
	}

	digits := strings.TrimLeft(intPart+frac, "0")
	if digits == "" {
		return "0", nil
	}
	trimmed := strings.TrimRight(digits, "0")
	lastDigitExp := exp - len(frac) + len(digits) - len(trimmed)
	return layoutDecimal(sign, trimmed, lastDigitExp+len(trimmed)-1), nil
}

// layoutDecimal writes the value d1.d2...dn * 10^exp, where digits has no
// leading or trailing zeros, in the ES6 Number.prototype.toString layout.
func layoutDecimal(sign, digits string, exp int) string {
	if exp <= -7 || exp >= 21 {
		expSign := "+"
		if exp < 0 {
			expSign = "-"
			exp = -exp
		}
		if len(digits) == 1 {
			return sign + digits + "e" + expSign + strconv.Itoa(exp)
		}
		return sign + digits[:1] + "." + digits[1:] + "e" + expSign + strconv.Itoa(exp)
	}

	point := exp + 1
	if point >= len(digits) {
		return sign + digits + strings.Repeat("0", point-len(digits))
	}
	if point <= 0 {
		return sign + "0." + strings.Repeat("0", -point) + digits
	}
	return sign + digits[:point] + "." + digits[point:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
