package dynvalue

import (
	"math"
	"strconv"
	"strings"
)

const objectString = "[object Object]"

// AsJSString implements the engine's String(v) conversion.
func (v Value) AsJSString() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeString:
		return v.s
	case TypeBoolean:
		return strconv.FormatBool(v.b)
	case TypeInt64:
		if v.i > maxSafeInteger || v.i < -maxSafeInteger {
			// the engine only sees the nearest double
			return FormatJSNumber(float64(v.i))
		}
		return strconv.FormatInt(v.i, 10)
	case TypeDouble:
		return FormatJSNumber(v.f)
	case TypeArray:
		return v.joinJS()
	default:
		return objectString
	}
}

// joinJS implements Array.prototype.join(","): Null items render as the empty
// string, nested arrays join recursively.
func (v Value) joinJS() string {
	var b strings.Builder
	for i, item := range v.arr.items {
		if i > 0 {
			b.WriteByte(',')
		}
		if item.typ != TypeNull {
			b.WriteString(item.AsJSString())
		}
	}
	return b.String()
}

// AsJSBoolean implements the engine's Boolean(v) conversion.
func (v Value) AsJSBoolean() bool {
	switch v.typ {
	case TypeNull:
		return false
	case TypeString:
		return v.s != ""
	case TypeBoolean:
		return v.b
	case TypeInt64:
		return v.i != 0
	case TypeDouble:
		return v.f != 0 && !math.IsNaN(v.f)
	default:
		return true
	}
}

// AsJSNumber implements the engine's Number(v) conversion.
func (v Value) AsJSNumber() float64 {
	switch v.typ {
	case TypeNull:
		return 0
	case TypeString:
		return StringToNumber(v.s)
	case TypeBoolean:
		if v.b {
			return 1
		}
		return 0
	case TypeInt64:
		return float64(v.i)
	case TypeDouble:
		return v.f
	case TypeArray:
		return StringToNumber(v.joinJS())
	default:
		return math.NaN()
	}
}

// FormatJSNumber renders f the way Number.prototype.toString() does with
// radix 10.
func FormatJSNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		return "0"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f < 0:
		return "-" + FormatJSNumber(-f)
	}

	// Shortest round-tripping digits and the decimal exponent.
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	ePos := strings.IndexByte(sci, 'e')
	digits := strings.Replace(sci[:ePos], ".", "", 1)
	exp, _ := strconv.Atoi(sci[ePos+1:])
	k := len(digits)
	n := exp + 1

	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}

	sign := "+"
	e := n - 1
	if e < 0 {
		sign = "-"
		e = -e
	}
	if k == 1 {
		return digits + "e" + sign + strconv.Itoa(e)
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + strconv.Itoa(e)
}

// StringToNumber implements the engine's StringToNumber grammar: surrounding
// whitespace is ignored, the empty string is 0, and anything that is not a
// complete numeric literal is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSWhitespace)
	if s == "" {
		return 0
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return parseRadixInteger(s[2:], 16)
		case 'o', 'O':
			return parseRadixInteger(s[2:], 8)
		case 'b', 'B':
			return parseRadixInteger(s[2:], 2)
		}
	}

	body := s
	negative := false
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		body = body[1:]
		negative = true
	}
	if body == "Infinity" {
		if negative {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	if !isDecimalLiteral(body) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !isRangeErr(err) {
		return math.NaN()
	}
	return f
}

func parseRadixInteger(s string, base int) float64 {
	if s == "" {
		return math.NaN()
	}
	var f float64
	for i := 0; i < len(s); i++ {
		d := digitValue(s[i])
		if d < 0 || d >= base {
			return math.NaN()
		}
		f = f*float64(base) + float64(d)
	}
	return f
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// isDecimalLiteral matches StrUnsignedDecimalLiteral without Infinity:
// digits [ "." digits? ] exponent? | "." digits exponent?
func isDecimalLiteral(s string) bool {
	i := 0
	intDigits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		intDigits++
	}
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isJSWhitespace covers WhiteSpace and LineTerminator code points.
func isJSWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}
