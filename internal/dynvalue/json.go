package dynvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MarshalJSON encodes v as JSON text, preserving object key order. Doubles
// always carry a fraction or exponent so that decoding restores the Double
// type; NaN and the infinities encode as null, as JSON.stringify does.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil), nil
}

// AppendJSON appends the JSON encoding of v to dst.
func (v Value) AppendJSON(dst []byte) []byte {
	switch v.typ {
	case TypeNull:
		return append(dst, "null"...)
	case TypeBoolean:
		return strconv.AppendBool(dst, v.b)
	case TypeInt64:
		return strconv.AppendInt(dst, v.i, 10)
	case TypeDouble:
		return appendJSONDouble(dst, v.f)
	case TypeString:
		return appendJSONString(dst, v.s)
	case TypeArray:
		dst = append(dst, '[')
		for i, item := range v.arr.items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = item.AppendJSON(dst)
		}
		return append(dst, ']')
	default:
		dst = append(dst, '{')
		for i, k := range v.obj.keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendJSONString(dst, k)
			dst = append(dst, ':')
			dst = v.obj.props[k].AppendJSON(dst)
		}
		return append(dst, '}')
	}
}

// String returns the JSON form of v, for diagnostics.
func (v Value) String() string {
	return string(v.AppendJSON(nil))
}

// UnmarshalJSON decodes JSON text into v. See ParseJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ErrTrailingData is returned by ParseJSON when input continues after the
// first complete value.
var ErrTrailingData = errors.New("dynvalue: trailing data after JSON value")

// ParseJSON decodes a single JSON value. Object key order is preserved.
// Numbers written without fraction or exponent become Int64 when they fit,
// all others Double. Nesting depth is bounded only by memory.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	type frame struct {
		obj     *ObjectBuilder
		arr     *ArrayBuilder
		key     string
		haveKey bool
	}
	var (
		stack []*frame
		root  Value
		done  bool
	)
	emit := func(v Value) {
		if len(stack) == 0 {
			root, done = v, true
			return
		}
		top := stack[len(stack)-1]
		if top.obj != nil {
			top.obj.Set(top.key, v)
			top.haveKey = false
			return
		}
		top.arr.Append(v)
	}

	for !done {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Value{}, fmt.Errorf("dynvalue: parse json: %w", err)
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stack = append(stack, &frame{obj: NewObjectBuilder(0)})
			case '[':
				stack = append(stack, &frame{arr: NewArrayBuilder(0)})
			default:
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.obj != nil {
					emit(top.obj.Seal())
				} else {
					emit(top.arr.Seal())
				}
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].obj != nil && !stack[n-1].haveKey {
				stack[n-1].key, stack[n-1].haveKey = t, true
				continue
			}
			emit(String(t))
		case json.Number:
			emit(parseJSONNumber(string(t)))
		case bool:
			emit(Bool(t))
		case nil:
			emit(Null())
		}
	}

	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	return root, nil
}

func parseJSONNumber(text string) Value {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int64(i)
		}
	}
	f, _ := strconv.ParseFloat(text, 64)
	return Double(f)
}

func appendJSONDouble(dst []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(dst, "null"...)
	}
	if f == 0 && math.Signbit(f) {
		return append(dst, "-0.0"...)
	}
	s := FormatJSNumber(f)
	dst = append(dst, s...)
	if !strings.ContainsAny(s, ".e") {
		dst = append(dst, ".0"...)
	}
	return dst
}

const hexDigits = "0123456789abcdef"

func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				dst = append(dst, '\\', c)
			case c == '\n':
				dst = append(dst, '\\', 'n')
			case c == '\r':
				dst = append(dst, '\\', 'r')
			case c == '\t':
				dst = append(dst, '\\', 't')
			case c < 0x20:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			default:
				dst = append(dst, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			dst = append(dst, `\ufffd`...)
		case r == '\u2028' || r == '\u2029':
			dst = append(dst, '\\', 'u', '2', '0', '2', hexDigits[r&0xf])
		default:
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return append(dst, '"')
}
