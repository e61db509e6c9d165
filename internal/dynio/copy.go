package dynio

import (
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// CopyValue streams the node under r's cursor, including all of its
// descendants, into w. The node is consumed. Only writer errors are
// returned; readers never fail.
func CopyValue(r Reader, w Writer) error {
	// open containers, innermost last
	var open []dynvalue.Type
	for {
		switch t := r.ValueType(); t {
		case dynvalue.TypeObject:
			if err := w.WriteObjectBegin(); err != nil {
				return err
			}
			open = append(open, t)
		case dynvalue.TypeArray:
			if err := w.WriteArrayBegin(); err != nil {
				return err
			}
			open = append(open, t)
		default:
			if err := copyScalar(r, w, t); err != nil {
				return err
			}
		}

		advanced := false
		for len(open) > 0 && !advanced {
			if open[len(open)-1] == dynvalue.TypeObject {
				if name, ok := r.NextObjectProperty(); ok {
					if err := w.WritePropertyName(name); err != nil {
						return err
					}
					advanced = true
					continue
				}
				if err := w.WriteObjectEnd(); err != nil {
					return err
				}
			} else {
				if r.NextArrayItem() {
					advanced = true
					continue
				}
				if err := w.WriteArrayEnd(); err != nil {
					return err
				}
			}
			open = open[:len(open)-1]
		}
		if !advanced {
			return nil
		}
	}
}

func copyScalar(r Reader, w Writer, t dynvalue.Type) error {
	switch t {
	case dynvalue.TypeString:
		return w.WriteString(r.ReadString())
	case dynvalue.TypeBoolean:
		return w.WriteBoolean(r.ReadBoolean())
	case dynvalue.TypeInt64:
		return w.WriteInt64(r.ReadInt64())
	case dynvalue.TypeDouble:
		return w.WriteDouble(r.ReadDouble())
	default:
		return w.WriteNull()
	}
}

// ReadValue returns the node under r's cursor as a value and consumes it.
func ReadValue(r Reader) dynvalue.Value {
	if vr, ok := r.(*ValueReader); ok {
		return vr.take()
	}
	w := NewValueWriter()
	if err := CopyValue(r, w); err != nil {
		return dynvalue.Null()
	}
	v, _ := w.TakeValue()
	return v
}

// SkipValue consumes the node under r's cursor, so that the next Next* call
// advances the enclosing container.
func SkipValue(r Reader) {
	if vr, ok := r.(*ValueReader); ok {
		vr.take()
		return
	}
	_ = CopyValue(r, Discard)
}

// WriteValue writes v at w's cursor.
func WriteValue(w Writer, v dynvalue.Value) error {
	if vw, ok := w.(*ValueWriter); ok {
		return vw.place("WriteValue", v)
	}
	return CopyValue(NewValueReader(v), w)
}
