package transport

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Codec encodes batches for the wire.
type Codec interface {
	Name() string
	Encode(b Batch) ([]byte, error)
	Decode(data []byte) (Batch, error)
}

// ErrUnknownCodec is returned by CodecByName.
var ErrUnknownCodec = errors.New("transport: unknown codec")

// CodecNames lists the names accepted by CodecByName, "none" included.
var CodecNames = []string{"none", "json", "cbor", "proto"}

// CodecByName returns the named codec. "none" and "" return nil, meaning
// frames are delivered without a wire round trip.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	case "proto", "protobuf":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownCodec, name, strings.Join(CodecNames, ", "))
	}
}

func batchValue(b Batch) (dynvalue.Value, error) {
	v, err := codec.Marshal(BatchCodec, b)
	if err != nil {
		return dynvalue.Value{}, fmt.Errorf("transport: marshal batch: %w", err)
	}
	return v, nil
}

func valueBatch(v dynvalue.Value) (Batch, error) {
	if v.Type() != dynvalue.TypeArray {
		return nil, fmt.Errorf("transport: batch is %s, want Array", v.Type())
	}
	b, err := codec.Unmarshal(BatchCodec, v)
	if err != nil {
		return nil, fmt.Errorf("transport: unmarshal batch: %w", err)
	}
	return b, nil
}

// JSONCodec encodes batches as JSON text. Object key order is preserved and
// doubles keep a fraction or exponent, so values round trip exactly except
// for NaN and the infinities, which become null.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(b Batch) ([]byte, error) {
	v, err := batchValue(b)
	if err != nil {
		return nil, err
	}
	return v.MarshalJSON()
}

func (JSONCodec) Decode(data []byte) (Batch, error) {
	v, err := dynvalue.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("transport: decode json: %w", err)
	}
	return valueBatch(v)
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("transport: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("transport: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// CBORCodec encodes batches as canonical CBOR. Integers and floats keep
// their distinct major types; object keys come back in sorted order.
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Encode(b Batch) ([]byte, error) {
	v, err := batchValue(b)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(v.Export())
}

func (CBORCodec) Decode(data []byte) (Batch, error) {
	var tree any
	if err := cborDecMode.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("transport: decode cbor: %w", err)
	}
	v, err := dynvalue.FromAny(tree)
	if err != nil {
		return nil, fmt.Errorf("transport: decode cbor: %w", err)
	}
	return valueBatch(v)
}

// ProtoCodec encodes batches as a google.protobuf.Value list. Protobuf
// numbers are doubles, so integral numbers decode as Int64 under the
// numeric literal rule, and NaN and the infinities survive.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Encode(b Batch) ([]byte, error) {
	v, err := batchValue(b)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(toProto(v))
}

func (ProtoCodec) Decode(data []byte) (Batch, error) {
	var pv structpb.Value
	if err := proto.Unmarshal(data, &pv); err != nil {
		return nil, fmt.Errorf("transport: decode proto: %w", err)
	}
	return valueBatch(fromProto(&pv))
}

func toProto(v dynvalue.Value) *structpb.Value {
	switch v.Type() {
	case dynvalue.TypeBoolean:
		b, _ := v.TryBoolean()
		return structpb.NewBoolValue(b)
	case dynvalue.TypeInt64, dynvalue.TypeDouble:
		return structpb.NewNumberValue(v.AsDouble())
	case dynvalue.TypeString:
		s, _ := v.TryString()
		return structpb.NewStringValue(s)
	case dynvalue.TypeArray:
		items := v.AsArray().Items()
		list := &structpb.ListValue{Values: make([]*structpb.Value, len(items))}
		for i, item := range items {
			list.Values[i] = toProto(item)
		}
		return structpb.NewListValue(list)
	case dynvalue.TypeObject:
		obj := v.AsObject()
		fields := make(map[string]*structpb.Value, obj.Len())
		obj.Range(func(key string, value dynvalue.Value) bool {
			fields[key] = toProto(value)
			return true
		})
		return structpb.NewStructValue(&structpb.Struct{Fields: fields})
	default:
		return structpb.NewNullValue()
	}
}

func fromProto(pv *structpb.Value) dynvalue.Value {
	switch k := pv.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return dynvalue.Bool(k.BoolValue)
	case *structpb.Value_NumberValue:
		return dynvalue.Number(k.NumberValue)
	case *structpb.Value_StringValue:
		return dynvalue.String(k.StringValue)
	case *structpb.Value_ListValue:
		values := k.ListValue.GetValues()
		b := dynvalue.NewArrayBuilder(len(values))
		for _, item := range values {
			b.Append(fromProto(item))
		}
		return b.Seal()
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		b := dynvalue.NewObjectBuilder(len(keys))
		for _, key := range keys {
			b.Set(key, fromProto(fields[key]))
		}
		return b.Seal()
	default:
		return dynvalue.Null()
	}
}
