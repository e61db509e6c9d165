package dynvalue

// Object is an immutable mapping of unique string keys to values. Iteration
// follows insertion order; equality ignores it.
type Object struct {
	keys  []string
	props map[string]Value
}

// Property is a single key/value pair used to construct objects.
type Property struct {
	Key   string
	Value Value
}

// Prop is shorthand for a Property literal.
func Prop(key string, value Value) Property {
	return Property{Key: key, Value: value}
}

// NewObject returns a sealed Object value holding props. A repeated key keeps
// its first position and its last value.
func NewObject(props ...Property) Value {
	b := NewObjectBuilder(len(props))
	for _, p := range props {
		b.Set(p.Key, p.Value)
	}
	return b.Seal()
}

// Len returns the number of properties.
func (o Object) Len() int { return len(o.keys) }

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	v, ok := o.props[key]
	return v, ok
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Keys returns a copy of the keys, in insertion order.
func (o Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// KeyAt returns the i-th key in insertion order.
func (o Object) KeyAt(i int) string { return o.keys[i] }

// Range calls fn for each property in insertion order, stopping early if fn
// returns false.
func (o Object) Range(fn func(key string, value Value) bool) {
	for _, k := range o.keys {
		if !fn(k, o.props[k]) {
			return
		}
	}
}

// Array is an immutable ordered sequence of values.
type Array struct {
	items []Value
}

// NewArray returns a sealed Array value holding a copy of items.
func NewArray(items ...Value) Value {
	return Value{typ: TypeArray, arr: &Array{items: append([]Value(nil), items...)}}
}

// Len returns the number of items.
func (a Array) Len() int { return len(a.items) }

// At returns item i. It panics when i is out of range, like a slice index.
func (a Array) At(i int) Value { return a.items[i] }

// Items returns a copy of the items.
func (a Array) Items() []Value {
	return append([]Value(nil), a.items...)
}

// Range calls fn for each item in order, stopping early if fn returns false.
func (a Array) Range(fn func(i int, item Value) bool) {
	for i, item := range a.items {
		if !fn(i, item) {
			return
		}
	}
}

// ObjectBuilder accumulates properties for an Object. It is append-only
// until Seal is called, after which it must not be used.
type ObjectBuilder struct {
	obj    *Object
	sealed bool
}

// NewObjectBuilder returns a builder with room for sizeHint properties.
func NewObjectBuilder(sizeHint int) *ObjectBuilder {
	return &ObjectBuilder{obj: &Object{
		keys:  make([]string, 0, sizeHint),
		props: make(map[string]Value, sizeHint),
	}}
}

// Set stores value under key. It panics if the builder was sealed.
func (b *ObjectBuilder) Set(key string, value Value) *ObjectBuilder {
	if b.sealed {
		panic("dynvalue: Set on sealed ObjectBuilder")
	}
	if _, ok := b.obj.props[key]; !ok {
		b.obj.keys = append(b.obj.keys, key)
	}
	b.obj.props[key] = value
	return b
}

// Len returns the number of properties set so far.
func (b *ObjectBuilder) Len() int { return len(b.obj.keys) }

// Seal returns the built Object value.
func (b *ObjectBuilder) Seal() Value {
	b.sealed = true
	return Value{typ: TypeObject, obj: b.obj}
}

// ArrayBuilder accumulates items for an Array. It is append-only until Seal
// is called, after which it must not be used.
type ArrayBuilder struct {
	arr    *Array
	sealed bool
}

// NewArrayBuilder returns a builder with room for sizeHint items.
func NewArrayBuilder(sizeHint int) *ArrayBuilder {
	return &ArrayBuilder{arr: &Array{items: make([]Value, 0, sizeHint)}}
}

// Append adds items. It panics if the builder was sealed.
func (b *ArrayBuilder) Append(items ...Value) *ArrayBuilder {
	if b.sealed {
		panic("dynvalue: Append on sealed ArrayBuilder")
	}
	b.arr.items = append(b.arr.items, items...)
	return b
}

// Len returns the number of items appended so far.
func (b *ArrayBuilder) Len() int { return len(b.arr.items) }

// Seal returns the built Array value.
func (b *ArrayBuilder) Seal() Value {
	b.sealed = true
	return Value{typ: TypeArray, arr: b.arr}
}
