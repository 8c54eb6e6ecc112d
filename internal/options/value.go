// Package options holds the typed, ordered configuration attached to a
// stage: the option bag.
package options

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/pointpipe/internal/confignode"
)

// Kind is the type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindUnsigned
	KindSigned
	KindDouble
	KindBool
	KindStructured
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindStructured:
		return "structured"
	case KindList:
		return "list"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrConversion is returned when a value cannot be read as the requested type.
var ErrConversion = errors.New("option conversion failed")

// ErrUnsupported is returned by Coerce for nodes with no option form.
var ErrUnsupported = errors.New("unsupported option value")

// Value is one option value. The zero Value is an empty string.
type Value struct {
	kind Kind
	s    string
	u    uint64
	i    int64
	f    float64
	b    bool
	node *confignode.Node
	list []Value
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Uint returns an unsigned integer Value.
func Uint(u uint64) Value { return Value{kind: KindUnsigned, u: u} }

// Int returns a signed integer Value.
func Int(i int64) Value { return Value{kind: KindSigned, i: i} }

// Double returns a floating point Value.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Structured wraps a nested configuration object.
func Structured(n *confignode.Node) Value { return Value{kind: KindStructured, node: n} }

// List returns a list Value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Coerce converts a configuration scalar or nested array into a Value. Null
// becomes the empty string. Objects are accepted as Structured values.
func Coerce(n *confignode.Node) (Value, error) {
	if n == nil {
		return String(""), nil
	}
	switch n.Kind {
	case confignode.Null:
		return String(""), nil
	case confignode.String:
		return String(n.Str), nil
	case confignode.Unsigned:
		return Uint(n.Uint), nil
	case confignode.Signed:
		return Int(n.Int), nil
	case confignode.Float:
		return Double(n.Float), nil
	case confignode.Bool:
		return Bool(n.Bool), nil
	case confignode.Object:
		return Structured(n), nil
	case confignode.Array:
		items := make([]Value, 0, len(n.Items))
		for _, it := range n.Items {
			v, err := Coerce(it)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	}
	return Value{}, fmt.Errorf("%w: %s value %q", ErrUnsupported, n.Tag, n.Str)
}

// Kind reports the value's type.
func (v Value) Kind() Kind { return v.kind }

// Node returns the nested object of a Structured value, nil otherwise.
func (v Value) Node() *confignode.Node {
	if v.kind != KindStructured {
		return nil
	}
	return v.node
}

// Items returns the elements of a List value, nil otherwise.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// String renders the value the way a user would have written it on a
// command line; structured values and lists render as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindUnsigned:
		return strconv.FormatUint(v.u, 10)
	case KindSigned:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStructured:
		return v.node.String()
	case KindList:
		return v.ToNode().String()
	}
	return ""
}

// ToNode converts the value back into configuration form.
func (v Value) ToNode() *confignode.Node {
	switch v.kind {
	case KindString:
		return confignode.NewString(v.s)
	case KindUnsigned:
		return confignode.NewUnsigned(v.u)
	case KindSigned:
		return confignode.NewSigned(v.i)
	case KindDouble:
		return confignode.NewFloat(v.f)
	case KindBool:
		return confignode.NewBool(v.b)
	case KindStructured:
		return v.node
	case KindList:
		items := make([]*confignode.Node, len(v.list))
		for i, it := range v.list {
			items[i] = it.ToNode()
		}
		return confignode.NewArray(items...)
	}
	return confignode.NewNull()
}

// AsInt reads the value as a signed integer. Doubles must be integral and
// strings must parse.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindSigned:
		return v.i, nil
	case KindUnsigned:
		if v.u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrConversion, v.u)
		}
		return int64(v.u), nil
	case KindDouble:
		if v.f != math.Trunc(v.f) || math.Abs(v.f) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrConversion, v.f)
		}
		return int64(v.f), nil
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrConversion, v.s)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s value is not an integer", ErrConversion, v.kind)
}

// AsFloat reads the value as a double.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindDouble:
		return v.f, nil
	case KindSigned:
		return float64(v.i), nil
	case KindUnsigned:
		return float64(v.u), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrConversion, v.s)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s value is not a number", ErrConversion, v.kind)
}

// AsBool reads the value as a boolean. Strings accept strconv.ParseBool
// spellings; integers are true when non-zero.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindSigned:
		return v.i != 0, nil
	case KindUnsigned:
		return v.u != 0, nil
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrConversion, v.s)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: %s value is not a boolean", ErrConversion, v.kind)
}
