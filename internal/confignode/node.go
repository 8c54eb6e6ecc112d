// Package confignode holds the schema-free configuration tree that pipeline
// descriptions are parsed into before they are compiled.
//
// A Node keeps object keys in document order and distinguishes unsigned,
// signed and floating point numbers, which the option coercion rules need.
package confignode

import (
	"fmt"
	"strings"
)

// Kind identifies what a Node holds.
type Kind int

const (
	Null Kind = iota
	Bool
	String
	Unsigned
	Signed
	Float
	Array
	Object
	// Unsupported is a scalar that has no configuration meaning, such as a
	// YAML !!binary or !!timestamp value. Str holds its source text and
	// Tag the YAML tag.
	Unsupported
)

var kindNames = [...]string{
	Null:        "null",
	Bool:        "bool",
	String:      "string",
	Unsigned:    "unsigned",
	Signed:      "signed",
	Float:       "float",
	Array:       "array",
	Object:      "object",
	Unsupported: "unsupported",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Field is one key/value member of an Object node.
type Field struct {
	Key   string
	Value *Node
}

// Node is a single value in a configuration tree.
type Node struct {
	Kind Kind

	Str   string
	Bool  bool
	Uint  uint64
	Int   int64
	Float float64

	// Tag is the source tag of an Unsupported scalar (e.g. "!!binary").
	Tag string

	Items  []*Node
	Fields []Field
}

// NewString returns a String node.
func NewString(s string) *Node { return &Node{Kind: String, Str: s} }

// NewBool returns a Bool node.
func NewBool(b bool) *Node { return &Node{Kind: Bool, Bool: b} }

// NewUnsigned returns an Unsigned node.
func NewUnsigned(u uint64) *Node { return &Node{Kind: Unsigned, Uint: u} }

// NewSigned returns a Signed node.
func NewSigned(i int64) *Node { return &Node{Kind: Signed, Int: i} }

// NewFloat returns a Float node.
func NewFloat(f float64) *Node { return &Node{Kind: Float, Float: f} }

// NewNull returns a Null node.
func NewNull() *Node { return &Node{Kind: Null} }

// NewArray returns an Array node holding items.
func NewArray(items ...*Node) *Node { return &Node{Kind: Array, Items: items} }

// NewObject returns an Object node. Later duplicate keys replace earlier ones.
func NewObject(fields ...Field) *Node {
	b := newObjectBuilder()
	for _, f := range fields {
		b.set(f.Key, f.Value)
	}
	return b.n
}

// F is shorthand for building Object fields.
func F(key string, value *Node) Field { return Field{Key: key, Value: value} }

// IsString reports whether n is a String node.
func (n *Node) IsString() bool { return n != nil && n.Kind == String }

// IsObject reports whether n is an Object node.
func (n *Node) IsObject() bool { return n != nil && n.Kind == Object }

// IsArray reports whether n is an Array node.
func (n *Node) IsArray() bool { return n != nil && n.Kind == Array }

// IsNull reports whether n is nil or a Null node.
func (n *Node) IsNull() bool { return n == nil || n.Kind == Null }

// Lookup returns the value stored under key in an Object node.
func (n *Node) Lookup(key string) (*Node, bool) {
	if n == nil || n.Kind != Object {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set stores value under key, replacing an existing member in place so the
// original key position is kept.
func (n *Node) Set(key string, value *Node) {
	for i := range n.Fields {
		if n.Fields[i].Key == key {
			n.Fields[i].Value = value
			return
		}
	}
	n.Fields = append(n.Fields, Field{Key: key, Value: value})
}

// Keys returns the member names of an Object node in document order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != Object {
		return nil
	}
	keys := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Len is the number of items or fields of a container node, zero otherwise.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case Array:
		return len(n.Items)
	case Object:
		return len(n.Fields)
	}
	return 0
}

// String renders n as compact JSON. Unsupported scalars render as their raw
// text so the value is still recognisable in error messages.
func (n *Node) String() string {
	if n == nil {
		return "null"
	}
	b, err := n.MarshalJSON()
	if err != nil {
		return strings.TrimSpace(fmt.Sprintf("<%s %s>", n.Kind, n.Str))
	}
	return string(b)
}
