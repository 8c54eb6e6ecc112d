package options

import (
	"fmt"

	"github.com/banshee-data/pointpipe/internal/confignode"
)

// Option is a named value.
type Option struct {
	Name  string
	Value Value
}

// Bag is an ordered collection of options. Adding a name that is already
// present appends another value rather than replacing the first.
type Bag struct {
	opts []Option
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add appends a value under name.
func (b *Bag) Add(name string, v Value) {
	b.opts = append(b.opts, Option{Name: name, Value: v})
}

// AddString is shorthand for Add(name, String(s)).
func (b *Bag) AddString(name, s string) {
	b.Add(name, String(s))
}

// Len is the number of values held, counting repeats.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.opts)
}

// All returns every option in insertion order.
func (b *Bag) All() []Option {
	if b == nil {
		return nil
	}
	out := make([]Option, len(b.opts))
	copy(out, b.opts)
	return out
}

// Has reports whether at least one value is stored under name.
func (b *Bag) Has(name string) bool {
	_, ok := b.First(name)
	return ok
}

// First returns the first value stored under name.
func (b *Bag) First(name string) (Value, bool) {
	if b == nil {
		return Value{}, false
	}
	for _, o := range b.opts {
		if o.Name == name {
			return o.Value, true
		}
	}
	return Value{}, false
}

// Values returns every value stored under name in insertion order.
func (b *Bag) Values(name string) []Value {
	if b == nil {
		return nil
	}
	var out []Value
	for _, o := range b.opts {
		if o.Name == name {
			out = append(out, o.Value)
		}
	}
	return out
}

// Names returns each distinct option name in first-seen order.
func (b *Bag) Names() []string {
	if b == nil {
		return nil
	}
	seen := make(map[string]bool, len(b.opts))
	var out []string
	for _, o := range b.opts {
		if !seen[o.Name] {
			seen[o.Name] = true
			out = append(out, o.Name)
		}
	}
	return out
}

// Clone returns an independent copy. Structured values share their
// underlying configuration node, which is never mutated after parsing.
func (b *Bag) Clone() *Bag {
	if b == nil {
		return NewBag()
	}
	return &Bag{opts: b.All()}
}

// single returns the only value under name. A repeated name is an error for
// options a stage expects once.
func (b *Bag) single(name string) (Value, bool, error) {
	vals := b.Values(name)
	switch len(vals) {
	case 0:
		return Value{}, false, nil
	case 1:
		return vals[0], true, nil
	}
	return Value{}, true, fmt.Errorf("option '%s' given %d times, expected once", name, len(vals))
}

// GetString returns the single value of name rendered as a string, or def.
func (b *Bag) GetString(name, def string) (string, error) {
	v, ok, err := b.single(name)
	if err != nil || !ok {
		return def, err
	}
	return v.String(), nil
}

// GetInt returns the single value of name as an integer, or def.
func (b *Bag) GetInt(name string, def int64) (int64, error) {
	v, ok, err := b.single(name)
	if err != nil || !ok {
		return def, err
	}
	i, err := v.AsInt()
	if err != nil {
		return def, fmt.Errorf("option '%s': %w", name, err)
	}
	return i, nil
}

// GetFloat returns the single value of name as a double, or def.
func (b *Bag) GetFloat(name string, def float64) (float64, error) {
	v, ok, err := b.single(name)
	if err != nil || !ok {
		return def, err
	}
	f, err := v.AsFloat()
	if err != nil {
		return def, fmt.Errorf("option '%s': %w", name, err)
	}
	return f, nil
}

// GetBool returns the single value of name as a boolean, or def.
func (b *Bag) GetBool(name string, def bool) (bool, error) {
	v, ok, err := b.single(name)
	if err != nil || !ok {
		return def, err
	}
	x, err := v.AsBool()
	if err != nil {
		return def, fmt.Errorf("option '%s': %w", name, err)
	}
	return x, nil
}

// Node renders the bag as a configuration object. Repeated names become
// arrays, matching how they would be written in a pipeline.
func (b *Bag) Node() *confignode.Node {
	obj := confignode.NewObject()
	for _, name := range b.Names() {
		vals := b.Values(name)
		if len(vals) == 1 {
			obj.Set(name, vals[0].ToNode())
			continue
		}
		items := make([]*confignode.Node, len(vals))
		for i, v := range vals {
			items[i] = v.ToNode()
		}
		obj.Set(name, confignode.NewArray(items...))
	}
	return obj
}
