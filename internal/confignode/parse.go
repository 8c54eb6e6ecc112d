package confignode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("syntax error")

// Parse decodes a configuration document. Documents starting with '{', '['
// or a comment are read as JSON, everything else as YAML.
func Parse(data []byte) (*Node, error) {
	if looksLikeJSON(data) {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '{', '[', '/':
		return true
	}
	return false
}

// ParseJSON decodes JSON, accepting comments and trailing commas.
func ParseJSON(data []byte) (*Node, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	dec := json.NewDecoder(bytes.NewReader(std))
	dec.UseNumber()

	n, err := decodeJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrSyntax)
	}
	return n, nil
}

func decodeJSON(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			b := newObjectBuilder()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", kt)
				}
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				b.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return b.n, nil
		case '[':
			n := &Node{Kind: Array}
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(v))
	case string:
		return NewString(v), nil
	case bool:
		return NewBool(v), nil
	case nil:
		return NewNull(), nil
	case json.Number:
		return numberNode(string(v)), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// objectBuilder assembles an Object node while decoding. Repeated keys
// replace the earlier value at its original position.
type objectBuilder struct {
	n     *Node
	index map[string]int
}

func newObjectBuilder() *objectBuilder {
	return &objectBuilder{n: &Node{Kind: Object}, index: make(map[string]int)}
}

func (b *objectBuilder) set(key string, value *Node) {
	if i, ok := b.index[key]; ok {
		b.n.Fields[i].Value = value
		return
	}
	b.index[key] = len(b.n.Fields)
	b.n.Fields = append(b.n.Fields, Field{Key: key, Value: value})
}

// numberNode classifies a numeric literal. Integers that do not fit 64 bits
// fall back to Float.
func numberNode(s string) *Node {
	if !strings.ContainsAny(s, ".eE") {
		if strings.HasPrefix(s, "-") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return NewSigned(i)
			}
		} else if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return NewUnsigned(u)
		}
	}
	f, _ := strconv.ParseFloat(s, 64)
	return NewFloat(f)
}

// ParseYAML decodes a YAML document. Aliases are resolved; an empty
// document yields a Null node.
func ParseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if doc.Kind == 0 {
		return NewNull(), nil
	}
	n, err := fromYAML(&doc, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return n, nil
}

// maxYAMLDepth bounds alias expansion.
const maxYAMLDepth = 256

func fromYAML(y *yaml.Node, depth int) (*Node, error) {
	if depth > maxYAMLDepth {
		return nil, fmt.Errorf("document nested deeper than %d levels", maxYAMLDepth)
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return NewNull(), nil
		}
		return fromYAML(y.Content[0], depth+1)
	case yaml.AliasNode:
		return fromYAML(y.Alias, depth+1)
	case yaml.SequenceNode:
		n := &Node{Kind: Array}
		for _, c := range y.Content {
			item, err := fromYAML(c, depth+1)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, item)
		}
		return n, nil
	case yaml.MappingNode:
		b := newObjectBuilder()
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := fromYAML(y.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			b.set(k.Value, val)
		}
		return b.n, nil
	case yaml.ScalarNode:
		return scalarFromYAML(y)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", y.Line, y.Kind)
}

func scalarFromYAML(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return NewNull(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, err
		}
		return NewBool(b), nil
	case "!!int":
		if strings.HasPrefix(strings.TrimSpace(y.Value), "-") {
			var i int64
			if err := y.Decode(&i); err == nil {
				return NewSigned(i), nil
			}
		} else {
			var u uint64
			if err := y.Decode(&u); err == nil {
				return NewUnsigned(u), nil
			}
		}
		f, err := strconv.ParseFloat(y.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: integer %q out of range", y.Line, y.Value)
		}
		return NewFloat(f), nil
	case "!!float":
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, err
		}
		return NewFloat(f), nil
	case "!!str":
		return NewString(y.Value), nil
	}
	return &Node{Kind: Unsupported, Str: y.Value, Tag: y.ShortTag()}, nil
}
