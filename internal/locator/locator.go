// Package locator describes where a stage's data lives: a path plus the
// optional transport headers and query parameters needed to reach it.
package locator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/pointpipe/internal/confignode"
)

// ErrInvalid is wrapped by every locator parse failure.
var ErrInvalid = errors.New("invalid locator")

// Locator is the resolved form of a "filename" configuration value.
type Locator struct {
	Path    string
	Headers map[string]string
	Query   map[string]string
}

// New returns a Locator for a plain path.
func New(path string) Locator {
	return Locator{Path: path}
}

// Valid reports whether a path is set.
func (l Locator) Valid() bool {
	return l.Path != ""
}

// OnlyFilename reports whether the locator is a bare path with no transport
// metadata.
func (l Locator) OnlyFilename() bool {
	return len(l.Headers) == 0 && len(l.Query) == 0
}

// WithPath returns a copy of l pointing at path. Header and query maps are
// copied so the result can be modified independently.
func (l Locator) WithPath(path string) Locator {
	out := Locator{Path: path}
	if len(l.Headers) > 0 {
		out.Headers = copyMap(l.Headers)
	}
	if len(l.Query) > 0 {
		out.Query = copyMap(l.Query)
	}
	return out
}

// HeaderKeys returns header names in sorted order.
func (l Locator) HeaderKeys() []string { return sortedKeys(l.Headers) }

// QueryKeys returns query parameter names in sorted order.
func (l Locator) QueryKeys() []string { return sortedKeys(l.Query) }

// Parse builds a Locator from a configuration node. A string is the path;
// an object must carry a string "path" and may carry "headers" and "query"
// objects of string values.
func Parse(n *confignode.Node) (Locator, error) {
	if n == nil {
		return Locator{}, fmt.Errorf("%w: no value", ErrInvalid)
	}
	switch n.Kind {
	case confignode.String:
		return Locator{Path: n.Str}, nil
	case confignode.Object:
	default:
		return Locator{}, fmt.Errorf("%w: filename must be a string or an object, got %s", ErrInvalid, n.Kind)
	}

	var l Locator
	p, ok := n.Lookup("path")
	if !ok {
		return Locator{}, fmt.Errorf("%w: 'path' is required in a filename object", ErrInvalid)
	}
	if !p.IsString() {
		return Locator{}, fmt.Errorf("%w: 'path' must be a string, got %s", ErrInvalid, p.Kind)
	}
	l.Path = p.Str

	var err error
	if l.Headers, err = stringMap(n, "headers"); err != nil {
		return Locator{}, err
	}
	if l.Query, err = stringMap(n, "query"); err != nil {
		return Locator{}, err
	}

	for _, key := range n.Keys() {
		switch key {
		case "path", "headers", "query":
		default:
			return Locator{}, fmt.Errorf("%w: unexpected member '%s' in filename object", ErrInvalid, key)
		}
	}
	return l, nil
}

func stringMap(n *confignode.Node, field string) (map[string]string, error) {
	v, ok := n.Lookup(field)
	if !ok {
		return nil, nil
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("%w: '%s' must be an object of string key-value pairs", ErrInvalid, field)
	}
	if v.Len() == 0 {
		return nil, nil
	}
	out := make(map[string]string, v.Len())
	for _, f := range v.Fields {
		if !f.Value.IsString() {
			return nil, fmt.Errorf("%w: '%s' must be an object of string key-value pairs; '%s' is %s",
				ErrInvalid, field, f.Key, f.Value.Kind)
		}
		out[f.Key] = f.Value.Str
	}
	return out, nil
}

// Ingest interprets raw as either a JSON locator or a literal path. When raw
// is not JSON, or is JSON other than a string or object, the whole input is
// the path.
func Ingest(raw string) (Locator, error) {
	n, err := confignode.ParseJSON([]byte(raw))
	if err != nil {
		return Locator{Path: raw}, nil
	}
	switch n.Kind {
	case confignode.String, confignode.Object:
		return Parse(n)
	}
	return Locator{Path: raw}, nil
}

// Node converts l back into its configuration form.
func (l Locator) Node() *confignode.Node {
	if l.OnlyFilename() {
		return confignode.NewString(l.Path)
	}
	obj := confignode.NewObject(confignode.F("path", confignode.NewString(l.Path)))
	if len(l.Headers) > 0 {
		obj.Set("headers", mapNode(l.Headers))
	}
	if len(l.Query) > 0 {
		obj.Set("query", mapNode(l.Query))
	}
	return obj
}

// String is the plain path for bare locators and the JSON object form
// otherwise, so the output can be fed back to Ingest.
func (l Locator) String() string {
	if l.OnlyFilename() {
		return l.Path
	}
	return l.Node().String()
}

// MarshalJSON encodes the configuration form.
func (l Locator) MarshalJSON() ([]byte, error) {
	return l.Node().MarshalJSON()
}

func mapNode(m map[string]string) *confignode.Node {
	obj := confignode.NewObject()
	for _, k := range sortedKeys(m) {
		obj.Set(k, confignode.NewString(m[k]))
	}
	return obj
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsRemote reports whether the path names a URL scheme such as s3:// or
// https:// rather than the local filesystem.
func (l Locator) IsRemote() bool {
	i := strings.Index(l.Path, "://")
	return i > 0 && !strings.ContainsAny(l.Path[:i], `/\`)
}
