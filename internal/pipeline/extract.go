package pipeline

import (
	"github.com/banshee-data/pointpipe/internal/confignode"
	"github.com/banshee-data/pointpipe/internal/locator"
	"github.com/banshee-data/pointpipe/internal/options"
	"github.com/banshee-data/pointpipe/internal/stage"
)

// extract pulls the recognised keys out of an object node in a fixed
// order: type, filename, tag, inputs, then options.
func (st *compilation) extract(i int, n *confignode.Node) (nodeSpec, error) {
	var spec nodeSpec
	var err error

	if spec.typ, err = extractType(i, n); err != nil {
		return spec, err
	}
	if spec.loc, err = extractFilename(i, n); err != nil {
		return spec, err
	}
	if spec.tag, err = extractTag(i, n, st.tags); err != nil {
		return spec, err
	}
	if spec.inputs, err = extractInputs(i, n, st.tags); err != nil {
		return spec, err
	}
	if spec.opts, err = st.extractOptions(i, n); err != nil {
		return spec, err
	}
	return spec, nil
}

func extractType(i int, n *confignode.Node) (string, error) {
	v, ok := n.Lookup(keyType)
	if !ok || v.IsNull() {
		return "", nil
	}
	if !v.IsString() {
		return "", newError(i, keyType, ErrFieldType, "'type' must be specified as a string")
	}
	return v.Str, nil
}

func extractFilename(i int, n *confignode.Node) (locator.Locator, error) {
	v, ok := n.Lookup(keyFilename)
	if !ok {
		return locator.Locator{}, nil
	}
	loc, err := locator.Parse(v)
	if err != nil {
		return locator.Locator{}, wrapError(i, keyFilename, ErrLocator, err, "invalid 'filename'")
	}
	return loc, nil
}

// extractTag returns the node's tag. A null tag counts as no tag.
func extractTag(i int, n *confignode.Node, tags map[string]stage.ID) (string, error) {
	v, ok := n.Lookup(keyTag)
	if !ok || v.IsNull() {
		return "", nil
	}
	if !v.IsString() {
		return "", newError(i, keyTag, ErrFieldType, "tag must be specified as a string")
	}
	tag := v.Str
	if _, dup := tags[tag]; dup {
		return "", newError(i, keyTag, ErrDuplicateTag, "duplicate tag '%s'", tag)
	}
	if !stage.ValidTag(tag) {
		return "", newError(i, keyTag, ErrInvalidTag,
			"invalid tag name '%s'; must start with a letter, remainder can be letters, digits or underscores", tag)
	}
	return tag, nil
}

func extractInputs(i int, n *confignode.Node, tags map[string]stage.ID) ([]stage.ID, error) {
	v, ok := n.Lookup(keyInputs)
	if !ok {
		return nil, nil
	}

	var names []string
	switch {
	case v.IsString():
		names = []string{v.Str}
	case v.IsArray():
		for _, item := range v.Items {
			if !item.IsString() {
				return nil, newError(i, keyInputs, ErrFieldType, "'inputs' must be specified as a string or array of strings")
			}
			names = append(names, item.Str)
		}
	default:
		return nil, newError(i, keyInputs, ErrFieldType, "'inputs' must be specified as a string or array of strings")
	}

	inputs := make([]stage.ID, 0, len(names))
	for _, name := range names {
		id, ok := tags[name]
		if !ok {
			return nil, newError(i, keyInputs, ErrUndefinedTag, "undefined stage tag '%s'", name)
		}
		inputs = append(inputs, id)
	}
	return inputs, nil
}

// extractOptions converts every non-reserved key into options. A "plugin"
// key loads the plugin instead. Array values contribute one option per
// element under the same name.
func (st *compilation) extractOptions(i int, n *confignode.Node) (*options.Bag, error) {
	bag := options.NewBag()
	for _, f := range n.Fields {
		name, val := f.Key, f.Value
		switch name {
		case keyType, keyFilename, keyTag, keyInputs:
			continue
		case keyPlugin:
			if err := st.loadPlugin(i, val); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case val.IsArray():
			for _, item := range val.Items {
				if item.IsObject() {
					bag.Add(name, options.Structured(item))
					continue
				}
				if item.IsArray() {
					return nil, newError(i, name, ErrOptionValue, "invalid value type for option list '%s'", name)
				}
				v, err := options.Coerce(item)
				if err != nil {
					return nil, wrapError(i, name, ErrOptionValue, err, "invalid value type for option list '%s'", name)
				}
				bag.Add(name, v)
			}
		case val.IsObject():
			bag.Add(name, options.Structured(val))
		default:
			v, err := options.Coerce(val)
			if err != nil {
				return nil, wrapError(i, name, ErrOptionValue, err, "value of stage option '%s' cannot be converted", name)
			}
			bag.Add(name, v)
		}
	}
	return bag, nil
}

func (st *compilation) loadPlugin(i int, v *confignode.Node) error {
	if !v.IsString() {
		return newError(i, keyPlugin, ErrFieldType, "'plugin' must be specified as a string")
	}
	if st.c.Plugins == nil {
		return newError(i, keyPlugin, ErrNoPluginSetup, "cannot load plugin '%s'", v.Str)
	}
	if err := st.c.Plugins.Load(v.Str); err != nil {
		return wrapError(i, keyPlugin, ErrPlugin, err, "cannot load plugin '%s'", v.Str)
	}
	return nil
}
