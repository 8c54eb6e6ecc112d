// Package pipeline compiles declarative pipeline descriptions into a stage
// graph.
//
// A description is an ordered list of nodes. A node is either a bare path
// or an object with the recognised keys type, filename, tag, inputs and
// plugin; every other key is a stage option. Roles are inferred from the
// type prefix and, for untyped nodes, from position: untyped nodes are
// readers unless they are the last of several, which makes them the
// writer. Nodes are processed strictly in order because tags and the
// running input set only ever refer backwards.
package pipeline

import (
	"log"
	"strings"

	"github.com/banshee-data/pointpipe/internal/confignode"
	"github.com/banshee-data/pointpipe/internal/fsutil"
	"github.com/banshee-data/pointpipe/internal/locator"
	"github.com/banshee-data/pointpipe/internal/options"
	"github.com/banshee-data/pointpipe/internal/stage"
)

// Reserved node keys. Everything else becomes a stage option.
const (
	keyType     = "type"
	keyFilename = "filename"
	keyTag      = "tag"
	keyInputs   = "inputs"
	keyPlugin   = "plugin"
)

// PluginLoader loads a named plugin. Implementations must make repeated
// loads of one name cheap and side-effect free.
type PluginLoader interface {
	Load(name string) error
}

// PluginFinder is implemented by loaders that know which plugin provides a
// stage type. The compiler uses it to load plugins for types it does not
// know yet.
type PluginFinder interface {
	PluginFor(stageType string) (string, bool)
}

// Compiler turns configuration nodes into a stage graph.
type Compiler struct {
	// Factory knows the stage types. Required.
	Factory *stage.Factory
	// Plugins serves "plugin" keys. Nil makes any plugin key an error.
	Plugins PluginLoader
	// FS expands reader globs and reads pipeline files. Nil uses the OS.
	FS fsutil.FileSystem
	// Log is the advisory sink handed to the stage manager. Nil discards.
	Log *log.Logger
}

func (c *Compiler) fs() fsutil.FileSystem {
	if c.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return c.FS
}

// nodeSpec is everything extracted from one configuration node.
type nodeSpec struct {
	typ    string
	loc    locator.Locator
	tag    string
	inputs []stage.ID
	opts   *options.Bag
}

// compilation is the mutable state of one Compile call.
type compilation struct {
	c       *Compiler
	manager *stage.Manager
	tags    map[string]stage.ID
	current []stage.ID
}

// InferRole applies the role rule for the node at index of count nodes:
// untyped nodes are readers when first or not last, and "readers."
// types are readers; otherwise untyped nodes and "writers." types are
// writers; anything else is a filter.
func InferRole(typ string, index, count int) stage.Role {
	last := count - 1
	if (typ == "" && (index == 0 || index != last)) || strings.HasPrefix(typ, stage.ReaderPrefix) {
		return stage.Reader
	}
	if typ == "" || strings.HasPrefix(typ, stage.WriterPrefix) {
		return stage.Writer
	}
	return stage.Filter
}

// Compile builds a new stage graph from nodes. On error no graph is
// returned.
func (c *Compiler) Compile(nodes []*confignode.Node) (*stage.Manager, error) {
	if len(nodes) == 0 {
		return nil, newError(-1, "", ErrEmpty, "pipeline has no stages")
	}
	st := &compilation{
		c:       c,
		manager: stage.NewManager(stage.Config{Factory: c.Factory, Log: c.Log}),
		tags:    make(map[string]stage.ID),
	}
	for i, n := range nodes {
		if err := st.compileNode(i, len(nodes), n); err != nil {
			opsf("%v", err)
			return nil, err
		}
	}
	st.reportLeaves()
	return st.manager, nil
}

func (st *compilation) compileNode(i, count int, n *confignode.Node) error {
	var spec nodeSpec
	switch {
	case n.IsString():
		spec.loc = locator.New(n.Str)
		spec.opts = options.NewBag()
	case n.IsObject():
		var err error
		if spec, err = st.extract(i, n); err != nil {
			return err
		}
		if len(spec.inputs) > 0 {
			st.current = spec.inputs
		}
	default:
		kind := "null"
		if n != nil {
			kind = n.Kind.String()
		}
		return newError(i, "", ErrNodeShape, "stage must be a string or an object, got %s", kind)
	}

	if err := st.autoload(i, spec.typ); err != nil {
		return err
	}
	role := InferRole(spec.typ, i, count)
	tracef("stage %d: type=%q role=%s path=%q", i, spec.typ, role, spec.loc.Path)

	var created stage.ID
	var err error
	switch role {
	case stage.Reader:
		created, err = st.makeReaders(i, spec)
	case stage.Writer:
		created, err = st.makeConsumer(i, spec, func() (stage.ID, error) {
			return st.manager.MakeWriter(spec.loc.Path, spec.typ, spec.opts, spec.tag)
		})
	default:
		if spec.loc.Valid() {
			spec.opts.AddString(keyFilename, spec.loc.Path)
		}
		created, err = st.makeConsumer(i, spec, func() (stage.ID, error) {
			return st.manager.MakeFilter(spec.typ, spec.opts, spec.tag)
		})
	}
	if err != nil {
		return err
	}

	if spec.tag != "" {
		st.tags[spec.tag] = created
	}
	return nil
}

// autoload loads the plugin providing typ when the factory does not know
// the type yet.
func (st *compilation) autoload(i int, typ string) error {
	if typ == "" || st.c.Plugins == nil {
		return nil
	}
	if _, ok := st.c.Factory.Lookup(typ); ok {
		return nil
	}
	finder, ok := st.c.Plugins.(PluginFinder)
	if !ok {
		return nil
	}
	name, ok := finder.PluginFor(typ)
	if !ok {
		return nil
	}
	diagf("stage %d: loading plugin '%s' for type '%s'", i, name, typ)
	if err := st.c.Plugins.Load(name); err != nil {
		return wrapError(i, keyType, ErrPlugin, err, "cannot load plugin '%s' for stage type '%s'", name, typ)
	}
	return nil
}

// makeReaders creates one reader per glob match of the locator path, or a
// single reader for the literal path when nothing matches. Readers join the
// running input set instead of replacing it. A tag names one stage, so a
// tagged glob must match at most one file.
func (st *compilation) makeReaders(i int, spec nodeSpec) (stage.ID, error) {
	if len(spec.inputs) > 0 {
		return 0, newError(i, keyInputs, ErrReaderInputs, "inputs not permitted for reader '%s'", spec.loc.Path)
	}
	paths := st.expand(spec.loc)
	if spec.tag != "" && len(paths) > 1 {
		return 0, newError(i, keyTag, ErrDuplicateTag,
			"tag '%s' would name %d readers expanded from '%s'", spec.tag, len(paths), spec.loc.Path)
	}
	var last stage.ID
	for _, path := range paths {
		id, err := st.manager.MakeReader(spec.loc.WithPath(path), spec.typ, spec.opts.Clone(), spec.tag)
		if err != nil {
			return 0, wrapError(i, keyType, ErrStage, err, "couldn't create reader for '%s'", path)
		}
		st.current = append(st.current, id)
		last = id
	}
	return last, nil
}

// makeConsumer creates a writer or filter that takes every stage in the
// running input set, then becomes the only member of that set.
func (st *compilation) makeConsumer(i int, spec nodeSpec, create func() (stage.ID, error)) (stage.ID, error) {
	id, err := create()
	if err != nil {
		return 0, wrapError(i, keyType, ErrStage, err, "couldn't create stage")
	}
	for _, in := range st.current {
		if err := st.manager.SetInput(id, in); err != nil {
			return 0, wrapError(i, keyInputs, ErrStage, err, "couldn't wire inputs")
		}
	}
	st.current = []stage.ID{id}
	return id, nil
}

func (st *compilation) expand(loc locator.Locator) []string {
	if loc.Path == "" || loc.IsRemote() {
		return []string{loc.Path}
	}
	matches, err := st.c.fs().Glob(loc.Path)
	if err != nil {
		diagf("glob %q: %v; using the literal path", loc.Path, err)
	}
	if len(matches) == 0 {
		return []string{loc.Path}
	}
	if len(matches) > 1 {
		diagf("glob %q expanded to %d readers", loc.Path, len(matches))
	}
	return matches
}

// reportLeaves warns when the graph has more than one terminal stage. Only
// the first leaf is run, so the others are probably a mistake.
func (st *compilation) reportLeaves() {
	leaves := st.manager.Leaves()
	if len(leaves) <= 1 {
		return
	}
	st.manager.Logf("Pipeline has multiple leaf nodes.")
	st.manager.Logf("Only the first of the following leaf nodes will be run.")
	for _, s := range leaves {
		st.manager.Logf("    %s", s.Label())
	}
	opsf("pipeline has %d leaf nodes; using %s", len(leaves), leaves[0].Label())
}
