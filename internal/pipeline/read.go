package pipeline

import (
	"io"

	"github.com/banshee-data/pointpipe/internal/confignode"
	"github.com/banshee-data/pointpipe/internal/stage"
)

// maxPipelineSize caps pipeline documents read from files or streams.
const maxPipelineSize = 16 * 1024 * 1024

// ReadFile compiles the pipeline document at path.
func (c *Compiler) ReadFile(path string) (*stage.Manager, error) {
	info, err := c.fs().Stat(path)
	if err != nil {
		return nil, wrapError(-1, "", ErrUnreadable, err, "unable to open stream for file %q", path)
	}
	if info.Size() > maxPipelineSize {
		return nil, newError(-1, "", ErrUnreadable, "pipeline file %q too large: %d bytes (max %d)", path, info.Size(), maxPipelineSize)
	}
	data, err := c.fs().ReadFile(path)
	if err != nil {
		return nil, wrapError(-1, "", ErrUnreadable, err, "unable to open stream for file %q", path)
	}
	diagf("compiling %s", path)
	return c.ReadBytes(data)
}

// Read compiles a pipeline document from r.
func (c *Compiler) Read(r io.Reader) (*stage.Manager, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPipelineSize+1))
	if err != nil {
		return nil, wrapError(-1, "", ErrUnreadable, err, "unable to read pipeline")
	}
	if len(data) > maxPipelineSize {
		return nil, newError(-1, "", ErrUnreadable, "pipeline too large (max %d bytes)", maxPipelineSize)
	}
	return c.ReadBytes(data)
}

// ReadString compiles a pipeline document held in s.
func (c *Compiler) ReadString(s string) (*stage.Manager, error) {
	return c.ReadBytes([]byte(s))
}

// ReadBytes compiles a JSON or YAML pipeline document. The root is either
// an object whose "pipeline" member is the stage list, or the list itself.
func (c *Compiler) ReadBytes(data []byte) (*stage.Manager, error) {
	nodes, err := Nodes(data)
	if err != nil {
		return nil, err
	}
	return c.Compile(nodes)
}

// Nodes parses a pipeline document and returns its stage list.
func Nodes(data []byte) ([]*confignode.Node, error) {
	root, err := confignode.Parse(data)
	if err != nil {
		return nil, wrapError(-1, "", ErrSyntax, err, "cannot parse pipeline")
	}
	if root.IsObject() {
		if p, ok := root.Lookup("pipeline"); ok {
			if !p.IsArray() {
				return nil, newError(-1, "pipeline", ErrNotPipeline, "'pipeline' must be an array of stages")
			}
			return p.Items, nil
		}
	}
	if root.IsArray() {
		return root.Items, nil
	}
	return nil, newError(-1, "", ErrNotPipeline, "root element is not a pipeline")
}
