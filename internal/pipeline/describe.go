package pipeline

import (
	"github.com/banshee-data/pointpipe/internal/confignode"
	"github.com/banshee-data/pointpipe/internal/stage"
)

// StageDescription is the serialisable view of one compiled stage.
type StageDescription struct {
	ID      int              `json:"id" yaml:"id"`
	UID     string           `json:"uid" yaml:"uid"`
	Role    string           `json:"role" yaml:"role"`
	Type    string           `json:"type,omitempty" yaml:"type,omitempty"`
	Tag     string           `json:"tag,omitempty" yaml:"tag,omitempty"`
	Name    string           `json:"name" yaml:"name"`
	Path    string           `json:"path,omitempty" yaml:"path,omitempty"`
	Source  *confignode.Node `json:"source,omitempty" yaml:"source,omitempty"`
	Options *confignode.Node `json:"options,omitempty" yaml:"options,omitempty"`
	Inputs  []int            `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// GraphDescription is the serialisable view of a compiled pipeline.
type GraphDescription struct {
	Stages []StageDescription `json:"stages" yaml:"stages"`
	// Leaves lists terminal stage IDs; only the first is executed.
	Leaves []int `json:"leaves" yaml:"leaves"`
}

// Describe captures m's stages, wiring and leaves.
func Describe(m *stage.Manager) GraphDescription {
	var g GraphDescription
	for _, s := range m.Stages() {
		d := StageDescription{
			ID:   int(s.ID()),
			UID:  s.UID(),
			Role: s.Role().String(),
			Type: s.Type(),
			Tag:  s.Tag(),
			Name: s.Name(),
			Path: s.Path(),
		}
		if s.Role() == stage.Reader && !s.Locator().OnlyFilename() {
			d.Source = s.Locator().Node()
		}
		if s.Options().Len() > 0 {
			d.Options = s.Options().Node()
		}
		for _, in := range s.Inputs() {
			d.Inputs = append(d.Inputs, int(in))
		}
		g.Stages = append(g.Stages, d)
	}
	for _, s := range m.Leaves() {
		g.Leaves = append(g.Leaves, int(s.ID()))
	}
	return g
}
