// Package stage holds the in-memory processing graph: stages tagged with a
// role, owned by a Manager arena and wired together by index.
package stage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/banshee-data/pointpipe/internal/locator"
	"github.com/banshee-data/pointpipe/internal/options"
)

// Role is the part a stage plays in a pipeline. The set is closed.
type Role int

const (
	Reader Role = iota
	Filter
	Writer
)

// Type namespace prefixes. A prefix on a stage type states its role
// explicitly.
const (
	ReaderPrefix = "readers."
	FilterPrefix = "filters."
	WriterPrefix = "writers."
)

func (r Role) String() string {
	switch r {
	case Reader:
		return "reader"
	case Filter:
		return "filter"
	case Writer:
		return "writer"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Namespace returns the type prefix of the role without the trailing dot.
func (r Role) Namespace() string {
	switch r {
	case Reader:
		return strings.TrimSuffix(ReaderPrefix, ".")
	case Filter:
		return strings.TrimSuffix(FilterPrefix, ".")
	case Writer:
		return strings.TrimSuffix(WriterPrefix, ".")
	}
	return ""
}

// RoleOf returns the role a type name declares through its prefix.
func RoleOf(typ string) (Role, bool) {
	switch {
	case strings.HasPrefix(typ, ReaderPrefix):
		return Reader, true
	case strings.HasPrefix(typ, FilterPrefix):
		return Filter, true
	case strings.HasPrefix(typ, WriterPrefix):
		return Writer, true
	}
	return 0, false
}

// ID is a stage's position in its Manager's arena.
type ID int

// Stage is one node of the processing graph. Stages are created by a
// Manager and referenced by ID; a stage never owns its inputs.
type Stage struct {
	id     ID
	uid    string
	role   Role
	typ    string
	tag    string
	opts   *options.Bag
	inputs []ID
	loc    locator.Locator
	path   string
}

func (s *Stage) ID() ID                   { return s.id }
func (s *Stage) UID() string              { return s.uid }
func (s *Stage) Role() Role               { return s.role }
func (s *Stage) Type() string             { return s.typ }
func (s *Stage) Tag() string              { return s.tag }
func (s *Stage) Options() *options.Bag    { return s.opts }
func (s *Stage) Locator() locator.Locator { return s.loc }

// Path is the output path of a writer or the source path of a reader.
func (s *Stage) Path() string {
	if s.role == Writer {
		return s.path
	}
	return s.loc.Path
}

// Inputs returns the IDs of the stages feeding this one, in wiring order.
func (s *Stage) Inputs() []ID {
	out := make([]ID, len(s.inputs))
	copy(out, s.inputs)
	return out
}

// Name is the stage type, or the role namespace when no driver could be
// determined.
func (s *Stage) Name() string {
	if s.typ != "" {
		return s.typ
	}
	return s.role.Namespace()
}

// Label identifies the stage in messages: its tag when set, else its name.
func (s *Stage) Label() string {
	if s.tag != "" {
		return s.tag
	}
	return s.Name()
}

var tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidTag reports whether tag starts with a letter and continues with
// letters, digits or underscores.
func ValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}
