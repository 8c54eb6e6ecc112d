package stage

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/banshee-data/pointpipe/internal/locator"
	"github.com/banshee-data/pointpipe/internal/options"
)

// ErrWiring is returned for input connections that would break the graph.
var ErrWiring = errors.New("invalid stage wiring")

// Config holds the collaborators a Manager needs.
type Config struct {
	// Factory validates stage types. Required.
	Factory *Factory
	// Log receives advisory messages. Nil discards them.
	Log *log.Logger
}

// Manager owns every stage of one pipeline. Stages are appended in creation
// order and never removed; inputs always point at earlier stages, so the
// graph is acyclic by construction.
type Manager struct {
	factory *Factory
	log     *log.Logger
	stages  []*Stage
}

// NewManager returns an empty manager.
func NewManager(cfg Config) *Manager {
	f := cfg.Factory
	if f == nil {
		f = NewFactory()
	}
	return &Manager{factory: f, log: cfg.Log}
}

// Factory returns the driver registry stages are created from.
func (m *Manager) Factory() *Factory { return m.factory }

// Logf writes an advisory message to the manager's log sink.
func (m *Manager) Logf(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}

// MakeReader creates a reader for loc. An empty typ is inferred from the
// path extension when a registered driver claims it.
func (m *Manager) MakeReader(loc locator.Locator, typ string, opts *options.Bag, tag string) (ID, error) {
	if typ == "" {
		typ = m.factory.InferReader(loc.Path)
	}
	s, err := m.newStage(Reader, typ, opts, tag)
	if err != nil {
		return 0, err
	}
	s.loc = loc
	return m.add(s), nil
}

// MakeFilter creates a filter. Filters must name their type.
func (m *Manager) MakeFilter(typ string, opts *options.Bag, tag string) (ID, error) {
	if typ == "" {
		return 0, fmt.Errorf("%w: filter requires a type", ErrUnknownType)
	}
	s, err := m.newStage(Filter, typ, opts, tag)
	if err != nil {
		return 0, err
	}
	if v, ok := s.opts.First("filename"); ok && v.Kind() == options.KindString {
		s.loc = locator.New(v.String())
	}
	return m.add(s), nil
}

// MakeWriter creates a writer for path. An empty typ is inferred from the
// path extension when a registered driver claims it.
func (m *Manager) MakeWriter(path, typ string, opts *options.Bag, tag string) (ID, error) {
	if typ == "" {
		typ = m.factory.InferWriter(path)
	}
	s, err := m.newStage(Writer, typ, opts, tag)
	if err != nil {
		return 0, err
	}
	s.path = path
	return m.add(s), nil
}

func (m *Manager) newStage(role Role, typ string, opts *options.Bag, tag string) (*Stage, error) {
	if opts == nil {
		opts = options.NewBag()
	}
	if typ != "" {
		d, ok := m.factory.Lookup(typ)
		if !ok {
			return nil, fmt.Errorf("%w: couldn't create %s stage of type '%s'", ErrUnknownType, role, typ)
		}
		if r, _ := d.Role(); r != role {
			return nil, fmt.Errorf("%w: '%s' is a %s, not a %s", ErrUnknownType, typ, r, role)
		}
		if d.Validate != nil {
			if err := d.Validate(opts); err != nil {
				return nil, fmt.Errorf("%s: %w", typ, err)
			}
		}
	}
	return &Stage{
		uid:  uuid.NewString(),
		role: role,
		typ:  typ,
		tag:  tag,
		opts: opts,
	}, nil
}

func (m *Manager) add(s *Stage) ID {
	s.id = ID(len(m.stages))
	m.stages = append(m.stages, s)
	tracef("created %s %s as #%d", s.role, s.Label(), s.id)
	return s.id
}

// SetInput appends producer to consumer's inputs. The producer must have
// been created before the consumer and readers take no inputs.
func (m *Manager) SetInput(consumer, producer ID) error {
	c := m.Stage(consumer)
	p := m.Stage(producer)
	if c == nil || p == nil {
		return fmt.Errorf("%w: no stage #%d or #%d", ErrWiring, consumer, producer)
	}
	if c.role == Reader {
		return fmt.Errorf("%w: reader %s cannot take inputs", ErrWiring, c.Label())
	}
	if producer >= consumer {
		return fmt.Errorf("%w: %s must be created before %s", ErrWiring, p.Label(), c.Label())
	}
	c.inputs = append(c.inputs, producer)
	return nil
}

// Stage returns the stage with the given ID, or nil.
func (m *Manager) Stage(id ID) *Stage {
	if id < 0 || int(id) >= len(m.stages) {
		return nil
	}
	return m.stages[id]
}

// Stages returns every stage in creation order.
func (m *Manager) Stages() []*Stage {
	out := make([]*Stage, len(m.stages))
	copy(out, m.stages)
	return out
}

// Len is the number of stages.
func (m *Manager) Len() int { return len(m.stages) }

// Leaves returns the stages no other stage consumes, in creation order. A
// well formed pipeline has exactly one.
func (m *Manager) Leaves() []*Stage {
	consumed := make([]bool, len(m.stages))
	for _, s := range m.stages {
		for _, in := range s.inputs {
			consumed[in] = true
		}
	}
	var out []*Stage
	for i, s := range m.stages {
		if !consumed[i] {
			out = append(out, s)
		}
	}
	return out
}
