package stage

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/banshee-data/pointpipe/internal/options"
)

// ErrUnknownType is returned when a stage type has no registered driver.
var ErrUnknownType = errors.New("unknown stage type")

// Driver describes a stage implementation the factory can create.
type Driver struct {
	Name        string
	Description string
	// Extensions lists lower-case file extensions, with the leading dot,
	// that select this driver when a reader or writer has no explicit type.
	Extensions []string
	// Validate checks a stage's options when it is created. Optional.
	Validate func(opts *options.Bag) error
}

// Role returns the role declared by the driver's name prefix.
func (d Driver) Role() (Role, bool) {
	return RoleOf(d.Name)
}

// Factory is the set of drivers stages can be created from. It is safe for
// concurrent use so plugins may register while other goroutines look up.
type Factory struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{drivers: make(map[string]Driver)}
}

// Register adds a driver. The name must carry a role prefix and must not
// already be registered.
func (f *Factory) Register(d Driver) error {
	if _, ok := d.Role(); !ok {
		return fmt.Errorf("driver name '%s' has no readers./filters./writers. prefix", d.Name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.drivers[d.Name]; dup {
		return fmt.Errorf("driver '%s' already registered", d.Name)
	}
	f.drivers[d.Name] = d
	return nil
}

// Lookup returns the driver registered under name.
func (f *Factory) Lookup(name string) (Driver, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, ok := f.drivers[name]
	return d, ok
}

// Names returns every registered driver name, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.drivers))
	for name := range f.drivers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InferReader returns the reader driver for filename's extension, or "".
func (f *Factory) InferReader(filename string) string {
	return f.infer(Reader, filename)
}

// InferWriter returns the writer driver for filename's extension, or "".
func (f *Factory) InferWriter(filename string) string {
	return f.infer(Writer, filename)
}

func (f *Factory) infer(role Role, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return ""
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	// Several drivers may claim an extension; pick the lowest name so the
	// choice does not depend on map order.
	best := ""
	for name, d := range f.drivers {
		if r, _ := d.Role(); r != role {
			continue
		}
		for _, e := range d.Extensions {
			if e == ext && (best == "" || name < best) {
				best = name
			}
		}
	}
	return best
}
