// Package plugin loads optional stage drivers by name. A Registry is passed
// to the pipeline compiler explicitly so tests can observe and control
// loading.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when no bundled installer or fallback loader
// knows a plugin name.
var ErrNotFound = errors.New("plugin not found")

// InstallFunc makes a plugin's drivers available, typically by registering
// them with a stage factory.
type InstallFunc func() error

// Loader resolves plugins that are not bundled with the binary.
type Loader interface {
	Load(name string) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(name string) error

// Load calls f(name).
func (f LoaderFunc) Load(name string) error { return f(name) }

// Registry runs each plugin's installer at most once, however many times
// it is requested, and remembers the outcome.
type Registry struct {
	mu       sync.Mutex
	bundled  map[string]InstallFunc
	provides map[string]string // stage type -> plugin name
	fallback Loader
	results  map[string]error
	order    []string
}

// NewRegistry returns a registry that falls back to loader for names with
// no bundled installer. loader may be nil.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		bundled:  make(map[string]InstallFunc),
		provides: make(map[string]string),
		fallback: loader,
		results:  make(map[string]error),
	}
}

// Bundle registers an installer for name. stageTypes lists the stage
// types the installer makes available, so that naming one of them is
// enough to load the plugin.
func (r *Registry) Bundle(name string, install InstallFunc, stageTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundled[name] = install
	for _, typ := range stageTypes {
		r.provides[typ] = name
	}
}

// PluginFor returns the bundled plugin that provides stageType.
func (r *Registry) PluginFor(stageType string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.provides[stageType]
	return name, ok
}

// Load installs the named plugin. The first call does the work; later
// calls return the first call's error.
func (r *Registry) Load(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty plugin name", ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err, done := r.results[name]; done {
		return err
	}

	var err error
	if install, ok := r.bundled[name]; ok {
		err = install()
	} else if r.fallback != nil {
		err = r.fallback.Load(name)
	} else {
		err = ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("loading plugin '%s': %w", name, err)
	}
	r.results[name] = err
	r.order = append(r.order, name)
	if err == nil {
		diagf("loaded plugin %s", name)
	} else {
		opsf("%v", err)
	}
	return err
}

// Loaded returns successfully loaded plugin names in load order.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, name := range r.order {
		if r.results[name] == nil {
			out = append(out, name)
		}
	}
	return out
}

// Available returns the names of bundled plugins, sorted.
func (r *Registry) Available() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.bundled))
	for name := range r.bundled {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
