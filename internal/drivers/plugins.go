package drivers

import (
	"github.com/banshee-data/pointpipe/internal/options"
	"github.com/banshee-data/pointpipe/internal/plugin"
	"github.com/banshee-data/pointpipe/internal/stage"
)

// Plugins maps each bundled plugin name to the drivers it installs.
func Plugins() map[string][]stage.Driver {
	return map[string][]stage.Driver{
		"hag": {
			{Name: "filters.hag_delaunay", Description: "Height above ground from a Delaunay triangulation of nearby ground points", Validate: validateHAGDelaunay},
			{Name: "filters.hag_nn", Description: "Height above ground from the nearest ground points", Validate: countAtLeast("count", 1, 1)},
		},
		"outlier": {
			{Name: "filters.outlier", Description: "Flags isolated points", Validate: countAtLeast("mean_k", 1, 8)},
		},
	}
}

// NewPluginRegistry returns a registry whose bundled plugins register
// their drivers with f when first loaded. fallback handles any other
// name and may be nil.
func NewPluginRegistry(f *stage.Factory, fallback plugin.Loader) *plugin.Registry {
	r := plugin.NewRegistry(fallback)
	for name, ds := range Plugins() {
		ds := ds
		types := make([]string, len(ds))
		for i, d := range ds {
			types[i] = d.Name
		}
		r.Bundle(name, func() error { return Register(f, ds) }, types...)
	}
	return r
}

func validateHAGDelaunay(opts *options.Bag) error {
	if err := countAtLeast("count", 3, 10)(opts); err != nil {
		return err
	}
	_, err := opts.GetBool("allow_extrapolation", false)
	return err
}
