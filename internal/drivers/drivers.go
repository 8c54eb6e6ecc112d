// Package drivers is the catalogue of stage types the engine knows about
// out of the box, plus the optional plugins that add more.
package drivers

import (
	"fmt"
	"strings"

	"github.com/banshee-data/pointpipe/internal/options"
	"github.com/banshee-data/pointpipe/internal/planefit"
	"github.com/banshee-data/pointpipe/internal/stage"
)

// Builtin returns the drivers every factory starts with.
func Builtin() []stage.Driver {
	return []stage.Driver{
		{Name: "readers.las", Description: "ASPRS LAS/LAZ reader", Extensions: []string{".las", ".laz"}},
		{Name: "readers.text", Description: "Delimited text reader", Extensions: []string{".txt", ".csv", ".xyz"}},
		{Name: "readers.ply", Description: "Polygon file format reader", Extensions: []string{".ply"}},
		{Name: "readers.pcap", Description: "Hesai Pandar packet capture reader", Extensions: []string{".pcap", ".pcapng"}},
		{Name: "writers.las", Description: "ASPRS LAS/LAZ writer", Extensions: []string{".las", ".laz"}},
		{Name: "writers.text", Description: "Delimited text writer", Extensions: []string{".txt", ".csv", ".xyz"}},
		{Name: "writers.ply", Description: "Polygon file format writer", Extensions: []string{".ply"}},
		{Name: "writers.null", Description: "Discards every point"},
		{Name: planefit.TypeName, Description: "Distance of each point to the plane of its neighbours", Validate: planefit.ValidateOptions},
		{Name: "filters.merge", Description: "Concatenates its inputs"},
		{Name: "filters.range", Description: "Keeps points inside dimension ranges", Validate: validateRange},
		{Name: "filters.crop", Description: "Keeps points inside a box", Validate: validateCrop},
		{Name: "filters.head", Description: "Keeps the first points", Validate: countAtLeast("count", 0, 10)},
	}
}

// NewFactory returns a factory holding the built-in drivers.
func NewFactory() (*stage.Factory, error) {
	f := stage.NewFactory()
	if err := Register(f, Builtin()); err != nil {
		return nil, err
	}
	return f, nil
}

// Register adds ds to f, stopping at the first failure.
func Register(f *stage.Factory, ds []stage.Driver) error {
	for _, d := range ds {
		if err := f.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// countAtLeast checks that an integer option, when given, is at least min.
func countAtLeast(name string, min, def int64) func(*options.Bag) error {
	return func(opts *options.Bag) error {
		n, err := opts.GetInt(name, def)
		if err != nil {
			return err
		}
		if n < min {
			return fmt.Errorf("option '%s' must be at least %d", name, min)
		}
		return nil
	}
}

// validateRange checks "limits" entries look like Dim[lo:hi] or Dim(lo:hi).
func validateRange(opts *options.Bag) error {
	for _, v := range opts.Values("limits") {
		items := []options.Value{v}
		if v.Kind() == options.KindList {
			items = v.Items()
		}
		for _, item := range items {
			for _, lim := range strings.Split(item.String(), ",") {
				if err := checkLimit(strings.TrimSpace(lim)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkLimit(s string) error {
	open := strings.IndexAny(s, "[(")
	if open <= 0 || !strings.ContainsAny(s[len(s)-1:], "])") || !strings.Contains(s[open:], ":") {
		return fmt.Errorf("invalid range limit '%s'", s)
	}
	return nil
}

// validateCrop checks "bounds" is a ([minx, maxx], [miny, maxy]...) box.
func validateCrop(opts *options.Bag) error {
	for _, v := range opts.Values("bounds") {
		s := strings.TrimSpace(v.String())
		if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") || strings.Count(s, "[") < 2 {
			return fmt.Errorf("invalid bounds '%s'", s)
		}
	}
	return nil
}
