// Package pointset provides columnar point storage and a k-nearest-neighbour
// index over it.
package pointset

import (
	"fmt"
	"sort"
)

// Standard dimension names.
const (
	DimX = "X"
	DimY = "Y"
	DimZ = "Z"
)

// Point is a position in the site frame, in metres.
type Point struct {
	X, Y, Z float64
}

// Table stores points column by column. Every column has one value per
// point. Columns must be declared before concurrent writers start; after
// that, writes to distinct indices of a column do not race.
type Table struct {
	n       int
	columns map[string][]float64
	order   []string
}

// NewTable returns a table holding pts with X, Y and Z columns.
func NewTable(pts []Point) *Table {
	t := &Table{
		n:       len(pts),
		columns: make(map[string][]float64),
	}
	xs := t.declare(DimX)
	ys := t.declare(DimY)
	zs := t.declare(DimZ)
	for i, p := range pts {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	return t
}

func (t *Table) declare(name string) []float64 {
	col := make([]float64, t.n)
	t.columns[name] = col
	t.order = append(t.order, name)
	return col
}

// Len is the number of points.
func (t *Table) Len() int { return t.n }

// XYZ returns the position of point i.
func (t *Table) XYZ(i int) (x, y, z float64) {
	return t.columns[DimX][i], t.columns[DimY][i], t.columns[DimZ][i]
}

// Point returns point i as a Point.
func (t *Table) Point(i int) Point {
	x, y, z := t.XYZ(i)
	return Point{X: x, Y: y, Z: z}
}

// DeclareDim adds a zero-filled column. Declaring an existing column is a
// no-op.
func (t *Table) DeclareDim(name string) error {
	if name == "" {
		return fmt.Errorf("dimension name is empty")
	}
	if _, ok := t.columns[name]; ok {
		return nil
	}
	t.declare(name)
	return nil
}

// HasDim reports whether a column exists.
func (t *Table) HasDim(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Dims returns column names in declaration order.
func (t *Table) Dims() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Field returns the value of dim for point i.
func (t *Table) Field(dim string, i int) (float64, error) {
	col, ok := t.columns[dim]
	if !ok {
		return 0, fmt.Errorf("unknown dimension %q", dim)
	}
	if i < 0 || i >= t.n {
		return 0, fmt.Errorf("point %d out of range [0,%d)", i, t.n)
	}
	return col[i], nil
}

// SetField stores v as dim of point i.
func (t *Table) SetField(dim string, i int, v float64) error {
	col, ok := t.columns[dim]
	if !ok {
		return fmt.Errorf("unknown dimension %q", dim)
	}
	if i < 0 || i >= t.n {
		return fmt.Errorf("point %d out of range [0,%d)", i, t.n)
	}
	col[i] = v
	return nil
}

// Bounds returns the axis-aligned bounding box of all points. ok is false
// for an empty table.
func (t *Table) Bounds() (min, max Point, ok bool) {
	if t.n == 0 {
		return Point{}, Point{}, false
	}
	min, max = t.Point(0), t.Point(0)
	for i := 1; i < t.n; i++ {
		p := t.Point(i)
		min.X, max.X = minMax(min.X, max.X, p.X)
		min.Y, max.Y = minMax(min.Y, max.Y, p.Y)
		min.Z, max.Z = minMax(min.Z, max.Z, p.Z)
	}
	return min, max, true
}

func minMax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

// sortNeighbors orders ids by distance then id so results do not depend on
// tree traversal order.
func sortNeighbors(ids []int, dist []float64) {
	idx := make([]int, len(ids))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		da, db := dist[idx[a]], dist[idx[b]]
		if da != db {
			return da < db
		}
		return ids[idx[a]] < ids[idx[b]]
	})
	sortedIDs := make([]int, len(ids))
	sortedDist := make([]float64, len(ids))
	for i, j := range idx {
		sortedIDs[i], sortedDist[i] = ids[j], dist[j]
	}
	copy(ids, sortedIDs)
	copy(dist, sortedDist)
}
