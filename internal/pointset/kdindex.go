package pointset

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDIndex answers k-nearest-neighbour queries over a table's XYZ positions.
// It is read-only once built and safe for concurrent queries.
type KDIndex struct {
	tree *kdtree.Tree
	// byID keeps points in table order; the tree reorders its own copy.
	byID []indexedPoint
}

// NewKDIndex builds a 3-D index over t.
func NewKDIndex(t *Table) *KDIndex {
	n := t.Len()
	byID := make([]indexedPoint, n)
	for i := 0; i < n; i++ {
		x, y, z := t.XYZ(i)
		byID[i] = indexedPoint{pos: [3]float64{x, y, z}, id: i}
	}
	idx := &KDIndex{byID: byID}
	if n > 0 {
		work := make(indexedPoints, n)
		copy(work, byID)
		idx.tree = kdtree.New(work, false)
	}
	return idx
}

// Len is the number of indexed points.
func (idx *KDIndex) Len() int { return len(idx.byID) }

// Neighbors returns up to k point ids closest to point i, nearest first,
// ties broken by id. Point i itself is included at distance zero.
func (idx *KDIndex) Neighbors(i, k int) []int {
	if i < 0 || i >= len(idx.byID) {
		return nil
	}
	return idx.nearest(idx.byID[i], k)
}

// Query returns up to k point ids closest to p.
func (idx *KDIndex) Query(p Point, k int) []int {
	return idx.nearest(indexedPoint{pos: [3]float64{p.X, p.Y, p.Z}, id: -1}, k)
}

// nearest widens the search until every point tied with the k-th distance
// has been seen, so the cut at k falls on the lowest ids.
func (idx *KDIndex) nearest(q indexedPoint, k int) []int {
	if idx.tree == nil || k <= 0 {
		return nil
	}
	for m := k + 1; ; m *= 2 {
		ids, dist := idx.search(q, m)
		sortNeighbors(ids, dist)
		if len(ids) <= k {
			return ids
		}
		if len(ids) < m || dist[len(ids)-1] > dist[k-1] {
			return ids[:k]
		}
	}
}

// search returns the ids and squared distances kept by an m-nearest pass,
// in no particular order.
func (idx *KDIndex) search(q indexedPoint, m int) ([]int, []float64) {
	keep := kdtree.NewNKeeper(m)
	idx.tree.NearestSet(keep, q)

	ids := make([]int, 0, m)
	dist := make([]float64, 0, m)
	for _, c := range keep.Heap {
		p, ok := c.Comparable.(indexedPoint)
		if !ok {
			// Unfilled keeper slot.
			continue
		}
		ids = append(ids, p.id)
		dist = append(dist, c.Dist)
	}
	return ids, dist
}

type indexedPoint struct {
	pos [3]float64
	id  int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.pos[d] - q.pos[d]
}

func (p indexedPoint) Dims() int { return 3 }

// Distance is the squared Euclidean distance, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	var sum float64
	for k := range p.pos {
		d := p.pos[k] - q.pos[k]
		sum += d * d
	}
	return sum
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int                { return plane{points: p, dim: d}.Pivot() }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts a point slice along one dimension for median partitioning.
type plane struct {
	points indexedPoints
	dim    kdtree.Dim
}

func (p plane) Len() int           { return len(p.points) }
func (p plane) Less(i, j int) bool { return p.points[i].pos[p.dim] < p.points[j].pos[p.dim] }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
