package pointset

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func gridTable(n int) *Table {
	var pts []Point
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			pts = append(pts, Point{X: float64(x), Y: float64(y), Z: 0})
		}
	}
	return NewTable(pts)
}

func TestTable_DimsAndFields(t *testing.T) {
	tbl := NewTable([]Point{{1, 2, 3}, {4, 5, 6}})

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	x, y, z := tbl.XYZ(1)
	if x != 4 || y != 5 || z != 6 {
		t.Errorf("XYZ(1) = %v,%v,%v", x, y, z)
	}

	if err := tbl.DeclareDim("PlaneFit"); err != nil {
		t.Fatalf("DeclareDim: %v", err)
	}
	if err := tbl.DeclareDim("PlaneFit"); err != nil {
		t.Fatalf("redeclare: %v", err)
	}
	if err := tbl.DeclareDim(""); err == nil {
		t.Error("expected error for empty name")
	}
	if got := tbl.Dims(); len(got) != 4 || got[3] != "PlaneFit" {
		t.Errorf("Dims() = %v", got)
	}

	if err := tbl.SetField("PlaneFit", 1, 0.25); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	v, err := tbl.Field("PlaneFit", 1)
	if err != nil || v != 0.25 {
		t.Errorf("Field = %v, %v", v, err)
	}
	if err := tbl.SetField("Nope", 0, 1); err == nil {
		t.Error("expected error for unknown dimension")
	}
	if _, err := tbl.Field("PlaneFit", 2); err == nil {
		t.Error("expected error for out of range index")
	}
}

func TestTable_Bounds(t *testing.T) {
	tbl := NewTable([]Point{{1, -2, 3}, {-4, 5, 0}})
	min, max, ok := tbl.Bounds()
	if !ok {
		t.Fatal("Bounds reported empty")
	}
	if min != (Point{-4, -2, 0}) || max != (Point{1, 5, 3}) {
		t.Errorf("Bounds = %v %v", min, max)
	}
	if _, _, ok := NewTable(nil).Bounds(); ok {
		t.Error("empty table should report !ok")
	}
}

func TestKDIndex_NeighborsIncludeSelfFirst(t *testing.T) {
	tbl := gridTable(5)
	idx := NewKDIndex(tbl)

	for i := 0; i < tbl.Len(); i++ {
		got := idx.Neighbors(i, 1)
		if len(got) != 1 || got[0] != i {
			t.Fatalf("Neighbors(%d, 1) = %v, want [%d]", i, got, i)
		}
	}
}

func TestKDIndex_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pts := make([]Point, 300)
	for i := range pts {
		pts[i] = Point{X: rng.Float64() * 10, Y: rng.Float64() * 10, Z: rng.Float64() * 2}
	}
	tbl := NewTable(pts)
	idx := NewKDIndex(tbl)

	const k = 9
	for _, i := range []int{0, 17, 150, 299} {
		got := idx.Neighbors(i, k)
		want := bruteForce(pts, pts[i], k)
		if len(got) != k {
			t.Fatalf("Neighbors(%d) returned %d ids", i, len(got))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("Neighbors(%d)[%d] = %d, want %d", i, j, got[j], want[j])
			}
		}
	}
}

func TestKDIndex_GridTiesBreakByID(t *testing.T) {
	const n = 5
	tbl := gridTable(n)
	pts := make([]Point, tbl.Len())
	for i := range pts {
		pts[i] = tbl.Point(i)
	}
	idx := NewKDIndex(tbl)

	for _, k := range []int{2, 3, 4, 5, 6, 9, 13} {
		for i := range pts {
			got := idx.Neighbors(i, k)
			want := bruteForce(pts, pts[i], k)
			if len(got) != len(want) {
				t.Fatalf("k=%d: Neighbors(%d) returned %d ids, want %d", k, i, len(got), len(want))
			}
			for j := range want {
				if got[j] != want[j] {
					t.Errorf("k=%d: Neighbors(%d) = %v, want %v", k, i, got, want)
					break
				}
			}
		}
	}

	// Centre of the grid: four neighbours at distance 1, lowest two ids kept.
	if got := idx.Neighbors(12, 3); len(got) != 3 || got[0] != 12 || got[1] != 7 || got[2] != 11 {
		t.Errorf("Neighbors(12, 3) = %v, want [12 7 11]", got)
	}
}

func bruteForce(pts []Point, q Point, k int) []int {
	ids := make([]int, len(pts))
	for i := range ids {
		ids[i] = i
	}
	d := func(p Point) float64 {
		return math.Pow(p.X-q.X, 2) + math.Pow(p.Y-q.Y, 2) + math.Pow(p.Z-q.Z, 2)
	}
	sort.Slice(ids, func(a, b int) bool {
		da, db := d(pts[ids[a]]), d(pts[ids[b]])
		if da != db {
			return da < db
		}
		return ids[a] < ids[b]
	})
	return ids[:k]
}

func TestKDIndex_FewerPointsThanK(t *testing.T) {
	tbl := NewTable([]Point{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := NewKDIndex(tbl)
	got := idx.Neighbors(0, 10)
	if len(got) != 3 {
		t.Fatalf("expected all 3 points, got %v", got)
	}
	if got[0] != 0 {
		t.Errorf("expected self first, got %v", got)
	}
}

func TestKDIndex_EmptyAndBadQueries(t *testing.T) {
	idx := NewKDIndex(NewTable(nil))
	if got := idx.Query(Point{}, 3); got != nil {
		t.Errorf("empty index returned %v", got)
	}
	idx = NewKDIndex(gridTable(2))
	if got := idx.Neighbors(-1, 3); got != nil {
		t.Errorf("Neighbors(-1) = %v", got)
	}
	if got := idx.Neighbors(0, 0); got != nil {
		t.Errorf("Neighbors(k=0) = %v", got)
	}
	if got := idx.Query(Point{X: 0.9, Y: 0.9}, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Query nearest to (0.9,0.9) = %v, want [3]", got)
	}
}
