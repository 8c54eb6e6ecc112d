// Package planefit scores every point by how far it sits from the plane
// through its nearest neighbours. Flat neighbourhoods score near zero;
// edges, vegetation and noise score higher.
package planefit

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pointpipe/internal/options"
)

// Dimension is the per-point attribute the filter writes.
const Dimension = "PlaneFit"

// TypeName is the stage type the filter is registered under.
const TypeName = "filters.planefit"

const (
	// DefaultKNN is the neighbourhood size when none is configured.
	DefaultKNN = 8
	// DefaultThreads is the worker count when none is configured.
	DefaultThreads = 1
	// minFitPoints is the fewest neighbours that define a plane.
	minFitPoints = 3
)

// Config controls the fit.
type Config struct {
	// KNN is the number of neighbours, excluding the point itself.
	KNN int
	// Threads is the number of workers. Points are split into contiguous
	// ranges, one per worker.
	Threads int
}

// DefaultConfig returns KNN 8 and a single worker.
func DefaultConfig() Config {
	return Config{KNN: DefaultKNN, Threads: DefaultThreads}
}

// Validate rejects neighbourhoods too small for a plane and non-positive
// worker counts.
func (c Config) Validate() error {
	if c.KNN < minFitPoints {
		return fmt.Errorf("knn must be at least %d, got %d", minFitPoints, c.KNN)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	return nil
}

// ConfigFromOptions reads "knn" and "threads" from a stage's options,
// starting from base for anything not set.
func ConfigFromOptions(opts *options.Bag, base Config) (Config, error) {
	cfg := base
	knn, err := opts.GetInt("knn", int64(base.KNN))
	if err != nil {
		return Config{}, err
	}
	threads, err := opts.GetInt("threads", int64(base.Threads))
	if err != nil {
		return Config{}, err
	}
	if knn > math.MaxInt32 || threads > math.MaxInt32 {
		return Config{}, fmt.Errorf("knn %d or threads %d out of range", knn, threads)
	}
	cfg.KNN, cfg.Threads = int(knn), int(threads)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateOptions checks a stage's options against the default config.
// It has the signature stage drivers use for creation-time checks.
func ValidateOptions(opts *options.Bag) error {
	_, err := ConfigFromOptions(opts, DefaultConfig())
	return err
}

// PointView is the point storage the filter reads positions from and
// writes scores into. SetField must be safe for concurrent calls on
// distinct indices once the dimension is declared.
type PointView interface {
	Len() int
	XYZ(i int) (x, y, z float64)
	DeclareDim(name string) error
	SetField(dim string, i int, v float64) error
}

// NeighborIndex returns up to k point ids nearest to point i, nearest
// first, including i itself.
type NeighborIndex interface {
	Neighbors(i, k int) []int
}

// Result summarises one run.
type Result struct {
	Points int
	// Partial counts points fitted with fewer than KNN neighbours.
	Partial int
	// Degraded counts points with fewer than three neighbours. Their score
	// is zero.
	Degraded int
	// Unsolved counts points whose covariance could not be decomposed.
	// Their score is zero.
	Unsolved int
}

// tally records how point's fit went.
func (r *Result) tally(used int, solved bool, knn int) {
	switch {
	case used < minFitPoints:
		r.Degraded++
	case !solved:
		r.Unsolved++
	case used < knn:
		r.Partial++
	}
}

// Filter computes the plane-fit score.
type Filter struct {
	cfg Config
}

// New returns a filter for cfg.
func New(cfg Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Filter{cfg: cfg}, nil
}

// Config returns the filter's configuration.
func (f *Filter) Config() Config { return f.cfg }

// Run declares the PlaneFit dimension on view and fills it for every point.
// It returns after every worker has finished. A cancelled context or a
// failed write fails the whole run.
func (f *Filter) Run(ctx context.Context, view PointView, idx NeighborIndex) (Result, error) {
	if err := view.DeclareDim(Dimension); err != nil {
		return Result{}, fmt.Errorf("declare %s: %w", Dimension, err)
	}
	n := view.Len()
	workers := f.cfg.Threads
	if workers > n {
		workers = n
	}
	if workers < 1 {
		return Result{}, nil
	}

	stats := make([]Result, workers)
	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		w := w
		g.Go(func() error {
			fw := newFitter(f.cfg.KNN)
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				score, used, solved := fw.score(view, idx, i)
				stats[w].tally(used, solved, f.cfg.KNN)
				if err := view.SetField(Dimension, i, score); err != nil {
					return fmt.Errorf("point %d: %w", i, err)
				}
			}
			stats[w].Points = end - start
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var total Result
	for _, s := range stats {
		total.Points += s.Points
		total.Partial += s.Partial
		total.Degraded += s.Degraded
		total.Unsolved += s.Unsolved
	}
	if total.Degraded > 0 {
		diagf("%d of %d points had fewer than %d neighbours", total.Degraded, total.Points, minFitPoints)
	}
	if total.Unsolved > 0 {
		diagf("%d of %d points had no eigen decomposition", total.Unsolved, total.Points)
	}
	tracef("fitted %d points with knn=%d threads=%d", total.Points, f.cfg.KNN, workers)
	return total, nil
}

// fitter holds one worker's scratch space.
type fitter struct {
	knn  int
	pts  [][3]float64
	cov  *mat.SymDense
	eig  mat.EigenSym
	vecs mat.Dense
}

func newFitter(knn int) *fitter {
	return &fitter{
		knn: knn,
		pts: make([][3]float64, 0, knn),
		cov: mat.NewSymDense(3, nil),
	}
}

// score returns the distance from point i to the plane through its
// neighbours, the number of neighbours used and whether the plane could be
// solved.
func (fw *fitter) score(view PointView, idx NeighborIndex, i int) (float64, int, bool) {
	fw.pts = fw.pts[:0]
	for _, j := range idx.Neighbors(i, fw.knn+1) {
		if j == i {
			continue
		}
		if len(fw.pts) == fw.knn {
			break
		}
		x, y, z := view.XYZ(j)
		fw.pts = append(fw.pts, [3]float64{x, y, z})
	}
	used := len(fw.pts)
	if used < minFitPoints {
		return 0, used, false
	}

	// Centroid
	var c [3]float64
	for _, p := range fw.pts {
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	nf := float64(used)
	c[0] /= nf
	c[1] /= nf
	c[2] /= nf

	// Covariance, upper triangle only.
	var s [3][3]float64
	for _, p := range fw.pts {
		d := [3]float64{p[0] - c[0], p[1] - c[1], p[2] - c[2]}
		for r := 0; r < 3; r++ {
			for k := r; k < 3; k++ {
				s[r][k] += d[r] * d[k]
			}
		}
	}
	for r := 0; r < 3; r++ {
		for k := r; k < 3; k++ {
			fw.cov.SetSym(r, k, s[r][k]/nf)
		}
	}

	if ok := fw.eig.Factorize(fw.cov, true); !ok {
		return 0, used, false
	}
	// Eigenvalues are ascending, so column 0 is the plane normal.
	fw.vecs.Reset()
	fw.eig.VectorsTo(&fw.vecs)
	nx, ny, nz := fw.vecs.At(0, 0), fw.vecs.At(1, 0), fw.vecs.At(2, 0)

	x, y, z := view.XYZ(i)
	return math.Abs((x-c[0])*nx + (y-c[1])*ny + (z-c[2])*nz), used, true
}
