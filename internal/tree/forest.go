package tree

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

// DefaultTrees is the ensemble size used when ForestOptions.Trees is zero.
const DefaultTrees = 100

// ForestOptions configures an ensemble.
type ForestOptions struct {
	Trees          int   // number of trees, 0 => DefaultTrees
	MaxDepth       int   // 0 => unlimited
	MinSamplesLeaf int   // 0 => 1
	MaxFeatures    int   // 0 => floor(sqrt(d)), -1 => all features
	Bootstrap      bool  // sample rows with replacement per tree
	Randomized     bool  // extra-trees thresholds
	Seed           int64 // ensemble seed; tree i uses Seed + i
	Workers        int   // concurrent tree fits, 0 => GOMAXPROCS
}

// RandomForestOptions returns the random forest configuration: bootstrap rows,
// sqrt(d) exhaustive-split features.
func RandomForestOptions(trees int, seed int64) ForestOptions {
	return ForestOptions{Trees: trees, Bootstrap: true, Seed: seed}
}

// ExtraTreesOptions returns the extremely randomized trees configuration: all
// rows, sqrt(d) features with one random threshold each.
func ExtraTreesOptions(trees int, seed int64) ForestOptions {
	return ForestOptions{Trees: trees, Randomized: true, Seed: seed}
}

// Forest is a fitted tree ensemble.
type Forest struct {
	Trees []*Tree
	dim   int
}

// FitForest grows the ensemble. Each tree derives its own seed from opts.Seed,
// so the result does not depend on opts.Workers.
func FitForest(X [][]float64, y []int, opts ForestOptions) (*Forest, error) {
	if len(X) == 0 {
		return nil, apperr.Configf("rows", "cannot fit a forest on zero rows")
	}
	if len(y) != len(X) {
		return nil, apperr.Shape("labels", len(X), len(y))
	}
	dim := len(X[0])
	for _, row := range X {
		if len(row) != dim {
			return nil, apperr.Shape("features", dim, len(row))
		}
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, apperr.Configf("labels", "row %d has label %d, want 0 or 1", i, v)
		}
	}
	if opts.Trees < 0 {
		return nil, apperr.Configf("trees", "must be positive, got %d", opts.Trees)
	}
	if opts.Trees == 0 {
		opts.Trees = DefaultTrees
	}
	maxFeatures := opts.MaxFeatures
	switch {
	case maxFeatures == 0:
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(dim)))))
	case maxFeatures < 0 || maxFeatures > dim:
		maxFeatures = dim
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	f := &Forest{Trees: make([]*Tree, opts.Trees), dim: dim}
	var g errgroup.Group
	g.SetLimit(workers)
	for t := 0; t < opts.Trees; t++ {
		t := t
		seed := opts.Seed + int64(t)
		g.Go(func() error {
			n := len(X)
			idx := make([]int, n)
			if opts.Bootstrap {
				rng := rand.New(rand.NewSource(seed))
				for i := range idx {
					idx[i] = rng.Intn(n)
				}
			} else {
				for i := range idx {
					idx[i] = i
				}
			}
			f.Trees[t] = Grow(X, y, idx, Options{
				MaxDepth:       opts.MaxDepth,
				MinSamplesLeaf: opts.MinSamplesLeaf,
				MaxFeatures:    maxFeatures,
				Randomized:     opts.Randomized,
				Seed:           seed,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// Dim returns the feature dimensionality the forest was fit on.
func (f *Forest) Dim() int { return f.dim }

// Probability returns the mean class-1 probability over all trees.
func (f *Forest) Probability(x []float64) float64 {
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.Probability(x)
	}
	return sum / float64(len(f.Trees))
}

// Importances averages the normalised per-tree importances and normalises the
// result to sum to 1.
func (f *Forest) Importances() []float64 {
	out := make([]float64, f.dim)
	for _, t := range f.Trees {
		for j, v := range t.Importances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.Trees))
	}
	normalize(out)
	return out
}
