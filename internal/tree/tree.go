// Package tree implements binary CART decision trees and tree ensembles
// (random forest, extra-trees) with mean-decrease-impurity importances.
package tree

import (
	"math"
	"math/rand"
	"sort"
)

// Options configures a single tree.
type Options struct {
	MaxDepth        int   // 0 => unlimited
	MinSamplesSplit int   // minimum samples to attempt a split
	MinSamplesLeaf  int   // minimum samples on each side of a split
	MaxFeatures     int   // features sampled per split, 0 => all
	Randomized      bool  // extra-trees: random threshold per candidate feature
	Seed            int64 // feature sampling and threshold seed
}

func (o Options) withDefaults() Options {
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	return o
}

// Tree is a fitted binary classification tree.
type Tree struct {
	root        *node
	dim         int
	importances []float64 // raw weighted impurity decrease per feature
}

type node struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold goes left
	left      *node
	right     *node
	prob      float64 // fraction of class 1 among training samples reaching the node
}

// builder holds the state shared while growing one tree.
type builder struct {
	X     [][]float64
	y     []int
	opts  Options
	rng   *rand.Rand
	total float64
	imp   []float64
	feats []int
}

// Grow fits a tree on the rows of X selected by idx (indices may repeat, as in
// a bootstrap sample). Labels must be 0 or 1.
func Grow(X [][]float64, y []int, idx []int, opts Options) *Tree {
	opts = opts.withDefaults()
	dim := 0
	if len(X) > 0 {
		dim = len(X[0])
	}
	b := &builder{
		X:     X,
		y:     y,
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		total: float64(len(idx)),
		imp:   make([]float64, dim),
		feats: make([]int, dim),
	}
	for j := range b.feats {
		b.feats[j] = j
	}
	work := append([]int(nil), idx...)
	return &Tree{root: b.build(work, 0), dim: dim, importances: b.imp}
}

// Probability returns the estimated probability that x belongs to class 1.
func (t *Tree) Probability(x []float64) float64 {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

// Importances returns the tree's impurity importances normalised to sum to 1
// (all zeros for a single-leaf tree).
func (t *Tree) Importances() []float64 {
	out := append([]float64(nil), t.importances...)
	normalize(out)
	return out
}

// Dim returns the feature dimensionality the tree was grown on.
func (t *Tree) Dim() int { return t.dim }

func (b *builder) build(idx []int, depth int) *node {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	n := len(idx)
	nd := &node{leaf: true, prob: float64(pos) / float64(n)}
	if pos == 0 || pos == n || n < b.opts.MinSamplesSplit {
		return nd
	}
	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		return nd
	}

	feature, threshold, decrease, ok := b.bestSplit(idx, pos)
	if !ok {
		return nd
	}

	left := make([]int, 0, n/2)
	right := make([]int, 0, n/2)
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nd
	}
	b.imp[feature] += decrease
	nd.leaf = false
	nd.feature = feature
	nd.threshold = threshold
	nd.left = b.build(left, depth+1)
	nd.right = b.build(right, depth+1)
	return nd
}

// candidates returns the features examined at one node.
func (b *builder) candidates() []int {
	k := b.opts.MaxFeatures
	if k <= 0 || k >= len(b.feats) {
		return b.feats
	}
	b.rng.Shuffle(len(b.feats), func(i, j int) { b.feats[i], b.feats[j] = b.feats[j], b.feats[i] })
	return b.feats[:k]
}

// bestSplit returns the split with the largest weighted impurity decrease.
func (b *builder) bestSplit(idx []int, pos int) (feature int, threshold, decrease float64, ok bool) {
	n := len(idx)
	parent := gini(pos, n)
	best := 0.0
	minLeaf := b.opts.MinSamplesLeaf

	cands := b.candidates()
	order := make([]int, n)
	for _, f := range cands {
		var thr, child float64
		var found bool
		if b.opts.Randomized {
			thr, child, found = b.randomSplit(idx, f, minLeaf)
		} else {
			copy(order, idx)
			thr, child, found = b.exhaustiveSplit(order, f, pos, minLeaf)
		}
		if !found {
			continue
		}
		dec := float64(n) / b.total * (parent - child)
		if dec > best {
			best, feature, threshold, ok = dec, f, thr, true
		}
	}
	return feature, threshold, best, ok
}

// exhaustiveSplit scans every boundary between distinct sorted values of f
// and returns the threshold minimising the weighted child impurity.
func (b *builder) exhaustiveSplit(order []int, f, pos, minLeaf int) (float64, float64, bool) {
	X := b.X
	sort.Slice(order, func(i, j int) bool { return X[order[i]][f] < X[order[j]][f] })
	n := len(order)
	bestImp := math.Inf(1)
	bestThr := 0.0
	found := false
	leftPos := 0
	for k := 0; k < n-1; k++ {
		leftPos += b.y[order[k]]
		nl := k + 1
		if nl < minLeaf || n-nl < minLeaf {
			continue
		}
		v, next := X[order[k]][f], X[order[k+1]][f]
		if v == next {
			continue
		}
		imp := (float64(nl)*gini(leftPos, nl) + float64(n-nl)*gini(pos-leftPos, n-nl)) / float64(n)
		if imp < bestImp {
			bestImp, bestThr, found = imp, v+(next-v)/2, true
		}
	}
	return bestThr, bestImp, found
}

// randomSplit draws one threshold uniformly between the node's min and max of f.
func (b *builder) randomSplit(idx []int, f, minLeaf int) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := b.X[i][f]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		return 0, 0, false
	}
	thr := lo + b.rng.Float64()*(hi-lo)
	if thr >= hi {
		thr = lo
	}
	nl, pl, pr := 0, 0, 0
	for _, i := range idx {
		if b.X[i][f] <= thr {
			nl++
			pl += b.y[i]
		} else {
			pr += b.y[i]
		}
	}
	n := len(idx)
	if nl < minLeaf || n-nl < minLeaf {
		return 0, 0, false
	}
	imp := (float64(nl)*gini(pl, nl) + float64(n-nl)*gini(pr, n-nl)) / float64(n)
	return thr, imp, true
}

// gini impurity of a node with pos positives among n samples.
func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func normalize(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
