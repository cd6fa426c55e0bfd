package classifier

import (
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
	"github.com/FlavioCFOliveira/GoFraud/internal/tree"
)

// ForestOptions configures RandomForest. Zero values take the defaults.
type ForestOptions struct {
	Trees          int // default 100
	MaxDepth       int // default unlimited
	MinSamplesLeaf int // default 1
	Workers        int // concurrent tree fits, default GOMAXPROCS
}

// RandomForest is a bootstrap ensemble of CART trees using sqrt(d) candidate
// features per split. P(fraud) is the mean leaf fraud frequency.
type RandomForest struct {
	Options ForestOptions
	Seed    *int64
}

func (*RandomForest) Name() string { return "forest" }

func (r *RandomForest) Fit(X [][]float64, y []int) (TrainedModel, error) {
	if _, err := checkFit(X, y); err != nil {
		return nil, err
	}
	opts := tree.RandomForestOptions(r.Options.Trees, seed.Value(r.Seed))
	opts.MaxDepth = r.Options.MaxDepth
	opts.MinSamplesLeaf = r.Options.MinSamplesLeaf
	opts.Workers = r.Options.Workers
	f, err := tree.FitForest(X, y, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("random forest fit", zap.Int("rows", len(X)), zap.Int("trees", len(f.Trees)))
	return &forestModel{forest: f}, nil
}

type forestModel struct {
	forest *tree.Forest
}

func (m *forestModel) Dimensions() int              { return m.forest.Dim() }
func (m *forestModel) Probability() ProbabilityKind { return Native }

// Importances returns the normalised impurity importance of each feature.
func (m *forestModel) Importances() []float64 { return m.forest.Importances() }

func (m *forestModel) Predict(X [][]float64) ([]int, error) {
	p, err := m.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	return threshold(p), nil
}

func (m *forestModel) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkPredict(X, m.forest.Dim()); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.forest.Probability(x)
	}
	return out, nil
}
