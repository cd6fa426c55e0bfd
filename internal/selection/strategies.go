package selection

import (
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/preprocess"
	"github.com/FlavioCFOliveira/GoFraud/internal/tree"
)

// Chi2 scores each feature by the chi-squared statistic against the label,
// after min-max scaling every column into [0, 1] using only ds itself.
type Chi2 struct{}

func (Chi2) Name() string { return "chi2" }

func (c Chi2) Score(ds *dataset.Dataset) ([]float64, error) {
	s, _, err := c.Test(ds)
	return s, err
}

// Test returns chi-squared statistics and their p-values (1 degree of freedom).
func (Chi2) Test(ds *dataset.Dataset) ([]float64, []float64, error) {
	if ds.Len() == 0 {
		return nil, nil, apperr.Configf("rows", "chi2 needs at least one row")
	}
	X, err := preprocess.MinMaxScale(ds.Features())
	if err != nil {
		return nil, nil, err
	}
	d := ds.Dim()
	observed := [2][]float64{make([]float64, d), make([]float64, d)}
	total := make([]float64, d)
	var classN [2]float64
	for i, row := range X {
		y := ds.Label(i)
		classN[y]++
		for j, v := range row {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return nil, nil, apperr.Configf("features", "column %q not in [0,1] after scaling: %v", ds.Columns()[j], v)
			}
			observed[y][j] += v
			total[j] += v
		}
	}

	n := float64(ds.Len())
	classes := 0
	for _, c := range classN {
		if c > 0 {
			classes++
		}
	}
	scores := make([]float64, d)
	pvals := make([]float64, d)
	dist := distuv.ChiSquared{K: math.Max(1, float64(classes-1))}
	for j := 0; j < d; j++ {
		chi := 0.0
		for c := 0; c < 2; c++ {
			expected := classN[c] / n * total[j]
			if expected == 0 {
				continue
			}
			diff := observed[c][j] - expected
			chi += diff * diff / expected
		}
		scores[j] = chi
		pvals[j] = dist.Survival(chi)
	}
	return scores, pvals, nil
}

// FRegression scores each feature by the F statistic of a univariate linear
// regression against the label.
type FRegression struct{}

func (FRegression) Name() string { return "fregression" }

func (f FRegression) Score(ds *dataset.Dataset) ([]float64, error) {
	s, _, err := f.Test(ds)
	return s, err
}

// Test returns F statistics and p-values with (1, n-2) degrees of freedom.
// Constant columns score 0 with p-value 1.
func (FRegression) Test(ds *dataset.Dataset) ([]float64, []float64, error) {
	n := ds.Len()
	if n < 3 {
		return nil, nil, apperr.Configf("rows", "f-regression needs at least 3 rows, got %d", n)
	}
	y := ds.LabelsFloat()
	dof := float64(n - 2)
	dist := distuv.F{D1: 1, D2: dof}
	scores := make([]float64, ds.Dim())
	pvals := make([]float64, ds.Dim())
	for j := range scores {
		r := stat.Correlation(ds.Column(j), y, nil)
		if math.IsNaN(r) {
			scores[j], pvals[j] = 0, 1
			continue
		}
		r2 := r * r
		if r2 >= 1 {
			scores[j], pvals[j] = math.Inf(1), 0
			continue
		}
		scores[j] = r2 / (1 - r2) * dof
		pvals[j] = dist.Survival(scores[j])
	}
	return scores, pvals, nil
}

// TreeImportance scores features by the impurity importances of a tree
// ensemble fit on all features against the label.
type TreeImportance struct {
	Trees   int   // 0 => 100
	Seed    int64 // ensemble seed
	Workers int   // concurrent tree fits, 0 => GOMAXPROCS
	Forest  bool  // bootstrap random forest instead of extra-trees
}

func (TreeImportance) Name() string { return "tree" }

func (t TreeImportance) Score(ds *dataset.Dataset) ([]float64, error) {
	opts := tree.ExtraTreesOptions(t.Trees, t.Seed)
	if t.Forest {
		opts = tree.RandomForestOptions(t.Trees, t.Seed)
	}
	opts.Workers = t.Workers
	logger.Debug("fitting tree ensemble for importances",
		zap.Int("rows", ds.Len()), zap.Int("trees", opts.Trees), zap.Bool("randomized", opts.Randomized))
	f, err := tree.FitForest(ds.Features(), ds.Labels(), opts)
	if err != nil {
		return nil, err
	}
	return f.Importances(), nil
}

// LabelCorrelation scores features by the absolute Pearson correlation with the label.
type LabelCorrelation struct{}

func (LabelCorrelation) Name() string { return "correlation" }

func (LabelCorrelation) Score(ds *dataset.Dataset) ([]float64, error) {
	y := ds.LabelsFloat()
	scores := make([]float64, ds.Dim())
	for j := range scores {
		scores[j] = math.Abs(stat.Correlation(ds.Column(j), y, nil))
	}
	return scores, nil
}

// Correlation is the pairwise Pearson correlation of every feature and the
// label. It is advisory output only.
type Correlation struct {
	Names  []string    `json:"names" yaml:"names"`
	Values [][]float64 `json:"values" yaml:"values"`
}

// CorrelationMatrix computes the correlation of all feature columns and the
// label (named labelName, appended last).
func CorrelationMatrix(ds *dataset.Dataset, labelName string) (Correlation, error) {
	n, d := ds.Len(), ds.Dim()
	if n < 2 {
		return Correlation{}, apperr.Configf("rows", "correlation needs at least 2 rows, got %d", n)
	}
	m := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		row := ds.Row(i)
		for j, v := range row {
			m.Set(i, j, v)
		}
		m.Set(i, d, float64(ds.Label(i)))
	}
	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, m, nil)

	names := append(ds.Columns(), labelName)
	values := make([][]float64, d+1)
	for i := range values {
		values[i] = make([]float64, d+1)
		for j := range values[i] {
			values[i][j] = sym.At(i, j)
		}
	}
	return Correlation{Names: names, Values: values}, nil
}

// Strategies lists the names accepted by New.
var Strategies = []string{"chi2", "fregression", "tree", "correlation"}

// New returns the selector registered under name.
func New(name string, trees int, seed int64) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chi2":
		return Chi2{}, nil
	case "fregression", "f_regression", "f-regression":
		return FRegression{}, nil
	case "tree", "extratrees", "extra-trees":
		return TreeImportance{Trees: trees, Seed: seed}, nil
	case "correlation", "heatmap":
		return LabelCorrelation{}, nil
	default:
		return nil, apperr.Configf("strategy", "unknown selection strategy %q (want one of %s)", name, strings.Join(Strategies, ", "))
	}
}
