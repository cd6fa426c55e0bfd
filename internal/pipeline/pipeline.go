// Package pipeline drives evaluation runs: select features, split, balance
// the training partition, fit a classifier and score it on held-out rows.
// Runs share nothing but the read-only source Dataset.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/balance"
	"github.com/FlavioCFOliveira/GoFraud/internal/classifier"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
	"github.com/FlavioCFOliveira/GoFraud/internal/metrics"
	"github.com/FlavioCFOliveira/GoFraud/internal/net"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
	"github.com/FlavioCFOliveira/GoFraud/internal/selection"
	"github.com/FlavioCFOliveira/GoFraud/internal/split"
)

var logger = zap.NewNop()

// SetLogger sets the logger of the pipeline and of every stage it drives.
func SetLogger(l *zap.Logger) {
	l = logging.OrNop(l)
	logger = l.Named("pipeline")
	selection.SetLogger(l)
	split.SetLogger(l)
	balance.SetLogger(l)
	classifier.SetLogger(l)
}

// DefaultTestFraction is the held-out share used when a RunSpec leaves it zero.
const DefaultTestFraction = 0.2

// Selection names a feature selection strategy.
type Selection struct {
	// Strategy is "none", "manual" or a selection.Strategies name.
	Strategy string   `json:"strategy" yaml:"strategy"`
	K        int      `json:"k,omitempty" yaml:"k,omitempty"`
	// Exclude lists the columns dropped by "manual"; empty means selection.ManualTopTen.
	Exclude  []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// Trees sizes the tree-importance ensemble.
	Trees    int      `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// RunSpec describes one evaluation run.
type RunSpec struct {
	Name         string
	Model        string
	Selection    Selection
	Balance      bool
	TestFraction float64
	Seed         *int64
	// Validation, when positive, re-scores the model on that many rows
	// sampled from the source.
	Validation   int
	Classifier   classifier.Options
}

// Counts is a per-class row count.
type Counts struct {
	Legitimate int `json:"legitimate" yaml:"legitimate"`
	Fraud      int `json:"fraud" yaml:"fraud"`
}

func countsOf(ds *dataset.Dataset) Counts {
	l, f := ds.ClassCounts()
	return Counts{Legitimate: l, Fraud: f}
}

// Result is the outcome of one run.
type Result struct {
	ID         string               `json:"id" yaml:"id"`
	Name       string               `json:"name" yaml:"name"`
	Model      string               `json:"model" yaml:"model"`
	Features   selection.FeatureSet `json:"features" yaml:"features"`
	Balanced   bool                 `json:"balanced" yaml:"balanced"`
	Train      Counts               `json:"train" yaml:"train"`
	Test       Counts               `json:"test" yaml:"test"`
	Metrics    metrics.Result       `json:"metrics" yaml:"metrics"`
	Validation *metrics.Result      `json:"validation,omitempty" yaml:"validation,omitempty"`
	History    *net.History         `json:"history,omitempty" yaml:"history,omitempty"`
	Duration   time.Duration        `json:"-" yaml:"-"`
}

// derive returns a seed for the k-th randomized stage, nil stays nil.
func derive(s *int64, k int64) *int64 {
	if s == nil {
		return nil
	}
	v := *s + k
	return &v
}

// SelectFeatures resolves sel against ds.
func SelectFeatures(ds *dataset.Dataset, sel Selection, s *int64) (selection.FeatureSet, error) {
	switch strings.ToLower(strings.TrimSpace(sel.Strategy)) {
	case "", "none", "all":
		return selection.All(ds), nil
	case "manual":
		exclude := sel.Exclude
		if len(exclude) == 0 {
			exclude = selection.ManualTopTen
		}
		return selection.Exclude(ds, exclude)
	}
	selector, err := newSelector(sel, s)
	if err != nil {
		return selection.FeatureSet{}, err
	}
	return selection.Select(selector, ds, sel.K)
}

// newSelector builds a ranking strategy; a nil s seeds tree importance from
// the clock like every other randomized stage.
func newSelector(sel Selection, s *int64) (selection.Selector, error) {
	return selection.New(sel.Strategy, sel.Trees, seed.Value(s))
}

// Run executes one evaluation run against src.
func Run(ctx context.Context, src *dataset.Dataset, spec RunSpec) (Result, error) {
	start := time.Now()
	res := Result{ID: uuid.NewString(), Name: spec.Name, Model: spec.Model, Balanced: spec.Balance}
	if res.Name == "" {
		res.Name = spec.Model
	}
	log := logger.With(zap.String("run", res.Name), zap.String("id", res.ID))

	clf, err := classifier.New(spec.Model, withSeed(spec.Classifier, derive(spec.Seed, 2)))
	if err != nil {
		return res, err
	}

	fs, err := SelectFeatures(src, spec.Selection, spec.Seed)
	if err != nil {
		return res, fmt.Errorf("select features: %w", err)
	}
	res.Features = fs
	projected, err := src.Project(fs.Columns)
	if err != nil {
		return res, fmt.Errorf("project features: %w", err)
	}
	log.Debug("features selected", zap.String("strategy", fs.Strategy), zap.Strings("columns", fs.Columns))

	frac := spec.TestFraction
	if frac == 0 {
		frac = DefaultTestFraction
	}
	sp, err := split.Stratified(projected, frac, spec.Seed)
	if err != nil {
		return res, fmt.Errorf("split: %w", err)
	}
	train := sp.Train
	if spec.Balance {
		if train, err = balance.Oversample(train, derive(spec.Seed, 1)); err != nil {
			return res, fmt.Errorf("balance: %w", err)
		}
	}
	res.Train, res.Test = countsOf(train), countsOf(sp.Test)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	log.Info("fitting", zap.String("model", clf.Name()),
		zap.Int("train_rows", train.Len()), zap.Int("features", train.Dim()))
	model, err := clf.Fit(train.Features(), train.Labels())
	if err != nil {
		return res, fmt.Errorf("fit %s: %w", clf.Name(), err)
	}
	if h, ok := model.(interface{ History() net.History }); ok {
		hist := h.History()
		res.History = &hist
	}

	res.Metrics, err = Evaluate(model, sp.Test)
	if err != nil {
		return res, fmt.Errorf("evaluate: %w", err)
	}

	if spec.Validation > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		v, err := Revalidate(model, src, spec.Validation, derive(spec.Seed, 3), fs)
		if err != nil {
			return res, fmt.Errorf("revalidate: %w", err)
		}
		res.Validation = &v
	}
	res.Duration = time.Since(start)
	log.Info("run finished",
		zap.Stringer("accuracy", res.Metrics.Accuracy),
		zap.Stringer("recall", res.Metrics.Recall),
		zap.Stringer("roc_auc", res.Metrics.ROCAUC),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

func withSeed(o classifier.Options, s *int64) classifier.Options {
	o.Seed = s
	return o
}

// Evaluate scores model on every row of ds.
func Evaluate(model classifier.TrainedModel, ds *dataset.Dataset) (metrics.Result, error) {
	X := ds.Features()
	pred, err := model.Predict(X)
	if err != nil {
		return metrics.Result{}, err
	}
	proba, err := model.PredictProbability(X)
	if err != nil {
		return metrics.Result{}, err
	}
	r, err := metrics.Evaluate(ds.Labels(), pred, proba)
	if err != nil {
		return metrics.Result{}, err
	}
	r.ProbabilitySource = string(model.Probability())
	return r, nil
}

// Revalidate scores model on n rows sampled from source and projected onto fs.
func Revalidate(model classifier.TrainedModel, source *dataset.Dataset, n int, s *int64, fs selection.FeatureSet) (metrics.Result, error) {
	sample, _, err := split.Sample(source, n, s)
	if err != nil {
		return metrics.Result{}, err
	}
	projected, err := sample.Project(fs.Columns)
	if err != nil {
		return metrics.Result{}, err
	}
	return Evaluate(model, projected)
}
