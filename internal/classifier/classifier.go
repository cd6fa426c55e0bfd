// Package classifier provides the binary classifiers compared by the
// evaluation pipeline. Every variant fits on a row-major feature matrix with
// 0/1 labels and returns an immutable TrainedModel.
package classifier

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
)

var logger = zap.NewNop()

// SetLogger sets the destination for classifier logs.
func SetLogger(l *zap.Logger) { logger = logging.OrNop(l).Named("classifier") }

// ProbabilityKind tells how a model's probability scores were obtained.
type ProbabilityKind string

const (
	// Native scores come straight from the model.
	Native ProbabilityKind = "native"
	// Approximate scores are calibrated after the fact (Platt scaling).
	Approximate ProbabilityKind = "approximate"
	// None means the model produces no scores.
	None ProbabilityKind = "none"
)

// Classifier is an untrained model variant.
type Classifier interface {
	Name() string
	Fit(X [][]float64, y []int) (TrainedModel, error)
}

// TrainedModel predicts labels and fraud probabilities for rows with the
// dimensionality it was fit on.
type TrainedModel interface {
	Predict(X [][]float64) ([]int, error)
	// PredictProbability returns P(fraud) per row, or nil when Probability is None.
	PredictProbability(X [][]float64) ([]float64, error)
	Dimensions() int
	Probability() ProbabilityKind
}

// Options configures every variant. Zero fields take the variant defaults.
type Options struct {
	Seed     *int64
	Logistic LogisticOptions
	SVM      SVMOptions
	Forest   ForestOptions
	Bayes    BayesOptions
	CNN      CNNOptions
}

// Variants lists the names accepted by New.
var Variants = []string{"logistic", "svm", "forest", "bayes", "cnn"}

// New builds the variant registered under name.
func New(name string, opts Options) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "logistic", "logreg":
		return &Logistic{Options: opts.Logistic}, nil
	case "svm", "svc":
		return &SVM{Options: opts.SVM, Seed: opts.Seed}, nil
	case "forest", "randomforest", "rf":
		return &RandomForest{Options: opts.Forest, Seed: opts.Seed}, nil
	case "bayes", "naivebayes", "nb":
		return &NaiveBayes{Options: opts.Bayes}, nil
	case "cnn":
		return &CNN{Options: opts.CNN, Seed: opts.Seed}, nil
	default:
		known := append([]string(nil), Variants...)
		sort.Strings(known)
		return nil, apperr.Configf("model", "unknown model %q (want one of %s)", name, strings.Join(known, ", "))
	}
}

// checkFit validates a training set and returns its dimensionality.
// Both classes must be present.
func checkFit(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, apperr.Configf("rows", "training set is empty")
	}
	if len(X) != len(y) {
		return 0, apperr.Shape("labels", len(X), len(y))
	}
	d := len(X[0])
	if d == 0 {
		return 0, apperr.Configf("features", "training rows have no features")
	}
	var counts [2]int
	for i, row := range X {
		if len(row) != d {
			return 0, apperr.Shape("training row", d, len(row))
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, apperr.Configf("labels", "row %d has label %d, want 0 or 1", i, y[i])
		}
		counts[y[i]]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		return 0, apperr.Configf("labels", "training set needs both classes, got %d legitimate and %d fraudulent", counts[0], counts[1])
	}
	return d, nil
}

// checkPredict rejects rows whose width differs from the fitted one.
func checkPredict(X [][]float64, d int) error {
	for _, row := range X {
		if len(row) != d {
			return apperr.Shape("features", d, len(row))
		}
	}
	return nil
}

// threshold turns probabilities into labels at 0.5.
func threshold(p []float64) []int {
	out := make([]int, len(p))
	for i, v := range p {
		if v >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func toFloat(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}
