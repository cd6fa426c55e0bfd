package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
)

// ValidationRows is the sample size of the default forest re-validation.
const ValidationRows = 1000

// Experiment is an ordered list of runs over one source Dataset.
type Experiment struct {
	Runs []RunSpec
}

// DefaultExperiment returns the reference run matrix. base supplies the
// seed, test fraction and classifier options shared by every run.
//
//	balanced,   all features:   logistic, cnn
//	balanced,   manual top-10:  logistic, svm
//	imbalanced, all features:   svm, logistic, forest (re-validated), bayes
func DefaultExperiment(base RunSpec) Experiment {
	all := Selection{Strategy: "none"}
	manual := Selection{Strategy: "manual"}
	run := func(name, model string, sel Selection, balanced bool, validation int) RunSpec {
		r := base
		r.Name, r.Model, r.Selection, r.Balance, r.Validation = name, model, sel, balanced, validation
		return r
	}
	return Experiment{Runs: []RunSpec{
		run("balanced/all/logistic", "logistic", all, true, 0),
		run("balanced/all/cnn", "cnn", all, true, 0),
		run("balanced/manual/logistic", "logistic", manual, true, 0),
		run("balanced/manual/svm", "svm", manual, true, 0),
		run("imbalanced/all/svm", "svm", all, false, 0),
		run("imbalanced/all/logistic", "logistic", all, false, 0),
		run("imbalanced/all/forest", "forest", all, false, ValidationRows),
		run("imbalanced/all/bayes", "bayes", all, false, 0),
	}}
}

// Run executes every run in order and stops at the first failure. Results of
// the runs that completed are returned alongside the error.
func (e Experiment) Run(ctx context.Context, src *dataset.Dataset) ([]Result, error) {
	logger.Info("experiment starting", zap.Int("runs", len(e.Runs)), zap.Int("rows", src.Len()))
	results := make([]Result, 0, len(e.Runs))
	for i, spec := range e.Runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if spec.Validation > src.Len() {
			logger.Warn("validation sample larger than the dataset, using every row",
				zap.String("run", spec.Name), zap.Int("requested", spec.Validation))
			spec.Validation = src.Len()
		}
		r, err := Run(ctx, src, spec)
		if err != nil {
			return results, fmt.Errorf("run %d (%s): %w", i+1, r.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}
