package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/report"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the evaluation experiment",
		Long: `Run fits and scores every configured model. Without --models the reference
matrix is run: logistic regression and CNN on balanced data with all features,
logistic regression and SVM on balanced data with the manual top-10 features,
and SVM, logistic regression, random forest and naive Bayes on the imbalanced
data. The forest is re-validated on a random sample of the source rows.`,
		Args: cobra.NoArgs,
		RunE: a.run,
	}
	f := cmd.Flags()
	f.StringSlice("models", nil, "models to run (logistic, svm, forest, bayes, cnn)")
	f.Bool("balance", false, "oversample frauds in the training partition")
	f.String("strategy", "none", "feature selection: none, manual, chi2, fregression, tree or correlation")
	f.Int("k", 10, "columns kept by ranking strategies")
	f.StringSlice("exclude", nil, "columns dropped by the manual strategy")
	f.Int("trees", 100, "trees of the importance ensemble")
	f.Float64("test-fraction", 0.2, "held-out share of every class")
	f.Int("validation-size", 1000, "re-validation sample size, 0 disables")
	f.Bool("roc", false, "include ROC curve points in YAML/JSON reports")
	f.Bool("confusion", true, "include confusion matrices")
	f.Int("cnn-epochs", 10, "CNN training epochs")
	f.String("cnn-optimizer", "adam", "CNN optimizer: adam or sgd")
	f.Float64("cnn-validation", 0, "share of CNN training rows scored per epoch, 0 disables")
	f.Int("forest-trees", 100, "random forest size")
	f.Int("workers", 0, "concurrent tree fits, 0 uses every CPU")
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	ds, err := a.dataset()
	if err != nil {
		return err
	}
	results, runErr := a.cfg.Experiment().Run(cmd.Context(), ds)
	if len(results) == 0 && runErr != nil {
		return runErr
	}

	w, closeFn, err := a.output(cmd)
	if err != nil {
		return errors.Join(runErr, err)
	}
	err = report.Results(w, results, report.Options{
		Format:    report.Format(a.cfg.Output.Format),
		ROC:       a.cfg.Output.ROC,
		Confusion: a.cfg.Output.Confusion,
	})
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if runErr != nil {
		a.log.Error("experiment aborted", zap.Int("completed", len(results)), zap.Error(runErr))
	}
	return errors.Join(runErr, err)
}
