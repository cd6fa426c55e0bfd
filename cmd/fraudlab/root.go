package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/config"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"data":            "data.path",
	"label":           "data.label",
	"rows":            "data.synthetic.rows",
	"frauds":          "data.synthetic.frauds",
	"seed":            "seed",
	"randomize":       "randomize",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"format":          "output.format",
	"output":          "output.path",
	"models":          "models",
	"balance":         "balance",
	"strategy":        "selection.strategy",
	"k":               "selection.k",
	"exclude":         "selection.exclude",
	"trees":           "selection.trees",
	"test-fraction":   "split.test_fraction",
	"validation-size": "validation.size",
	"roc":             "output.roc",
	"confusion":       "output.confusion",
	"cnn-epochs":      "cnn.epochs",
	"cnn-optimizer":   "cnn.optimizer",
	"cnn-validation":  "cnn.validation_fraction",
	"forest-trees":    "forest.trees",
	"workers":         "forest.workers",
}

// app carries the state shared by a command invocation.
type app struct {
	cfgFile string
	cfg     config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fraudlab",
		Short:         "Evaluate credit-card fraud classifiers",
		Long:          "fraudlab selects features, balances training data, fits logistic regression, SVM, random forest, naive Bayes and CNN classifiers and reports detection metrics on held-out transactions.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.String("data", "", "transactions CSV (synthetic data when empty)")
	pf.String("label", "Class", "label column")
	pf.Int("rows", 20000, "synthetic rows when no data file is given")
	pf.Int("frauds", 400, "synthetic fraudulent rows")
	pf.Int64("seed", 42, "random seed")
	pf.Bool("randomize", false, "seed from the clock instead of --seed")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("log-format", "console", "console or json")
	pf.String("format", "table", "table, yaml or json")
	pf.String("output", "", "write the report to this file instead of stdout")

	root.AddCommand(newRunCmd(a), newSelectCmd(a), newDescribeCmd(a), newGenerateCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}
	if a.cfg, err = config.Load(v); err != nil {
		return err
	}
	if a.log, err = logging.New(a.cfg.Log.Level, logging.Format(a.cfg.Log.Format)); err != nil {
		return err
	}
	pipeline.SetLogger(a.log)
	if f := v.ConfigFileUsed(); f != "" {
		a.log.Debug("using config file", zap.String("path", f))
	}
	return nil
}

// dataset loads the configured CSV or generates synthetic transactions.
func (a *app) dataset() (*dataset.Dataset, error) {
	if a.cfg.Data.Path != "" {
		ds, err := dataset.LoadFile(a.cfg.Data.Path, a.cfg.Data.Label)
		if err != nil {
			return nil, err
		}
		a.log.Info("dataset loaded", zap.String("path", a.cfg.Data.Path), zap.Int("rows", ds.Len()))
		return ds, nil
	}
	syn := a.cfg.Data.Synthetic
	a.log.Warn("no data file given, using synthetic transactions",
		zap.Int("rows", syn.Rows), zap.Int("frauds", syn.Frauds))
	return dataset.Synthetic(dataset.SyntheticOptions{
		Rows: syn.Rows, Frauds: syn.Frauds, Seed: seed.Value(a.cfg.SeedPtr()),
	})
}

// output returns the report destination and a function closing it.
func (a *app) output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if a.cfg.Output.Path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(a.cfg.Output.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("create report: %w", err)
	}
	return f, f.Close, nil
}
