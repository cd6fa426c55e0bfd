// Package fraudlab exposes the evaluation harness to programs outside this module.
package fraudlab

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/balance"
	"github.com/FlavioCFOliveira/GoFraud/internal/classifier"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/metrics"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
	"github.com/FlavioCFOliveira/GoFraud/internal/report"
	"github.com/FlavioCFOliveira/GoFraud/internal/selection"
	"github.com/FlavioCFOliveira/GoFraud/internal/split"
)

// Re-export common types for easier access
type (
	Dataset           = dataset.Dataset
	SyntheticOptions  = dataset.SyntheticOptions
	FeatureSet        = selection.FeatureSet
	Selector          = selection.Selector
	Split             = split.Split
	Classifier        = classifier.Classifier
	TrainedModel      = classifier.TrainedModel
	ClassifierOptions = classifier.Options
	Metrics           = metrics.Result
	RunSpec           = pipeline.RunSpec
	Selection         = pipeline.Selection
	Result            = pipeline.Result
	Experiment        = pipeline.Experiment
)

// Data
func LoadFile(filename, labelColumn string) (*Dataset, error) {
	return dataset.LoadFile(filename, labelColumn)
}

func LoadCSV(r io.Reader, labelColumn string) (*Dataset, error) {
	return dataset.LoadCSV(r, labelColumn)
}

func Synthetic(opts SyntheticOptions) (*Dataset, error) {
	return dataset.Synthetic(opts)
}

func WriteCSV(w io.Writer, ds *Dataset, labelColumn string) error {
	return dataset.WriteCSV(w, ds, labelColumn)
}

// Feature selection
func SelectFeatures(ds *Dataset, sel Selection, seed *int64) (FeatureSet, error) {
	return pipeline.SelectFeatures(ds, sel, seed)
}

// Splitting and balancing
func StratifiedSplit(ds *Dataset, testFraction float64, seed *int64) (Split, error) {
	return split.Stratified(ds, testFraction, seed)
}

func Oversample(ds *Dataset, seed *int64) (*Dataset, error) {
	return balance.Oversample(ds, seed)
}

// Models
func NewClassifier(name string, opts ClassifierOptions) (Classifier, error) {
	return classifier.New(name, opts)
}

func Evaluate(model TrainedModel, ds *Dataset) (Metrics, error) {
	return pipeline.Evaluate(model, ds)
}

// Runs
func Run(ctx context.Context, ds *Dataset, spec RunSpec) (Result, error) {
	return pipeline.Run(ctx, ds, spec)
}

func DefaultExperiment(base RunSpec) Experiment {
	return pipeline.DefaultExperiment(base)
}

// WriteReport renders results as "table", "yaml" or "json".
func WriteReport(w io.Writer, results []Result, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	return report.Results(w, results, report.Options{Format: f, Confusion: true})
}

// Logging
func SetLogger(l *zap.Logger) {
	pipeline.SetLogger(l)
}
