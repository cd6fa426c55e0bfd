// Package config loads fraudlab settings from defaults, an optional YAML
// file, FRAUDLAB_* environment variables and bound command-line flags.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/classifier"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
	"github.com/FlavioCFOliveira/GoFraud/internal/selection"
)

// EnvPrefix prefixes every environment override, e.g. FRAUDLAB_SPLIT_TEST_FRACTION.
const EnvPrefix = "FRAUDLAB"

// Config holds every fraudlab setting, decoded from a viper instance by Load.
type Config struct {
	Data       Data       `mapstructure:"data"`
	Selection  Selection  `mapstructure:"selection"`
	Split      Split      `mapstructure:"split"`
	Balance    bool       `mapstructure:"balance"`
	Seed       int64      `mapstructure:"seed"`
	Randomize  bool       `mapstructure:"randomize"`
	Models     []string   `mapstructure:"models"`
	Logistic   Logistic   `mapstructure:"logistic"`
	SVM        SVM        `mapstructure:"svm"`
	Forest     Forest     `mapstructure:"forest"`
	Bayes      Bayes      `mapstructure:"bayes"`
	CNN        CNN        `mapstructure:"cnn"`
	Validation Validation `mapstructure:"validation"`
	Output     Output     `mapstructure:"output"`
	Log        Log        `mapstructure:"log"`
}

// Data locates the transaction table and its label column.
type Data struct {
	Path      string    `mapstructure:"path"`
	Label     string    `mapstructure:"label"`
	Synthetic Synthetic `mapstructure:"synthetic"`
}

// Synthetic sizes the generated table used when no path is given.
type Synthetic struct {
	Rows   int `mapstructure:"rows"`
	Frauds int `mapstructure:"frauds"`
}

// Selection chooses the feature-selection strategy for configured runs.
type Selection struct {
	Strategy string   `mapstructure:"strategy"`
	K        int      `mapstructure:"k"`
	Exclude  []string `mapstructure:"exclude"`
	Trees    int      `mapstructure:"trees"`
}

// Split sizes the stratified test partition.
type Split struct {
	TestFraction float64 `mapstructure:"test_fraction"`
}

// Logistic tunes the logistic regression classifier.
type Logistic struct {
	Epochs       int     `mapstructure:"epochs"`
	LearningRate float64 `mapstructure:"learning_rate"`
	L2           float64 `mapstructure:"l2"`
}

// SVM tunes the support vector classifier.
type SVM struct {
	Kernel        string  `mapstructure:"kernel"`
	Lambda        float64 `mapstructure:"lambda"`
	Epochs        int     `mapstructure:"epochs"`
	Gamma         float64 `mapstructure:"gamma"`
	Components    int     `mapstructure:"components"`
	NoProbability bool    `mapstructure:"no_probability"`
}

// Forest tunes the random forest classifier.
type Forest struct {
	Trees          int `mapstructure:"trees"`
	MaxDepth       int `mapstructure:"max_depth"`
	MinSamplesLeaf int `mapstructure:"min_samples_leaf"`
	Workers        int `mapstructure:"workers"`
}

// Bayes tunes the Gaussian naive Bayes classifier.
type Bayes struct {
	VarSmoothing float64 `mapstructure:"var_smoothing"`
}

// CNN tunes the convolutional network classifier.
type CNN struct {
	Epochs       int     `mapstructure:"epochs"`
	BatchSize    int     `mapstructure:"batch_size"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Filters      int     `mapstructure:"filters"`
	Kernel       int     `mapstructure:"kernel"`
	Hidden       int     `mapstructure:"hidden"`
	Dropout      float64 `mapstructure:"dropout"`
	Patience     int     `mapstructure:"patience"`
	LRDecay      float64 `mapstructure:"lr_decay"`

	Activation         string  `mapstructure:"activation"`
	Loss               string  `mapstructure:"loss"`
	Optimizer          string  `mapstructure:"optimizer"`
	Scheduler          string  `mapstructure:"scheduler"`
	StepSize           int     `mapstructure:"step_size"`
	ValidationFraction float64 `mapstructure:"validation_fraction"`
}

// Validation re-scores the listed models on a random sample of the source.
type Validation struct {
	Size   int      `mapstructure:"size"`
	Models []string `mapstructure:"models"`
}

// Output selects the report format, destination and optional sections.
type Output struct {
	Format    string `mapstructure:"format"`
	Path      string `mapstructure:"path"`
	ROC       bool   `mapstructure:"roc"`
	Confusion bool   `mapstructure:"confusion"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Output formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// SetDefaults registers every key with its default so environment
// variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "")
	v.SetDefault("data.label", "Class")
	v.SetDefault("data.synthetic.rows", 20000)
	v.SetDefault("data.synthetic.frauds", 400)
	v.SetDefault("selection.strategy", "none")
	v.SetDefault("selection.k", 10)
	v.SetDefault("selection.exclude", []string{})
	v.SetDefault("selection.trees", 100)
	v.SetDefault("split.test_fraction", pipeline.DefaultTestFraction)
	v.SetDefault("balance", false)
	v.SetDefault("seed", 42)
	v.SetDefault("randomize", false)
	v.SetDefault("models", []string{})
	v.SetDefault("logistic.epochs", 1000)
	v.SetDefault("logistic.learning_rate", 0.5)
	v.SetDefault("logistic.l2", 1e-4)
	v.SetDefault("svm.kernel", "rbf")
	v.SetDefault("svm.lambda", 1e-4)
	v.SetDefault("svm.epochs", 20)
	v.SetDefault("svm.gamma", 0.0)
	v.SetDefault("svm.components", 300)
	v.SetDefault("svm.no_probability", false)
	v.SetDefault("forest.trees", 100)
	v.SetDefault("forest.max_depth", 0)
	v.SetDefault("forest.min_samples_leaf", 1)
	v.SetDefault("forest.workers", 0)
	v.SetDefault("bayes.var_smoothing", 1e-9)
	v.SetDefault("cnn.epochs", 10)
	v.SetDefault("cnn.batch_size", 64)
	v.SetDefault("cnn.learning_rate", 0.001)
	v.SetDefault("cnn.filters", 32)
	v.SetDefault("cnn.kernel", 3)
	v.SetDefault("cnn.hidden", 64)
	v.SetDefault("cnn.dropout", 0.5)
	v.SetDefault("cnn.patience", 0)
	v.SetDefault("cnn.lr_decay", 0.0)
	v.SetDefault("cnn.activation", classifier.ActivationReLU)
	v.SetDefault("cnn.loss", classifier.LossBCE)
	v.SetDefault("cnn.optimizer", classifier.OptimizerAdam)
	v.SetDefault("cnn.scheduler", classifier.SchedulerExponential)
	v.SetDefault("cnn.step_size", 3)
	v.SetDefault("cnn.validation_fraction", 0.0)
	v.SetDefault("validation.size", pipeline.ValidationRows)
	v.SetDefault("validation.models", []string{"forest"})
	v.SetDefault("output.format", FormatTable)
	v.SetDefault("output.path", "")
	v.SetDefault("output.roc", false)
	v.SetDefault("output.confusion", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logging.FormatConsole))
}

// New returns a viper instance with defaults and environment overrides,
// reading file when it is not empty.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) normalize() {
	c.Selection.Strategy = strings.ToLower(strings.TrimSpace(c.Selection.Strategy))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Models = trimAll(c.Models)
	c.Validation.Models = trimAll(c.Validation.Models)
	c.Selection.Exclude = trimAll(c.Selection.Exclude)
}

// trimAll splits comma-separated entries and drops blanks.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports the first invalid setting as a ConfigurationError.
func (c Config) Validate() error {
	if c.Data.Path == "" && c.Data.Synthetic.Rows <= 0 {
		return apperr.Configf("data.path", "required unless data.synthetic.rows is positive")
	}
	if c.Data.Label == "" {
		return apperr.Configf("data.label", "must not be empty")
	}
	switch c.Selection.Strategy {
	case "none", "all", "manual":
	default:
		if _, err := selection.New(c.Selection.Strategy, c.Selection.Trees, 0); err != nil {
			return err
		}
		if c.Selection.K <= 0 {
			return apperr.Configf("selection.k", "must be positive, got %d", c.Selection.K)
		}
	}
	if f := c.Split.TestFraction; !(f > 0 && f < 1) {
		return apperr.Configf("split.test_fraction", "must be in (0,1), got %v", f)
	}
	for _, m := range append(slices.Clone(c.Models), c.Validation.Models...) {
		if _, err := canonicalModel(m); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.SVM.Kernel) {
	case "", "rbf", "linear":
	default:
		return apperr.Configf("svm.kernel", "unknown kernel %q (want rbf or linear)", c.SVM.Kernel)
	}
	if err := c.ClassifierOptions().CNN.Validate(); err != nil {
		return err
	}
	if c.CNN.LRDecay < 0 || c.CNN.LRDecay >= 1 {
		return apperr.Configf("cnn.lr_decay", "must be in [0,1), got %v", c.CNN.LRDecay)
	}
	if c.Validation.Size < 0 {
		return apperr.Configf("validation.size", "must not be negative, got %d", c.Validation.Size)
	}
	switch c.Output.Format {
	case FormatTable, FormatYAML, FormatJSON:
	default:
		return apperr.Configf("output.format", "unknown format %q (want table, yaml or json)", c.Output.Format)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return apperr.Configf("log.format", "unknown format %q (want console or json)", c.Log.Format)
	}
	return nil
}

// SeedPtr returns the configured seed, or nil when runs are time-seeded.
func (c Config) SeedPtr() *int64 {
	if c.Randomize {
		return nil
	}
	s := c.Seed
	return &s
}

// ClassifierOptions maps the model sections onto classifier options.
func (c Config) ClassifierOptions() classifier.Options {
	return classifier.Options{
		Seed: c.SeedPtr(),
		Logistic: classifier.LogisticOptions{
			Epochs: c.Logistic.Epochs, LearningRate: c.Logistic.LearningRate, L2: c.Logistic.L2,
		},
		SVM: classifier.SVMOptions{
			Kernel: c.SVM.Kernel, Lambda: c.SVM.Lambda, Epochs: c.SVM.Epochs,
			Gamma: c.SVM.Gamma, Components: c.SVM.Components, NoProbability: c.SVM.NoProbability,
		},
		Forest: classifier.ForestOptions{
			Trees: c.Forest.Trees, MaxDepth: c.Forest.MaxDepth,
			MinSamplesLeaf: c.Forest.MinSamplesLeaf, Workers: c.Forest.Workers,
		},
		Bayes: classifier.BayesOptions{VarSmoothing: c.Bayes.VarSmoothing},
		CNN: classifier.CNNOptions{
			Epochs: c.CNN.Epochs, BatchSize: c.CNN.BatchSize, LearningRate: c.CNN.LearningRate,
			Filters: c.CNN.Filters, Kernel: c.CNN.Kernel, Hidden: c.CNN.Hidden,
			Dropout: c.CNN.Dropout, Patience: c.CNN.Patience, LRDecay: c.CNN.LRDecay,
			Activation: c.CNN.Activation, Loss: c.CNN.Loss, Optimizer: c.CNN.Optimizer,
			Scheduler: c.CNN.Scheduler, StepSize: c.CNN.StepSize,
			ValidationFraction: c.CNN.ValidationFraction,
		},
	}
}

// PipelineSelection converts the selection section.
func (c Config) PipelineSelection() pipeline.Selection {
	return pipeline.Selection{
		Strategy: c.Selection.Strategy,
		K:        c.Selection.K,
		Exclude:  c.Selection.Exclude,
		Trees:    c.Selection.Trees,
	}
}

// Experiment builds the run list: the reference matrix when no models are
// configured, otherwise one run per model with the configured selection and
// balancing.
func (c Config) Experiment() pipeline.Experiment {
	base := pipeline.RunSpec{
		TestFraction: c.Split.TestFraction,
		Seed:         c.SeedPtr(),
		Classifier:   c.ClassifierOptions(),
	}
	var e pipeline.Experiment
	if len(c.Models) == 0 {
		e = pipeline.DefaultExperiment(base)
	} else {
		balance := "imbalanced"
		if c.Balance {
			balance = "balanced"
		}
		for _, m := range c.Models {
			r := base
			r.Model, _ = canonicalModel(m)
			r.Selection = c.PipelineSelection()
			r.Balance = c.Balance
			r.Name = balance + "/" + c.Selection.Strategy + "/" + r.Model
			e.Runs = append(e.Runs, r)
		}
	}
	for i := range e.Runs {
		e.Runs[i].Validation = 0
		if c.Validation.Size > 0 && c.revalidates(e.Runs[i].Model) {
			e.Runs[i].Validation = c.Validation.Size
		}
	}
	return e
}

func (c Config) revalidates(model string) bool {
	for _, m := range c.Validation.Models {
		if name, _ := canonicalModel(m); name == model {
			return true
		}
	}
	return false
}

// canonicalModel resolves aliases such as "rf" to the variant name.
func canonicalModel(name string) (string, error) {
	clf, err := classifier.New(name, classifier.Options{})
	if err != nil {
		return "", err
	}
	return clf.Name(), nil
}
