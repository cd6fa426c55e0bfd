package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/classifier"
)

func load(t *testing.T, file string) (Config, error) {
	t.Helper()
	v, err := New(file)
	if err != nil {
		t.Fatal(err)
	}
	return Load(v)
}

func TestDefaults(t *testing.T) {
	c, err := load(t, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Data.Label != "Class" || c.Split.TestFraction != 0.2 || c.Seed != 42 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Output.Format != FormatTable || c.Log.Format != "console" {
		t.Errorf("output %+v log %+v", c.Output, c.Log)
	}
	if s := c.SeedPtr(); s == nil || *s != 42 {
		t.Errorf("SeedPtr = %v", s)
	}
	opts := c.ClassifierOptions()
	if opts.CNN.Epochs != 10 || opts.CNN.BatchSize != 64 || opts.Forest.Trees != 100 || opts.SVM.Kernel != "rbf" {
		t.Errorf("classifier options = %+v", opts)
	}
}

func TestDefaultExperimentFromConfig(t *testing.T) {
	c, err := load(t, "")
	if err != nil {
		t.Fatal(err)
	}
	e := c.Experiment()
	if len(e.Runs) != 8 {
		t.Fatalf("got %d runs, want 8", len(e.Runs))
	}
	for _, r := range e.Runs {
		want := 0
		if r.Model == "forest" {
			want = 1000
		}
		if r.Validation != want {
			t.Errorf("%s: validation = %d, want %d", r.Name, r.Validation, want)
		}
		if r.Seed == nil || *r.Seed != 42 {
			t.Errorf("%s: seed = %v", r.Name, r.Seed)
		}
	}
}

func TestFileAndEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), "fraudlab.yaml")
	yaml := `
data:
  path: creditcard.csv
selection:
  strategy: Chi2
  k: 8
balance: true
models: [logistic, rf]
validation:
  models: [forest]
  size: 250
cnn:
  epochs: 3
  optimizer: sgd
  scheduler: step
  validation_fraction: 0.1
output:
  format: yaml
`
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FRAUDLAB_SPLIT_TEST_FRACTION", "0.3")
	t.Setenv("FRAUDLAB_RANDOMIZE", "true")

	c, err := load(t, file)
	if err != nil {
		t.Fatal(err)
	}
	if c.Data.Path != "creditcard.csv" || c.Selection.Strategy != "chi2" || c.CNN.Epochs != 3 {
		t.Errorf("file values not applied: %+v", c)
	}
	want := classifier.CNNOptions{
		Epochs: 3, BatchSize: 64, LearningRate: 0.001, Filters: 32, Kernel: 3, Hidden: 64, Dropout: 0.5,
		Activation: classifier.ActivationReLU, Loss: classifier.LossBCE,
		Optimizer: classifier.OptimizerSGD, Scheduler: classifier.SchedulerStep, StepSize: 3,
		ValidationFraction: 0.1,
	}
	if diff := cmp.Diff(want, c.ClassifierOptions().CNN); diff != "" {
		t.Errorf("cnn options (-want +got):\n%s", diff)
	}
	if c.Split.TestFraction != 0.3 || c.SeedPtr() != nil {
		t.Errorf("environment not applied: fraction %v seed %v", c.Split.TestFraction, c.SeedPtr())
	}

	e := c.Experiment()
	var names []string
	for _, r := range e.Runs {
		names = append(names, r.Name)
		if !r.Balance || r.Selection.K != 8 || r.TestFraction != 0.3 {
			t.Errorf("%s: %+v", r.Name, r)
		}
	}
	if diff := cmp.Diff([]string{"balanced/chi2/logistic", "balanced/chi2/forest"}, names); diff != "" {
		t.Errorf("runs (-want +got):\n%s", diff)
	}
	if e.Runs[0].Validation != 0 || e.Runs[1].Validation != 250 {
		t.Errorf("validation sizes %d, %d", e.Runs[0].Validation, e.Runs[1].Validation)
	}
}

func TestModelsFromEnvironment(t *testing.T) {
	t.Setenv("FRAUDLAB_MODELS", "bayes, svm")
	c, err := load(t, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"bayes", "svm"}, c.Models); diff != "" {
		t.Errorf("models (-want +got):\n%s", diff)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c, err := load(t, "")
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	tests := []struct {
		param  string
		mutate func(*Config)
	}{
		{"data.path", func(c *Config) { c.Data.Synthetic.Rows = 0 }},
		{"data.label", func(c *Config) { c.Data.Label = "" }},
		{"strategy", func(c *Config) { c.Selection.Strategy = "pca" }},
		{"selection.k", func(c *Config) { c.Selection.Strategy, c.Selection.K = "chi2", 0 }},
		{"split.test_fraction", func(c *Config) { c.Split.TestFraction = 1 }},
		{"model", func(c *Config) { c.Models = []string{"knn"} }},
		{"model", func(c *Config) { c.Validation.Models = []string{"xgboost"} }},
		{"svm.kernel", func(c *Config) { c.SVM.Kernel = "poly" }},
		{"cnn.dropout", func(c *Config) { c.CNN.Dropout = 1 }},
		{"cnn.lr_decay", func(c *Config) { c.CNN.LRDecay = 1.5 }},
		{"cnn.optimizer", func(c *Config) { c.CNN.Optimizer = "rmsprop" }},
		{"cnn.scheduler", func(c *Config) { c.CNN.Scheduler = "cosine" }},
		{"cnn.activation", func(c *Config) { c.CNN.Activation = "gelu" }},
		{"cnn.loss", func(c *Config) { c.CNN.Loss = "hinge" }},
		{"cnn.validation_fraction", func(c *Config) { c.CNN.ValidationFraction = 1 }},
		{"validation.size", func(c *Config) { c.Validation.Size = -1 }},
		{"output.format", func(c *Config) { c.Output.Format = "xml" }},
		{"log.format", func(c *Config) { c.Log.Format = "logfmt" }},
	}
	for _, tt := range tests {
		c := valid()
		tt.mutate(&c)
		err := c.Validate()
		var ce *apperr.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: expected configuration error, got %v", tt.param, err)
			continue
		}
		if ce.Param != tt.param {
			t.Errorf("param = %q, want %q", ce.Param, tt.param)
		}
	}
}
