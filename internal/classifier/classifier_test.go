package classifier

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/metrics"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

// separable returns rows where every feature alone splits the classes:
// legitimate values lie in [0,1), fraudulent ones in [4,5).
func separable(n, d int, s int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(s))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		y[i] = i % 2
		X[i] = make([]float64, d)
		for j := range X[i] {
			X[i][j] = 4*float64(y[i]) + rng.Float64()
		}
	}
	return X, y
}

func fitAndScore(t *testing.T, c Classifier, X [][]float64, y []int, Xt [][]float64, yt []int) (TrainedModel, metrics.Result) {
	t.Helper()
	m, err := c.Fit(X, y)
	if err != nil {
		t.Fatalf("%s: fit: %v", c.Name(), err)
	}
	pred, err := m.Predict(Xt)
	if err != nil {
		t.Fatalf("%s: predict: %v", c.Name(), err)
	}
	proba, err := m.PredictProbability(Xt)
	if err != nil {
		t.Fatalf("%s: predict probability: %v", c.Name(), err)
	}
	r, err := metrics.Evaluate(yt, pred, proba)
	if err != nil {
		t.Fatalf("%s: evaluate: %v", c.Name(), err)
	}
	return m, r
}

func TestSeparableDataIsPerfectlyClassified(t *testing.T) {
	X, y := separable(200, 3, 1)
	Xt, yt := separable(100, 3, 2)
	opts := Options{Seed: seed.Of(42)}
	for _, name := range []string{"forest", "logistic", "bayes"} {
		c, err := New(name, opts)
		if err != nil {
			t.Fatal(err)
		}
		m, r := fitAndScore(t, c, X, y, Xt, yt)
		if r.Accuracy.V != 1 {
			t.Errorf("%s: accuracy = %v, want 1", name, r.Accuracy)
		}
		if !r.ROCAUC.Defined || r.ROCAUC.V != 1 {
			t.Errorf("%s: ROC-AUC = %v, want 1", name, r.ROCAUC)
		}
		if m.Probability() != Native {
			t.Errorf("%s: probability kind = %q", name, m.Probability())
		}
		if m.Dimensions() != 3 {
			t.Errorf("%s: Dimensions = %d, want 3", name, m.Dimensions())
		}
	}
}

func TestSVMKernels(t *testing.T) {
	X, y := separable(200, 3, 3)
	Xt, yt := separable(100, 3, 4)
	for _, kernel := range []string{"linear", "rbf"} {
		c := &SVM{Options: SVMOptions{Kernel: kernel}, Seed: seed.Of(7)}
		m, r := fitAndScore(t, c, X, y, Xt, yt)
		if r.Accuracy.V < 0.95 {
			t.Errorf("%s: accuracy = %v", kernel, r.Accuracy)
		}
		if m.Probability() != Approximate {
			t.Errorf("%s: probability kind = %q, want approximate", kernel, m.Probability())
		}
		if !r.ROCAUC.Defined {
			t.Errorf("%s: ROC-AUC undefined", kernel)
		}
	}

	c := &SVM{Options: SVMOptions{NoProbability: true}, Seed: seed.Of(7)}
	m, err := c.Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if p, err := m.PredictProbability(Xt); err != nil || p != nil || m.Probability() != None {
		t.Errorf("no-probability svm: %v %v %q", p, err, m.Probability())
	}

	if _, err := (&SVM{Options: SVMOptions{Kernel: "poly"}}).Fit(X, y); !apperr.IsConfiguration(err) {
		t.Errorf("unknown kernel: expected configuration error, got %v", err)
	}
}

func TestPlattScalingIsMonotone(t *testing.T) {
	f := []float64{-3, -2, -1.5, -0.2, 0.1, 0.3, 1.2, 2.5, 3}
	y := []int{0, 0, 0, 1, 0, 1, 1, 1, 1}
	A, B := platt(f, y)
	if A >= 0 {
		t.Fatalf("A = %v, want negative", A)
	}
	prev := 0.0
	for _, v := range f {
		p := 1 / (1 + math.Exp(A*v+B))
		if p <= prev {
			t.Errorf("P(f=%v) = %v not above %v", v, p, prev)
		}
		prev = p
	}
}

func TestCNNLearns(t *testing.T) {
	X, y := separable(300, 6, 5)
	Xt, yt := separable(100, 6, 6)
	c := &CNN{Options: CNNOptions{Epochs: 8, BatchSize: 16, LearningRate: 0.01, Filters: 4, Hidden: 8}, Seed: seed.Of(1)}
	m, r := fitAndScore(t, c, X, y, Xt, yt)
	if r.Accuracy.V < 0.95 {
		t.Errorf("accuracy = %v", r.Accuracy)
	}
	if h := m.(*cnnModel).History(); len(h.Loss) != 8 {
		t.Errorf("history has %d epochs, want 8", len(h.Loss))
	}
}

func TestCNNNeedsEnoughFeatures(t *testing.T) {
	X, y := separable(20, 3, 1)
	if _, err := (&CNN{}).Fit(X, y); !apperr.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestCNNTrainingOptions(t *testing.T) {
	X, y := separable(200, 6, 7)
	tests := []struct {
		name   string
		opts   CNNOptions
		wantLR float64
	}{
		{
			name:   "adam exponential decay",
			opts:   CNNOptions{Epochs: 4, LearningRate: 0.01, LRDecay: 0.5},
			wantLR: 0.01 * 0.5 * 0.5 * 0.5 * 0.5,
		},
		{
			name:   "sgd step decay",
			opts:   CNNOptions{Epochs: 6, LearningRate: 0.05, LRDecay: 0.5, Optimizer: OptimizerSGD, Scheduler: SchedulerStep, StepSize: 3},
			wantLR: 0.05 * 0.5 * 0.5,
		},
		{
			name:   "tanh mse no decay",
			opts:   CNNOptions{Epochs: 3, LearningRate: 0.01, Activation: ActivationTanh, Loss: LossMSE},
			wantLR: 0.01,
		},
		{
			name:   "leaky relu",
			opts:   CNNOptions{Epochs: 3, LearningRate: 0.01, Activation: ActivationLeakyReLU},
			wantLR: 0.01,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Filters, tt.opts.Hidden, tt.opts.BatchSize = 4, 8, 16
			tt.opts.ValidationFraction = 0.25
			m, err := (&CNN{Options: tt.opts, Seed: seed.Of(3)}).Fit(X, y)
			if err != nil {
				t.Fatal(err)
			}
			model := m.(*cnnModel)
			h := model.History()
			if len(h.ValLoss) != tt.opts.Epochs || len(h.Loss) != tt.opts.Epochs {
				t.Fatalf("history has %d losses and %d validation losses, want %d each", len(h.Loss), len(h.ValLoss), tt.opts.Epochs)
			}
			for i, v := range h.ValLoss {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("ValLoss[%d] = %v", i, v)
				}
			}
			if got := model.network.Optimizer().LearningRate(); math.Abs(got-tt.wantLR) > 1e-12 {
				t.Errorf("learning rate = %v, want %v", got, tt.wantLR)
			}
			if model.Dimensions() != 6 {
				t.Errorf("Dimensions = %d, want 6", model.Dimensions())
			}
		})
	}
}

func TestCNNHoldOut(t *testing.T) {
	X, y := separable(100, 6, 2)
	trainX, trainY, valX, valY, err := holdOut(X, y, 0.2, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if len(trainX) != 80 || len(trainY) != 80 || len(valX) != 20 || len(valY) != 20 {
		t.Fatalf("split %d/%d train, %d/%d validation", len(trainX), len(trainY), len(valX), len(valY))
	}
	trainX, _, valX, _, err = holdOut(X, y, 0, nil)
	if err != nil || len(trainX) != 100 || valX != nil {
		t.Errorf("fraction 0: %d train, %d validation, err %v", len(trainX), len(valX), err)
	}
	if _, _, _, _, err := holdOut(X[:1], y[:1], 0.5, rand.New(rand.NewSource(1))); !apperr.IsConfiguration(err) {
		t.Errorf("single row: expected configuration error, got %v", err)
	}
}

func TestCNNRejectsUnknownOptions(t *testing.T) {
	X, y := separable(40, 6, 1)
	tests := []struct {
		param string
		opts  CNNOptions
	}{
		{"cnn.optimizer", CNNOptions{Optimizer: "rmsprop"}},
		{"cnn.scheduler", CNNOptions{Scheduler: "cosine"}},
		{"cnn.activation", CNNOptions{Activation: "softplus"}},
		{"cnn.loss", CNNOptions{Loss: "hinge"}},
		{"cnn.validation_fraction", CNNOptions{ValidationFraction: 1}},
		{"cnn.validation_fraction", CNNOptions{ValidationFraction: -0.1}},
	}
	for _, tt := range tests {
		tt.opts.Epochs = 1
		_, err := (&CNN{Options: tt.opts, Seed: seed.Of(1)}).Fit(X, y)
		var cfg *apperr.ConfigurationError
		if !errors.As(err, &cfg) || cfg.Param != tt.param {
			t.Errorf("%+v: expected configuration error on %s, got %v", tt.opts, tt.param, err)
		}
	}
}

func TestPredictRejectsWrongDimensionality(t *testing.T) {
	X, y := separable(60, 4, 1)
	wrong := [][]float64{{1, 2, 3}}
	opts := Options{Seed: seed.Of(1), CNN: CNNOptions{Epochs: 1, Filters: 2, Hidden: 2}}
	for _, name := range Variants {
		c, err := New(name, opts)
		if err != nil {
			t.Fatal(err)
		}
		m, err := c.Fit(X, y)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if _, err := m.Predict(wrong); !apperr.IsShapeMismatch(err) {
			t.Errorf("%s Predict: expected shape mismatch, got %v", name, err)
		}
		if _, err := m.PredictProbability(wrong); !apperr.IsShapeMismatch(err) {
			t.Errorf("%s PredictProbability: expected shape mismatch, got %v", name, err)
		}
	}
}

func TestFitValidation(t *testing.T) {
	X, y := separable(10, 2, 1)
	oneClass := make([]int, len(y))
	for _, name := range Variants {
		c, _ := New(name, Options{})
		if _, err := c.Fit(X, oneClass); !apperr.IsConfiguration(err) {
			t.Errorf("%s single class: expected configuration error, got %v", name, err)
		}
		if _, err := c.Fit(X, y[:5]); !apperr.IsShapeMismatch(err) {
			t.Errorf("%s label count: expected shape mismatch, got %v", name, err)
		}
		if _, err := c.Fit(nil, nil); !apperr.IsConfiguration(err) {
			t.Errorf("%s empty: expected configuration error, got %v", name, err)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range append(Variants, "RF", " Logistic ") {
		if _, err := New(name, Options{}); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	if _, err := New("xgboost", Options{}); !apperr.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSyntheticTransactions(t *testing.T) {
	ds, err := dataset.Synthetic(dataset.SyntheticOptions{Rows: 600, Frauds: 60, Seed: 9})
	if err != nil {
		t.Fatal(err)
	}
	X, y := ds.Features(), ds.Labels()
	for _, name := range []string{"logistic", "forest", "bayes"} {
		c, _ := New(name, Options{Seed: seed.Of(3), Forest: ForestOptions{Trees: 30}})
		_, r := fitAndScore(t, c, X, y, X, y)
		if r.Recall.V < 0.8 || r.Accuracy.V < 0.95 {
			t.Errorf("%s: accuracy %v recall %v", name, r.Accuracy, r.Recall)
		}
	}
}
