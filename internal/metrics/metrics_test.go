package metrics

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.yaml.in/yaml/v3"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

func TestEvaluateCounts(t *testing.T) {
	yTrue := []int{0, 0, 0, 0, 1, 1, 1, 0, 1, 0}
	yPred := []int{0, 1, 0, 0, 1, 0, 1, 0, 1, 1}
	r, err := Evaluate(yTrue, yPred, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Confusion{TN: 4, FP: 2, FN: 1, TP: 3}, r.Confusion); diff != "" {
		t.Errorf("confusion (-want +got):\n%s", diff)
	}
	checks := []struct {
		name string
		got  Value
		want float64
	}{
		{"accuracy", r.Accuracy, 0.7},
		{"precision", r.Precision, 0.6},
		{"recall", r.Recall, 0.75},
		{"f1", r.F1, 2 * 0.6 * 0.75 / 1.35},
	}
	for _, c := range checks {
		if !c.got.Defined || math.Abs(c.got.V-c.want) > 1e-12 {
			t.Errorf("%s = %+v, want %v", c.name, c.got, c.want)
		}
	}
	if r.ROCAUC.Defined {
		t.Errorf("ROC-AUC defined without probabilities: %+v", r.ROCAUC)
	}
}

func TestEvaluateIdentities(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(200)
		yTrue := make([]int, n)
		yPred := make([]int, n)
		for i := range yTrue {
			yTrue[i] = rng.Intn(2)
			yPred[i] = rng.Intn(2)
		}
		r, err := Evaluate(yTrue, yPred, nil)
		if err != nil {
			t.Fatal(err)
		}
		c := r.Confusion
		if c.Total() != n {
			t.Fatalf("counts sum to %d, want %d", c.Total(), n)
		}
		if want := float64(c.TP+c.TN) / float64(n); r.Accuracy.V != want {
			t.Fatalf("accuracy %v, want %v", r.Accuracy.V, want)
		}
	}
}

func TestEvaluateUndefined(t *testing.T) {
	// no positive predictions and no positive samples
	r, err := Evaluate([]int{0, 0, 0}, []int{0, 0, 0}, []float64{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatal(err)
	}
	for name, v := range map[string]Value{"precision": r.Precision, "recall": r.Recall, "f1": r.F1, "roc_auc": r.ROCAUC} {
		if v.Defined || v.Reason == "" || !math.IsNaN(v.V) {
			t.Errorf("%s = %+v, want undefined with a reason", name, v)
		}
	}
	if !r.Accuracy.Defined || r.Accuracy.V != 1 {
		t.Errorf("accuracy = %+v, want 1", r.Accuracy)
	}

	// precision and recall both zero
	r, err = Evaluate([]int{1, 0}, []int{0, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Precision.Defined || !r.Recall.Defined || r.F1.Defined {
		t.Errorf("got precision %+v recall %+v f1 %+v", r.Precision, r.Recall, r.F1)
	}
}

func TestEvaluateROCAUC(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []int
		proba []float64
		want  float64
	}{
		{"perfect", []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, 1},
		{"inverted", []int{0, 0, 1, 1}, []float64{0.9, 0.8, 0.2, 0.1}, 0},
		{"partial", []int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"ties", []int{0, 1, 1, 0, 0}, []float64{0.3, 0.3, 0.7, 0.7, 0.3}, 7.0 / 12},
	}
	for _, tt := range tests {
		yPred := make([]int, len(tt.proba))
		for i, p := range tt.proba {
			if p >= 0.5 {
				yPred[i] = 1
			}
		}
		r, err := Evaluate(tt.yTrue, yPred, tt.proba)
		if err != nil {
			t.Fatal(err)
		}
		if !r.ROCAUC.Defined || math.Abs(r.ROCAUC.V-tt.want) > 1e-12 {
			t.Errorf("%s: ROC-AUC = %+v, want %v", tt.name, r.ROCAUC, tt.want)
		}
		first, last := r.ROC[0], r.ROC[len(r.ROC)-1]
		if first != (Point{0, 0}) || last != (Point{1, 1}) {
			t.Errorf("%s: curve runs from %v to %v", tt.name, first, last)
		}
	}
}

func TestEvaluateShapeMismatch(t *testing.T) {
	if _, err := Evaluate([]int{0, 1}, []int{0}, nil); !apperr.IsShapeMismatch(err) {
		t.Errorf("predictions: expected shape mismatch, got %v", err)
	}
	if _, err := Evaluate([]int{0, 1}, []int{0, 1}, []float64{0.5}); !apperr.IsShapeMismatch(err) {
		t.Errorf("probabilities: expected shape mismatch, got %v", err)
	}
	if _, err := Evaluate([]int{2}, []int{0}, nil); !apperr.IsConfiguration(err) {
		t.Errorf("bad label: expected configuration error, got %v", err)
	}
}

func TestValueEncoding(t *testing.T) {
	r, err := Evaluate([]int{0, 0}, []int{0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["precision"] != nil || decoded["accuracy"] != 1.0 {
		t.Errorf("json = %s", b)
	}

	y, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var back map[string]any
	if err := yaml.Unmarshal(y, &back); err != nil {
		t.Fatal(err)
	}
	if back["recall"] != nil {
		t.Errorf("yaml recall = %v, want null", back["recall"])
	}
	if got := r.Precision.String(); got != "undefined" {
		t.Errorf("String = %q", got)
	}
}
