// Package metrics scores binary predictions against ground truth.
package metrics

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

// Value is a metric that may be undefined for the given inputs, e.g.
// precision with no positive predictions. Undefined values are never
// reported as zero.
type Value struct {
	V       float64
	Defined bool
	Reason  string
}

func defined(v float64) Value { return Value{V: v, Defined: true} }

func undefined(reason string) Value { return Value{V: math.NaN(), Reason: reason} }

// String formats the value with four decimals, or "undefined".
func (v Value) String() string {
	if !v.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(v.V, 'f', 4, 64)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

// MarshalYAML encodes undefined values as null.
func (v Value) MarshalYAML() (any, error) {
	if !v.Defined {
		return nil, nil
	}
	return v.V, nil
}

// Confusion is the 2x2 cross-tabulation of true and predicted labels.
type Confusion struct {
	TN int `json:"tn" yaml:"tn"`
	FP int `json:"fp" yaml:"fp"`
	FN int `json:"fn" yaml:"fn"`
	TP int `json:"tp" yaml:"tp"`
}

// Total returns the number of scored samples.
func (c Confusion) Total() int { return c.TN + c.FP + c.FN + c.TP }

// Grid returns the matrix with true labels as rows and predictions as columns.
func (c Confusion) Grid() [2][2]int {
	return [2][2]int{{c.TN, c.FP}, {c.FN, c.TP}}
}

// Point is one (false positive rate, true positive rate) pair of a ROC curve.
type Point struct {
	FPR float64 `json:"fpr" yaml:"fpr"`
	TPR float64 `json:"tpr" yaml:"tpr"`
}

// Result holds every metric of one evaluation.
type Result struct {
	Accuracy  Value     `json:"accuracy" yaml:"accuracy"`
	Precision Value     `json:"precision" yaml:"precision"`
	Recall    Value     `json:"recall" yaml:"recall"`
	F1        Value     `json:"f1" yaml:"f1"`
	ROCAUC    Value     `json:"roc_auc" yaml:"roc_auc"`
	Confusion Confusion `json:"confusion" yaml:"confusion"`
	ROC       []Point   `json:"roc,omitempty" yaml:"roc,omitempty"`
	// ProbabilitySource says how the scores behind ROCAUC were produced:
	// "native", "approximate" or "none". Set by the caller.
	ProbabilitySource string `json:"probability_source,omitempty" yaml:"probability_source,omitempty"`
}

// Evaluate computes the confusion matrix and derived metrics. proba may be
// nil, in which case ROC-AUC is undefined.
func Evaluate(yTrue, yPred []int, proba []float64) (Result, error) {
	if len(yPred) != len(yTrue) {
		return Result{}, apperr.Shape("predictions", len(yTrue), len(yPred))
	}
	if proba != nil && len(proba) != len(yTrue) {
		return Result{}, apperr.Shape("probabilities", len(yTrue), len(proba))
	}

	var c Confusion
	for i, y := range yTrue {
		p := yPred[i]
		if (y != 0 && y != 1) || (p != 0 && p != 1) {
			return Result{}, apperr.Configf("labels", "sample %d has label %d and prediction %d, want 0 or 1", i, y, p)
		}
		switch {
		case y == 1 && p == 1:
			c.TP++
		case y == 1:
			c.FN++
		case p == 1:
			c.FP++
		default:
			c.TN++
		}
	}

	r := Result{Confusion: c}
	total := c.Total()
	if total == 0 {
		r.Accuracy = undefined("no samples")
	} else {
		r.Accuracy = defined(float64(c.TP+c.TN) / float64(total))
	}
	r.Precision = ratio(c.TP, c.TP+c.FP, "no positive predictions")
	r.Recall = ratio(c.TP, c.TP+c.FN, "no positive samples")
	r.F1 = f1(r.Precision, r.Recall)
	r.ROCAUC, r.ROC = rocAUC(yTrue, proba)
	return r, nil
}

func ratio(num, den int, reason string) Value {
	if den == 0 {
		return undefined(reason)
	}
	return defined(float64(num) / float64(den))
}

func f1(p, r Value) Value {
	switch {
	case !p.Defined:
		return undefined("precision " + p.Reason)
	case !r.Defined:
		return undefined("recall " + r.Reason)
	case p.V+r.V == 0:
		return undefined("precision and recall are both zero")
	}
	return defined(2 * p.V * r.V / (p.V + r.V))
}

// rocAUC integrates the ROC curve of proba with the trapezoidal rule.
func rocAUC(yTrue []int, proba []float64) (Value, []Point) {
	if proba == nil {
		return undefined("no probability scores"), nil
	}
	y := make([]float64, len(proba))
	classes := make([]bool, len(proba))
	var pos, neg int
	for i, p := range proba {
		if math.IsNaN(p) {
			return undefined("probability scores contain NaN"), nil
		}
		y[i] = p
		classes[i] = yTrue[i] == 1
		if classes[i] {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return undefined("only one class present"), nil
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	points := make([]Point, len(tpr))
	for i := range tpr {
		points[i] = Point{FPR: fpr[i], TPR: tpr[i]}
	}
	return defined(integrate.Trapezoidal(fpr, tpr)), points
}
