// Package selection scores feature columns by relevance to the label and
// picks the top-k of them.
package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
)

// Selector scores every feature column of a Dataset. Higher is more relevant.
// Scoring never modifies the Dataset.
type Selector interface {
	Name() string
	Score(ds *dataset.Dataset) ([]float64, error)
}

// Tester is implemented by selectors backed by a statistical test.
type Tester interface {
	Test(ds *dataset.Dataset) (scores, pValues []float64, err error)
}

// FeatureSet is an ordered, duplicate-free subset of a Dataset's columns,
// most relevant first.
type FeatureSet struct {
	Strategy string    `json:"strategy" yaml:"strategy"`
	Columns  []string  `json:"columns" yaml:"columns"`
	Scores   []float64 `json:"scores,omitempty" yaml:"scores,omitempty"`
	PValues  []float64 `json:"p_values,omitempty" yaml:"p_values,omitempty"`
}

// Len returns the number of selected columns.
func (fs FeatureSet) Len() int { return len(fs.Columns) }

// Ranked is one column with its score and optional p-value.
type Ranked struct {
	Column string
	Index  int
	Score  float64
	PValue float64
}

// Rank scores every column and orders them by descending score. Ties keep the
// original column order; NaN scores rank last.
func Rank(sel Selector, ds *dataset.Dataset) ([]Ranked, error) {
	var scores, pvals []float64
	var err error
	if t, ok := sel.(Tester); ok {
		scores, pvals, err = t.Test(ds)
	} else {
		scores, err = sel.Score(ds)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sel.Name(), err)
	}
	if len(scores) != ds.Dim() {
		return nil, apperr.Shape(sel.Name()+" scores", ds.Dim(), len(scores))
	}
	cols := ds.Columns()
	ranked := make([]Ranked, len(cols))
	for j, c := range cols {
		ranked[j] = Ranked{Column: c, Index: j, Score: scores[j], PValue: math.NaN()}
		if pvals != nil {
			ranked[j].PValue = pvals[j]
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return sortKey(ranked[a].Score) > sortKey(ranked[b].Score)
	})
	return ranked, nil
}

func sortKey(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// Select returns the k most relevant columns of ds according to sel.
// k larger than the number of columns is clamped; k <= 0 is a configuration error.
func Select(sel Selector, ds *dataset.Dataset, k int) (FeatureSet, error) {
	if k <= 0 {
		return FeatureSet{}, apperr.Configf("k", "must be positive, got %d", k)
	}
	ranked, err := Rank(sel, ds)
	if err != nil {
		return FeatureSet{}, err
	}
	return Top(sel.Name(), ranked, k), nil
}

// Top keeps the first k entries of a Rank result.
func Top(strategy string, ranked []Ranked, k int) FeatureSet {
	if k > len(ranked) {
		logger.Debug("clamping k to the available feature count")
		k = len(ranked)
	}
	fs := FeatureSet{Strategy: strategy}
	withP := false
	for _, r := range ranked[:max(k, 0)] {
		fs.Columns = append(fs.Columns, r.Column)
		fs.Scores = append(fs.Scores, r.Score)
		if !math.IsNaN(r.PValue) {
			withP = true
		}
		fs.PValues = append(fs.PValues, r.PValue)
	}
	if !withP {
		fs.PValues = nil
	}
	return fs
}

// All returns a FeatureSet holding every column of ds, in order.
func All(ds *dataset.Dataset) FeatureSet {
	return FeatureSet{Strategy: "all", Columns: ds.Columns()}
}

// Exclude returns every column of ds except the named ones, in original order.
// Naming an unknown column is a configuration error.
func Exclude(ds *dataset.Dataset, exclude []string) (FeatureSet, error) {
	drop := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		if _, ok := ds.ColumnIndex(c); !ok {
			return FeatureSet{}, apperr.Configf("exclude", "unknown column %q", c)
		}
		drop[c] = true
	}
	fs := FeatureSet{Strategy: "manual"}
	for _, c := range ds.Columns() {
		if !drop[c] {
			fs.Columns = append(fs.Columns, c)
		}
	}
	if len(fs.Columns) == 0 {
		return FeatureSet{}, apperr.Configf("exclude", "excludes every column")
	}
	return fs, nil
}

// ManualTopTen is the hand-picked exclusion list of the reference experiment:
// dropping these leaves Time, V3, V4, V7, V10, V11, V12, V14..V18 and Amount.
var ManualTopTen = []string{
	"V1", "V2", "V5", "V6", "V8", "V9", "V13", "V19", "V20",
	"V21", "V22", "V23", "V24", "V25", "V26", "V27", "V28",
}
