package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary holds descriptive statistics of one feature column.
type ColumnSummary struct {
	Name string  `json:"name" yaml:"name"`
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// Summary describes class balance and column statistics of a Dataset.
type Summary struct {
	Rows       int             `json:"rows" yaml:"rows"`
	Legitimate int             `json:"legitimate" yaml:"legitimate"`
	Fraud      int             `json:"fraud" yaml:"fraud"`
	FraudRatio float64         `json:"fraud_ratio" yaml:"fraud_ratio"`
	Columns    []ColumnSummary `json:"columns" yaml:"columns"`
}

// Describe computes a Summary of d.
func Describe(d *Dataset) Summary {
	legit, fraud := d.ClassCounts()
	s := Summary{Rows: d.Len(), Legitimate: legit, Fraud: fraud}
	if d.Len() > 0 {
		s.FraudRatio = float64(fraud) / float64(d.Len())
	}
	for j, name := range d.columns {
		col := d.Column(j)
		cs := ColumnSummary{Name: name}
		if len(col) > 0 {
			cs.Mean, cs.Std = stat.MeanStdDev(col, nil)
			if len(col) == 1 {
				cs.Std = 0
			}
			cs.Min = floats.Min(col)
			cs.Max = floats.Max(col)
		}
		s.Columns = append(s.Columns, cs)
	}
	return s
}

// Bin is one histogram bucket [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo" yaml:"lo"`
	Hi    float64 `json:"hi" yaml:"hi"`
	Count float64 `json:"count" yaml:"count"`
}

// Histogram returns bins equal-width buckets over the named column.
// It returns nil when the column is unknown, empty or bins < 1.
func Histogram(d *Dataset, column string, bins int) []Bin {
	j, ok := d.index[column]
	if !ok || bins < 1 || d.Len() == 0 {
		return nil
	}
	x := d.Column(j)
	sort.Float64s(x)
	lo, hi := x[0], x[len(x)-1]
	if hi == lo {
		hi = lo + 1
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// the last bucket must include the maximum
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: counts[i]}
	}
	return out
}
