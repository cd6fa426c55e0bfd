// Package preprocess provides column scalers fit on the rows they are given,
// never on data from outside that set.
package preprocess

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

// MinMaxScaler maps each column linearly onto [0, 1].
type MinMaxScaler struct {
	Min []float64
	Max []float64
}

// FitMinMax computes per-column minimum and maximum of X.
func FitMinMax(X [][]float64) (*MinMaxScaler, error) {
	cols, err := columns(X)
	if err != nil {
		return nil, err
	}
	s := &MinMaxScaler{Min: make([]float64, len(cols)), Max: make([]float64, len(cols))}
	for j, c := range cols {
		s.Min[j] = floats.Min(c)
		s.Max[j] = floats.Max(c)
	}
	return s, nil
}

// Transform scales X. Constant columns map to 0. Values outside the fitted
// range are clipped so the output always lies in [0, 1].
func (s *MinMaxScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Min) {
			return nil, apperr.Shape("features", len(s.Min), len(row))
		}
		r := make([]float64, len(row))
		for j, v := range row {
			span := s.Max[j] - s.Min[j]
			if span == 0 {
				continue
			}
			r[j] = math.Min(1, math.Max(0, (v-s.Min[j])/span))
		}
		out[i] = r
	}
	return out, nil
}

// MinMaxScale fits a MinMaxScaler on X and returns the scaled copy.
func MinMaxScale(X [][]float64) ([][]float64, error) {
	s, err := FitMinMax(X)
	if err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// StandardScaler centers each column to zero mean and unit variance.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitStandard computes per-column mean and population standard deviation.
// Constant columns get a unit deviation so they transform to 0.
func FitStandard(X [][]float64) (*StandardScaler, error) {
	cols, err := columns(X)
	if err != nil {
		return nil, err
	}
	s := &StandardScaler{Mean: make([]float64, len(cols)), Std: make([]float64, len(cols))}
	for j, c := range cols {
		mean, variance := stat.PopMeanVariance(c, nil)
		s.Mean[j] = mean
		s.Std[j] = math.Sqrt(variance)
		if s.Std[j] == 0 || math.IsNaN(s.Std[j]) {
			s.Std[j] = 1
		}
	}
	return s, nil
}

// Transform standardizes X.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, apperr.Shape("features", len(s.Mean), len(row))
		}
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = r
	}
	return out, nil
}

// Dim returns the number of columns the scaler was fit on.
func (s *StandardScaler) Dim() int { return len(s.Mean) }

// columns transposes X into per-column slices.
func columns(X [][]float64) ([][]float64, error) {
	if len(X) == 0 {
		return nil, apperr.Configf("rows", "cannot fit a scaler on zero rows")
	}
	d := len(X[0])
	cols := make([][]float64, d)
	for j := range cols {
		cols[j] = make([]float64, len(X))
	}
	for i, row := range X {
		if len(row) != d {
			return nil, apperr.Shape("features", d, len(row))
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	return cols, nil
}
