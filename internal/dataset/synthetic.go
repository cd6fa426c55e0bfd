package dataset

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

// TransactionColumns returns the feature columns of the credit-card transactions table:
// Time, V1..V28, Amount.
func TransactionColumns() []string {
	cols := make([]string, 0, 30)
	cols = append(cols, "Time")
	for i := 1; i <= 28; i++ {
		cols = append(cols, "V"+strconv.Itoa(i))
	}
	return append(cols, "Amount")
}

// fraudShift is the mean offset of the principal components that separate
// fraudulent transactions in the real data.
var fraudShift = map[string]float64{
	"V1": -2.5, "V2": 2.0, "V3": -4.0, "V4": 3.5, "V7": -3.0,
	"V10": -4.5, "V11": 3.0, "V12": -5.0, "V14": -6.0, "V16": -3.5, "V17": -5.5,
}

// SyntheticOptions configures Synthetic.
type SyntheticOptions struct {
	Rows   int   // total number of rows
	Frauds int   // exact number of fraudulent rows
	Seed   int64 // random seed
}

// Synthetic generates a table with the transactions schema. Legitimate rows
// draw every component from N(0,1); fraudulent rows shift a fixed set of
// components, spend more and cluster at night.
func Synthetic(opts SyntheticOptions) (*Dataset, error) {
	if opts.Rows <= 0 {
		return nil, apperr.Configf("rows", "must be positive, got %d", opts.Rows)
	}
	if opts.Frauds < 0 || opts.Frauds > opts.Rows {
		return nil, apperr.Configf("frauds", "must be in [0,%d], got %d", opts.Rows, opts.Frauds)
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	cols := TransactionColumns()

	labels := make([]int, opts.Rows)
	for _, i := range rng.Perm(opts.Rows)[:opts.Frauds] {
		labels[i] = Fraud
	}

	rows := make([][]float64, opts.Rows)
	for i := range rows {
		fraud := labels[i] == Fraud
		row := make([]float64, len(cols))
		for j, c := range cols {
			switch c {
			case "Time":
				hour := 7 + rng.Float64()*15
				if fraud {
					hour = rng.Float64() * 6
				}
				day := float64(rng.Intn(2))
				row[j] = math.Round((day*24 + hour) * 3600)
			case "Amount":
				mu := 3.0
				if fraud {
					mu = 4.5
				}
				row[j] = math.Round(math.Exp(mu+rng.NormFloat64())*100) / 100
			default:
				v := rng.NormFloat64()
				if fraud {
					v = v*1.5 + fraudShift[c]
				}
				row[j] = v
			}
		}
		rows[i] = row
	}
	return New(cols, rows, labels)
}
