// Package dataset provides the immutable in-memory transaction table the
// pipeline stages read from, plus the pure functions deriving views of it.
package dataset

import (
	"strconv"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

// Label values.
const (
	Legitimate = 0
	Fraud      = 1
)

// Dataset is an ordered collection of rows: a fixed-size feature vector and a
// binary label per row. A Dataset is never modified after construction; every
// view (projection, subset) is a new Dataset sharing read-only row storage.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]float64
	labels  []int
}

// New validates and copies the given table.
// Every row must have len(columns) values and every label must be 0 or 1.
func New(columns []string, rows [][]float64, labels []int) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, apperr.Configf("columns", "dataset needs at least one feature column")
	}
	if len(rows) != len(labels) {
		return nil, apperr.Configf("labels", "%d rows but %d labels", len(rows), len(labels))
	}
	index := make(map[string]int, len(columns))
	for j, c := range columns {
		if _, dup := index[c]; dup {
			return nil, apperr.Configf("columns", "duplicate column %q", c)
		}
		index[c] = j
	}

	data := make([]float64, len(rows)*len(columns))
	own := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, apperr.Shape("row "+strconv.Itoa(i), len(columns), len(r))
		}
		own[i] = data[i*len(columns) : (i+1)*len(columns) : (i+1)*len(columns)]
		copy(own[i], r)
	}
	lbl := make([]int, len(labels))
	for i, y := range labels {
		if y != Legitimate && y != Fraud {
			return nil, apperr.Configf("labels", "row %d has label %d, want 0 or 1", i, y)
		}
		lbl[i] = y
	}

	return &Dataset{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    own,
		labels:  lbl,
	}, nil
}

// view builds a Dataset over already validated storage.
func (d *Dataset) view(columns []string, index map[string]int, rows [][]float64, labels []int) *Dataset {
	return &Dataset{columns: columns, index: index, rows: rows, labels: labels}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Dim returns the feature dimensionality.
func (d *Dataset) Dim() int { return len(d.columns) }

// Columns returns a copy of the feature column names.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// ColumnIndex returns the position of the named feature column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	j, ok := d.index[name]
	return j, ok
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []float64 { return append([]float64(nil), d.rows[i]...) }

// Label returns the label of row i.
func (d *Dataset) Label(i int) int { return d.labels[i] }

// Labels returns a copy of the label column.
func (d *Dataset) Labels() []int { return append([]int(nil), d.labels...) }

// Features returns the feature rows. The outer slice is fresh but the rows are
// shared with the Dataset and must be treated as read-only.
func (d *Dataset) Features() [][]float64 { return append([][]float64(nil), d.rows...) }

// Column returns a copy of feature column j.
func (d *Dataset) Column(j int) []float64 {
	out := make([]float64, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[j]
	}
	return out
}

// LabelsFloat returns the label column as float64 values.
func (d *Dataset) LabelsFloat() []float64 {
	out := make([]float64, len(d.labels))
	for i, y := range d.labels {
		out[i] = float64(y)
	}
	return out
}

// ClassCounts returns the number of legitimate and fraudulent rows.
func (d *Dataset) ClassCounts() (legit, fraud int) {
	for _, y := range d.labels {
		if y == Fraud {
			fraud++
		} else {
			legit++
		}
	}
	return legit, fraud
}

// ClassIndices returns the row indices of each class, in row order.
func (d *Dataset) ClassIndices() (legit, fraud []int) {
	for i, y := range d.labels {
		if y == Fraud {
			fraud = append(fraud, i)
		} else {
			legit = append(legit, i)
		}
	}
	return legit, fraud
}

// Project returns a view restricted to the named columns, in the given order.
func (d *Dataset) Project(columns []string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, apperr.Configf("features", "projection needs at least one column")
	}
	pos := make([]int, len(columns))
	index := make(map[string]int, len(columns))
	for k, c := range columns {
		j, ok := d.index[c]
		if !ok {
			return nil, apperr.Configf("features", "unknown column %q", c)
		}
		if _, dup := index[c]; dup {
			return nil, apperr.Configf("features", "duplicate column %q", c)
		}
		index[c] = k
		pos[k] = j
	}
	rows := make([][]float64, len(d.rows))
	data := make([]float64, len(d.rows)*len(pos))
	for i, r := range d.rows {
		row := data[i*len(pos) : (i+1)*len(pos) : (i+1)*len(pos)]
		for k, j := range pos {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return d.view(append([]string(nil), columns...), index, rows, d.labels), nil
}

// Subset returns a view of the given rows, in the given order. Indices may repeat.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	rows := make([][]float64, len(indices))
	labels := make([]int, len(indices))
	for k, i := range indices {
		if i < 0 || i >= len(d.rows) {
			return nil, apperr.Configf("indices", "row %d out of range [0,%d)", i, len(d.rows))
		}
		rows[k] = d.rows[i]
		labels[k] = d.labels[i]
	}
	return d.view(d.columns, d.index, rows, labels), nil
}
