package dataset

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
)

// DefaultLabelColumn is the label column of the credit-card transactions table.
const DefaultLabelColumn = "Class"

// LoadFile loads a delimited transactions table from disk.
func LoadFile(filename, labelColumn string) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ds, err := LoadCSV(file, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return ds, nil
}

// LoadCSV reads a CSV table with a header row. Every column other than
// labelColumn becomes a feature column, in file order.
func LoadCSV(r io.Reader, labelColumn string) (*Dataset, error) {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", df.Err)
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	var columns []string
	var values [][]float64
	var label []float64
	for _, name := range df.Names() {
		col := df.Col(name)
		if col.Err != nil {
			return nil, fmt.Errorf("column %q: %w", name, col.Err)
		}
		if name == labelColumn {
			label = col.Float()
			continue
		}
		columns = append(columns, name)
		values = append(values, col.Float())
	}
	if label == nil {
		return nil, apperr.Configf("label_column", "column %q not found", labelColumn)
	}

	rows := make([][]float64, df.Nrow())
	labels := make([]int, df.Nrow())
	for i := range rows {
		row := make([]float64, len(columns))
		for j := range columns {
			v := values[j][i]
			if math.IsNaN(v) {
				return nil, fmt.Errorf("failed to parse value at row %d, column %q", i+1, columns[j])
			}
			row[j] = v
		}
		rows[i] = row
		labels[i] = int(label[i])
		if float64(labels[i]) != label[i] {
			return nil, apperr.Configf("labels", "row %d has non-integer label %v", i+1, label[i])
		}
	}
	return New(columns, rows, labels)
}

// WriteCSV writes d as a CSV table with the label in labelColumn as the last column.
func WriteCSV(w io.Writer, d *Dataset, labelColumn string) error {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	cols := make([]series.Series, 0, d.Dim()+1)
	for j, name := range d.columns {
		cols = append(cols, series.New(d.Column(j), series.Float, name))
	}
	cols = append(cols, series.New(d.Labels(), series.Int, labelColumn))
	df := dataframe.New(cols...)
	if df.Err != nil {
		return fmt.Errorf("build dataframe: %w", df.Err)
	}
	return df.WriteCSV(w)
}
