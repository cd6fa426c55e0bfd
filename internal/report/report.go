// Package report renders run results, dataset summaries and feature
// rankings as a text table, YAML or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.yaml.in/yaml/v3"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/metrics"
	"github.com/FlavioCFOliveira/GoFraud/internal/net"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
	"github.com/FlavioCFOliveira/GoFraud/internal/selection"
)

// Format names an output encoding.
type Format string

const (
	Table Format = "table"
	YAML  Format = "yaml"
	JSON  Format = "json"
)

// ParseFormat accepts table, yaml (or yml) and json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Table, YAML, JSON:
		return f, nil
	case "yml":
		return YAML, nil
	default:
		return "", apperr.Configf("output.format", "unknown format %q (want table, yaml or json)", s)
	}
}

// Options selects the optional chart data included in a report.
type Options struct {
	Format    Format
	ROC       bool // include ROC curve points (YAML/JSON only)
	Confusion bool // include the confusion grid
}

// Feature is one selected or ranked column. Non-finite numbers encode as null.
type Feature struct {
	Column string   `json:"column" yaml:"column"`
	Score  *float64 `json:"score" yaml:"score"`
	PValue *float64 `json:"p_value,omitempty" yaml:"p_value,omitempty"`
}

// Record is the encoded form of one run.
type Record struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Model      string          `json:"model" yaml:"model"`
	Strategy   string          `json:"strategy" yaml:"strategy"`
	Features   []Feature       `json:"features" yaml:"features"`
	Balanced   bool            `json:"balanced" yaml:"balanced"`
	Train      pipeline.Counts `json:"train" yaml:"train"`
	Test       pipeline.Counts `json:"test" yaml:"test"`
	Metrics    metrics.Result  `json:"metrics" yaml:"metrics"`
	Grid       *[2][2]int      `json:"confusion_grid,omitempty" yaml:"confusion_grid,omitempty"`
	Validation *metrics.Result `json:"validation,omitempty" yaml:"validation,omitempty"`
	History    *net.History    `json:"history,omitempty" yaml:"history,omitempty"`
	Elapsed    string          `json:"elapsed" yaml:"elapsed"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func featuresOf(fs selection.FeatureSet) []Feature {
	out := make([]Feature, len(fs.Columns))
	for i, c := range fs.Columns {
		out[i].Column = c
		if i < len(fs.Scores) {
			out[i].Score = finite(fs.Scores[i])
		}
		if i < len(fs.PValues) {
			out[i].PValue = finite(fs.PValues[i])
		}
	}
	return out
}

// Records converts results to their encoded form, dropping chart data that
// opts does not ask for.
func Records(results []pipeline.Result, opts Options) []Record {
	out := make([]Record, len(results))
	for i, r := range results {
		rec := Record{
			ID: r.ID, Name: r.Name, Model: r.Model,
			Strategy: r.Features.Strategy, Features: featuresOf(r.Features),
			Balanced: r.Balanced, Train: r.Train, Test: r.Test,
			Metrics: r.Metrics, History: r.History,
			Elapsed: r.Duration.Round(time.Millisecond).String(),
		}
		if r.Validation != nil {
			v := *r.Validation
			rec.Validation = &v
		}
		if !opts.ROC {
			rec.Metrics.ROC = nil
			if rec.Validation != nil {
				rec.Validation.ROC = nil
			}
		}
		if opts.Confusion {
			g := r.Metrics.Confusion.Grid()
			rec.Grid = &g
		}
		out[i] = rec
	}
	return out
}

// Results writes one entry per run.
func Results(w io.Writer, results []pipeline.Result, opts Options) error {
	if opts.Format != Table {
		return encode(w, opts.Format, map[string]any{"runs": Records(results, opts)})
	}
	t := newTable(w, "Run", "Features", "Train L/F", "Test L/F",
		"Accuracy", "Precision", "Recall", "F1", "ROC-AUC", "Probabilities")
	for _, r := range results {
		t.Append(metricRow(r.Name, r.Features.Len(), r.Train, r.Test, r.Metrics))
		if r.Validation != nil {
			t.Append(metricRow(r.Name+" (validation)", r.Features.Len(), pipeline.Counts{},
				validationCounts(r.Validation.Confusion), *r.Validation))
		}
	}
	t.Render()
	if !opts.Confusion {
		return nil
	}
	for _, r := range results {
		if err := confusion(w, r.Name, r.Metrics.Confusion); err != nil {
			return err
		}
	}
	return nil
}

func metricRow(name string, features int, train, test pipeline.Counts, m metrics.Result) []string {
	src := m.ProbabilitySource
	if src == "" {
		src = "-"
	}
	return []string{
		name, strconv.Itoa(features), counts(train), counts(test),
		m.Accuracy.String(), m.Precision.String(), m.Recall.String(), m.F1.String(), m.ROCAUC.String(), src,
	}
}

func validationCounts(c metrics.Confusion) pipeline.Counts {
	return pipeline.Counts{Legitimate: c.TN + c.FP, Fraud: c.FN + c.TP}
}

func counts(c pipeline.Counts) string {
	if c == (pipeline.Counts{}) {
		return "-"
	}
	return fmt.Sprintf("%d/%d", c.Legitimate, c.Fraud)
}

func confusion(w io.Writer, name string, c metrics.Confusion) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", name); err != nil {
		return err
	}
	g := c.Grid()
	t := newTable(w, "", "Predicted legitimate", "Predicted fraud")
	t.Append([]string{"Legitimate", strconv.Itoa(g[0][0]), strconv.Itoa(g[0][1])})
	t.Append([]string{"Fraud", strconv.Itoa(g[1][0]), strconv.Itoa(g[1][1])})
	t.Render()
	return nil
}

// Description is the encoded form of the describe command.
type Description struct {
	Summary   dataset.Summary `json:"summary" yaml:"summary"`
	Histogram []dataset.Bin   `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	Column    string          `json:"histogram_column,omitempty" yaml:"histogram_column,omitempty"`
}

// Describe writes a dataset summary and an optional histogram.
func Describe(w io.Writer, d Description, format Format) error {
	if format != Table {
		return encode(w, format, d)
	}
	s := d.Summary
	if _, err := fmt.Fprintf(w, "rows: %d  legitimate: %d  fraud: %d  fraud ratio: %.4f%%\n\n",
		s.Rows, s.Legitimate, s.Fraud, s.FraudRatio*100); err != nil {
		return err
	}
	t := newTable(w, "Column", "Mean", "Std", "Min", "Max")
	for _, c := range s.Columns {
		t.Append([]string{c.Name, num(c.Mean), num(c.Std), num(c.Min), num(c.Max)})
	}
	t.Render()
	if len(d.Histogram) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%s histogram\n", d.Column); err != nil {
		return err
	}
	h := newTable(w, "From", "To", "Count")
	for _, b := range d.Histogram {
		h.Append([]string{num(b.Lo), num(b.Hi), strconv.FormatFloat(b.Count, 'f', -1, 64)})
	}
	h.Render()
	return nil
}

// Ranking is the encoded form of the select command.
type Ranking struct {
	Strategy    string    `json:"strategy" yaml:"strategy"`
	Ranked      []Feature `json:"ranked" yaml:"ranked"`
	Selected    []string  `json:"selected" yaml:"selected"`
	Correlation *Matrix   `json:"correlation,omitempty" yaml:"correlation,omitempty"`
}

// Matrix is a labelled square matrix; undefined cells encode as null.
type Matrix struct {
	Names  []string     `json:"names" yaml:"names"`
	Values [][]*float64 `json:"values" yaml:"values"`
}

// NewRanking builds a Ranking from ranked columns and the chosen FeatureSet.
func NewRanking(ranked []selection.Ranked, fs selection.FeatureSet) Ranking {
	r := Ranking{Strategy: fs.Strategy, Selected: fs.Columns}
	for _, c := range ranked {
		r.Ranked = append(r.Ranked, Feature{Column: c.Column, Score: finite(c.Score), PValue: finite(c.PValue)})
	}
	return r
}

// NewMatrix converts a correlation matrix.
func NewMatrix(c selection.Correlation) *Matrix {
	m := &Matrix{Names: c.Names, Values: make([][]*float64, len(c.Values))}
	for i, row := range c.Values {
		m.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			m.Values[i][j] = finite(v)
		}
	}
	return m
}

// Features writes a feature ranking with the selected columns marked, and
// the correlation matrix when present.
func Features(w io.Writer, r Ranking, format Format) error {
	if format != Table {
		return encode(w, format, r)
	}
	chosen := make(map[string]bool, len(r.Selected))
	for _, c := range r.Selected {
		chosen[c] = true
	}
	t := newTable(w, "Rank", "Column", "Score", "P-value", "Selected")
	for i, c := range r.Ranked {
		mark := ""
		if chosen[c.Column] {
			mark = "*"
		}
		t.Append([]string{strconv.Itoa(i + 1), c.Column, optional(c.Score, 'f'), optional(c.PValue, 'g'), mark})
	}
	t.Render()
	if _, err := fmt.Fprintf(w, "%s selected %d of %d columns\n", r.Strategy, len(r.Selected), len(r.Ranked)); err != nil {
		return err
	}
	if r.Correlation == nil {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\ncorrelation"); err != nil {
		return err
	}
	m := newTable(w, append([]string{""}, r.Correlation.Names...)...)
	for i, row := range r.Correlation.Values {
		cells := []string{r.Correlation.Names[i]}
		for _, v := range row {
			cells = append(cells, optional(v, 'f'))
		}
		m.Append(cells)
	}
	m.Render()
	return nil
}

func optional(v *float64, fmtc byte) string {
	if v == nil {
		return "-"
	}
	if fmtc == 'g' {
		return strconv.FormatFloat(*v, 'g', 4, 64)
	}
	return num(*v)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func encode(w io.Writer, format Format, v any) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return apperr.Configf("output.format", "unknown format %q", format)
	}
}
