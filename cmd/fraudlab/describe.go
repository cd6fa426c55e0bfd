package main

import (
	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/report"
)

func newDescribeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarise class balance and column statistics",
		Args:  cobra.NoArgs,
		RunE:  a.describe,
	}
	cmd.Flags().String("histogram", "Amount", "column to bucket, empty disables")
	cmd.Flags().Int("bins", 20, "histogram buckets")
	return cmd
}

func (a *app) describe(cmd *cobra.Command, args []string) error {
	ds, err := a.dataset()
	if err != nil {
		return err
	}
	d := report.Description{Summary: dataset.Describe(ds)}
	if col, _ := cmd.Flags().GetString("histogram"); col != "" {
		if _, ok := ds.ColumnIndex(col); !ok {
			return apperr.Configf("histogram", "unknown column %q", col)
		}
		bins, _ := cmd.Flags().GetInt("bins")
		if bins < 1 {
			return apperr.Configf("bins", "must be positive, got %d", bins)
		}
		d.Column, d.Histogram = col, dataset.Histogram(ds, col, bins)
	}

	w, closeFn, err := a.output(cmd)
	if err != nil {
		return err
	}
	if err := report.Describe(w, d, report.Format(a.cfg.Output.Format)); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
