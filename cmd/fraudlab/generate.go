package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic transactions as CSV",
		Long:  "Generate writes --rows transactions, --frauds of them fraudulent, with the Time, V1..V28, Amount and label columns. Use --output to write a file.",
		Args:  cobra.NoArgs,
		RunE:  a.generate,
	}
}

func (a *app) generate(cmd *cobra.Command, args []string) error {
	syn := a.cfg.Data.Synthetic
	ds, err := dataset.Synthetic(dataset.SyntheticOptions{
		Rows: syn.Rows, Frauds: syn.Frauds, Seed: seed.Value(a.cfg.SeedPtr()),
	})
	if err != nil {
		return err
	}
	w, closeFn, err := a.output(cmd)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(w, ds, a.cfg.Data.Label); err != nil {
		_ = closeFn()
		return err
	}
	a.log.Info("synthetic transactions written", zap.Int("rows", ds.Len()), zap.Int("frauds", syn.Frauds))
	return closeFn()
}
