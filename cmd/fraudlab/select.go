package main

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
	"github.com/FlavioCFOliveira/GoFraud/internal/report"
	"github.com/FlavioCFOliveira/GoFraud/internal/selection"
)

func newSelectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Rank feature columns and show the selected subset",
		Args:  cobra.NoArgs,
		RunE:  a.selectFeatures,
	}
	f := cmd.Flags()
	f.String("strategy", "chi2", "chi2, fregression, tree, correlation, manual or none")
	f.Int("k", 10, "columns kept by ranking strategies")
	f.StringSlice("exclude", nil, "columns dropped by the manual strategy")
	f.Int("trees", 100, "trees of the importance ensemble")
	f.Bool("correlation", false, "include the feature/label correlation matrix")
	return cmd
}

func (a *app) selectFeatures(cmd *cobra.Command, args []string) error {
	ds, err := a.dataset()
	if err != nil {
		return err
	}
	sel := a.cfg.PipelineSelection()
	if sel.Strategy == "none" {
		sel.Strategy = "chi2"
	}
	var (
		fs     selection.FeatureSet
		ranked []selection.Ranked
	)
	if ranking(sel.Strategy) {
		selector, err := selection.New(sel.Strategy, sel.Trees, a.cfg.Seed)
		if err != nil {
			return err
		}
		if ranked, err = selection.Rank(selector, ds); err != nil {
			return err
		}
		fs = selection.Top(selector.Name(), ranked, sel.K)
	} else {
		if fs, err = pipeline.SelectFeatures(ds, sel, a.cfg.SeedPtr()); err != nil {
			return err
		}
		for j, c := range fs.Columns {
			ranked = append(ranked, selection.Ranked{Column: c, Index: j, Score: math.NaN(), PValue: math.NaN()})
		}
	}
	r := report.NewRanking(ranked, fs)

	if on, _ := cmd.Flags().GetBool("correlation"); on {
		c, err := selection.CorrelationMatrix(ds, a.cfg.Data.Label)
		if err != nil {
			return err
		}
		r.Correlation = report.NewMatrix(c)
	}

	w, closeFn, err := a.output(cmd)
	if err != nil {
		return err
	}
	if err := report.Features(w, r, report.Format(a.cfg.Output.Format)); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

// ranking reports whether strategy scores columns rather than listing them.
func ranking(strategy string) bool {
	switch strategy {
	case "", "none", "all", "manual":
		return false
	}
	return true
}
