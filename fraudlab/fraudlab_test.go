package fraudlab_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/FlavioCFOliveira/GoFraud/fraudlab"
)

func TestRunThroughFacade(t *testing.T) {
	ds, err := fraudlab.Synthetic(fraudlab.SyntheticOptions{Rows: 400, Frauds: 40, Seed: 2})
	if err != nil {
		t.Fatal(err)
	}
	s := int64(9)
	res, err := fraudlab.Run(context.Background(), ds, fraudlab.RunSpec{
		Model:     "bayes",
		Balance:   true,
		Seed:      &s,
		Selection: fraudlab.Selection{Strategy: "manual"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Features.Len() != 13 || res.Metrics.Confusion.Total() != 80 {
		t.Errorf("features %d, scored %d", res.Features.Len(), res.Metrics.Confusion.Total())
	}

	var buf bytes.Buffer
	if err := fraudlab.WriteReport(&buf, []fraudlab.Result{res}, "table"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "bayes") {
		t.Errorf("report:\n%s", buf.String())
	}
}

func TestSplitBalanceFitThroughFacade(t *testing.T) {
	ds, err := fraudlab.Synthetic(fraudlab.SyntheticOptions{Rows: 400, Frauds: 40, Seed: 5})
	if err != nil {
		t.Fatal(err)
	}
	s := int64(1)
	sp, err := fraudlab.StratifiedSplit(ds, 0.25, &s)
	if err != nil {
		t.Fatal(err)
	}
	train, err := fraudlab.Oversample(sp.Train, &s)
	if err != nil {
		t.Fatal(err)
	}
	clf, err := fraudlab.NewClassifier("logistic", fraudlab.ClassifierOptions{Seed: &s})
	if err != nil {
		t.Fatal(err)
	}
	model, err := clf.Fit(train.Features(), train.Labels())
	if err != nil {
		t.Fatal(err)
	}
	m, err := fraudlab.Evaluate(model, sp.Test)
	if err != nil {
		t.Fatal(err)
	}
	if m.Confusion.Total() != 100 || m.Accuracy.V < 0.9 {
		t.Errorf("scored %d rows, accuracy %v", m.Confusion.Total(), m.Accuracy)
	}
}
