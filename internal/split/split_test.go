package split

import (
	"math"
	"testing"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/balance"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

func synthetic(t *testing.T, rows, frauds int) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Synthetic(dataset.SyntheticOptions{Rows: rows, Frauds: frauds, Seed: 12})
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestStratifiedPartition(t *testing.T) {
	ds := synthetic(t, 2000, 100)
	sp, err := Stratified(ds, 0.25, seed.Of(3))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(sp.TrainIndex) + len(sp.TestIndex); got != ds.Len() {
		t.Fatalf("partition covers %d rows, want %d", got, ds.Len())
	}
	seen := make(map[int]bool, ds.Len())
	for _, i := range append(append([]int(nil), sp.TrainIndex...), sp.TestIndex...) {
		if seen[i] {
			t.Fatalf("row %d is in both partitions", i)
		}
		seen[i] = true
	}
	for k, i := range sp.TestIndex {
		if sp.Test.Label(k) != ds.Label(i) {
			t.Fatalf("test row %d label does not match source row %d", k, i)
		}
	}

	srcRatio := 100.0 / 2000
	for name, part := range map[string]*dataset.Dataset{"train": sp.Train, "test": sp.Test} {
		_, fraud := part.ClassCounts()
		ratio := float64(fraud) / float64(part.Len())
		if math.Abs(ratio-srcRatio) > 0.02 {
			t.Errorf("%s fraud ratio %.4f, source %.4f", name, ratio, srcRatio)
		}
	}
}

func TestStratifiedAfterBalancing(t *testing.T) {
	ds := synthetic(t, 1000, 50)
	bal, err := balance.Oversample(ds, seed.Of(1))
	if err != nil {
		t.Fatal(err)
	}
	sp, err := Stratified(bal, 0.2, seed.Of(2))
	if err != nil {
		t.Fatal(err)
	}
	if sp.Test.Len() != 380 || sp.Train.Len() != 1520 {
		t.Errorf("test/train = %d/%d, want 380/1520", sp.Test.Len(), sp.Train.Len())
	}
	legit, fraud := sp.Test.ClassCounts()
	if legit != 190 || fraud != 190 {
		t.Errorf("test class counts = %d/%d, want 190/190", legit, fraud)
	}
}

func TestStratifiedKeepsSmallClassOnBothSides(t *testing.T) {
	ds := synthetic(t, 100, 2)
	for _, f := range []float64{0.01, 0.99} {
		sp, err := Stratified(ds, f, seed.Of(1))
		if err != nil {
			t.Fatal(err)
		}
		_, trainFraud := sp.Train.ClassCounts()
		_, testFraud := sp.Test.ClassCounts()
		if trainFraud != 1 || testFraud != 1 {
			t.Errorf("f=%v: fraud split %d/%d, want 1/1", f, trainFraud, testFraud)
		}
	}
}

func TestStratifiedErrors(t *testing.T) {
	ds := synthetic(t, 100, 10)
	for _, f := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		if _, err := Stratified(ds, f, nil); !apperr.IsConfiguration(err) {
			t.Errorf("f=%v: expected configuration error, got %v", f, err)
		}
	}
	one := synthetic(t, 100, 1)
	if _, err := Stratified(one, 0.2, nil); !apperr.IsConfiguration(err) {
		t.Errorf("single fraud row: expected configuration error, got %v", err)
	}
}

func TestStratifiedDeterministic(t *testing.T) {
	ds := synthetic(t, 500, 40)
	a, _ := Stratified(ds, 0.3, seed.Of(8))
	b, _ := Stratified(ds, 0.3, seed.Of(8))
	for k := range a.TestIndex {
		if a.TestIndex[k] != b.TestIndex[k] {
			t.Fatalf("test index %d differs", k)
		}
	}
}

func TestSample(t *testing.T) {
	ds := synthetic(t, 300, 30)
	sub, idx, err := Sample(ds, 100, seed.Of(4))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Len() != 100 {
		t.Fatalf("Len = %d, want 100", sub.Len())
	}
	seen := map[int]bool{}
	for _, i := range idx {
		if seen[i] {
			t.Fatalf("row %d drawn twice", i)
		}
		seen[i] = true
	}
	for _, n := range []int{0, 301} {
		if _, _, err := Sample(ds, n, nil); !apperr.IsConfiguration(err) {
			t.Errorf("n=%d: expected configuration error, got %v", n, err)
		}
	}
}
