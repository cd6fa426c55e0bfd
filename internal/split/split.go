// Package split partitions a Dataset into train and test views.
package split

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

var logger = zap.NewNop()

// SetLogger sets the destination for split logs.
func SetLogger(l *zap.Logger) { logger = logging.OrNop(l).Named("split") }

// Split is a disjoint partition of a source Dataset. TrainIndex and TestIndex
// hold the source row of each partition row.
type Split struct {
	Train      *dataset.Dataset
	Test       *dataset.Dataset
	TrainIndex []int
	TestIndex  []int
}

// Stratified puts round(testFraction*n_c) rows of each class c into the test
// partition, keeping at least one row of every class on both sides. Rows keep
// their source order within each partition.
func Stratified(ds *dataset.Dataset, testFraction float64, s *int64) (Split, error) {
	if !(testFraction > 0 && testFraction < 1) {
		return Split{}, apperr.Configf("test_fraction", "must be in (0,1), got %v", testFraction)
	}
	legit, fraud := ds.ClassIndices()
	for c, idx := range [][]int{legit, fraud} {
		if len(idx) < 2 {
			return Split{}, apperr.Configf("labels", "class %d has %d rows, stratification needs at least 2", c, len(idx))
		}
	}

	rng := seed.Rand(s)
	var train, test []int
	for _, idx := range [][]int{legit, fraud} {
		shuffled := append([]int(nil), idx...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		nTest = max(1, min(nTest, len(idx)-1))
		test = append(test, shuffled[:nTest]...)
		train = append(train, shuffled[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)

	sp := Split{TrainIndex: train, TestIndex: test}
	var err error
	if sp.Train, err = ds.Subset(train); err != nil {
		return Split{}, err
	}
	if sp.Test, err = ds.Subset(test); err != nil {
		return Split{}, err
	}
	logger.Debug("stratified split",
		zap.Int("train", len(train)), zap.Int("test", len(test)), zap.Float64("test_fraction", testFraction))
	return sp, nil
}

// Sample draws n distinct rows of ds uniformly at random, in draw order.
func Sample(ds *dataset.Dataset, n int, s *int64) (*dataset.Dataset, []int, error) {
	if n <= 0 || n > ds.Len() {
		return nil, nil, apperr.Configf("validation_size", "must be in [1,%d], got %d", ds.Len(), n)
	}
	idx := seed.Rand(s).Perm(ds.Len())[:n]
	sub, err := ds.Subset(idx)
	if err != nil {
		return nil, nil, err
	}
	return sub, idx, nil
}
