// Package balance equalizes class frequencies of a training partition.
package balance

import (
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

var logger = zap.NewNop()

// SetLogger sets the destination for balancing logs.
func SetLogger(l *zap.Logger) { logger = logging.OrNop(l).Named("balance") }

// Oversample draws minority rows with replacement until both classes have the
// majority count. The result holds every row of ds once, in order, followed
// by the drawn duplicates. ds is not modified.
//
// A class with no rows cannot be balanced and yields a configuration error.
func Oversample(ds *dataset.Dataset, s *int64) (*dataset.Dataset, error) {
	legit, fraud := ds.ClassIndices()
	if len(legit) == 0 || len(fraud) == 0 {
		return nil, apperr.Configf("labels", "cannot balance: %d legitimate and %d fraudulent rows", len(legit), len(fraud))
	}
	minority, need := fraud, len(legit)-len(fraud)
	if need < 0 {
		minority, need = legit, -need
	}

	indices := make([]int, ds.Len(), ds.Len()+need)
	for i := range indices {
		indices[i] = i
	}
	rng := seed.Rand(s)
	for k := 0; k < need; k++ {
		indices = append(indices, minority[rng.Intn(len(minority))])
	}
	logger.Debug("oversampled minority class",
		zap.Int("rows", ds.Len()), zap.Int("duplicates", need), zap.Int("result", len(indices)))
	return ds.Subset(indices)
}
