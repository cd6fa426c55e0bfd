package selection

import (
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
)

var logger = zap.NewNop()

// SetLogger sets the destination for selection logs.
func SetLogger(l *zap.Logger) { logger = logging.OrNop(l).Named("selection") }
