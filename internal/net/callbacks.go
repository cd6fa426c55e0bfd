package net

import (
	"math"

	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/opt"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, loss float64, n *Network)
}

// Stopper is a callback that can end training after an epoch.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(n *Network)                         {}
func (BaseCallback) OnTrainEnd(n *Network)                           {}
func (BaseCallback) OnEpochBegin(epoch int, n *Network)              {}
func (BaseCallback) OnEpochEnd(epoch int, loss float64, n *Network) {}

// SchedulerCallback steps a learning rate scheduler after every epoch.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.scheduler.Step()
}

// EarlyStopping stops training when the loss has not improved by more than
// Threshold for Patience consecutive epochs.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss     float64
	numBadEpochs int
	stopped      bool
	logger       *zap.Logger
}

func NewEarlyStopping(patience int, threshold float64, logger *zap.Logger) *EarlyStopping {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
		logger:    logger,
	}
}

func (c *EarlyStopping) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss < c.bestLoss-c.Threshold {
		c.bestLoss = loss
		c.numBadEpochs = 0
		return
	}
	c.numBadEpochs++
	if c.numBadEpochs >= c.Patience {
		c.logger.Info("early stopping",
			zap.Int("epoch", epoch), zap.Float64("loss", loss), zap.Int("patience", c.Patience))
		c.stopped = true
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.stopped }

// Logger logs training progress every Interval epochs.
type Logger struct {
	BaseCallback
	Interval int
	Log      *zap.Logger
}

func (c Logger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.Log != nil && c.Interval > 0 && epoch%c.Interval == 0 {
		c.Log.Debug("epoch finished",
			zap.Int("epoch", epoch), zap.Float64("loss", loss), zap.Float64("lr", n.Optimizer().LearningRate()))
	}
}
