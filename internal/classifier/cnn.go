package classifier

import (
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/activations"
	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/layer"
	"github.com/FlavioCFOliveira/GoFraud/internal/loss"
	"github.com/FlavioCFOliveira/GoFraud/internal/net"
	"github.com/FlavioCFOliveira/GoFraud/internal/opt"
	"github.com/FlavioCFOliveira/GoFraud/internal/preprocess"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

// CNNOptions configures CNN. Zero values take the defaults.
type CNNOptions struct {
	Epochs       int     // default 10
	BatchSize    int     // default 64
	LearningRate float64 // optimizer step size, default 0.001
	Filters      int     // convolution filters, default 32
	Kernel       int     // convolution width, default 3
	Hidden       int     // dense units, default 64
	Dropout      float64 // default 0.5, negative disables
	Patience     int     // early stopping patience in epochs, 0 disables
	LRDecay      float64 // learning rate factor in (0,1), 0 disables

	Activation string // hidden activation: relu (default), tanh or leaky_relu
	Loss       string // bce (default) or mse
	Optimizer  string // adam (default) or sgd
	Scheduler  string // how LRDecay applies: exponential (default) or step
	StepSize   int    // epochs between step decays, default 3

	// ValidationFraction of the training rows is held out and scored
	// after every epoch into History.ValLoss. 0 disables.
	ValidationFraction float64
}

// Accepted CNNOptions names.
const (
	ActivationReLU      = "relu"
	ActivationTanh      = "tanh"
	ActivationLeakyReLU = "leaky_relu"

	LossBCE = "bce"
	LossMSE = "mse"

	OptimizerAdam = "adam"
	OptimizerSGD  = "sgd"

	SchedulerExponential = "exponential"
	SchedulerStep        = "step"
)

func (o CNNOptions) withDefaults() CNNOptions {
	if o.Epochs <= 0 {
		o.Epochs = 10
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.001
	}
	if o.Filters <= 0 {
		o.Filters = 32
	}
	if o.Kernel <= 0 {
		o.Kernel = 3
	}
	if o.Hidden <= 0 {
		o.Hidden = 64
	}
	switch {
	case o.Dropout == 0:
		o.Dropout = 0.5
	case o.Dropout < 0:
		o.Dropout = 0
	}
	if o.Activation == "" {
		o.Activation = ActivationReLU
	}
	if o.Loss == "" {
		o.Loss = LossBCE
	}
	if o.Optimizer == "" {
		o.Optimizer = OptimizerAdam
	}
	if o.Scheduler == "" {
		o.Scheduler = SchedulerExponential
	}
	if o.StepSize <= 0 {
		o.StepSize = 3
	}
	return o
}

func (o CNNOptions) activation() (activations.Activation, error) {
	switch o.Activation {
	case ActivationReLU:
		return activations.ReLU{}, nil
	case ActivationTanh:
		return activations.Tanh{}, nil
	case ActivationLeakyReLU:
		return activations.LeakyReLU{Alpha: 0.01}, nil
	}
	return nil, apperr.Configf("cnn.activation", "unknown activation %q (want relu, tanh or leaky_relu)", o.Activation)
}

func (o CNNOptions) loss() (loss.Loss, error) {
	switch o.Loss {
	case LossBCE:
		return loss.BCE{}, nil
	case LossMSE:
		return loss.MSE{}, nil
	}
	return nil, apperr.Configf("cnn.loss", "unknown loss %q (want bce or mse)", o.Loss)
}

func (o CNNOptions) optimizer() (opt.Optimizer, error) {
	switch o.Optimizer {
	case OptimizerAdam:
		return opt.NewAdam(o.LearningRate), nil
	case OptimizerSGD:
		return &opt.SGD{LR: o.LearningRate}, nil
	}
	return nil, apperr.Configf("cnn.optimizer", "unknown optimizer %q (want adam or sgd)", o.Optimizer)
}

// scheduler returns nil when LRDecay is off.
func (o CNNOptions) scheduler(optimizer opt.Optimizer) opt.Scheduler {
	if o.LRDecay <= 0 || o.LRDecay >= 1 {
		return nil
	}
	if o.Scheduler == SchedulerStep {
		return opt.NewStepLR(optimizer, o.StepSize, o.LRDecay)
	}
	return opt.NewExponentialLR(optimizer, o.LRDecay)
}

// Validate reports the first setting Fit would reject, independent of the
// training data.
func (o CNNOptions) Validate() error {
	o = o.withDefaults()
	if o.Dropout >= 1 {
		return apperr.Configf("cnn.dropout", "must be below 1, got %v", o.Dropout)
	}
	if o.ValidationFraction < 0 || o.ValidationFraction >= 1 {
		return apperr.Configf("cnn.validation_fraction", "must be in [0,1), got %v", o.ValidationFraction)
	}
	switch o.Scheduler {
	case SchedulerExponential, SchedulerStep:
	default:
		return apperr.Configf("cnn.scheduler", "unknown scheduler %q (want exponential or step)", o.Scheduler)
	}
	if _, err := o.activation(); err != nil {
		return err
	}
	if _, err := o.loss(); err != nil {
		return err
	}
	_, err := o.optimizer()
	return err
}

// CNN treats the standardised feature vector as a one-channel sequence:
// Conv1D(ReLU) -> MaxPool1D(2) -> Flatten -> Dense(ReLU) -> Dropout ->
// Dense(1, Sigmoid), trained with binary cross entropy and Adam unless the
// options pick another activation, loss or optimizer.
type CNN struct {
	Options CNNOptions
	Seed    *int64
}

func (*CNN) Name() string { return "cnn" }

func (c *CNN) Fit(X [][]float64, y []int) (TrainedModel, error) {
	d, err := checkFit(X, y)
	if err != nil {
		return nil, err
	}
	opts := c.Options.withDefaults()
	if d < opts.Kernel+1 {
		return nil, apperr.Configf("features", "cnn needs at least %d features for kernel %d and pooling, got %d", opts.Kernel+1, opts.Kernel, d)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	hidden, err := opts.activation()
	if err != nil {
		return nil, err
	}
	lossFn, err := opts.loss()
	if err != nil {
		return nil, err
	}
	optimizer, err := opts.optimizer()
	if err != nil {
		return nil, err
	}

	rng := seed.Rand(c.Seed)
	trainX, trainY, valX, valY, err := holdOut(X, y, opts.ValidationFraction, rng)
	if err != nil {
		return nil, err
	}

	scaler, err := preprocess.FitStandard(trainX)
	if err != nil {
		return nil, err
	}
	Xs, err := scaler.Transform(trainX)
	if err != nil {
		return nil, err
	}
	fitOpts := net.FitOptions{
		Epochs:    opts.Epochs,
		BatchSize: opts.BatchSize,
		Rand:      rng,
	}
	if len(valX) > 0 {
		if fitOpts.ValX, err = scaler.Transform(valX); err != nil {
			return nil, err
		}
		fitOpts.ValY = columns(valY)
	}

	conv := layer.NewConv1D(1, d, opts.Filters, opts.Kernel, hidden, rng)
	pool := layer.NewMaxPool1D(opts.Filters, conv.OutLength(), 2)
	layers := []layer.Layer{
		conv,
		pool,
		layer.NewFlatten(pool.OutSize()),
		layer.NewDense(pool.OutSize(), opts.Hidden, hidden, rng),
	}
	if opts.Dropout > 0 {
		layers = append(layers, layer.NewDropout(opts.Dropout, opts.Hidden, rng))
	}
	layers = append(layers, layer.NewDense(opts.Hidden, 1, activations.Sigmoid{}, rng))

	network, err := net.New(layers, lossFn, optimizer)
	if err != nil {
		return nil, err
	}

	fitOpts.Callbacks = []net.Callback{net.Logger{Interval: 1, Log: logger.With(zap.String("model", "cnn"))}}
	if opts.Patience > 0 {
		fitOpts.Callbacks = append(fitOpts.Callbacks, net.NewEarlyStopping(opts.Patience, 1e-4, logger))
	}
	if sched := opts.scheduler(optimizer); sched != nil {
		fitOpts.Callbacks = append(fitOpts.Callbacks, net.NewSchedulerCallback(sched))
	}

	hist, err := network.Fit(Xs, columns(trainY), fitOpts)
	if err != nil {
		return nil, err
	}
	logger.Debug("cnn fit",
		zap.Int("rows", len(trainX)),
		zap.Int("validation_rows", len(valX)),
		zap.String("optimizer", opts.Optimizer),
		zap.Int("epochs", len(hist.Loss)),
		zap.Float64("final_loss", hist.Loss[len(hist.Loss)-1]))
	return &cnnModel{scaler: scaler, network: network, history: hist}, nil
}

// holdOut moves a random fraction of the rows into a validation set,
// keeping at least one row on each side.
func holdOut(X [][]float64, y []int, fraction float64, rng *rand.Rand) (trainX [][]float64, trainY []int, valX [][]float64, valY []int, err error) {
	if fraction == 0 {
		return X, y, nil, nil, nil
	}
	n := len(X)
	nVal := int(math.Round(fraction * float64(n)))
	if nVal < 1 {
		nVal = 1
	}
	if nVal >= n {
		return nil, nil, nil, nil, apperr.Configf("cnn.validation_fraction", "%v of %d rows leaves no training rows", fraction, n)
	}
	perm := rng.Perm(n)
	for i, idx := range perm {
		if i < nVal {
			valX = append(valX, X[idx])
			valY = append(valY, y[idx])
			continue
		}
		trainX = append(trainX, X[idx])
		trainY = append(trainY, y[idx])
	}
	return trainX, trainY, valX, valY, nil
}

// columns turns labels into one-column targets.
func columns(y []int) [][]float64 {
	Y := make([][]float64, len(y))
	for i, v := range y {
		Y[i] = []float64{float64(v)}
	}
	return Y
}

type cnnModel struct {
	scaler  *preprocess.StandardScaler
	history net.History

	// network reuses internal buffers on every forward pass
	mu      sync.Mutex
	network *net.Network
}

func (m *cnnModel) Dimensions() int              { return m.network.InSize() }
func (m *cnnModel) Probability() ProbabilityKind { return Native }

// History returns the per-epoch training and validation loss.
func (m *cnnModel) History() net.History { return m.history }

func (m *cnnModel) Predict(X [][]float64) ([]int, error) {
	p, err := m.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	return threshold(p), nil
}

func (m *cnnModel) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkPredict(X, m.scaler.Dim()); err != nil {
		return nil, err
	}
	Xs, err := m.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(Xs))
	for i, x := range Xs {
		out[i] = m.network.Predict(x)[0]
	}
	return out, nil
}
