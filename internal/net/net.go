// Package net provides the sequential network and its training loop.
package net

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/GoFraud/internal/layer"
	"github.com/FlavioCFOliveira/GoFraud/internal/loss"
	"github.com/FlavioCFOliveira/GoFraud/internal/opt"
)

// Network is a sequence of layers trained with one loss and one optimizer.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss
	opt    opt.Optimizer

	lossGradBuf []float64
}

// New creates a network; consecutive layer sizes must agree.
func New(layers []layer.Layer, lossFn loss.Loss, optimizer opt.Optimizer) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("network needs at least one layer")
	}
	for i := 1; i < len(layers); i++ {
		if layers[i-1].OutSize() != layers[i].InSize() {
			return nil, fmt.Errorf("layer %d outputs %d values but layer %d expects %d",
				i-1, layers[i-1].OutSize(), i, layers[i].InSize())
		}
	}
	return &Network{layers: layers, loss: lossFn, opt: optimizer}, nil
}

// InSize returns the input width of the first layer.
func (n *Network) InSize() int { return n.layers[0].InSize() }

// Optimizer returns the optimizer used by Step.
func (n *Network) Optimizer() opt.Optimizer { return n.opt }

// Forward performs a forward pass through all layers. The returned slice is
// owned by the last layer and overwritten by the next call.
func (n *Network) Forward(x []float64) []float64 {
	curr := x
	for _, l := range n.layers {
		curr = l.Forward(curr)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// SetTraining switches every Trainable layer between training and inference.
func (n *Network) SetTraining(training bool) {
	for _, l := range n.layers {
		if t, ok := l.(layer.Trainable); ok {
			t.SetTraining(training)
		}
	}
}

// ZeroGrad clears accumulated gradients of all layers.
func (n *Network) ZeroGrad() {
	for _, l := range n.layers {
		l.ZeroGrad()
	}
}

// Step applies the optimizer to every layer's accumulated gradients scaled by
// scale, then clears them.
func (n *Network) Step(scale float64) {
	for i, l := range n.layers {
		grads := l.Gradients()
		if len(grads) == 0 {
			continue
		}
		if scale != 1 {
			for j := range grads {
				grads[j] *= scale
			}
		}
		params := l.Params()
		n.opt.StepInPlace(i, params, grads)
		l.SetParams(params)
	}
	n.ZeroGrad()
}

// TrainBatch runs forward and backward for every sample, then takes one
// optimizer step on the mean gradient. It returns the mean loss.
func (n *Network) TrainBatch(batchX, batchY [][]float64) float64 {
	if len(batchX) == 0 {
		return 0
	}
	var total float64
	for i := range batchX {
		yPred := n.Forward(batchX[i])
		total += n.loss.Forward(yPred, batchY[i])

		if cap(n.lossGradBuf) < len(yPred) {
			n.lossGradBuf = make([]float64, len(yPred))
		}
		grad := n.lossGradBuf[:len(yPred)]
		if bip, ok := n.loss.(loss.BackwardInPlacer); ok {
			bip.BackwardInPlace(yPred, batchY[i], grad)
		} else {
			grad = n.loss.Backward(yPred, batchY[i])
		}
		n.Backward(grad)
	}
	n.Step(1 / float64(len(batchX)))
	return total / float64(len(batchX))
}

// Evaluate returns the mean loss over a dataset in inference mode.
func (n *Network) Evaluate(X, Y [][]float64) float64 {
	if len(X) == 0 {
		return 0
	}
	n.SetTraining(false)
	var total float64
	for i := range X {
		total += n.loss.Forward(n.Forward(X[i]), Y[i])
	}
	return total / float64(len(X))
}

// Predict runs an inference-mode forward pass and returns a copy of the output.
func (n *Network) Predict(x []float64) []float64 {
	n.SetTraining(false)
	return append([]float64(nil), n.Forward(x)...)
}

// FitOptions configures Fit.
type FitOptions struct {
	Epochs    int
	BatchSize int
	// Rand shuffles sample order each epoch; nil keeps the given order.
	Rand      *rand.Rand
	Callbacks []Callback
	// Optional held-out data evaluated after every epoch.
	ValX, ValY [][]float64
}

// History records per-epoch training (and validation) loss.
type History struct {
	Loss    []float64 `json:"loss" yaml:"loss"`
	ValLoss []float64 `json:"val_loss,omitempty" yaml:"val_loss,omitempty"`
}

// Fit trains for opts.Epochs epochs of mini-batches. Training stops early
// when a Stopper callback asks for it.
func (n *Network) Fit(X, Y [][]float64, opts FitOptions) (History, error) {
	if len(X) == 0 || len(X) != len(Y) {
		return History{}, fmt.Errorf("fit: %d inputs and %d targets", len(X), len(Y))
	}
	if opts.Epochs < 1 || opts.BatchSize < 1 {
		return History{}, fmt.Errorf("fit: epochs and batch size must be positive, got %d and %d", opts.Epochs, opts.BatchSize)
	}

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	batchX := make([][]float64, 0, opts.BatchSize)
	batchY := make([][]float64, 0, opts.BatchSize)

	var hist History
	for _, cb := range opts.Callbacks {
		cb.OnTrainBegin(n)
	}
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		for _, cb := range opts.Callbacks {
			cb.OnEpochBegin(epoch, n)
		}
		if opts.Rand != nil {
			opts.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		n.SetTraining(true)
		var epochLoss float64
		for start := 0; start < len(order); start += opts.BatchSize {
			end := min(start+opts.BatchSize, len(order))
			batchX, batchY = batchX[:0], batchY[:0]
			for _, i := range order[start:end] {
				batchX = append(batchX, X[i])
				batchY = append(batchY, Y[i])
			}
			epochLoss += n.TrainBatch(batchX, batchY) * float64(end-start)
		}
		epochLoss /= float64(len(order))
		hist.Loss = append(hist.Loss, epochLoss)
		if len(opts.ValX) > 0 {
			hist.ValLoss = append(hist.ValLoss, n.Evaluate(opts.ValX, opts.ValY))
		}

		stop := false
		for _, cb := range opts.Callbacks {
			cb.OnEpochEnd(epoch, epochLoss, n)
			if s, ok := cb.(Stopper); ok && s.ShouldStop() {
				stop = true
			}
		}
		if stop {
			break
		}
	}
	for _, cb := range opts.Callbacks {
		cb.OnTrainEnd(n)
	}
	n.SetTraining(false)
	return hist, nil
}
