// Package layer provides neural network layer implementations.
//
// Layers process one sample at a time. Forward caches what Backward needs,
// Backward accumulates parameter gradients until ZeroGrad, so a batch is a
// sequence of Forward/Backward pairs followed by one optimizer step.
package layer

import (
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/GoFraud/internal/activations"
)

// Layer is a neural network layer.
type Layer interface {
	Forward(x []float64) []float64
	Backward(grad []float64) []float64
	Params() []float64
	SetParams([]float64)
	Gradients() []float64
	ZeroGrad()
	InSize() int
	OutSize() int
}

// Trainable is implemented by layers that behave differently during training.
type Trainable interface {
	SetTraining(training bool)
}

// glorot fills w uniformly in ±sqrt(6/(fanIn+fanOut)).
func glorot(rng *rand.Rand, w []float64, fanIn, fanOut int) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
}

// Dense is a fully connected layer.
// Weights are row-major: weight for output o, input i is at weights[o*in+i].
type Dense struct {
	weights []float64
	biases  []float64
	act     activations.Activation
	inSize  int
	outSize int

	inputBuf  []float64
	preActBuf []float64
	outputBuf []float64
	gradWBuf  []float64
	gradBBuf  []float64
	gradInBuf []float64
}

// NewDense creates a dense layer with Glorot-uniform weights and zero biases.
func NewDense(in, out int, act activations.Activation, rng *rand.Rand) *Dense {
	d := &Dense{
		weights:   make([]float64, out*in),
		biases:    make([]float64, out),
		act:       act,
		inSize:    in,
		outSize:   out,
		inputBuf:  make([]float64, in),
		preActBuf: make([]float64, out),
		outputBuf: make([]float64, out),
		gradWBuf:  make([]float64, out*in),
		gradBBuf:  make([]float64, out),
		gradInBuf: make([]float64, in),
	}
	glorot(rng, d.weights, in, out)
	return d
}

// Forward computes act(Wx + b).
func (d *Dense) Forward(x []float64) []float64 {
	copy(d.inputBuf, x)
	for o := 0; o < d.outSize; o++ {
		sum := d.biases[o]
		row := d.weights[o*d.inSize : (o+1)*d.inSize]
		for i, w := range row {
			sum += w * x[i]
		}
		d.preActBuf[o] = sum
		d.outputBuf[o] = d.act.Activate(sum)
	}
	return d.outputBuf
}

// Backward accumulates weight and bias gradients and returns dL/dx.
func (d *Dense) Backward(grad []float64) []float64 {
	for i := range d.gradInBuf {
		d.gradInBuf[i] = 0
	}
	for o := 0; o < d.outSize; o++ {
		dz := grad[o] * d.act.Derivative(d.preActBuf[o])
		d.gradBBuf[o] += dz
		base := o * d.inSize
		for i := 0; i < d.inSize; i++ {
			d.gradWBuf[base+i] += dz * d.inputBuf[i]
			d.gradInBuf[i] += dz * d.weights[base+i]
		}
	}
	return d.gradInBuf
}

// Params returns weights followed by biases.
func (d *Dense) Params() []float64 {
	params := make([]float64, 0, len(d.weights)+len(d.biases))
	params = append(params, d.weights...)
	return append(params, d.biases...)
}

// SetParams updates weights and biases from a flattened slice.
func (d *Dense) SetParams(params []float64) {
	copy(d.weights, params[:len(d.weights)])
	copy(d.biases, params[len(d.weights):])
}

// Gradients returns the accumulated gradients in Params order.
func (d *Dense) Gradients() []float64 {
	g := make([]float64, 0, len(d.gradWBuf)+len(d.gradBBuf))
	g = append(g, d.gradWBuf...)
	return append(g, d.gradBBuf...)
}

func (d *Dense) ZeroGrad() {
	clear(d.gradWBuf)
	clear(d.gradBBuf)
}

func (d *Dense) InSize() int  { return d.inSize }
func (d *Dense) OutSize() int { return d.outSize }

// Flatten turns a channel-major feature map into a vector. Feature maps are
// already stored flat, so it only copies.
type Flatten struct {
	size   int
	buf    []float64
	gradIn []float64
}

func NewFlatten(size int) *Flatten {
	return &Flatten{size: size, buf: make([]float64, size), gradIn: make([]float64, size)}
}

func (f *Flatten) Forward(x []float64) []float64 {
	copy(f.buf, x)
	return f.buf
}

func (f *Flatten) Backward(grad []float64) []float64 {
	copy(f.gradIn, grad)
	return f.gradIn
}

func (f *Flatten) Params() []float64    { return nil }
func (f *Flatten) SetParams([]float64)  {}
func (f *Flatten) Gradients() []float64 { return nil }
func (f *Flatten) ZeroGrad()            {}
func (f *Flatten) InSize() int          { return f.size }
func (f *Flatten) OutSize() int         { return f.size }
