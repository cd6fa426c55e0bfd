package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/GoFraud/internal/activations"
)

// Conv1D is a 1D convolution with stride 1 and no padding.
// Input is channel-major: value at channel c, position p is x[c*length+p].
// Output uses the same layout with filters channels of length-kernel+1 positions.
type Conv1D struct {
	inChannels int
	length     int
	filters    int
	kernel     int
	outLen     int
	act        activations.Activation

	// weights[f][c][k] flattened
	weights []float64
	biases  []float64

	inputBuf  []float64
	preActBuf []float64
	outputBuf []float64
	gradWBuf  []float64
	gradBBuf  []float64
	gradInBuf []float64
}

// NewConv1D creates a convolution over inputs of inChannels x length values.
// It panics if kernel is larger than length.
func NewConv1D(inChannels, length, filters, kernel int, act activations.Activation, rng *rand.Rand) *Conv1D {
	outLen := length - kernel + 1
	if outLen < 1 {
		panic("Conv1D: kernel larger than input length")
	}
	c := &Conv1D{
		inChannels: inChannels,
		length:     length,
		filters:    filters,
		kernel:     kernel,
		outLen:     outLen,
		act:        act,
		weights:    make([]float64, filters*inChannels*kernel),
		biases:     make([]float64, filters),
		inputBuf:   make([]float64, inChannels*length),
		preActBuf:  make([]float64, filters*outLen),
		outputBuf:  make([]float64, filters*outLen),
		gradWBuf:   make([]float64, filters*inChannels*kernel),
		gradBBuf:   make([]float64, filters),
		gradInBuf:  make([]float64, inChannels*length),
	}
	glorot(rng, c.weights, inChannels*kernel, filters*kernel)
	return c
}

func (c *Conv1D) w(f, ch, k int) int { return (f*c.inChannels+ch)*c.kernel + k }

func (c *Conv1D) Forward(x []float64) []float64 {
	copy(c.inputBuf, x)
	for f := 0; f < c.filters; f++ {
		for p := 0; p < c.outLen; p++ {
			sum := c.biases[f]
			for ch := 0; ch < c.inChannels; ch++ {
				in := x[ch*c.length+p : ch*c.length+p+c.kernel]
				ws := c.weights[c.w(f, ch, 0) : c.w(f, ch, 0)+c.kernel]
				for k, v := range in {
					sum += ws[k] * v
				}
			}
			c.preActBuf[f*c.outLen+p] = sum
			c.outputBuf[f*c.outLen+p] = c.act.Activate(sum)
		}
	}
	return c.outputBuf
}

func (c *Conv1D) Backward(grad []float64) []float64 {
	clear(c.gradInBuf)
	for f := 0; f < c.filters; f++ {
		for p := 0; p < c.outLen; p++ {
			o := f*c.outLen + p
			dz := grad[o] * c.act.Derivative(c.preActBuf[o])
			if dz == 0 {
				continue
			}
			c.gradBBuf[f] += dz
			for ch := 0; ch < c.inChannels; ch++ {
				base := ch*c.length + p
				wi := c.w(f, ch, 0)
				for k := 0; k < c.kernel; k++ {
					c.gradWBuf[wi+k] += dz * c.inputBuf[base+k]
					c.gradInBuf[base+k] += dz * c.weights[wi+k]
				}
			}
		}
	}
	return c.gradInBuf
}

func (c *Conv1D) Params() []float64 {
	params := make([]float64, 0, len(c.weights)+len(c.biases))
	params = append(params, c.weights...)
	return append(params, c.biases...)
}

func (c *Conv1D) SetParams(params []float64) {
	copy(c.weights, params[:len(c.weights)])
	copy(c.biases, params[len(c.weights):])
}

func (c *Conv1D) Gradients() []float64 {
	g := make([]float64, 0, len(c.gradWBuf)+len(c.gradBBuf))
	g = append(g, c.gradWBuf...)
	return append(g, c.gradBBuf...)
}

func (c *Conv1D) ZeroGrad() {
	clear(c.gradWBuf)
	clear(c.gradBBuf)
}

func (c *Conv1D) InSize() int  { return c.inChannels * c.length }
func (c *Conv1D) OutSize() int { return c.filters * c.outLen }

// OutLength returns the number of output positions per filter.
func (c *Conv1D) OutLength() int { return c.outLen }
