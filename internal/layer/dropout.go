package layer

import "math/rand"

// Dropout implements inverted dropout: during training each input is zeroed
// with probability p and survivors are scaled by 1/(1-p). During inference
// inputs pass through unchanged.
type Dropout struct {
	p        float64
	size     int
	training bool
	rng      *rand.Rand

	outputBuf []float64
	maskBuf   []float64
	gradInBuf []float64
}

// NewDropout creates a dropout layer in training mode.
func NewDropout(p float64, size int, rng *rand.Rand) *Dropout {
	return &Dropout{
		p:         p,
		size:      size,
		training:  true,
		rng:       rng,
		outputBuf: make([]float64, size),
		maskBuf:   make([]float64, size),
		gradInBuf: make([]float64, size),
	}
}

// SetTraining switches between training and inference behaviour.
func (d *Dropout) SetTraining(training bool) { d.training = training }

func (d *Dropout) Forward(x []float64) []float64 {
	if !d.training || d.p <= 0 {
		for i := range d.maskBuf {
			d.maskBuf[i] = 1
		}
		copy(d.outputBuf, x)
		return d.outputBuf
	}
	scale := 1 / (1 - d.p)
	for i, v := range x {
		if d.rng.Float64() < d.p {
			d.maskBuf[i] = 0
		} else {
			d.maskBuf[i] = scale
		}
		d.outputBuf[i] = v * d.maskBuf[i]
	}
	return d.outputBuf
}

func (d *Dropout) Backward(grad []float64) []float64 {
	for i, g := range grad {
		d.gradInBuf[i] = g * d.maskBuf[i]
	}
	return d.gradInBuf
}

func (d *Dropout) Params() []float64    { return nil }
func (d *Dropout) SetParams([]float64)  {}
func (d *Dropout) Gradients() []float64 { return nil }
func (d *Dropout) ZeroGrad()            {}
func (d *Dropout) InSize() int          { return d.size }
func (d *Dropout) OutSize() int         { return d.size }
