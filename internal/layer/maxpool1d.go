package layer

// MaxPool1D takes the maximum over non-overlapping windows of each channel.
// Trailing positions that do not fill a window are dropped.
type MaxPool1D struct {
	channels int
	length   int
	pool     int
	outLen   int

	outputBuf []float64
	gradInBuf []float64
	argmax    []int
}

// NewMaxPool1D panics if pool is larger than length.
func NewMaxPool1D(channels, length, pool int) *MaxPool1D {
	outLen := length / pool
	if pool < 1 || outLen < 1 {
		panic("MaxPool1D: pool size larger than input length")
	}
	return &MaxPool1D{
		channels:  channels,
		length:    length,
		pool:      pool,
		outLen:    outLen,
		outputBuf: make([]float64, channels*outLen),
		gradInBuf: make([]float64, channels*length),
		argmax:    make([]int, channels*outLen),
	}
}

func (m *MaxPool1D) Forward(x []float64) []float64 {
	for c := 0; c < m.channels; c++ {
		for p := 0; p < m.outLen; p++ {
			start := c*m.length + p*m.pool
			best := start
			for i := start + 1; i < start+m.pool; i++ {
				if x[i] > x[best] {
					best = i
				}
			}
			o := c*m.outLen + p
			m.argmax[o] = best
			m.outputBuf[o] = x[best]
		}
	}
	return m.outputBuf
}

// Backward routes each gradient to the input position that won the window.
func (m *MaxPool1D) Backward(grad []float64) []float64 {
	clear(m.gradInBuf)
	for o, i := range m.argmax {
		m.gradInBuf[i] += grad[o]
	}
	return m.gradInBuf
}

func (m *MaxPool1D) Params() []float64    { return nil }
func (m *MaxPool1D) SetParams([]float64)  {}
func (m *MaxPool1D) Gradients() []float64 { return nil }
func (m *MaxPool1D) ZeroGrad()            {}
func (m *MaxPool1D) InSize() int          { return m.channels * m.length }
func (m *MaxPool1D) OutSize() int         { return m.channels * m.outLen }
