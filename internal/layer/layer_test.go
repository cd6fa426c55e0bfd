package layer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/GoFraud/internal/activations"
)

// identity keeps layer outputs equal to their pre-activations.
type identity struct{}

func (identity) Activate(x float64) float64   { return x }
func (identity) Derivative(x float64) float64 { return 1 }

// sumLoss is L = sum(w_i * out_i) with fixed weights, so dL/dout = w.
func sumLoss(out, w []float64) float64 {
	s := 0.0
	for i := range out {
		s += out[i] * w[i]
	}
	return s
}

// checkGradients compares analytic input and parameter gradients of l with
// central differences.
func checkGradients(t *testing.T, name string, l Layer, x []float64) {
	t.Helper()
	const h = 1e-6
	rng := rand.New(rand.NewSource(99))
	w := make([]float64, l.OutSize())
	for i := range w {
		w[i] = rng.NormFloat64()
	}

	l.ZeroGrad()
	l.Forward(x)
	gradIn := append([]float64(nil), l.Backward(w)...)
	gradP := l.Gradients()

	for i := range x {
		up := append([]float64(nil), x...)
		down := append([]float64(nil), x...)
		up[i] += h
		down[i] -= h
		numeric := (sumLoss(l.Forward(up), w) - sumLoss(l.Forward(down), w)) / (2 * h)
		if math.Abs(gradIn[i]-numeric) > 1e-5 {
			t.Errorf("%s: dL/dx[%d] = %v, numeric %v", name, i, gradIn[i], numeric)
		}
	}

	params := l.Params()
	for j := range params {
		orig := params[j]
		params[j] = orig + h
		l.SetParams(params)
		lu := sumLoss(l.Forward(x), w)
		params[j] = orig - h
		l.SetParams(params)
		ld := sumLoss(l.Forward(x), w)
		params[j] = orig
		l.SetParams(params)
		numeric := (lu - ld) / (2 * h)
		if math.Abs(gradP[j]-numeric) > 1e-5 {
			t.Errorf("%s: dL/dp[%d] = %v, numeric %v", name, j, gradP[j], numeric)
		}
	}
}

// TestDenseGradients tests Dense backpropagation.
func TestDenseGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(4, 3, activations.Tanh{}, rng)
	checkGradients(t, "dense", d, []float64{0.3, -0.7, 1.2, 0.05})
}

// TestConv1DGradients tests Conv1D backpropagation with two input channels.
func TestConv1DGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	c := NewConv1D(2, 5, 3, 3, activations.Sigmoid{}, rng)
	if c.OutSize() != 9 || c.OutLength() != 3 {
		t.Fatalf("OutSize = %d, OutLength = %d", c.OutSize(), c.OutLength())
	}
	checkGradients(t, "conv1d", c, []float64{0.1, 0.5, -0.2, 0.9, -1.1, 0.4, 0.0, 0.3, -0.6, 0.8})
}

// TestConv1DForward tests a hand-computed convolution.
func TestConv1DForward(t *testing.T) {
	c := NewConv1D(1, 4, 1, 2, identity{}, rand.New(rand.NewSource(1)))
	c.SetParams([]float64{1, -1, 0.5}) // kernel {1,-1}, bias 0.5
	got := c.Forward([]float64{3, 1, 4, 1})
	want := []float64{2.5, -2.5, 3.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestMaxPool1D tests pooling and gradient routing.
func TestMaxPool1D(t *testing.T) {
	m := NewMaxPool1D(2, 5, 2)
	out := m.Forward([]float64{1, 3, 2, 0, 9, 5, 4, -1, -2, 7})
	want := []float64{3, 2, 5, -1}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	g := m.Backward([]float64{1, 2, 3, 4})
	wantG := []float64{0, 1, 2, 0, 0, 3, 0, 4, 0, 0}
	for i := range wantG {
		if g[i] != wantG[i] {
			t.Errorf("grad[%d] = %v, want %v", i, g[i], wantG[i])
		}
	}
}

// TestDropout tests training and inference modes.
func TestDropout(t *testing.T) {
	d := NewDropout(0.5, 1000, rand.New(rand.NewSource(3)))
	x := make([]float64, 1000)
	for i := range x {
		x[i] = 1
	}
	out := d.Forward(x)
	zeros := 0
	for _, v := range out {
		switch v {
		case 0:
			zeros++
		case 2:
		default:
			t.Fatalf("unexpected value %v", v)
		}
	}
	if zeros < 400 || zeros > 600 {
		t.Errorf("dropped %d of 1000, want about 500", zeros)
	}
	g := d.Backward(x)
	for i := range g {
		if g[i] != out[i] {
			t.Fatalf("grad[%d] = %v, want mask %v", i, g[i], out[i])
		}
	}

	d.SetTraining(false)
	for i, v := range d.Forward(x) {
		if v != 1 {
			t.Fatalf("inference out[%d] = %v, want 1", i, v)
		}
	}
}

// TestGradientsAccumulateUntilZeroGrad tests accumulation across samples.
func TestGradientsAccumulateUntilZeroGrad(t *testing.T) {
	d := NewDense(2, 1, identity{}, rand.New(rand.NewSource(4)))
	for i := 0; i < 3; i++ {
		d.Forward([]float64{1, 2})
		d.Backward([]float64{1})
	}
	g := d.Gradients()
	if g[0] != 3 || g[1] != 6 || g[2] != 3 {
		t.Errorf("accumulated = %v, want [3 6 3]", g)
	}
	d.ZeroGrad()
	for _, v := range d.Gradients() {
		if v != 0 {
			t.Errorf("after ZeroGrad: %v", d.Gradients())
		}
	}
}
