package opt

import (
	"math"
	"testing"
)

// TestSGDStepInPlace tests the plain gradient step.
func TestSGDStepInPlace(t *testing.T) {
	sgd := &SGD{LR: 0.1}
	params := []float64{1.0, 2.0, 3.0}
	sgd.StepInPlace(0, params, []float64{0.1, 0.2, 0.3})

	expected := []float64{0.99, 1.98, 2.97}
	for i := range params {
		if math.Abs(params[i]-expected[i]) > 1e-10 {
			t.Errorf("params[%d] = %v, want %v", i, params[i], expected[i])
		}
	}
}

// TestAdamFirstStep tests that the first bias-corrected step moves each
// parameter by about lr against the gradient sign.
func TestAdamFirstStep(t *testing.T) {
	adam := NewAdam(0.01)
	params := []float64{1, -1, 0}
	adam.StepInPlace(0, params, []float64{0.5, -3, 1e-3})

	expected := []float64{0.99, -0.99, -0.01}
	for i := range params {
		if math.Abs(params[i]-expected[i]) > 1e-4 {
			t.Errorf("params[%d] = %v, want about %v", i, params[i], expected[i])
		}
	}
}

// TestAdamKeepsStatePerGroup tests that groups do not share moments.
func TestAdamKeepsStatePerGroup(t *testing.T) {
	adam := NewAdam(0.1)
	a := []float64{0}
	for i := 0; i < 5; i++ {
		adam.StepInPlace(0, a, []float64{1})
	}
	b := []float64{0}
	adam.StepInPlace(1, b, []float64{-1})
	if math.Abs(b[0]-0.1) > 1e-6 {
		t.Errorf("fresh group moved %v, want 0.1", b[0])
	}
	if adam.state[0].t != 5 || adam.state[1].t != 1 {
		t.Errorf("steps = %d/%d, want 5/1", adam.state[0].t, adam.state[1].t)
	}
}

// TestAdamMinimizesQuadratic tests convergence on f(x) = (x-3)^2.
func TestAdamMinimizesQuadratic(t *testing.T) {
	adam := NewAdam(0.05)
	x := []float64{0}
	for i := 0; i < 2000; i++ {
		adam.StepInPlace(0, x, []float64{2 * (x[0] - 3)})
	}
	if math.Abs(x[0]-3) > 0.05 {
		t.Errorf("x = %v, want 3", x[0])
	}
}

// TestSchedulers tests learning rate decay.
func TestSchedulers(t *testing.T) {
	sgd := &SGD{LR: 1}
	step := NewStepLR(sgd, 2, 0.5)
	for i := 0; i < 4; i++ {
		step.Step()
	}
	if math.Abs(step.LR()-0.25) > 1e-12 {
		t.Errorf("StepLR lr = %v, want 0.25", step.LR())
	}

	adam := NewAdam(1)
	exp := NewExponentialLR(adam, 0.9)
	exp.Step()
	exp.Step()
	if math.Abs(adam.LearningRate()-0.81) > 1e-12 {
		t.Errorf("ExponentialLR lr = %v, want 0.81", adam.LearningRate())
	}
}
