package activations

import (
	"math"
	"testing"
)

// TestActivate tests forward values of every activation.
func TestActivate(t *testing.T) {
	tests := []struct {
		name string
		act  Activation
		in   float64
		want float64
	}{
		{"relu negative", ReLU{}, -1, 0},
		{"relu positive", ReLU{}, 2.5, 2.5},
		{"sigmoid zero", Sigmoid{}, 0, 0.5},
		{"sigmoid one", Sigmoid{}, 1, 1 / (1 + math.Exp(-1))},
		{"sigmoid large negative", Sigmoid{}, -800, 0},
		{"sigmoid large positive", Sigmoid{}, 800, 1},
		{"tanh", Tanh{}, 0.5, math.Tanh(0.5)},
		{"leaky negative", LeakyReLU{Alpha: 0.1}, -2, -0.2},
	}
	for _, tt := range tests {
		got := tt.act.Activate(tt.in)
		if math.IsNaN(got) || math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: Activate(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

// TestDerivativeMatchesFiniteDifference tests analytic derivatives numerically.
func TestDerivativeMatchesFiniteDifference(t *testing.T) {
	const h = 1e-6
	acts := map[string]Activation{
		"relu":    ReLU{},
		"sigmoid": Sigmoid{},
		"tanh":    Tanh{},
		"leaky":   LeakyReLU{Alpha: 0.01},
	}
	for name, act := range acts {
		for _, x := range []float64{-2, -0.3, 0.4, 1.7} {
			numeric := (act.Activate(x+h) - act.Activate(x-h)) / (2 * h)
			if got := act.Derivative(x); math.Abs(got-numeric) > 1e-5 {
				t.Errorf("%s: Derivative(%v) = %v, numeric %v", name, x, got, numeric)
			}
		}
	}
}
