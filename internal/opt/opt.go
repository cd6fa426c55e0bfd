// Package opt provides optimization algorithms.
package opt

import "math"

// Optimizer updates one parameter group in place from its gradients.
// Groups are identified by a stable id (the layer index) so stateful
// optimizers can keep per-group moments.
type Optimizer interface {
	StepInPlace(group int, params, gradients []float64)
	LearningRate() float64
	SetLearningRate(lr float64)
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LR float64
}

// StepInPlace updates params = params - lr * gradients
func (s *SGD) StepInPlace(_ int, params, gradients []float64) {
	for i := range params {
		params[i] -= s.LR * gradients[i]
	}
}

func (s *SGD) LearningRate() float64       { return s.LR }
func (s *SGD) SetLearningRate(lr float64) { s.LR = lr }

// Adam keeps exponentially decayed first and second moments per parameter.
type Adam struct {
	LR      float64
	Beta1   float64 // decay rate for the first moment
	Beta2   float64 // decay rate for the second moment
	Epsilon float64

	state map[int]*moments
}

type moments struct {
	m, v []float64
	t    int
}

// NewAdam creates an Adam optimizer with the usual defaults.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LR:      learningRate,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-7,
		state:   make(map[int]*moments),
	}
}

// StepInPlace applies one bias-corrected Adam update to group.
func (a *Adam) StepInPlace(group int, params, gradients []float64) {
	if a.state == nil {
		a.state = make(map[int]*moments)
	}
	s, ok := a.state[group]
	if !ok || len(s.m) != len(params) {
		s = &moments{m: make([]float64, len(params)), v: make([]float64, len(params))}
		a.state[group] = s
	}
	s.t++
	c1 := 1 - math.Pow(a.Beta1, float64(s.t))
	c2 := 1 - math.Pow(a.Beta2, float64(s.t))
	for i, g := range gradients {
		s.m[i] = a.Beta1*s.m[i] + (1-a.Beta1)*g
		s.v[i] = a.Beta2*s.v[i] + (1-a.Beta2)*g*g
		mHat := s.m[i] / c1
		vHat := s.v[i] / c2
		params[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

func (a *Adam) LearningRate() float64       { return a.LR }
func (a *Adam) SetLearningRate(lr float64) { a.LR = lr }
