// Package loss provides loss functions over network outputs.
package loss

import "math"

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue []float64) []float64
}

// BackwardInPlacer is an optional interface for loss functions that can
// write the gradient into a caller-provided slice.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes (1/n) * sum((y_pred - y_true)^2)
func (MSE) Forward(yPred, yTrue []float64) float64 {
	mustMatch("MSE", yPred, yTrue)
	var sum float64
	for i := range yPred {
		d := yPred[i] - yTrue[i]
		sum += d * d
	}
	return sum / float64(len(yPred))
}

// Backward computes (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

func (MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	mustMatch("MSE", yPred, yTrue)
	factor := 2.0 / float64(len(yPred))
	for i := range yPred {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
}

// BCE is binary cross entropy over sigmoid outputs in (0, 1).
type BCE struct{}

const eps = 1e-7

func clip(p float64) float64 {
	return math.Min(math.Max(p, eps), 1-eps)
}

// Forward computes -(1/n) * sum(y*log(p) + (1-y)*log(1-p))
func (BCE) Forward(yPred, yTrue []float64) float64 {
	mustMatch("BCE", yPred, yTrue)
	var sum float64
	for i := range yPred {
		p := clip(yPred[i])
		sum += yTrue[i]*math.Log(p) + (1-yTrue[i])*math.Log(1-p)
	}
	return -sum / float64(len(yPred))
}

// Backward computes (p - y) / (p * (1-p)) / n
func (b BCE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	b.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

func (BCE) BackwardInPlace(yPred, yTrue, grad []float64) {
	mustMatch("BCE", yPred, yTrue)
	n := float64(len(yPred))
	for i := range yPred {
		p := clip(yPred[i])
		grad[i] = (p - yTrue[i]) / (p * (1 - p) * n)
	}
}

func mustMatch(name string, a, b []float64) {
	if len(a) != len(b) {
		panic(name + ": prediction and target must have same length")
	}
}
