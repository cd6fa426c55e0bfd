package classifier

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/activations"
	"github.com/FlavioCFOliveira/GoFraud/internal/preprocess"
)

// LogisticOptions configures Logistic. Zero values take the defaults.
type LogisticOptions struct {
	Epochs       int     // full-batch gradient steps, default 1000
	LearningRate float64 // default 0.5
	L2           float64 // penalty on weights, default 1e-4, negative disables
	Tolerance    float64 // stop when the gradient norm falls below, default 1e-6
}

func (o LogisticOptions) withDefaults() LogisticOptions {
	if o.Epochs <= 0 {
		o.Epochs = 1000
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.5
	}
	switch {
	case o.L2 == 0:
		o.L2 = 1e-4
	case o.L2 < 0:
		o.L2 = 0
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	return o
}

// Logistic is L2-regularised logistic regression on standardised features,
// trained by full-batch gradient descent. The fit is deterministic.
type Logistic struct {
	Options LogisticOptions
}

func (*Logistic) Name() string { return "logistic" }

func (l *Logistic) Fit(X [][]float64, y []int) (TrainedModel, error) {
	d, err := checkFit(X, y)
	if err != nil {
		return nil, err
	}
	opts := l.Options.withDefaults()
	scaler, err := preprocess.FitStandard(X)
	if err != nil {
		return nil, err
	}
	Xs, err := scaler.Transform(X)
	if err != nil {
		return nil, err
	}

	n := len(Xs)
	A := mat.NewDense(n, d, nil)
	for i, row := range Xs {
		A.SetRow(i, row)
	}
	target := toFloat(y)
	w := mat.NewVecDense(d, nil)
	var b float64
	z := mat.NewVecDense(n, nil)
	residual := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)

	epoch := 0
	for ; epoch < opts.Epochs; epoch++ {
		z.MulVec(A, w)
		var gb float64
		for i := 0; i < n; i++ {
			r := activations.Logistic(z.AtVec(i)+b) - target[i]
			residual.SetVec(i, r)
			gb += r
		}
		gb /= float64(n)
		grad.MulVec(A.T(), residual)
		grad.ScaleVec(1/float64(n), grad)
		grad.AddScaledVec(grad, opts.L2, w)

		w.AddScaledVec(w, -opts.LearningRate, grad)
		b -= opts.LearningRate * gb
		if floats.Norm(grad.RawVector().Data, 2)+abs(gb) < opts.Tolerance {
			break
		}
	}
	logger.Debug("logistic regression fit",
		zap.Int("rows", n), zap.Int("features", d), zap.Int("epochs", epoch))

	weights := make([]float64, d)
	copy(weights, w.RawVector().Data)
	return &logisticModel{scaler: scaler, weights: weights, bias: b}, nil
}

type logisticModel struct {
	scaler  *preprocess.StandardScaler
	weights []float64
	bias    float64
}

func (m *logisticModel) Dimensions() int              { return len(m.weights) }
func (m *logisticModel) Probability() ProbabilityKind { return Native }

func (m *logisticModel) Predict(X [][]float64) ([]int, error) {
	p, err := m.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	return threshold(p), nil
}

func (m *logisticModel) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkPredict(X, len(m.weights)); err != nil {
		return nil, err
	}
	Xs, err := m.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(Xs))
	for i, row := range Xs {
		out[i] = activations.Logistic(floats.Dot(m.weights, row) + m.bias)
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
