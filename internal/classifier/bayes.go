package classifier

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BayesOptions configures NaiveBayes.
type BayesOptions struct {
	// VarSmoothing is the share of the largest feature variance added to
	// every variance, default 1e-9.
	VarSmoothing float64
}

// NaiveBayes is Gaussian naive Bayes fit in closed form.
type NaiveBayes struct {
	Options BayesOptions
}

func (*NaiveBayes) Name() string { return "bayes" }

func (nb *NaiveBayes) Fit(X [][]float64, y []int) (TrainedModel, error) {
	d, err := checkFit(X, y)
	if err != nil {
		return nil, err
	}
	smoothing := nb.Options.VarSmoothing
	if smoothing <= 0 {
		smoothing = 1e-9
	}

	var byClass [2][][]float64
	for c := range byClass {
		byClass[c] = make([][]float64, d)
	}
	all := make([][]float64, d)
	for i, row := range X {
		for j, v := range row {
			byClass[y[i]][j] = append(byClass[y[i]][j], v)
			all[j] = append(all[j], v)
		}
	}
	maxVar := 0.0
	for _, col := range all {
		_, v := stat.PopMeanVariance(col, nil)
		maxVar = math.Max(maxVar, v)
	}
	epsilon := smoothing * maxVar
	if epsilon == 0 {
		epsilon = smoothing
	}

	m := &bayesModel{dim: d}
	for c := 0; c < 2; c++ {
		m.logPrior[c] = math.Log(float64(len(byClass[c][0])) / float64(len(X)))
		m.mean[c] = make([]float64, d)
		m.variance[c] = make([]float64, d)
		for j, col := range byClass[c] {
			mu, v := stat.PopMeanVariance(col, nil)
			m.mean[c][j] = mu
			m.variance[c][j] = v + epsilon
		}
	}
	return m, nil
}

type bayesModel struct {
	dim      int
	logPrior [2]float64
	mean     [2][]float64
	variance [2][]float64
}

func (m *bayesModel) Dimensions() int              { return m.dim }
func (m *bayesModel) Probability() ProbabilityKind { return Native }

func (m *bayesModel) jointLogLikelihood(x []float64) [2]float64 {
	var jll [2]float64
	for c := 0; c < 2; c++ {
		s := m.logPrior[c]
		for j, v := range x {
			d := v - m.mean[c][j]
			s -= 0.5*math.Log(2*math.Pi*m.variance[c][j]) + d*d/(2*m.variance[c][j])
		}
		jll[c] = s
	}
	return jll
}

func (m *bayesModel) Predict(X [][]float64) ([]int, error) {
	if err := checkPredict(X, m.dim); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		if jll := m.jointLogLikelihood(x); jll[1] > jll[0] {
			out[i] = 1
		}
	}
	return out, nil
}

func (m *bayesModel) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkPredict(X, m.dim); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		jll := m.jointLogLikelihood(x)
		out[i] = math.Exp(jll[1] - floats.LogSumExp(jll[:]))
	}
	return out, nil
}
