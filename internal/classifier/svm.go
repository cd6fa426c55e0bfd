package classifier

import (
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"
	"go.uber.org/zap"

	"github.com/FlavioCFOliveira/GoFraud/internal/activations"
	"github.com/FlavioCFOliveira/GoFraud/internal/apperr"
	"github.com/FlavioCFOliveira/GoFraud/internal/preprocess"
	"github.com/FlavioCFOliveira/GoFraud/internal/seed"
)

// SVMOptions configures SVM. Zero values take the defaults.
type SVMOptions struct {
	Kernel     string  // "rbf" (default) or "linear"
	Lambda     float64 // regularisation strength, default 1e-4
	Epochs     int     // passes over the training set, default 20
	Gamma      float64 // rbf width, default 1/features
	Components int     // random Fourier features for rbf, default 300
	// NoProbability skips Platt scaling; the model then reports no scores.
	NoProbability bool
}

func (o SVMOptions) withDefaults(d int) SVMOptions {
	if o.Kernel == "" {
		o.Kernel = "rbf"
	}
	o.Kernel = strings.ToLower(o.Kernel)
	if o.Lambda <= 0 {
		o.Lambda = 1e-4
	}
	if o.Epochs <= 0 {
		o.Epochs = 20
	}
	if o.Gamma <= 0 {
		o.Gamma = 1 / float64(d)
	}
	if o.Components <= 0 {
		o.Components = 300
	}
	return o
}

// SVM is a soft-margin support vector machine trained with Pegasos
// (stochastic sub-gradient descent on the hinge loss). The rbf kernel is
// approximated by random Fourier features. Probabilities come from Platt
// scaling of the decision values and are marked Approximate.
type SVM struct {
	Options SVMOptions
	Seed    *int64
}

func (*SVM) Name() string { return "svm" }

func (s *SVM) Fit(X [][]float64, y []int) (TrainedModel, error) {
	d, err := checkFit(X, y)
	if err != nil {
		return nil, err
	}
	opts := s.Options.withDefaults(d)
	if opts.Kernel != "rbf" && opts.Kernel != "linear" {
		return nil, apperr.Configf("svm.kernel", "unknown kernel %q (want linear or rbf)", opts.Kernel)
	}
	rng := seed.Rand(s.Seed)

	scaler, err := preprocess.FitStandard(X)
	if err != nil {
		return nil, err
	}
	m := &svmModel{scaler: scaler, dim: d, kind: Approximate}
	if opts.NoProbability {
		m.kind = None
	}
	if opts.Kernel == "rbf" {
		m.features = newFourierFeatures(d, opts.Components, opts.Gamma, rng)
	}
	Z, err := m.transform(X)
	if err != nil {
		return nil, err
	}

	m.weights = pegasos(Z, y, opts.Lambda, opts.Epochs, rng)
	if m.kind == Approximate {
		f := make([]float64, len(Z))
		for i, z := range Z {
			f[i] = m.decision(z)
		}
		m.plattA, m.plattB = platt(f, y)
	}
	logger.Debug("svm fit",
		zap.String("kernel", opts.Kernel), zap.Int("rows", len(X)), zap.Int("features", len(Z[0])),
		zap.Float64("platt_a", m.plattA), zap.Float64("platt_b", m.plattB))
	return m, nil
}

// pegasos trains w on rows augmented with a constant bias input. Labels are
// mapped to ±1.
func pegasos(Z [][]float64, y []int, lambda float64, epochs int, rng *rand.Rand) []float64 {
	dim := len(Z[0]) + 1
	w := make([]float64, dim)
	order := rng.Perm(len(Z))
	radius := 1 / math.Sqrt(lambda)
	t := 0
	for e := 0; e < epochs; e++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			t++
			eta := 1 / (lambda * float64(t))
			label := float64(2*y[i] - 1)
			margin := label * (floats.Dot(w[:dim-1], Z[i]) + w[dim-1])
			floats.Scale(1-eta*lambda, w)
			if margin < 1 {
				floats.AddScaled(w[:dim-1], eta*label, Z[i])
				w[dim-1] += eta * label
			}
			if norm := floats.Norm(w, 2); norm > radius {
				floats.Scale(radius/norm, w)
			}
		}
	}
	return w
}

// platt fits P(y=1|f) = 1/(1+exp(A*f+B)) by Newton's method with backtracking
// on regularised targets.
func platt(f []float64, y []int) (A, B float64) {
	var nPos, nNeg float64
	for _, v := range y {
		if v == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	hi := (nPos + 1) / (nPos + 2)
	lo := 1 / (nNeg + 2)
	t := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			t[i] = hi
		} else {
			t[i] = lo
		}
	}

	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)
	A, B = 0, math.Log((nNeg+1)/(nPos+1))
	objective := func(A, B float64) float64 {
		var fval float64
		for i := range f {
			fApB := f[i]*A + B
			if fApB >= 0 {
				fval += t[i]*fApB + math.Log1p(math.Exp(-fApB))
			} else {
				fval += (t[i]-1)*fApB + math.Log1p(math.Exp(fApB))
			}
		}
		return fval
	}
	fval := objective(A, B)
	for it := 0; it < maxIter; it++ {
		h11, h22, h21 := sigma, sigma, 0.0
		var g1, g2 float64
		for i := range f {
			fApB := f[i]*A + B
			var p, q float64
			if fApB >= 0 {
				p = math.Exp(-fApB) / (1 + math.Exp(-fApB))
				q = 1 / (1 + math.Exp(-fApB))
			} else {
				p = 1 / (1 + math.Exp(fApB))
				q = math.Exp(fApB) / (1 + math.Exp(fApB))
			}
			d2 := p * q
			h11 += f[i] * f[i] * d2
			h22 += d2
			h21 += f[i] * d2
			d1 := t[i] - p
			g1 += f[i] * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}
		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB
		step := 1.0
		for step >= minStep {
			nA, nB := A+step*dA, B+step*dB
			if nf := objective(nA, nB); nf < fval+0.0001*step*gd {
				A, B, fval = nA, nB, nf
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}
	return A, B
}

// fourierFeatures maps x to sqrt(2/D) cos(Wx + b), approximating the rbf
// kernel exp(-gamma*|x-x'|^2).
type fourierFeatures struct {
	w [][]float64
	b []float64
}

func newFourierFeatures(d, components int, gamma float64, rng *rand.Rand) *fourierFeatures {
	ff := &fourierFeatures{w: make([][]float64, components), b: make([]float64, components)}
	std := math.Sqrt(2 * gamma)
	for k := range ff.w {
		ff.w[k] = make([]float64, d)
		for j := range ff.w[k] {
			ff.w[k][j] = rng.NormFloat64() * std
		}
		ff.b[k] = rng.Float64() * 2 * math.Pi
	}
	return ff
}

func (ff *fourierFeatures) apply(x []float64) []float64 {
	out := make([]float64, len(ff.w))
	scale := math.Sqrt(2 / float64(len(ff.w)))
	for k, w := range ff.w {
		out[k] = scale * math.Cos(floats.Dot(w, x)+ff.b[k])
	}
	return out
}

type svmModel struct {
	scaler   *preprocess.StandardScaler
	features *fourierFeatures // nil for the linear kernel
	weights  []float64        // last entry is the bias
	dim      int
	kind     ProbabilityKind
	plattA   float64
	plattB   float64
}

func (m *svmModel) Dimensions() int              { return m.dim }
func (m *svmModel) Probability() ProbabilityKind { return m.kind }

func (m *svmModel) transform(X [][]float64) ([][]float64, error) {
	Xs, err := m.scaler.Transform(X)
	if err != nil || m.features == nil {
		return Xs, err
	}
	for i, row := range Xs {
		Xs[i] = m.features.apply(row)
	}
	return Xs, nil
}

func (m *svmModel) decision(z []float64) float64 {
	n := len(m.weights) - 1
	return floats.Dot(m.weights[:n], z) + m.weights[n]
}

// DecisionFunction returns the signed margin of every row.
func (m *svmModel) DecisionFunction(X [][]float64) ([]float64, error) {
	if err := checkPredict(X, m.dim); err != nil {
		return nil, err
	}
	Z, err := m.transform(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(Z))
	for i, z := range Z {
		out[i] = m.decision(z)
	}
	return out, nil
}

// Predict labels rows by the sign of the decision function.
func (m *svmModel) Predict(X [][]float64) ([]int, error) {
	f, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(f))
	for i, v := range f {
		if v >= 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func (m *svmModel) PredictProbability(X [][]float64) ([]float64, error) {
	f, err := m.DecisionFunction(X)
	if err != nil || m.kind == None {
		return nil, err
	}
	for i, v := range f {
		f[i] = activations.Logistic(-(m.plattA*v + m.plattB))
	}
	return f, nil
}
