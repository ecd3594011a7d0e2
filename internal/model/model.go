// Package model fits and applies the home-win classifier: an L2-regularized
// logistic regression over each side's eight rolling rate stats plus one-hot
// encoded back-to-back flags. ELO ratings ride along in the feature table but
// are deliberately not model inputs.
package model

import (
	"fmt"
	"math"

	"github.com/pucksense/nhlbets/internal/hockey"
)

const (
	numNumeric = 16
	numInputs  = numNumeric + 4 // two boolean flags, one-hot into two columns each

	iterations   = 1000
	learningRate = 0.1
	// regStrength mirrors C=0.01: smaller C means a heavier L2 penalty.
	regStrength = 0.01
)

// Model is a trained classifier. Numeric inputs are standardized with the
// mean and scale fit on the training set.
type Model struct {
	means   []float64
	scales  []float64
	weights []float64
	bias    float64

	// TrainedRows and SkippedRows report how many feature rows were used
	// and how many were dropped for missing values.
	TrainedRows int
	SkippedRows int
}

// Train fits the classifier on historical feature rows. Rows with any
// missing stat or flag are skipped; at least one complete row per class is
// required.
func Train(rows []hockey.FeatureRow) (*Model, error) {
	var xs [][]float64
	var ys []float64
	skipped := 0
	for _, row := range rows {
		vec, ok := numericVector(row)
		if !ok {
			skipped++
			continue
		}
		xs = append(xs, vec)
		y := 0.0
		if row.HomeWon {
			y = 1.0
		}
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("training model: no complete feature rows (skipped %d)", skipped)
	}
	wins := 0.0
	for _, y := range ys {
		wins += y
	}
	if wins == 0 || wins == float64(len(ys)) {
		return nil, fmt.Errorf("training model: need both outcomes, got %d wins in %d rows", int(wins), len(ys))
	}

	m := &Model{
		weights:     make([]float64, numInputs),
		TrainedRows: len(xs),
		SkippedRows: skipped,
	}
	m.fitScaler(xs)

	inputs := make([][]float64, len(xs))
	for i, vec := range xs {
		inputs[i] = m.encode(vec)
	}

	n := float64(len(inputs))
	lambda := 1.0 / (regStrength * n)
	grad := make([]float64, numInputs)
	for iter := 0; iter < iterations; iter++ {
		for k := range grad {
			grad[k] = 0
		}
		gradBias := 0.0
		for i, x := range inputs {
			p := sigmoid(dot(m.weights, x) + m.bias)
			residual := p - ys[i]
			for k, v := range x {
				grad[k] += residual * v
			}
			gradBias += residual
		}
		for k := range m.weights {
			m.weights[k] -= learningRate * (grad[k]/n + lambda*m.weights[k])
		}
		m.bias -= learningRate * gradBias / n
	}
	return m, nil
}

// Predict classifies one game. The row must carry a complete feature vector;
// a nil stat or flag is a data error, not a silent zero.
func (m *Model) Predict(row hockey.FeatureRow) (homeWin bool, homeProb, awayProb float64, err error) {
	vec, ok := numericVector(row)
	if !ok {
		return false, 0, 0, fmt.Errorf("predicting game %s: incomplete feature vector (%s vs %s)",
			row.GameID, row.HomeTeam, row.AwayTeam)
	}
	p := sigmoid(dot(m.weights, m.encode(vec)) + m.bias)
	return p >= 0.5, p, 1 - p, nil
}

// fitScaler computes per-column means and population standard deviations.
// Constant columns keep a scale of one so standardization is a no-op there.
func (m *Model) fitScaler(xs [][]float64) {
	n := float64(len(xs))
	m.means = make([]float64, numNumeric)
	m.scales = make([]float64, numNumeric)
	for _, vec := range xs {
		for j := 0; j < numNumeric; j++ {
			m.means[j] += vec[j]
		}
	}
	for j := range m.means {
		m.means[j] /= n
	}
	for _, vec := range xs {
		for j := 0; j < numNumeric; j++ {
			d := vec[j] - m.means[j]
			m.scales[j] += d * d
		}
	}
	for j := range m.scales {
		m.scales[j] = math.Sqrt(m.scales[j] / n)
		if m.scales[j] == 0 {
			m.scales[j] = 1
		}
	}
}

// encode standardizes the 16 numeric stats and appends the one-hot flag
// columns. The vector layout from numericVector places the two flags last.
func (m *Model) encode(vec []float64) []float64 {
	out := make([]float64, numInputs)
	for j := 0; j < numNumeric; j++ {
		out[j] = (vec[j] - m.means[j]) / m.scales[j]
	}
	for f := 0; f < 2; f++ {
		if vec[numNumeric+f] == 0 {
			out[numNumeric+2*f] = 1
		} else {
			out[numNumeric+2*f+1] = 1
		}
	}
	return out
}

// numericVector flattens a feature row into the 16 numeric stats followed by
// the two raw flags. ok is false when any field is missing.
func numericVector(row hockey.FeatureRow) ([]float64, bool) {
	stats := []*float64{
		row.HomeFF, row.HomeGF, row.HomeXGF, row.HomeSH,
		row.HomeGFPP, row.HomeXGFPP, row.HomeGAPK, row.HomeXGAPK,
		row.AwayFF, row.AwayGF, row.AwayXGF, row.AwaySH,
		row.AwayGFPP, row.AwayXGFPP, row.AwayGAPK, row.AwayXGAPK,
	}
	vec := make([]float64, 0, numNumeric+2)
	for _, s := range stats {
		if s == nil {
			return nil, false
		}
		vec = append(vec, *s)
	}
	for _, flag := range []*bool{row.HomeB2B, row.AwayB2B} {
		if flag == nil {
			return nil, false
		}
		if *flag {
			vec = append(vec, 1)
		} else {
			vec = append(vec, 0)
		}
	}
	return vec, true
}

// Round3 rounds a probability to the three decimal places the prediction
// log stores.
func Round3(p float64) float64 {
	return math.Round(p*1000) / 1000
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
