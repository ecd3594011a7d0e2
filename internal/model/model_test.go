package model

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucksense/nhlbets/internal/hockey"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

// row builds a complete feature row whose only signal is the home/away 5v5
// goals share.
func row(id string, homeGF, awayGF float64, homeWon bool) hockey.FeatureRow {
	return hockey.FeatureRow{
		GameID:  id,
		HomeWon: homeWon,
		HomeFF:  f(50), HomeGF: f(homeGF), HomeXGF: f(50), HomeSH: f(9),
		HomeGFPP: f(0.15), HomeXGFPP: f(0.12), HomeGAPK: f(0.14), HomeXGAPK: f(0.11),
		AwayFF: f(50), AwayGF: f(awayGF), AwayXGF: f(50), AwaySH: f(9),
		AwayGFPP: f(0.15), AwayXGFPP: f(0.12), AwayGAPK: f(0.14), AwayXGAPK: f(0.11),
		HomeB2B: b(false), AwayB2B: b(false),
	}
}

func trainingRows(n int) []hockey.FeatureRow {
	rng := rand.New(rand.NewSource(7))
	rows := make([]hockey.FeatureRow, 0, n)
	for i := 0; i < n; i++ {
		homeGF := 40 + rng.Float64()*20
		awayGF := 40 + rng.Float64()*20
		rows = append(rows, row(fmt.Sprintf("g%04d", i), homeGF, awayGF, homeGF > awayGF))
	}
	return rows
}

func TestTrainAndPredictSeparableData(t *testing.T) {
	m, err := Train(trainingRows(400))
	require.NoError(t, err)
	assert.Equal(t, 400, m.TrainedRows)
	assert.Equal(t, 0, m.SkippedRows)

	win, homeProb, awayProb, err := m.Predict(row("strong-home", 58, 42, false))
	require.NoError(t, err)
	assert.True(t, win)
	assert.Greater(t, homeProb, 0.5)
	assert.InDelta(t, 1.0, homeProb+awayProb, 1e-9)

	win, homeProb, _, err = m.Predict(row("strong-away", 42, 58, false))
	require.NoError(t, err)
	assert.False(t, win)
	assert.Less(t, homeProb, 0.5)
}

func TestTrainSkipsIncompleteRows(t *testing.T) {
	rows := trainingRows(100)
	rows[3].HomeSH = nil
	rows[40].AwayB2B = nil

	m, err := Train(rows)
	require.NoError(t, err)
	assert.Equal(t, 98, m.TrainedRows)
	assert.Equal(t, 2, m.SkippedRows)
}

func TestTrainRequiresBothOutcomes(t *testing.T) {
	rows := []hockey.FeatureRow{
		row("a", 55, 45, true),
		row("b", 56, 44, true),
	}
	_, err := Train(rows)
	assert.Error(t, err)
}

func TestTrainNoCompleteRows(t *testing.T) {
	r := row("a", 55, 45, true)
	r.HomeFF = nil
	_, err := Train([]hockey.FeatureRow{r})
	assert.Error(t, err)
}

func TestPredictRejectsIncompleteVector(t *testing.T) {
	m, err := Train(trainingRows(100))
	require.NoError(t, err)

	// A team with no recorded history joins with nil home-side stats; the
	// classifier rejects rather than guessing.
	incomplete := row("expansion", 50, 50, false)
	incomplete.HomeTeam = "UTA"
	incomplete.HomeFF = nil
	incomplete.HomeGF = nil
	incomplete.HomeB2B = nil

	_, _, _, err = m.Predict(incomplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expansion")
	assert.Contains(t, err.Error(), "UTA")
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.123, Round3(0.12345))
	assert.Equal(t, 0.124, Round3(0.1236))
	assert.Equal(t, 1.0, Round3(0.9999))
	assert.Equal(t, 0.0, Round3(0.0004))
}
