package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucksense/nhlbets/internal/hockey"
)

type fakeReader struct {
	preds []hockey.Prediction
	err   error

	gotDate time.Time
}

func (f *fakeReader) PredictionsByDate(date time.Time) ([]hockey.Prediction, error) {
	f.gotDate = date
	return f.preds, f.err
}

func testServer(t *testing.T, reader PredictionReader) *Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	s, err := NewServer(reader, log)
	require.NoError(t, err)
	s.now = func() time.Time {
		return time.Date(2023, 1, 15, 16, 30, 0, 0, time.UTC)
	}
	return s
}

func TestIndexListsPredictions(t *testing.T) {
	reader := &fakeReader{preds: []hockey.Prediction{
		{
			GameID:    "2022020590",
			Date:      time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			Venue:     "Ball Arena",
			HomeTeam:  "COL",
			AwayTeam:  "SEA",
			StartTime: time.Date(2023, 1, 15, 19, 0, 0, 0, time.UTC),
			HomeWin:   true,
			HomeProb:  0.617,
			AwayProb:  0.383,
		},
	}}
	s := testServer(t, reader)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Predictions for 2023-01-15")
	assert.Contains(t, body, "SEA at COL")
	assert.Contains(t, body, "0.617")
	assert.Contains(t, body, "Ball Arena")
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), reader.gotDate,
		"queries with the truncated UTC date")
}

func TestIndexEmptySlate(t *testing.T) {
	s := testServer(t, &fakeReader{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No games today.")
}

func TestIndexStoreError(t *testing.T) {
	s := testServer(t, &fakeReader{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := testServer(t, &fakeReader{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
