package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucksense/nhlbets/internal/hockey"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func nstTable(rows ...string) string {
	return fmt.Sprintf(`<html><body><table>
<tr><th>Game</th><th>Team</th><th>TOI</th><th>FF</th><th>FA</th><th>SF</th><th>GF</th><th>GA</th><th>xGF</th><th>xGA</th></tr>
%s
</table></body></html>`, strings.Join(rows, "\n"))
}

func nstRowHTML(game, team string, vals ...string) string {
	cells := []string{game, team}
	cells = append(cells, vals...)
	var b strings.Builder
	b.WriteString("<tr>")
	for _, c := range cells {
		fmt.Fprintf(&b, "<td>%s</td>", c)
	}
	b.WriteString("</tr>")
	return b.String()
}

func TestParseNSTTable(t *testing.T) {
	page := nstTable(
		nstRowHTML("2023-01-14 - TOR 4, BOS 3", "Toronto Maple Leafs", "47.27", "41", "38", "30", "4", "3", "2.51", "2.33"),
		nstRowHTML("2023-01-14 - TOR 4, BOS 3", "Boston Bruins", "47.27", "38", "41", "28", "3", "4", "2.33", "2.51"),
	)
	rows, err := parseNSTTable(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Toronto Maple Leafs", rows[0].team)
	assert.Equal(t, "41", rows[0].cols["FF"])
	assert.Equal(t, "2.33", rows[1].cols["xGF"])
}

func TestParseNSTTableNoTable(t *testing.T) {
	_, err := parseNSTTable(strings.NewReader("<html><body><p>down for maintenance</p></body></html>"))
	assert.Error(t, err)
}

func TestMergeSituations(t *testing.T) {
	game := "2023-01-14 - TOR 4, BOS 3"
	rows5v5 := []nstRow{{
		game: game, team: "Toronto Maple Leafs",
		cols: map[string]string{
			"Game": game, "Team": "Toronto Maple Leafs", "TOI": "47.27",
			"FF": "41", "FA": "38", "SF": "30", "GF": "4", "GA": "3",
			"xGF": "2.51", "xGA": "2.33",
		},
	}}
	rowsPP := []nstRow{{
		game: game, team: "Toronto Maple Leafs",
		cols: map[string]string{
			"Game": game, "Team": "Toronto Maple Leafs", "TOI": "5.43",
			"xGF": "0.81", "GF": "1",
		},
	}}
	// No pk row for the game: pk stats must zero-fill.
	stats, err := mergeSituations(rows5v5, rowsPP, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	g := stats[0]
	assert.Equal(t, "TOR", g.Team)
	assert.Equal(t, "TOR_2023-01-14", g.TeamKey)
	assert.Equal(t, "20222023", g.Season)
	assert.Equal(t, 41, g.FF)
	assert.Equal(t, 2.51, g.XGF)
	assert.Equal(t, 5.43, g.TOIPP)
	assert.Equal(t, 1, g.GFPP)
	assert.Zero(t, g.TOIPK)
	assert.Zero(t, g.GAPK)
	assert.Zero(t, g.XGAPK)
}

func TestMergeSituationsDashIsZero(t *testing.T) {
	game := "2023-01-14 - TOR 4, BOS 3"
	rows5v5 := []nstRow{{
		game: game, team: "Boston Bruins",
		cols: map[string]string{
			"Game": game, "Team": "Boston Bruins", "TOI": "47.27",
			"FF": "38", "FA": "41", "SF": "28", "GF": "3", "GA": "4",
			"xGF": "-", "xGA": "-",
		},
	}}
	stats, err := mergeSituations(rows5v5, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, stats[0].XGF)
	assert.Zero(t, stats[0].XGA)
}

func TestFetchTeamStats(t *testing.T) {
	page := nstTable(
		nstRowHTML("2023-01-14 - TOR 4, BOS 3", "Toronto Maple Leafs", "47.27", "41", "38", "30", "4", "3", "2.51", "2.33"),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games.php", r.URL.Path)
		assert.Equal(t, "20222023", r.URL.Query().Get("fromseason"))
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	c := New(testLogger(), Options{NSTBaseURL: srv.URL})
	stats, err := c.FetchTeamStats(context.Background(), "20222023", "20222023")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "TOR", stats[0].Team)
}

func TestFilterDate(t *testing.T) {
	jan14 := time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC)
	jan15 := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	stats := []hockey.GameStat{
		{Team: "TOR", Date: jan14},
		{Team: "BOS", Date: jan15},
	}
	got := FilterDate(stats, jan15)
	require.Len(t, got, 1)
	assert.Equal(t, "BOS", got[0].Team)
}

const schedulePayload = `{
  "dates": [
    {
      "date": "2023-01-14",
      "games": [
        {
          "gamePk": 2022020567,
          "gameDate": "2023-01-14T19:00:00Z",
          "status": {"abstractGameState": "Final"},
          "venue": {"name": "TD Garden"},
          "teams": {
            "home": {"score": 4, "team": {"name": "Boston Bruins"}},
            "away": {"score": 2, "team": {"name": "Toronto Maple Leafs"}}
          }
        },
        {
          "gamePk": 2022010012,
          "gameDate": "2023-01-14T23:00:00Z",
          "status": {"abstractGameState": "Final"},
          "venue": {"name": "Somewhere"},
          "teams": {
            "home": {"score": 1, "team": {"name": "Dallas Stars"}},
            "away": {"score": 0, "team": {"name": "Minnesota Wild"}}
          }
        },
        {
          "gamePk": 2022030111,
          "gameDate": "2023-01-14T23:30:00Z",
          "status": {"abstractGameState": "Final"},
          "venue": {"name": "Elsewhere"},
          "teams": {
            "home": {"score": 3, "team": {"name": "Colorado Avalanche"}},
            "away": {"score": 5, "team": {"name": "Seattle Kraken"}}
          }
        }
      ]
    }
  ]
}`

func TestParseScheduleFiltersGameType(t *testing.T) {
	results, err := parseSchedule(strings.NewReader(schedulePayload))
	require.NoError(t, err)
	require.Len(t, results, 1, "preseason (01) and playoff (03) games are dropped")

	g := results[0]
	assert.Equal(t, "2022020567", g.GameID)
	assert.Equal(t, "BOS", g.HomeTeam)
	assert.Equal(t, "TOR", g.AwayTeam)
	assert.Equal(t, "BOS_2023-01-14", g.HomeTeamKey)
	assert.Equal(t, "TOR_2023-01-14", g.AwayTeamKey)
	assert.True(t, g.HomeWon)
	require.NotNil(t, g.HomeScore)
	assert.Equal(t, 4, *g.HomeScore)
	assert.Equal(t, "TD Garden", g.Venue)
}

func TestFetchScheduleStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(testLogger(), Options{NHLBaseURL: srv.URL})
	_, err := c.FetchSchedule(context.Background(), time.Now(), time.Now())
	assert.Error(t, err)
}

const eloCSV = `season,date,playoff,neutral,home_team,away_team,home_team_abbr,away_team_abbr,home_team_pregame_rating,away_team_pregame_rating,home_team_winprob,away_team_winprob,home_team_score,away_team_score
2023,2023-01-14,,0,Los Angeles Kings,Toronto Maple Leafs,LAK,TOR,1520.3,1545.8,0.48,0.52,2,4
2023,2023-01-14,1,0,Vegas Golden Knights,Dallas Stars,VEG,DAL,1540.0,1510.0,0.6,0.4,3,1
2023,2023-03-20,,0,Boston Bruins,Buffalo Sabres,BOS,BUF,1580.0,1470.0,0.7,0.3,,
`

func TestParseEloCSV(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	ratings, err := parseEloCSV(strings.NewReader(eloCSV), start, end)
	require.NoError(t, err)
	require.Len(t, ratings, 1, "playoff rows and out-of-range rows are dropped")

	r := ratings[0]
	assert.Equal(t, "L.A", r.HomeAbbr, "feed abbreviations normalize onto the league scheme")
	assert.Equal(t, "TOR", r.AwayAbbr)
	assert.Equal(t, "L.A_2023-01-14", r.HomeTeamKey)
	assert.Equal(t, 1520.3, r.HomeRating)
	assert.Equal(t, 0.52, r.AwayWinProb)
	require.NotNil(t, r.AwayScore)
	assert.Equal(t, 4, *r.AwayScore)
}

func TestParseEloCSVMissingColumn(t *testing.T) {
	csvData := "season,date\n2023,2023-01-14\n"
	_, err := parseEloCSV(strings.NewReader(csvData), time.Time{}, time.Now())
	assert.Error(t, err)
}
