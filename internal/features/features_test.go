package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucksense/nhlbets/internal/hockey"
)

var today = time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)

func result(id, home, away string, date time.Time, homeWon bool) hockey.GameResult {
	return hockey.GameResult{
		GameID:      id,
		Date:        date,
		HomeTeam:    home,
		AwayTeam:    away,
		HomeWon:     homeWon,
		HomeTeamKey: hockey.TeamKey(home, date),
		AwayTeamKey: hockey.TeamKey(away, date),
	}
}

func rating(home, away string, date time.Time, homeElo, awayElo float64) hockey.EloRating {
	return hockey.EloRating{
		Date:        date,
		HomeAbbr:    home,
		AwayAbbr:    away,
		HomeRating:  homeElo,
		AwayRating:  awayElo,
		HomeTeamKey: hockey.TeamKey(home, date),
		AwayTeamKey: hockey.TeamKey(away, date),
	}
}

func snapshot(team string, date time.Time, ff float64, b2b bool) hockey.TeamSnapshot {
	return hockey.TeamSnapshot{
		TeamKey: hockey.TeamKey(team, date),
		Team:    team,
		Date:    date,
		FFPct:   &ff,
		B2B:     b2b,
	}
}

func TestBuildJoinSemantics(t *testing.T) {
	gameDate := time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC)
	games := []hockey.GameResult{
		result("2022020700", "BOS", "TOR", gameDate, true),
		// No ELO row: must be dropped even though snapshots exist.
		result("2022020701", "COL", "DAL", gameDate, false),
	}
	ratings := []hockey.EloRating{rating("BOS", "TOR", gameDate, 1550, 1520)}
	snaps := []hockey.TeamSnapshot{
		snapshot("BOS", gameDate, 52.5, true),
		snapshot("COL", gameDate, 55.0, false),
		snapshot("DAL", gameDate, 48.0, false),
		// No TOR snapshot: away stat fields stay nil.
	}

	rows := Build(games, snaps, ratings, today)
	require.Len(t, rows, 1, "games without an ELO row are excluded")

	row := rows[0]
	assert.Equal(t, "2022020700", row.GameID)
	assert.True(t, row.HomeWon)
	assert.Equal(t, 1550.0, row.HomeElo)
	assert.Equal(t, 1520.0, row.AwayElo)

	require.NotNil(t, row.HomeFF)
	assert.Equal(t, 52.5, *row.HomeFF)
	require.NotNil(t, row.HomeB2B)
	assert.True(t, *row.HomeB2B)

	assert.Nil(t, row.AwayFF, "missing snapshot keeps stat fields nil")
	assert.Nil(t, row.AwayB2B)
}

func TestBuildHorizon(t *testing.T) {
	inside := today.AddDate(-3, 0, 1)
	outside := today.AddDate(-3, 0, 0)
	games := []hockey.GameResult{
		result("g-old", "BOS", "TOR", outside, false),
		result("g-new", "BOS", "TOR", inside, true),
	}
	ratings := []hockey.EloRating{
		rating("BOS", "TOR", outside, 1500, 1500),
		rating("BOS", "TOR", inside, 1500, 1500),
	}

	rows := Build(games, nil, ratings, today)
	require.Len(t, rows, 1)
	assert.Equal(t, "g-new", rows[0].GameID)
}

func TestBuildDedupeAndOrder(t *testing.T) {
	gameDate := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	games := []hockey.GameResult{
		result("2022020900", "WPG", "CGY", gameDate, false),
		result("2022020900", "WPG", "CGY", gameDate, false), // re-scraped duplicate
		result("2022020850", "VAN", "EDM", gameDate, true),
	}
	ratings := []hockey.EloRating{
		rating("WPG", "CGY", gameDate, 1490, 1505),
		rating("VAN", "EDM", gameDate, 1460, 1530),
	}

	rows := Build(games, nil, ratings, today)
	require.Len(t, rows, 2)
	assert.Equal(t, "2022020850", rows[0].GameID)
	assert.Equal(t, "2022020900", rows[1].GameID)
}

func TestBuildCardinalityMatchesEloJoin(t *testing.T) {
	// FeatureRow count equals the count of in-horizon games with a matching
	// ELO row, regardless of snapshot coverage.
	var games []hockey.GameResult
	var ratings []hockey.EloRating
	gameDate := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	teams := []string{"ANA", "BUF", "CAR", "DET", "FLA", "MIN"}
	for i := 0; i < len(teams); i += 2 {
		id := string(rune('a' + i))
		games = append(games, result(id, teams[i], teams[i+1], gameDate, true))
		if i < 4 {
			ratings = append(ratings, rating(teams[i], teams[i+1], gameDate, 1500, 1500))
		}
	}

	rows := Build(games, nil, ratings, today)
	assert.Len(t, rows, 2)
}
