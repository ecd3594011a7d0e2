package hockey

import (
	"fmt"
	"time"
)

// GameStat holds one team's counting stats for one game, split by on-ice
// situation (5v5, power play, penalty kill).
type GameStat struct {
	Game    string // source game label, e.g. "2023-01-14 - TOR 4, BOS 3"
	Team    string // 3-char league abbreviation
	Season  string // 8-digit season string, e.g. "20222023"
	Date    time.Time
	TeamKey string

	// 5v5 counting stats
	TOI5v5 float64
	FF     int
	FA     int
	SF     int
	GF     int
	GA     int
	XGF    float64
	XGA    float64

	// Special teams
	TOIPP float64
	XGFPP float64
	GFPP  int
	TOIPK float64
	XGAPK float64
	GAPK  int
}

// GameResult is one scheduled or completed game.
type GameResult struct {
	GameID      string
	Date        time.Time
	Venue       string
	HomeTeam    string
	AwayTeam    string
	StartTime   time.Time
	HomeScore   *int
	AwayScore   *int
	Status      string
	HomeWon     bool
	HomeTeamKey string
	AwayTeamKey string
}

// EloRating is one game's pregame ELO row from the ratings feed.
type EloRating struct {
	Season      int
	Date        time.Time
	Playoff     bool
	Neutral     bool
	HomeTeam    string // full name as published
	AwayTeam    string
	HomeAbbr    string // normalized 3-char abbreviation
	AwayAbbr    string
	HomeRating  float64
	AwayRating  float64
	HomeWinProb float64
	AwayWinProb float64
	HomeScore   *int
	AwayScore   *int
	HomeTeamKey string
	AwayTeamKey string
}

// TeamSnapshot is a team's trailing-41-game aggregate as of one game date.
// Rate stats are nil when the windowed denominator was zero.
type TeamSnapshot struct {
	TeamKey string
	Team    string
	Date    time.Time

	FFPct  *float64 // 5v5 fenwick share, 0-100
	GFPct  *float64 // 5v5 goals share, 0-100
	XGFPct *float64 // 5v5 expected-goals share, 0-100
	SHPct  *float64 // 5v5 shooting percentage, 0-100

	GFPerMinPP  *float64
	XGFPerMinPP *float64
	GAPerMinPK  *float64
	XGAPerMinPK *float64

	B2B bool
}

// FeatureRow is one game's training row: result fields joined with both
// teams' snapshots and the game's ELO ratings. Snapshot-derived fields are
// nil when the team had no snapshot for the game date.
type FeatureRow struct {
	GameID  string
	HomeWon bool

	HomeTeam    string
	HomeTeamKey string
	HomeFF      *float64
	HomeGF      *float64
	HomeXGF     *float64
	HomeSH      *float64
	HomeGFPP    *float64
	HomeXGFPP   *float64
	HomeGAPK    *float64
	HomeXGAPK   *float64
	HomeB2B     *bool

	AwayTeam    string
	AwayTeamKey string
	AwayFF      *float64
	AwayGF      *float64
	AwayXGF     *float64
	AwaySH      *float64
	AwayGFPP    *float64
	AwayXGFPP   *float64
	AwayGAPK    *float64
	AwayXGAPK   *float64
	AwayB2B     *bool

	HomeElo   float64
	AwayElo   float64
	Evaluated time.Time
}

// Prediction is one row of the append-only prediction log.
type Prediction struct {
	GameID    string
	Date      time.Time
	Venue     string
	HomeTeam  string
	AwayTeam  string
	StartTime time.Time
	HomeWin   bool
	HomeProb  float64 // rounded to three decimals before persistence
	AwayProb  float64
}

// TeamKey builds the composite key joining stat, result and ELO rows.
func TeamKey(team string, date time.Time) string {
	return fmt.Sprintf("%s_%s", team, date.Format("2006-01-02"))
}

// SeasonString returns the 8-digit season a date falls in. August through
// December belong to the season starting that year, January through July to
// the season ending that year.
func SeasonString(date time.Time) string {
	year := date.Year()
	if date.Month() > time.July {
		return fmt.Sprintf("%d%d", year, year+1)
	}
	return fmt.Sprintf("%d%d", year-1, year)
}

// DateOnly truncates a time to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
