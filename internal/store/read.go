package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// GameStats fetches the full raw stat history ordered by team and date,
// the order the rolling aggregator consumes.
func (s *Store) GameStats() ([]hockey.GameStat, error) {
	const q = `
	SELECT
		game, team, season, date, team_key,
		toi_5v5, ff, fa, sf, gf, ga, xgf, xga,
		toi_pp, xgf_pp, gf_pp, toi_pk, xga_pk, ga_pk
	FROM game_stats
	ORDER BY team, date
	`
	rows, err := s.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("querying game_stats: %w", err)
	}
	defer rows.Close()

	var stats []hockey.GameStat
	for rows.Next() {
		var g hockey.GameStat
		if err := rows.Scan(
			&g.Game, &g.Team, &g.Season, &g.Date, &g.TeamKey,
			&g.TOI5v5, &g.FF, &g.FA, &g.SF, &g.GF, &g.GA, &g.XGF, &g.XGA,
			&g.TOIPP, &g.XGFPP, &g.GFPP, &g.TOIPK, &g.XGAPK, &g.GAPK,
		); err != nil {
			return nil, fmt.Errorf("scanning game_stats row: %w", err)
		}
		stats = append(stats, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game_stats rows: %w", err)
	}
	return stats, nil
}

// GameResultsSince fetches result rows with a date strictly after the cutoff.
func (s *Store) GameResultsSince(cutoff time.Time) ([]hockey.GameResult, error) {
	const q = `
	SELECT
		game_id, date, venue, home_team, away_team, start_time,
		home_score, away_score, status, home_team_won,
		home_team_key, away_team_key
	FROM game_results
	WHERE date > $1
	ORDER BY game_id
	`
	return s.queryResults(q, cutoff)
}

// TodaysGames fetches the replaced todays_games table.
func (s *Store) TodaysGames() ([]hockey.GameResult, error) {
	const q = `
	SELECT
		game_id, date, venue, home_team, away_team, start_time,
		home_score, away_score, status, home_team_won,
		home_team_key, away_team_key
	FROM todays_games
	ORDER BY game_id
	`
	return s.queryResults(q)
}

func (s *Store) queryResults(q string, args ...interface{}) ([]hockey.GameResult, error) {
	rows, err := s.DB.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying game results: %w", err)
	}
	defer rows.Close()

	var results []hockey.GameResult
	for rows.Next() {
		var r hockey.GameResult
		var venue, status sql.NullString
		var startTime sql.NullTime
		var homeScore, awayScore sql.NullInt64
		if err := rows.Scan(
			&r.GameID, &r.Date, &venue, &r.HomeTeam, &r.AwayTeam, &startTime,
			&homeScore, &awayScore, &status, &r.HomeWon,
			&r.HomeTeamKey, &r.AwayTeamKey,
		); err != nil {
			return nil, fmt.Errorf("scanning game result row: %w", err)
		}
		r.Venue = venue.String
		r.Status = status.String
		if startTime.Valid {
			r.StartTime = startTime.Time
		}
		r.HomeScore = intPtr(homeScore)
		r.AwayScore = intPtr(awayScore)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game result rows: %w", err)
	}
	return results, nil
}

// EloRatingsSince fetches rating rows with a date strictly after the cutoff.
func (s *Store) EloRatingsSince(cutoff time.Time) ([]hockey.EloRating, error) {
	const q = `
	SELECT
		home_team_key, away_team_key, season, date, neutral,
		home_team, away_team, home_team_abbr, away_team_abbr,
		home_team_pregame_rating, away_team_pregame_rating,
		home_team_winprob, away_team_winprob,
		home_team_score, away_team_score
	FROM elo
	WHERE date > $1
	`
	rows, err := s.DB.Query(q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying elo: %w", err)
	}
	defer rows.Close()

	var ratings []hockey.EloRating
	for rows.Next() {
		var r hockey.EloRating
		var homeTeam, awayTeam sql.NullString
		var homeWinProb, awayWinProb sql.NullFloat64
		var homeScore, awayScore sql.NullInt64
		if err := rows.Scan(
			&r.HomeTeamKey, &r.AwayTeamKey, &r.Season, &r.Date, &r.Neutral,
			&homeTeam, &awayTeam, &r.HomeAbbr, &r.AwayAbbr,
			&r.HomeRating, &r.AwayRating, &homeWinProb, &awayWinProb,
			&homeScore, &awayScore,
		); err != nil {
			return nil, fmt.Errorf("scanning elo row: %w", err)
		}
		r.HomeTeam = homeTeam.String
		r.AwayTeam = awayTeam.String
		r.HomeWinProb = homeWinProb.Float64
		r.AwayWinProb = awayWinProb.Float64
		r.HomeScore = intPtr(homeScore)
		r.AwayScore = intPtr(awayScore)
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating elo rows: %w", err)
	}
	return ratings, nil
}

// Features fetches the full training table ordered by game id.
func (s *Store) Features() ([]hockey.FeatureRow, error) {
	const q = `
	SELECT
		game_id, home_team_won,
		home_team, home_team_key,
		home_ff, home_gf, home_xgf, home_sh,
		home_gf_pp, home_xgf_pp, home_ga_pk, home_xga_pk, home_b2b,
		away_team, away_team_key,
		away_ff, away_gf, away_xgf, away_sh,
		away_gf_pp, away_xgf_pp, away_ga_pk, away_xga_pk, away_b2b,
		home_elo, away_elo, evaluated
	FROM features
	ORDER BY game_id
	`
	rows, err := s.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("querying features: %w", err)
	}
	defer rows.Close()

	var out []hockey.FeatureRow
	for rows.Next() {
		var row hockey.FeatureRow
		var homeStats, awayStats [8]sql.NullFloat64
		var homeB2B, awayB2B sql.NullBool
		if err := rows.Scan(
			&row.GameID, &row.HomeWon,
			&row.HomeTeam, &row.HomeTeamKey,
			&homeStats[0], &homeStats[1], &homeStats[2], &homeStats[3],
			&homeStats[4], &homeStats[5], &homeStats[6], &homeStats[7], &homeB2B,
			&row.AwayTeam, &row.AwayTeamKey,
			&awayStats[0], &awayStats[1], &awayStats[2], &awayStats[3],
			&awayStats[4], &awayStats[5], &awayStats[6], &awayStats[7], &awayB2B,
			&row.HomeElo, &row.AwayElo, &row.Evaluated,
		); err != nil {
			return nil, fmt.Errorf("scanning feature row: %w", err)
		}
		row.HomeFF = floatPtr(homeStats[0])
		row.HomeGF = floatPtr(homeStats[1])
		row.HomeXGF = floatPtr(homeStats[2])
		row.HomeSH = floatPtr(homeStats[3])
		row.HomeGFPP = floatPtr(homeStats[4])
		row.HomeXGFPP = floatPtr(homeStats[5])
		row.HomeGAPK = floatPtr(homeStats[6])
		row.HomeXGAPK = floatPtr(homeStats[7])
		row.HomeB2B = boolPtr(homeB2B)
		row.AwayFF = floatPtr(awayStats[0])
		row.AwayGF = floatPtr(awayStats[1])
		row.AwayXGF = floatPtr(awayStats[2])
		row.AwaySH = floatPtr(awayStats[3])
		row.AwayGFPP = floatPtr(awayStats[4])
		row.AwayXGFPP = floatPtr(awayStats[5])
		row.AwayGAPK = floatPtr(awayStats[6])
		row.AwayXGAPK = floatPtr(awayStats[7])
		row.AwayB2B = boolPtr(awayB2B)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feature rows: %w", err)
	}
	return out, nil
}

// MostRecentSnapshots fetches each team's latest snapshot across the whole
// stat history.
func (s *Store) MostRecentSnapshots() (map[string]hockey.TeamSnapshot, error) {
	const q = `
	SELECT
		ts.team_key, ts.team, ts.date,
		ts.ff_pct, ts.gf_pct, ts.xgf_pct, ts.sh_pct,
		ts.gf_per_min_pp, ts.xgf_per_min_pp, ts.ga_per_min_pk, ts.xga_per_min_pk,
		ts.b2b
	FROM team_stats ts
	INNER JOIN (
		SELECT team, MAX(date) AS last_played
		FROM team_stats
		GROUP BY team
	) most_recent
	ON ts.team = most_recent.team AND ts.date = most_recent.last_played
	`
	rows, err := s.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("querying most recent snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make(map[string]hockey.TeamSnapshot)
	for rows.Next() {
		var snap hockey.TeamSnapshot
		var stats [8]sql.NullFloat64
		if err := rows.Scan(
			&snap.TeamKey, &snap.Team, &snap.Date,
			&stats[0], &stats[1], &stats[2], &stats[3],
			&stats[4], &stats[5], &stats[6], &stats[7],
			&snap.B2B,
		); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snap.FFPct = floatPtr(stats[0])
		snap.GFPct = floatPtr(stats[1])
		snap.XGFPct = floatPtr(stats[2])
		snap.SHPct = floatPtr(stats[3])
		snap.GFPerMinPP = floatPtr(stats[4])
		snap.XGFPerMinPP = floatPtr(stats[5])
		snap.GAPerMinPK = floatPtr(stats[6])
		snap.XGAPerMinPK = floatPtr(stats[7])
		snapshots[snap.Team] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

// PredictionsByDate fetches the prediction log rows for one game date.
func (s *Store) PredictionsByDate(date time.Time) ([]hockey.Prediction, error) {
	const q = `
	SELECT
		game_id, date, venue, home_team, away_team, start_time,
		home_win, home_prob, away_prob
	FROM predictions
	WHERE date = $1
	ORDER BY start_time, game_id
	`
	rows, err := s.DB.Query(q, hockey.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	var preds []hockey.Prediction
	for rows.Next() {
		var p hockey.Prediction
		var venue sql.NullString
		var startTime sql.NullTime
		if err := rows.Scan(
			&p.GameID, &p.Date, &venue, &p.HomeTeam, &p.AwayTeam, &startTime,
			&p.HomeWin, &p.HomeProb, &p.AwayProb,
		); err != nil {
			return nil, fmt.Errorf("scanning prediction row: %w", err)
		}
		p.Venue = venue.String
		if startTime.Valid {
			p.StartTime = startTime.Time
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prediction rows: %w", err)
	}
	return preds, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}
