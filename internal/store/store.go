// Package store persists raw, derived and prediction tables in Postgres.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// Store wraps a Postgres connection and provides methods to persist and
// retrieve pipeline data.
type Store struct {
	DB *sql.DB
}

// NewStore opens a Postgres connection using the given connection string.
func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// verify early
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrate creates the necessary tables if they do not exist.
func (s *Store) Migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS game_stats (
			game      TEXT NOT NULL,
			team      VARCHAR(3) NOT NULL,
			season    VARCHAR(8) NOT NULL,
			date      DATE NOT NULL,
			team_key  VARCHAR(15) NOT NULL,
			toi_5v5   DOUBLE PRECISION NOT NULL,
			ff        INT NOT NULL,
			fa        INT NOT NULL,
			sf        INT NOT NULL,
			gf        INT NOT NULL,
			ga        INT NOT NULL,
			xgf       DOUBLE PRECISION NOT NULL,
			xga       DOUBLE PRECISION NOT NULL,
			toi_pp    DOUBLE PRECISION NOT NULL,
			xgf_pp    DOUBLE PRECISION NOT NULL,
			gf_pp     INT NOT NULL,
			toi_pk    DOUBLE PRECISION NOT NULL,
			xga_pk    DOUBLE PRECISION NOT NULL,
			ga_pk     INT NOT NULL,
			PRIMARY KEY (team, date)
		);`,
		`CREATE TABLE IF NOT EXISTS game_results (
			game_id        VARCHAR PRIMARY KEY,
			date           DATE NOT NULL,
			venue          TEXT,
			home_team      VARCHAR(3) NOT NULL,
			away_team      VARCHAR(3) NOT NULL,
			start_time     TIMESTAMPTZ,
			home_score     INT,
			away_score     INT,
			status         TEXT,
			home_team_won  BOOLEAN NOT NULL,
			home_team_key  VARCHAR(15) NOT NULL,
			away_team_key  VARCHAR(15) NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS todays_games (
			game_id        VARCHAR PRIMARY KEY,
			date           DATE NOT NULL,
			venue          TEXT,
			home_team      VARCHAR(3) NOT NULL,
			away_team      VARCHAR(3) NOT NULL,
			start_time     TIMESTAMPTZ,
			home_score     INT,
			away_score     INT,
			status         TEXT,
			home_team_won  BOOLEAN NOT NULL,
			home_team_key  VARCHAR(15) NOT NULL,
			away_team_key  VARCHAR(15) NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS elo (
			home_team_key             VARCHAR(15) PRIMARY KEY,
			away_team_key             VARCHAR(15) NOT NULL,
			season                    INT,
			date                      DATE NOT NULL,
			neutral                   BOOLEAN NOT NULL DEFAULT FALSE,
			home_team                 TEXT,
			away_team                 TEXT,
			home_team_abbr            VARCHAR(3) NOT NULL,
			away_team_abbr            VARCHAR(3) NOT NULL,
			home_team_pregame_rating  DOUBLE PRECISION NOT NULL,
			away_team_pregame_rating  DOUBLE PRECISION NOT NULL,
			home_team_winprob         DOUBLE PRECISION,
			away_team_winprob         DOUBLE PRECISION,
			home_team_score           INT,
			away_team_score           INT
		);`,
		`CREATE TABLE IF NOT EXISTS team_stats (
			team_key        VARCHAR(15) PRIMARY KEY,
			team            VARCHAR(3) NOT NULL,
			date            DATE NOT NULL,
			ff_pct          DOUBLE PRECISION,
			gf_pct          DOUBLE PRECISION,
			xgf_pct         DOUBLE PRECISION,
			sh_pct          DOUBLE PRECISION,
			gf_per_min_pp   DOUBLE PRECISION,
			xgf_per_min_pp  DOUBLE PRECISION,
			ga_per_min_pk   DOUBLE PRECISION,
			xga_per_min_pk  DOUBLE PRECISION,
			b2b             BOOLEAN NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS features (
			game_id        VARCHAR PRIMARY KEY,
			home_team_won  BOOLEAN NOT NULL,
			home_team      VARCHAR(3) NOT NULL,
			home_team_key  VARCHAR(15) NOT NULL,
			home_ff        DOUBLE PRECISION,
			home_gf        DOUBLE PRECISION,
			home_xgf       DOUBLE PRECISION,
			home_sh        DOUBLE PRECISION,
			home_gf_pp     DOUBLE PRECISION,
			home_xgf_pp    DOUBLE PRECISION,
			home_ga_pk     DOUBLE PRECISION,
			home_xga_pk    DOUBLE PRECISION,
			home_b2b       BOOLEAN,
			away_team      VARCHAR(3) NOT NULL,
			away_team_key  VARCHAR(15) NOT NULL,
			away_ff        DOUBLE PRECISION,
			away_gf        DOUBLE PRECISION,
			away_xgf       DOUBLE PRECISION,
			away_sh        DOUBLE PRECISION,
			away_gf_pp     DOUBLE PRECISION,
			away_xgf_pp    DOUBLE PRECISION,
			away_ga_pk     DOUBLE PRECISION,
			away_xga_pk    DOUBLE PRECISION,
			away_b2b       BOOLEAN,
			home_elo       DOUBLE PRECISION NOT NULL,
			away_elo       DOUBLE PRECISION NOT NULL,
			evaluated      DATE NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS predictions (
			game_id     VARCHAR PRIMARY KEY,
			date        DATE NOT NULL,
			venue       TEXT,
			home_team   VARCHAR(3) NOT NULL,
			away_team   VARCHAR(3) NOT NULL,
			start_time  TIMESTAMPTZ,
			home_win    BOOLEAN NOT NULL,
			home_prob   DOUBLE PRECISION NOT NULL,
			away_prob   DOUBLE PRECISION NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := s.DB.Exec(q); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// InsertGameStats appends raw stat rows. Re-ingesting a (team, date) key
// supersedes the stored row.
func (s *Store) InsertGameStats(stats []hockey.GameStat) error {
	const q = `
	INSERT INTO game_stats (
		game, team, season, date, team_key,
		toi_5v5, ff, fa, sf, gf, ga, xgf, xga,
		toi_pp, xgf_pp, gf_pp, toi_pk, xga_pk, ga_pk
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (team, date) DO UPDATE SET
		game = EXCLUDED.game,
		season = EXCLUDED.season,
		team_key = EXCLUDED.team_key,
		toi_5v5 = EXCLUDED.toi_5v5,
		ff = EXCLUDED.ff, fa = EXCLUDED.fa, sf = EXCLUDED.sf,
		gf = EXCLUDED.gf, ga = EXCLUDED.ga,
		xgf = EXCLUDED.xgf, xga = EXCLUDED.xga,
		toi_pp = EXCLUDED.toi_pp, xgf_pp = EXCLUDED.xgf_pp, gf_pp = EXCLUDED.gf_pp,
		toi_pk = EXCLUDED.toi_pk, xga_pk = EXCLUDED.xga_pk, ga_pk = EXCLUDED.ga_pk
	`
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin InsertGameStats tx: %w", err)
	}
	defer tx.Rollback()

	for _, g := range stats {
		if _, err := tx.Exec(q,
			g.Game, g.Team, g.Season, g.Date, g.TeamKey,
			g.TOI5v5, g.FF, g.FA, g.SF, g.GF, g.GA, g.XGF, g.XGA,
			g.TOIPP, g.XGFPP, g.GFPP, g.TOIPK, g.XGAPK, g.GAPK,
		); err != nil {
			return fmt.Errorf("inserting game stat %s: %w", g.TeamKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit InsertGameStats tx: %w", err)
	}
	return nil
}

// InsertGameResults appends result rows; re-scrapes of the same game id
// update the score and status fields.
func (s *Store) InsertGameResults(results []hockey.GameResult) error {
	return s.insertResults("game_results", results)
}

// ReplaceTodaysGames swaps the todays_games table for the given rows.
func (s *Store) ReplaceTodaysGames(results []hockey.GameResult) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin ReplaceTodaysGames tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM todays_games;`); err != nil {
		return fmt.Errorf("clearing todays_games: %w", err)
	}
	if err := insertResultsTx(tx, "todays_games", results); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ReplaceTodaysGames tx: %w", err)
	}
	return nil
}

func (s *Store) insertResults(table string, results []hockey.GameResult) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin insert %s tx: %w", table, err)
	}
	defer tx.Rollback()

	if err := insertResultsTx(tx, table, results); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert %s tx: %w", table, err)
	}
	return nil
}

func insertResultsTx(tx *sql.Tx, table string, results []hockey.GameResult) error {
	q := fmt.Sprintf(`
	INSERT INTO %s (
		game_id, date, venue, home_team, away_team, start_time,
		home_score, away_score, status, home_team_won,
		home_team_key, away_team_key
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (game_id) DO UPDATE SET
		home_score = EXCLUDED.home_score,
		away_score = EXCLUDED.away_score,
		status = EXCLUDED.status,
		home_team_won = EXCLUDED.home_team_won,
		start_time = EXCLUDED.start_time
	`, table)

	for _, r := range results {
		if _, err := tx.Exec(q,
			r.GameID, r.Date, r.Venue, r.HomeTeam, r.AwayTeam, r.StartTime,
			nullInt(r.HomeScore), nullInt(r.AwayScore), r.Status, r.HomeWon,
			r.HomeTeamKey, r.AwayTeamKey,
		); err != nil {
			return fmt.Errorf("inserting game %s into %s: %w", r.GameID, table, err)
		}
	}
	return nil
}

// InsertEloRatings appends rating rows keyed by home team key.
func (s *Store) InsertEloRatings(ratings []hockey.EloRating) error {
	const q = `
	INSERT INTO elo (
		home_team_key, away_team_key, season, date, neutral,
		home_team, away_team, home_team_abbr, away_team_abbr,
		home_team_pregame_rating, away_team_pregame_rating,
		home_team_winprob, away_team_winprob,
		home_team_score, away_team_score
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (home_team_key) DO UPDATE SET
		home_team_pregame_rating = EXCLUDED.home_team_pregame_rating,
		away_team_pregame_rating = EXCLUDED.away_team_pregame_rating,
		home_team_winprob = EXCLUDED.home_team_winprob,
		away_team_winprob = EXCLUDED.away_team_winprob,
		home_team_score = EXCLUDED.home_team_score,
		away_team_score = EXCLUDED.away_team_score
	`
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin InsertEloRatings tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range ratings {
		if _, err := tx.Exec(q,
			r.HomeTeamKey, r.AwayTeamKey, r.Season, r.Date, r.Neutral,
			r.HomeTeam, r.AwayTeam, r.HomeAbbr, r.AwayAbbr,
			r.HomeRating, r.AwayRating, r.HomeWinProb, r.AwayWinProb,
			nullInt(r.HomeScore), nullInt(r.AwayScore),
		); err != nil {
			return fmt.Errorf("inserting elo row %s: %w", r.HomeTeamKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit InsertEloRatings tx: %w", err)
	}
	return nil
}

// ReplaceTeamStats rebuilds the snapshot table from a full recompute.
func (s *Store) ReplaceTeamStats(snapshots []hockey.TeamSnapshot) error {
	const q = `
	INSERT INTO team_stats (
		team_key, team, date,
		ff_pct, gf_pct, xgf_pct, sh_pct,
		gf_per_min_pp, xgf_per_min_pp, ga_per_min_pk, xga_per_min_pk,
		b2b
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin ReplaceTeamStats tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM team_stats;`); err != nil {
		return fmt.Errorf("clearing team_stats: %w", err)
	}
	for _, snap := range snapshots {
		if _, err := tx.Exec(q,
			snap.TeamKey, snap.Team, snap.Date,
			nullFloat(snap.FFPct), nullFloat(snap.GFPct), nullFloat(snap.XGFPct), nullFloat(snap.SHPct),
			nullFloat(snap.GFPerMinPP), nullFloat(snap.XGFPerMinPP),
			nullFloat(snap.GAPerMinPK), nullFloat(snap.XGAPerMinPK),
			snap.B2B,
		); err != nil {
			return fmt.Errorf("inserting snapshot %s: %w", snap.TeamKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ReplaceTeamStats tx: %w", err)
	}
	return nil
}

// ReplaceFeatures rebuilds the training table from a full rejoin.
func (s *Store) ReplaceFeatures(rows []hockey.FeatureRow) error {
	const q = `
	INSERT INTO features (
		game_id, home_team_won,
		home_team, home_team_key,
		home_ff, home_gf, home_xgf, home_sh,
		home_gf_pp, home_xgf_pp, home_ga_pk, home_xga_pk, home_b2b,
		away_team, away_team_key,
		away_ff, away_gf, away_xgf, away_sh,
		away_gf_pp, away_xgf_pp, away_ga_pk, away_xga_pk, away_b2b,
		home_elo, away_elo, evaluated
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin ReplaceFeatures tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM features;`); err != nil {
		return fmt.Errorf("clearing features: %w", err)
	}
	for _, row := range rows {
		if _, err := tx.Exec(q,
			row.GameID, row.HomeWon,
			row.HomeTeam, row.HomeTeamKey,
			nullFloat(row.HomeFF), nullFloat(row.HomeGF), nullFloat(row.HomeXGF), nullFloat(row.HomeSH),
			nullFloat(row.HomeGFPP), nullFloat(row.HomeXGFPP), nullFloat(row.HomeGAPK), nullFloat(row.HomeXGAPK),
			nullBool(row.HomeB2B),
			row.AwayTeam, row.AwayTeamKey,
			nullFloat(row.AwayFF), nullFloat(row.AwayGF), nullFloat(row.AwayXGF), nullFloat(row.AwaySH),
			nullFloat(row.AwayGFPP), nullFloat(row.AwayXGFPP), nullFloat(row.AwayGAPK), nullFloat(row.AwayXGAPK),
			nullBool(row.AwayB2B),
			row.HomeElo, row.AwayElo, row.Evaluated,
		); err != nil {
			return fmt.Errorf("inserting feature row %s: %w", row.GameID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ReplaceFeatures tx: %w", err)
	}
	return nil
}

// AppendPredictions adds one row per game to the prediction log. Existing
// rows are never updated.
func (s *Store) AppendPredictions(preds []hockey.Prediction) error {
	const q = `
	INSERT INTO predictions (
		game_id, date, venue, home_team, away_team, start_time,
		home_win, home_prob, away_prob
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (game_id) DO NOTHING
	`
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin AppendPredictions tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range preds {
		if _, err := tx.Exec(q,
			p.GameID, p.Date, p.Venue, p.HomeTeam, p.AwayTeam, p.StartTime,
			p.HomeWin, p.HomeProb, p.AwayProb,
		); err != nil {
			return fmt.Errorf("inserting prediction %s: %w", p.GameID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit AppendPredictions tx: %w", err)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
