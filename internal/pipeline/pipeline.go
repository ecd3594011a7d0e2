// Package pipeline wires the ingestion, aggregation, join and prediction
// stages into the three run modes: backfill, daily, and predict-only. Each
// run is a linear sequence of stages; the first error aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pucksense/nhlbets/internal/config"
	"github.com/pucksense/nhlbets/internal/features"
	"github.com/pucksense/nhlbets/internal/hockey"
	"github.com/pucksense/nhlbets/internal/model"
	"github.com/pucksense/nhlbets/internal/rolling"
	"github.com/pucksense/nhlbets/internal/scrape"
)

// backfillSeasons is how many seasons the historical init retrieves: the
// three-year training horizon plus the season in progress.
const backfillSeasons = 4

// Storage is the slice of the store the pipeline writes and reads.
type Storage interface {
	InsertGameStats(stats []hockey.GameStat) error
	InsertGameResults(results []hockey.GameResult) error
	InsertEloRatings(ratings []hockey.EloRating) error
	ReplaceTodaysGames(results []hockey.GameResult) error
	ReplaceTeamStats(snapshots []hockey.TeamSnapshot) error
	ReplaceFeatures(rows []hockey.FeatureRow) error
	AppendPredictions(preds []hockey.Prediction) error

	GameStats() ([]hockey.GameStat, error)
	GameResultsSince(cutoff time.Time) ([]hockey.GameResult, error)
	EloRatingsSince(cutoff time.Time) ([]hockey.EloRating, error)
	Features() ([]hockey.FeatureRow, error)
	TodaysGames() ([]hockey.GameResult, error)
	MostRecentSnapshots() (map[string]hockey.TeamSnapshot, error)
}

// Pipeline runs the scrape-store-derive-predict stages.
type Pipeline struct {
	cfg     *config.Config
	storage Storage
	scraper *scrape.Client
	log     *logrus.Logger
}

// New assembles a Pipeline.
func New(cfg *config.Config, storage Storage, scraper *scrape.Client, log *logrus.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, storage: storage, scraper: scraper, log: log}
}

// Backfill ingests the historical window: per-game stats for the last four
// seasons, and results plus ELO ratings since July 1 of the earliest one.
func (p *Pipeline) Backfill(ctx context.Context) error {
	today, err := p.cfg.Today()
	if err != nil {
		return err
	}
	yesterday := today.AddDate(0, 0, -1)

	for _, season := range seasonStrings(today) {
		stats, err := p.scraper.FetchTeamStats(ctx, season, season)
		if err != nil {
			return fmt.Errorf("backfilling season %s stats: %w", season, err)
		}
		if err := p.storage.InsertGameStats(stats); err != nil {
			return fmt.Errorf("saving season %s stats: %w", season, err)
		}
		p.log.WithFields(logrus.Fields{"season": season, "rows": len(stats)}).Info("saved team stats")
	}

	start, err := historyStart(today)
	if err != nil {
		return err
	}
	results, err := p.scraper.FetchSchedule(ctx, start, yesterday)
	if err != nil {
		return fmt.Errorf("backfilling results: %w", err)
	}
	if err := p.storage.InsertGameResults(results); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	p.log.WithField("rows", len(results)).Info("saved game results")

	// The ratings filter is exclusive on both ends, so widen by one day on
	// each side to cover [start, yesterday].
	ratings, err := p.scraper.FetchEloRatings(ctx, start.AddDate(0, 0, -1), today)
	if err != nil {
		return fmt.Errorf("backfilling elo ratings: %w", err)
	}
	if err := p.storage.InsertEloRatings(ratings); err != nil {
		return fmt.Errorf("saving elo ratings: %w", err)
	}
	p.log.WithField("rows", len(ratings)).Info("saved elo ratings")
	return nil
}

// Daily ingests yesterday's games and today's slate, rebuilds the derived
// tables, retrains the model and appends today's predictions.
func (p *Pipeline) Daily(ctx context.Context) error {
	today, err := p.cfg.Today()
	if err != nil {
		return err
	}
	yesterday := today.AddDate(0, 0, -1)
	season := hockey.SeasonString(today)

	stats, err := p.scraper.FetchTeamStats(ctx, season, season)
	if err != nil {
		return fmt.Errorf("pulling season stats: %w", err)
	}
	stats = scrape.FilterDate(stats, yesterday)
	if err := p.storage.InsertGameStats(stats); err != nil {
		return fmt.Errorf("saving yesterday's stats: %w", err)
	}
	p.log.WithField("rows", len(stats)).Info("saved yesterday's team stats")

	results, err := p.scraper.FetchSchedule(ctx, yesterday, yesterday)
	if err != nil {
		return fmt.Errorf("pulling yesterday's results: %w", err)
	}
	if err := p.storage.InsertGameResults(results); err != nil {
		return fmt.Errorf("saving yesterday's results: %w", err)
	}
	p.log.WithField("rows", len(results)).Info("saved yesterday's results")

	ratings, err := p.scraper.FetchEloRatings(ctx, yesterday.AddDate(0, 0, -1), today)
	if err != nil {
		return fmt.Errorf("pulling yesterday's elo ratings: %w", err)
	}
	if err := p.storage.InsertEloRatings(ratings); err != nil {
		return fmt.Errorf("saving yesterday's elo ratings: %w", err)
	}
	p.log.WithField("rows", len(ratings)).Info("saved yesterday's elo ratings")

	if err := p.refreshTodaysGames(ctx, today); err != nil {
		return err
	}
	if err := p.rebuildDerived(today); err != nil {
		return err
	}
	return p.predict(today)
}

// PredictOnly refreshes today's slate and the derived tables, then predicts,
// without ingesting historical rows.
func (p *Pipeline) PredictOnly(ctx context.Context) error {
	today, err := p.cfg.Today()
	if err != nil {
		return err
	}
	if err := p.refreshTodaysGames(ctx, today); err != nil {
		return err
	}
	if err := p.rebuildDerived(today); err != nil {
		return err
	}
	return p.predict(today)
}

func (p *Pipeline) refreshTodaysGames(ctx context.Context, today time.Time) error {
	games, err := p.scraper.FetchSchedule(ctx, today, today)
	if err != nil {
		return fmt.Errorf("pulling today's games: %w", err)
	}
	if err := p.storage.ReplaceTodaysGames(games); err != nil {
		return fmt.Errorf("saving today's games: %w", err)
	}
	p.log.WithField("rows", len(games)).Info("replaced today's games")
	return nil
}

// rebuildDerived recomputes the snapshot table from the full raw history
// and rejoins the training table. Both rebuilds are total, so rerunning on
// the same raw rows yields the same derived tables.
func (p *Pipeline) rebuildDerived(today time.Time) error {
	stats, err := p.storage.GameStats()
	if err != nil {
		return fmt.Errorf("loading stat history: %w", err)
	}
	snapshots := rolling.Snapshots(stats)
	if err := p.storage.ReplaceTeamStats(snapshots); err != nil {
		return fmt.Errorf("rebuilding team_stats: %w", err)
	}
	p.log.WithField("rows", len(snapshots)).Info("rebuilt rolling snapshots")

	horizon := today.AddDate(-features.HorizonYears, 0, 0)
	results, err := p.storage.GameResultsSince(horizon)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}
	ratings, err := p.storage.EloRatingsSince(horizon)
	if err != nil {
		return fmt.Errorf("loading elo ratings: %w", err)
	}
	rows := features.Build(results, snapshots, ratings, today)
	if err := p.storage.ReplaceFeatures(rows); err != nil {
		return fmt.Errorf("rebuilding features: %w", err)
	}
	p.log.WithField("rows", len(rows)).Info("rebuilt feature table")
	return nil
}

// predict trains on the stored feature table and appends one prediction per
// game on today's slate. A team with no snapshot is a data error.
func (p *Pipeline) predict(today time.Time) error {
	games, err := p.storage.TodaysGames()
	if err != nil {
		return fmt.Errorf("loading today's games: %w", err)
	}
	if len(games) == 0 {
		p.log.Info("no games today, skipping prediction")
		return nil
	}

	rows, err := p.storage.Features()
	if err != nil {
		return fmt.Errorf("loading features: %w", err)
	}
	m, err := model.Train(rows)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"trained": m.TrainedRows,
		"skipped": m.SkippedRows,
	}).Info("trained win-probability model")

	recent, err := p.storage.MostRecentSnapshots()
	if err != nil {
		return fmt.Errorf("loading recent snapshots: %w", err)
	}

	preds := make([]hockey.Prediction, 0, len(games))
	for _, g := range games {
		row := inferenceRow(g, recent)
		homeWin, homeProb, awayProb, err := m.Predict(row)
		if err != nil {
			return err
		}
		preds = append(preds, hockey.Prediction{
			GameID:    g.GameID,
			Date:      g.Date,
			Venue:     g.Venue,
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			StartTime: g.StartTime,
			HomeWin:   homeWin,
			HomeProb:  model.Round3(homeProb),
			AwayProb:  model.Round3(awayProb),
		})
	}
	if err := p.storage.AppendPredictions(preds); err != nil {
		return fmt.Errorf("saving predictions: %w", err)
	}
	p.log.WithField("rows", len(preds)).Info("appended predictions")
	return nil
}

// inferenceRow assembles a feature row for an upcoming game from each
// team's most recent snapshot. Missing snapshots leave nil fields for the
// classifier to reject.
func inferenceRow(g hockey.GameResult, recent map[string]hockey.TeamSnapshot) hockey.FeatureRow {
	row := hockey.FeatureRow{
		GameID:      g.GameID,
		HomeTeam:    g.HomeTeam,
		HomeTeamKey: g.HomeTeamKey,
		AwayTeam:    g.AwayTeam,
		AwayTeamKey: g.AwayTeamKey,
	}
	if snap, ok := recent[g.HomeTeam]; ok {
		row.HomeFF = snap.FFPct
		row.HomeGF = snap.GFPct
		row.HomeXGF = snap.XGFPct
		row.HomeSH = snap.SHPct
		row.HomeGFPP = snap.GFPerMinPP
		row.HomeXGFPP = snap.XGFPerMinPP
		row.HomeGAPK = snap.GAPerMinPK
		row.HomeXGAPK = snap.XGAPerMinPK
		b2b := snap.B2B
		row.HomeB2B = &b2b
	}
	if snap, ok := recent[g.AwayTeam]; ok {
		row.AwayFF = snap.FFPct
		row.AwayGF = snap.GFPct
		row.AwayXGF = snap.XGFPct
		row.AwaySH = snap.SHPct
		row.AwayGFPP = snap.GFPerMinPP
		row.AwayXGFPP = snap.XGFPerMinPP
		row.AwayGAPK = snap.GAPerMinPK
		row.AwayXGAPK = snap.XGAPerMinPK
		b2b := snap.B2B
		row.AwayB2B = &b2b
	}
	return row
}

// seasonStrings derives the backfill seasons by stepping back one season's
// worth of weeks at a time, oldest first.
func seasonStrings(today time.Time) []string {
	seen := make(map[string]bool, backfillSeasons)
	var seasons []string
	for i := 0; i < backfillSeasons; i++ {
		s := hockey.SeasonString(today.AddDate(0, 0, -i*52*7))
		if !seen[s] {
			seen[s] = true
			seasons = append(seasons, s)
		}
	}
	sort.Strings(seasons)
	return seasons
}

// historyStart is July 1 before the earliest backfill season.
func historyStart(today time.Time) (time.Time, error) {
	seasons := seasonStrings(today)
	first := seasons[0]
	var year int
	if _, err := fmt.Sscanf(first[:4], "%d", &year); err != nil {
		return time.Time{}, fmt.Errorf("parsing season %q: %w", first, err)
	}
	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC), nil
}
