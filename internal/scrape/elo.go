package scrape

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// FetchEloRatings retrieves the latest and historical rating CSVs, keeping
// regular-season rows strictly between the two dates.
func (c *Client) FetchEloRatings(ctx context.Context, start, end time.Time) ([]hockey.EloRating, error) {
	var ratings []hockey.EloRating
	for _, url := range []string{c.eloLatestURL, c.eloHistoryURL} {
		body, err := c.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("scraping elo ratings: %w", err)
		}
		parsed, err := parseEloCSV(body, start, end)
		body.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing elo csv %s: %w", url, err)
		}
		ratings = append(ratings, parsed...)
	}
	c.log.WithField("rows", len(ratings)).Debug("scraped elo ratings")
	return ratings, nil
}

// parseEloCSV reads rating rows by header name so column reordering in the
// feed does not break ingestion. Playoff rows and rows outside the
// (start, end) range are dropped.
func parseEloCSV(r io.Reader, start, end time.Time) ([]hockey.EloRating, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, required := range []string{
		"date", "playoff", "home_team_abbr", "away_team_abbr",
		"home_team_pregame_rating", "away_team_pregame_rating",
	} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("elo csv missing column %s", required)
		}
	}

	cell := func(record []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var ratings []hockey.EloRating
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}

		date, err := time.Parse("2006-01-02", cell(record, "date"))
		if err != nil {
			return nil, fmt.Errorf("parsing elo date %q: %w", cell(record, "date"), err)
		}
		if !date.After(start) || !date.Before(end) {
			continue
		}
		if cell(record, "playoff") == "1" {
			continue
		}

		homeAbbr := hockey.NormalizeEloAbbr(cell(record, "home_team_abbr"))
		awayAbbr := hockey.NormalizeEloAbbr(cell(record, "away_team_abbr"))

		rating := hockey.EloRating{
			Date:        date,
			Neutral:     cell(record, "neutral") == "1",
			HomeTeam:    cell(record, "home_team"),
			AwayTeam:    cell(record, "away_team"),
			HomeAbbr:    homeAbbr,
			AwayAbbr:    awayAbbr,
			HomeTeamKey: hockey.TeamKey(homeAbbr, date),
			AwayTeamKey: hockey.TeamKey(awayAbbr, date),
		}
		if v := cell(record, "season"); v != "" {
			if rating.Season, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("parsing elo season %q: %w", v, err)
			}
		}
		if rating.HomeRating, err = floatCell(cell(record, "home_team_pregame_rating")); err != nil {
			return nil, err
		}
		if rating.AwayRating, err = floatCell(cell(record, "away_team_pregame_rating")); err != nil {
			return nil, err
		}
		if rating.HomeWinProb, err = floatCell(cell(record, "home_team_winprob")); err != nil {
			return nil, err
		}
		if rating.AwayWinProb, err = floatCell(cell(record, "away_team_winprob")); err != nil {
			return nil, err
		}
		rating.HomeScore = intCellPtr(cell(record, "home_team_score"))
		rating.AwayScore = intCellPtr(cell(record, "away_team_score"))

		ratings = append(ratings, rating)
	}
	return ratings, nil
}

func floatCell(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing elo value %q: %w", raw, err)
	}
	return v, nil
}

func intCellPtr(raw string) *int {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
