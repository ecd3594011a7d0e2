package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// scheduleResponse mirrors the subset of the NHL stats API schedule payload
// the pipeline consumes.
type scheduleResponse struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			GamePk   int64     `json:"gamePk"`
			GameDate time.Time `json:"gameDate"`
			Status   struct {
				AbstractGameState string `json:"abstractGameState"`
			} `json:"status"`
			Venue struct {
				Name string `json:"name"`
			} `json:"venue"`
			Teams struct {
				Home scheduleSide `json:"home"`
				Away scheduleSide `json:"away"`
			} `json:"teams"`
		} `json:"games"`
	} `json:"dates"`
}

type scheduleSide struct {
	Score *int `json:"score"`
	Team  struct {
		Name string `json:"name"`
	} `json:"team"`
}

// FetchSchedule retrieves games between two dates inclusive. Preseason and
// playoff games are filtered out by the game id's type digits.
func (c *Client) FetchSchedule(ctx context.Context, start, end time.Time) ([]hockey.GameResult, error) {
	url := fmt.Sprintf("%s/api/v1/schedule?startDate=%s&endDate=%s",
		c.nhlBaseURL, start.Format("2006-01-02"), end.Format("2006-01-02"))
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("scraping schedule: %w", err)
	}
	defer body.Close()

	results, err := parseSchedule(body)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	c.log.WithField("games", len(results)).Debug("scraped schedule")
	return results, nil
}

func parseSchedule(r io.Reader) ([]hockey.GameResult, error) {
	var payload scheduleResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding schedule payload: %w", err)
	}

	var results []hockey.GameResult
	for _, d := range payload.Dates {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing schedule date %q: %w", d.Date, err)
		}
		for _, g := range d.Games {
			gameID := strconv.FormatInt(g.GamePk, 10)
			if !regularSeason(gameID) {
				continue
			}
			home := hockey.AbbrForName(g.Teams.Home.Team.Name)
			away := hockey.AbbrForName(g.Teams.Away.Team.Name)

			result := hockey.GameResult{
				GameID:      gameID,
				Date:        date,
				Venue:       g.Venue.Name,
				HomeTeam:    home,
				AwayTeam:    away,
				StartTime:   g.GameDate,
				HomeScore:   g.Teams.Home.Score,
				AwayScore:   g.Teams.Away.Score,
				Status:      g.Status.AbstractGameState,
				HomeTeamKey: hockey.TeamKey(home, date),
				AwayTeamKey: hockey.TeamKey(away, date),
			}
			if result.HomeScore != nil && result.AwayScore != nil {
				result.HomeWon = *result.HomeScore > *result.AwayScore
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// regularSeason reports whether a game id names a regular-season game. The
// fifth and sixth digits encode the game type: 01 preseason, 02 regular
// season, 03 playoffs.
func regularSeason(gameID string) bool {
	if len(gameID) < 6 {
		return false
	}
	kind := gameID[4:6]
	return kind != "01" && kind != "03"
}
