package scrape

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// situations scraped from the games page. 5v5 carries the possession and
// shooting stats; pp and pk each contribute TOI and goal/xG totals.
var situations = []string{"5v5", "pp", "pk"}

// nstRow is one parsed table row: the game label, the published team name,
// and the remaining cells keyed by column header.
type nstRow struct {
	game string
	team string
	cols map[string]string
}

// FetchTeamStats scrapes the games table for each situation across a season
// range and merges them into one GameStat per (team, game).
func (c *Client) FetchTeamStats(ctx context.Context, fromSeason, toSeason string) ([]hockey.GameStat, error) {
	bySit := make(map[string][]nstRow, len(situations))
	for _, sit := range situations {
		url := fmt.Sprintf("%s/games.php?fromseason=%s&thruseason=%s&stype=2&sit=%s&loc=B&team=All&rate=n",
			c.nstBaseURL, fromSeason, toSeason, sit)
		body, err := c.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("scraping %s games: %w", sit, err)
		}
		rows, err := parseNSTTable(body)
		body.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s games table: %w", sit, err)
		}
		c.log.WithFields(map[string]interface{}{"sit": sit, "rows": len(rows)}).Debug("scraped games table")
		bySit[sit] = rows
	}
	return mergeSituations(bySit["5v5"], bySit["pp"], bySit["pk"])
}

// parseNSTTable reads the first HTML table in the document. The header row
// names the columns; every later row with data cells becomes an nstRow.
func parseNSTTable(r io.Reader) ([]nstRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found in page")
	}

	var headers []string
	table.Find("tr").First().Find("th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(s.Text()))
	})
	if len(headers) == 0 {
		return nil, fmt.Errorf("games table has no header row")
	}

	var rows []nstRow
	var rowErr error
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 || rowErr != nil {
			return
		}
		row := nstRow{cols: make(map[string]string, len(headers))}
		cells.Each(func(i int, td *goquery.Selection) {
			if i >= len(headers) {
				return
			}
			row.cols[headers[i]] = strings.TrimSpace(td.Text())
		})
		row.game = row.cols["Game"]
		row.team = row.cols["Team"]
		if row.game == "" || row.team == "" {
			rowErr = fmt.Errorf("games table row missing Game or Team cell")
			return
		}
		rows = append(rows, row)
	})
	return rows, rowErr
}

// mergeSituations stitches the three situation tables into GameStat rows on
// the team key. Games with no special-teams row get zeroed pp/pk stats.
func mergeSituations(rows5v5, rowsPP, rowsPK []nstRow) ([]hockey.GameStat, error) {
	ppByKey, err := indexByKey(rowsPP)
	if err != nil {
		return nil, fmt.Errorf("indexing pp rows: %w", err)
	}
	pkByKey, err := indexByKey(rowsPK)
	if err != nil {
		return nil, fmt.Errorf("indexing pk rows: %w", err)
	}

	stats := make([]hockey.GameStat, 0, len(rows5v5))
	for _, row := range rows5v5 {
		date, err := gameDate(row.game)
		if err != nil {
			return nil, err
		}
		team := hockey.AbbrForName(row.team)
		key := hockey.TeamKey(team, date)

		g := hockey.GameStat{
			Game:    row.game,
			Team:    team,
			Season:  hockey.SeasonString(date),
			Date:    date,
			TeamKey: key,
		}
		if g.TOI5v5, err = numCell(row, "TOI"); err != nil {
			return nil, err
		}
		if g.FF, err = intCell(row, "FF"); err != nil {
			return nil, err
		}
		if g.FA, err = intCell(row, "FA"); err != nil {
			return nil, err
		}
		if g.SF, err = intCell(row, "SF"); err != nil {
			return nil, err
		}
		if g.GF, err = intCell(row, "GF"); err != nil {
			return nil, err
		}
		if g.GA, err = intCell(row, "GA"); err != nil {
			return nil, err
		}
		if g.XGF, err = numCell(row, "xGF"); err != nil {
			return nil, err
		}
		if g.XGA, err = numCell(row, "xGA"); err != nil {
			return nil, err
		}

		// Missing special-teams rows mean the team drew no penalties (or
		// took none), so the counting stats are genuinely zero.
		if pp, ok := ppByKey[key]; ok {
			if g.TOIPP, err = numCell(pp, "TOI"); err != nil {
				return nil, err
			}
			if g.XGFPP, err = numCell(pp, "xGF"); err != nil {
				return nil, err
			}
			if g.GFPP, err = intCell(pp, "GF"); err != nil {
				return nil, err
			}
		}
		if pk, ok := pkByKey[key]; ok {
			if g.TOIPK, err = numCell(pk, "TOI"); err != nil {
				return nil, err
			}
			if g.XGAPK, err = numCell(pk, "xGA"); err != nil {
				return nil, err
			}
			if g.GAPK, err = intCell(pk, "GA"); err != nil {
				return nil, err
			}
		}
		stats = append(stats, g)
	}
	return stats, nil
}

func indexByKey(rows []nstRow) (map[string]nstRow, error) {
	byKey := make(map[string]nstRow, len(rows))
	for _, row := range rows {
		date, err := gameDate(row.game)
		if err != nil {
			return nil, err
		}
		byKey[hockey.TeamKey(hockey.AbbrForName(row.team), date)] = row
	}
	return byKey, nil
}

// gameDate extracts the date prefix from a game label like
// "2023-01-14 - TOR 4, BOS 3".
func gameDate(game string) (time.Time, error) {
	if len(game) < 10 {
		return time.Time{}, fmt.Errorf("game label %q too short for a date", game)
	}
	date, err := time.Parse("2006-01-02", game[:10])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing game date from %q: %w", game, err)
	}
	return date, nil
}

// numCell parses a numeric cell. The page renders missing values as "-";
// those and empty cells read as zero.
func numCell(row nstRow, col string) (float64, error) {
	raw, ok := row.cols[col]
	if !ok {
		return 0, fmt.Errorf("games table row for %q missing column %s", row.team, col)
	}
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" || raw == "-" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s value %q: %w", col, raw, err)
	}
	return v, nil
}

func intCell(row nstRow, col string) (int, error) {
	v, err := numCell(row, col)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// FilterDate keeps only stat rows from one calendar date, used by the daily
// pull to append just yesterday's games.
func FilterDate(stats []hockey.GameStat, date time.Time) []hockey.GameStat {
	target := hockey.DateOnly(date)
	var out []hockey.GameStat
	for _, g := range stats {
		if hockey.DateOnly(g.Date).Equal(target) {
			out = append(out, g)
		}
	}
	return out
}
