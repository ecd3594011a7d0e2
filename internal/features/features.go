// Package features assembles per-game training rows from game results,
// team snapshots and ELO ratings.
package features

import (
	"sort"
	"time"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// HorizonYears bounds training data to the most recent three seasons plus
// the current one.
const HorizonYears = 3

// Build joins one FeatureRow per game result inside the trailing horizon.
// ELO rows are mandatory: a game with no rating row for its home team key is
// dropped. Snapshot rows are optional: a missing snapshot leaves the team's
// stat fields nil. Rows are deduplicated by game id and returned in game-id
// order.
func Build(
	games []hockey.GameResult,
	snapshots []hockey.TeamSnapshot,
	ratings []hockey.EloRating,
	today time.Time,
) []hockey.FeatureRow {
	snapByKey := make(map[string]hockey.TeamSnapshot, len(snapshots))
	for _, s := range snapshots {
		snapByKey[s.TeamKey] = s
	}
	eloByHomeKey := make(map[string]hockey.EloRating, len(ratings))
	for _, e := range ratings {
		eloByHomeKey[e.HomeTeamKey] = e
	}

	horizon := hockey.DateOnly(today).AddDate(-HorizonYears, 0, 0)
	evaluated := hockey.DateOnly(today)

	byGameID := make(map[string]hockey.FeatureRow)
	for _, g := range games {
		if !g.Date.After(horizon) {
			continue
		}
		elo, ok := eloByHomeKey[g.HomeTeamKey]
		if !ok {
			continue
		}
		if _, seen := byGameID[g.GameID]; seen {
			continue
		}

		row := hockey.FeatureRow{
			GameID:      g.GameID,
			HomeWon:     g.HomeWon,
			HomeTeam:    g.HomeTeam,
			HomeTeamKey: g.HomeTeamKey,
			AwayTeam:    g.AwayTeam,
			AwayTeamKey: g.AwayTeamKey,
			HomeElo:     elo.HomeRating,
			AwayElo:     elo.AwayRating,
			Evaluated:   evaluated,
		}
		if snap, ok := snapByKey[g.HomeTeamKey]; ok {
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
		if snap, ok := snapByKey[g.AwayTeamKey]; ok {
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
		byGameID[g.GameID] = row
	}

	rows := make([]hockey.FeatureRow, 0, len(byGameID))
	for _, row := range byGameID {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].GameID < rows[j].GameID })
	return rows
}
