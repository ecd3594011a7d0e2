// Package rolling derives per-team trailing-window snapshots from raw
// per-game stats. Each snapshot aggregates the current game plus the 40
// preceding games for that team, so the window shrinks at the start of a
// team's history.
package rolling

import (
	"sort"
	"time"

	"github.com/pucksense/nhlbets/internal/hockey"
)

// WindowSize is the number of games in a full trailing window: the current
// game plus the 40 before it, roughly half a season.
const WindowSize = 41

// sums carries the eleven windowed counting totals a snapshot derives from.
type sums struct {
	ff, fa   int
	gf, ga   int
	sf       int
	xgf, xga float64

	toiPP, xgfPP float64
	gfPP         int
	toiPK, xgaPK float64
	gaPK         int
}

func (s *sums) add(g hockey.GameStat) {
	s.ff += g.FF
	s.fa += g.FA
	s.gf += g.GF
	s.ga += g.GA
	s.sf += g.SF
	s.xgf += g.XGF
	s.xga += g.XGA
	s.toiPP += g.TOIPP
	s.xgfPP += g.XGFPP
	s.gfPP += g.GFPP
	s.toiPK += g.TOIPK
	s.xgaPK += g.XGAPK
	s.gaPK += g.GAPK
}

func (s *sums) remove(g hockey.GameStat) {
	s.ff -= g.FF
	s.fa -= g.FA
	s.gf -= g.GF
	s.ga -= g.GA
	s.sf -= g.SF
	s.xgf -= g.XGF
	s.xga -= g.XGA
	s.toiPP -= g.TOIPP
	s.xgfPP -= g.XGFPP
	s.gfPP -= g.GFPP
	s.toiPK -= g.TOIPK
	s.xgaPK -= g.XGAPK
	s.gaPK -= g.GAPK
}

// Snapshots recomputes one TeamSnapshot per (team, date) in the input. The
// pass is total and idempotent: the same raw history always yields the same
// snapshot set, regardless of input order.
func Snapshots(stats []hockey.GameStat) []hockey.TeamSnapshot {
	byTeam := make(map[string][]hockey.GameStat)
	for _, g := range stats {
		byTeam[g.Team] = append(byTeam[g.Team], g)
	}

	teams := make([]string, 0, len(byTeam))
	for team := range byTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	var snapshots []hockey.TeamSnapshot
	for _, team := range teams {
		games := byTeam[team]
		sort.Slice(games, func(i, j int) bool {
			return games[i].Date.Before(games[j].Date)
		})

		window := make([]hockey.GameStat, 0, WindowSize)
		var totals sums
		var prevDate time.Time

		for i, g := range games {
			if len(window) == WindowSize {
				totals.remove(window[0])
				window = window[1:]
			}
			window = append(window, g)
			totals.add(g)

			b2b := i > 0 && hockey.DateOnly(g.Date).Sub(hockey.DateOnly(prevDate)) == 24*time.Hour
			prevDate = g.Date

			snapshots = append(snapshots, derive(team, g.Date, totals, b2b))
		}
	}
	return snapshots
}

// derive turns windowed sums into the eight rate stats. A zero denominator
// yields a nil stat, never an error.
func derive(team string, date time.Time, s sums, b2b bool) hockey.TeamSnapshot {
	return hockey.TeamSnapshot{
		TeamKey:     hockey.TeamKey(team, date),
		Team:        team,
		Date:        hockey.DateOnly(date),
		FFPct:       share(float64(s.ff), float64(s.fa)),
		GFPct:       share(float64(s.gf), float64(s.ga)),
		XGFPct:      share(s.xgf, s.xga),
		SHPct:       ratio(float64(s.gf)*100, float64(s.sf)),
		GFPerMinPP:  ratio(float64(s.gfPP), s.toiPP),
		XGFPerMinPP: ratio(s.xgfPP, s.toiPP),
		GAPerMinPK:  ratio(float64(s.gaPK), s.toiPK),
		XGAPerMinPK: ratio(s.xgaPK, s.toiPK),
		B2B:         b2b,
	}
}

// share computes 100*for/(for+against), nil when both are zero.
func share(forSum, againstSum float64) *float64 {
	return ratio(forSum*100, forSum+againstSum)
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}
