package hockey

// fullNameToAbbr maps published team names to the 3-char league
// abbreviations used for key construction across all three sources.
var fullNameToAbbr = map[string]string{
	"Anaheim Ducks":         "ANA",
	"Arizona Coyotes":       "ARI",
	"Boston Bruins":         "BOS",
	"Buffalo Sabres":        "BUF",
	"Calgary Flames":        "CGY",
	"Carolina Hurricanes":   "CAR",
	"Chicago Blackhawks":    "CHI",
	"Colorado Avalanche":    "COL",
	"Columbus Blue Jackets": "CBJ",
	"Dallas Stars":          "DAL",
	"Detroit Red Wings":     "DET",
	"Edmonton Oilers":       "EDM",
	"Florida Panthers":      "FLA",
	"Los Angeles Kings":     "L.A",
	"Minnesota Wild":        "MIN",
	"Montreal Canadiens":    "MTL",
	"Nashville Predators":   "NSH",
	"New Jersey Devils":     "N.J",
	"New York Islanders":    "NYI",
	"New York Rangers":      "NYR",
	"Ottawa Senators":       "OTT",
	"Philadelphia Flyers":   "PHI",
	"Pittsburgh Penguins":   "PIT",
	"San Jose Sharks":       "S.J",
	"Seattle Kraken":        "SEA",
	"St Louis Blues":        "STL",
	"St. Louis Blues":       "STL",
	"Tampa Bay Lightning":   "T.B",
	"Toronto Maple Leafs":   "TOR",
	"Vancouver Canucks":     "VAN",
	"Vegas Golden Knights":  "VGK",
	"Washington Capitals":   "WSH",
	"Winnipeg Jets":         "WPG",
}

// eloAbbrConversion fixes the ratings feed's abbreviations that disagree
// with the league scheme.
var eloAbbrConversion = map[string]string{
	"LAK": "L.A",
	"NJD": "N.J",
	"SJS": "S.J",
	"TBL": "T.B",
	"VEG": "VGK",
}

// AbbrForName returns the league abbreviation for a published team name.
// Unknown names are returned unchanged so malformed rows surface downstream
// as unmatched keys rather than silent drops.
func AbbrForName(name string) string {
	if abbr, ok := fullNameToAbbr[name]; ok {
		return abbr
	}
	return name
}

// NormalizeEloAbbr maps a ratings-feed abbreviation onto the league scheme.
func NormalizeEloAbbr(abbr string) string {
	if fixed, ok := eloAbbrConversion[abbr]; ok {
		return fixed
	}
	return abbr
}
