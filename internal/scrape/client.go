// Package scrape ingests the three external sources: per-game team stats
// from the NaturalStatTrick games page, schedule and results from the NHL
// stats API, and pregame ELO ratings from the FiveThirtyEight CSV drop.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Defaults for the source endpoints. Overridable for tests and mirrors.
const (
	DefaultNSTBaseURL    = "https://www.naturalstattrick.com"
	DefaultNHLBaseURL    = "https://statsapi.web.nhl.com"
	DefaultEloLatestURL  = "https://projects.fivethirtyeight.com/nhl-api/nhl_elo_latest.csv"
	DefaultEloHistoryURL = "https://projects.fivethirtyeight.com/nhl-api/nhl_elo.csv"
)

// Client fetches and parses the external sources. One instance is shared
// across a pipeline run.
type Client struct {
	httpClient    *http.Client
	log           *logrus.Logger
	nstBaseURL    string
	nhlBaseURL    string
	eloLatestURL  string
	eloHistoryURL string
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	NSTBaseURL    string
	NHLBaseURL    string
	EloLatestURL  string
	EloHistoryURL string
}

// New builds a Client with a single shared HTTP client.
func New(log *logrus.Logger, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.NSTBaseURL == "" {
		opts.NSTBaseURL = DefaultNSTBaseURL
	}
	if opts.NHLBaseURL == "" {
		opts.NHLBaseURL = DefaultNHLBaseURL
	}
	if opts.EloLatestURL == "" {
		opts.EloLatestURL = DefaultEloLatestURL
	}
	if opts.EloHistoryURL == "" {
		opts.EloHistoryURL = DefaultEloHistoryURL
	}
	return &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		log:           log,
		nstBaseURL:    opts.NSTBaseURL,
		nhlBaseURL:    opts.NHLBaseURL,
		eloLatestURL:  opts.EloLatestURL,
		eloHistoryURL: opts.EloHistoryURL,
	}
}

// get fetches a URL and returns the body. The caller closes it.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
