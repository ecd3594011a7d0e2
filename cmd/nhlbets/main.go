// Command nhlbets runs the NHL win-probability pipeline: historical
// backfill, the daily scrape-and-predict run, a predict-only refresh, a web
// server for the prediction log, and a cron daemon combining the last two.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pucksense/nhlbets/internal/config"
	"github.com/pucksense/nhlbets/internal/pipeline"
	"github.com/pucksense/nhlbets/internal/scrape"
	"github.com/pucksense/nhlbets/internal/store"
	"github.com/pucksense/nhlbets/internal/web"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired components each subcommand needs.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *store.Store
	pipe  *pipeline.Pipeline
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	st, err := store.NewStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, err
	}

	scraper := scrape.New(log, scrape.Options{
		Timeout:       cfg.HTTPTimeout(),
		NSTBaseURL:    cfg.NSTBaseURL,
		NHLBaseURL:    cfg.NHLBaseURL,
		EloLatestURL:  cfg.EloLatestURL,
		EloHistoryURL: cfg.EloHistoryURL,
	})

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		pipe:  pipeline.New(cfg, st, scraper, log),
	}, nil
}

// runWithApp wires setup and teardown around a subcommand body.
func runWithApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.store.Close()
		return fn(cmd.Context(), a)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nhlbets",
		Short:         "NHL game win-probability pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "backfill",
		Short: "Ingest four seasons of stats, results, and ELO ratings",
		RunE: runWithApp(func(ctx context.Context, a *app) error {
			return a.pipe.Backfill(ctx)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "daily",
		Short: "Ingest yesterday's games, rebuild, retrain, and predict today",
		RunE: runWithApp(func(ctx context.Context, a *app) error {
			return a.pipe.Daily(ctx)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "predict",
		Short: "Refresh today's slate and predict without ingesting history",
		RunE: runWithApp(func(ctx context.Context, a *app) error {
			return a.pipe.PredictOnly(ctx)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction log over HTTP",
		RunE: runWithApp(func(ctx context.Context, a *app) error {
			return serveHTTP(ctx, a)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "daemon",
		Short: "Serve the prediction log and run the daily pipeline on a schedule",
		RunE: runWithApp(func(ctx context.Context, a *app) error {
			return runDaemon(ctx, a)
		}),
	})

	return root
}

func serveHTTP(ctx context.Context, a *app) error {
	srv, err := webServer(a)
	if err != nil {
		return err
	}
	return listen(ctx, a, srv)
}

func runDaemon(ctx context.Context, a *app) error {
	c := cron.New()
	_, err := c.AddFunc(a.cfg.CronSchedule, func() {
		if err := a.pipe.Daily(ctx); err != nil {
			a.log.WithError(err).Error("daily run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("parsing cron schedule %q: %w", a.cfg.CronSchedule, err)
	}
	c.Start()
	defer c.Stop()
	a.log.WithField("schedule", a.cfg.CronSchedule).Info("scheduled daily run")

	srv, err := webServer(a)
	if err != nil {
		return err
	}
	return listen(ctx, a, srv)
}

func webServer(a *app) (*http.Server, error) {
	ws, err := web.NewServer(a.store, a.log)
	if err != nil {
		return nil, err
	}
	return &http.Server{Addr: a.cfg.Addr, Handler: ws.Router()}, nil
}

// listen serves until the context is cancelled or a shutdown signal arrives.
func listen(ctx context.Context, a *app, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		a.log.WithField("addr", srv.Addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
