package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dm/fleetmon-go/internal/api"
	"github.com/dm/fleetmon-go/internal/client"
	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/logger"
	"github.com/dm/fleetmon-go/internal/metrics"
	"github.com/dm/fleetmon-go/internal/publish"
	"github.com/dm/fleetmon-go/internal/tui"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	log, closeLog, err := logger.New(loggerConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog() //nolint:errcheck

	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
		if !cfg.Headless && cfg.LogFile == "" {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("fleetmon exited with error")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeLog() //nolint:errcheck
		os.Exit(1)
	}
}

// loggerConfig starts from the LOG_* environment and applies flags. The
// dashboard owns the terminal, so without --log-file logs are discarded.
func loggerConfig(cfg config) logger.Config {
	lc := logger.DefaultConfig()
	if cfg.LogLevel != "" {
		lc.Level = cfg.LogLevel
	}
	switch {
	case cfg.LogFile != "":
		lc.Output = cfg.LogFile
	case !cfg.Headless:
		lc.Output = logger.OutputDiscard
	}
	return lc
}

// run wires the client, scheduler and optional outputs, and blocks until ctx
// is done or the dashboard quits.
func run(ctx context.Context, cfg config, log zerolog.Logger) error {
	c, err := client.NewDefaultClient(client.ClientConfig{
		BaseURL:            cfg.BaseURL,
		Username:           cfg.Username,
		Password:           cfg.Password,
		InsecureSkipVerify: cfg.Insecure,
		RequestTimeout:     cfg.Timeout,
		SpeedUnit:          cfg.SpeedUnit,
	})
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(true)

	sched, err := engine.NewScheduler(engine.SchedulerConfig{
		Interval: cfg.Interval,
		Cycle: engine.MergeCycleFunc(c, engine.MergeOptions{
			Concurrency: cfg.Concurrency,
			Eviction:    cfg.Eviction,
			Logger:      logger.WithComponent(log, "merger"),
		}),
		Logger: log,
		OnSkip: recorder.ObserveSkip,
	})
	if err != nil {
		return err
	}
	defer sched.Subscribe(recorder.ObserveUpdate)()

	if cfg.NATSURL != "" {
		pub, err := publish.Connect(publish.Config{
			URL:     cfg.NATSURL,
			Subject: cfg.NATSSubject,
		}, log)
		if err != nil {
			return err
		}
		defer pub.Close() //nolint:errcheck
		defer sched.Subscribe(pub.PublishUpdate)()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.Listen != "" {
		srv := api.NewServer(sched,
			api.WithLogger(log),
			api.WithMetrics(recorder),
			api.WithAlertThresholds(engine.DefaultAlertThresholds(cfg.Interval)),
		)
		g.Go(func() error {
			if err := srv.Serve(gctx, cfg.Listen); err != nil {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
	}

	if cfg.Headless {
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("url", c.BaseURL()).Msg("Fleet API not reachable yet")
		}
	} else {
		g.Go(func() error {
			// Quitting the dashboard ends the whole process.
			defer cancel()

			app := tui.NewApp(sched, tui.Config{
				BaseURL:    c.BaseURL(),
				Thresholds: engine.DefaultAlertThresholds(cfg.Interval),
			})
			defer app.Close()

			_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(gctx)).Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		})
	}

	err = g.Wait()
	sched.Stop()
	sched.Wait()
	return err
}
