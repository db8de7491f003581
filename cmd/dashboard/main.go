package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courtside/internal/api"
	"courtside/internal/archive"
	"courtside/internal/dataset"
	"courtside/internal/detail"
	"courtside/internal/insights"
	"courtside/internal/model"
	"courtside/internal/outcome"
	"courtside/internal/prefs"
	"courtside/internal/store"
	"courtside/internal/stream"
	"courtside/internal/syncstatus"
)

func main() {
	configPath := flag.String("config", "configs/dashboard/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prefStore, err := prefs.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Couldn't open preference store: %v", err)
	}

	backend := api.New(cfg.Backend.APIURL)
	status := syncstatus.New()

	refresher := dataset.New(backend, cfg.Backend.League, cfg.Backend.SortBy, status, logger)
	defer refresher.Close()

	// The saved schedule wins over the config default once the user has
	// changed it in a previous run.
	schedule, err := prefStore.RefreshSchedule(prefs.RefreshSchedule{
		Enabled:    cfg.Refresh.Enabled,
		IntervalMs: int(cfg.Refresh.Interval.Duration().Milliseconds()),
	})
	if err != nil {
		log.Fatalf("Couldn't load refresh schedule: %v", err)
	}
	refresher.Schedule(time.Duration(schedule.IntervalMs)*time.Millisecond, schedule.Enabled)
	refresher.Refresh()

	fetcher := detail.New(backend, refresher, cfg.Backend.League, status, logger, detail.Config{
		Timeout:        cfg.Detail.Timeout.Duration(),
		DebounceWindow: cfg.Detail.DebounceWindow.Duration(),
	})

	contexts := insights.New[model.ContextRecord](cfg.Context.Timeout.Duration(), status, logger)

	streamClient := stream.New(stream.Config{
		BaseURL: cfg.Backend.WSURL,
		League:  cfg.Backend.League,
	}, logger)
	streamClient.Connect(ctx)
	defer streamClient.Disconnect()

	recorder, err := outcome.New(backend, refresher, prefStore, cfg.Outcome.ScanInterval.Duration(), logger)
	if err != nil {
		log.Fatalf("Couldn't start outcome recorder: %v", err)
	}
	go recorder.Start(ctx)

	if cfg.Archive.Enabled {
		db := cfg.Archive.Database
		pool, err := store.NewPool(ctx, store.PoolConfig{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			Database: db.Database,
			PoolSize: db.PoolSize,
			SSLMode:  db.SSLMode,
		})
		if err != nil {
			log.Fatalf("Couldn't connect to database: %v", err)
		}
		defer pool.Close()

		writer := archive.New(streamClient, store.New(pool), cfg.Archive.Interval.Duration(), logger)
		go writer.Start(ctx)
	}

	go followTopGame(ctx, refresher, fetcher, contexts, backend, logger)

	logger.Info("dashboard core started",
		"league", cfg.Backend.League,
		"refresh_enabled", schedule.Enabled,
	)

	<-ctx.Done()
	logger.Info("shutting down", "reason", ctx.Err())
}

// followTopGame keeps the detail fetcher and context cache focused on the
// top-sorted game, standing in for a UI selection until one is attached.
func followTopGame(ctx context.Context, refresher *dataset.Refresher, fetcher *detail.Fetcher, contexts *insights.Cache[model.ContextRecord], backend *api.Client, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var focused string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		games := refresher.Games()
		if len(games) == 0 {
			continue
		}
		top := games[0]
		if top.ID != focused {
			focused = top.ID
			fetcher.Select(top.ID)
		}

		entry, err := contexts.FetchOrJoin(ctx, top.ID, func(ctx context.Context) (model.ContextRecord, error) {
			rec, err := backend.GameContext(ctx, model.ContextQuery{
				GameID:   top.ID,
				League:   top.League,
				HomeTeam: top.HomeTeam,
				AwayTeam: top.AwayTeam,
			})
			if err != nil {
				return model.ContextRecord{}, err
			}
			return *rec, nil
		})
		if err != nil {
			continue
		}

		view := fetcher.View()
		logger.Debug("focused game",
			"game_id", top.ID,
			"divergence", top.Divergence,
			"detail_loaded", view.Detail != nil,
			"injuries", len(entry.Data.Injuries),
		)
	}
}
