package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"chatfeed/internal/bot"
	"chatfeed/internal/config"
	"chatfeed/internal/filter"
	"chatfeed/internal/notify"
	"chatfeed/internal/scheduler"
	"chatfeed/internal/source"
	"chatfeed/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	tail := source.NewTail(store, log)
	tail.SetPollInterval(cfg.PollInterval)

	var signals *notify.Redis
	if cfg.RedisURL != "" {
		signals, err = notify.NewRedis(cfg.RedisURL, log)
		if err != nil {
			log.Error("connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = signals.Close() }()
		tail.SetSignaler(signals)
	}

	b, err := bot.New(cfg.TelegramBotToken, tail, source.NewPager(store), cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.ImportURL != "" {
		rules, err := filter.ParseRules(cfg.ImportInclude, cfg.ImportExclude)
		if err != nil {
			log.Error("parse import rules", "error", err)
			os.Exit(1)
		}
		sched := scheduler.New(store, cfg.ImportURL, rules, log)
		sched.SetTickInterval(cfg.ImportInterval)
		if signals != nil {
			sched.SetPublisher(signals)
		}
		go sched.Run(ctx)
		log.Info("importing feed", "url", cfg.ImportURL, "every", cfg.ImportInterval, "rules", len(rules))
	}

	log.Info("starting bot", "live_window", cfg.LiveWindow, "page_size", cfg.PageSize)

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
