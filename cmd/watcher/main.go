package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pixiv_watcher/internal/config"
	"pixiv_watcher/internal/notify"
	"pixiv_watcher/internal/server"
	"pixiv_watcher/internal/service"
	"pixiv_watcher/internal/source/pixiv"
	"pixiv_watcher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one watch pass and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize Pixiv source
	source := pixiv.New(pixiv.Config{
		BaseURL:      cfg.Pixiv.BaseURL,
		AuthURL:      cfg.Pixiv.AuthURL,
		RefreshToken: cfg.Pixiv.RefreshToken,
		Timeout:      cfg.Pixiv.Timeout,
	}, logger)

	// Initialize stores
	history := postgres.NewHistoryStore(db, cfg.Watch.HistoryLimit)
	runState := postgres.NewRunStateStore(db)

	// Assemble enabled sinks
	var sinks []service.Sink
	if cfg.Notify.Email.Enabled {
		sinks = append(sinks, notify.NewEmailSink(cfg.Notify.Email, cfg.Watch.Keywords, logger.With("sink", "email")))
	}
	if cfg.Notify.Telegram.Enabled {
		sinks = append(sinks, notify.NewTelegramSink(cfg.Notify.Telegram, logger.With("sink", "telegram")))
	}
	if cfg.Notify.Queue.Enabled {
		queue, err := notify.NewQueueSink(cfg.Notify.Queue, logger.With("sink", "queue"))
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer queue.Close()
		sinks = append(sinks, queue)
	}

	watcher := service.NewWatchService(
		source,
		history,
		runState,
		sinks,
		logger.With("component", "watch"),
		cfg.Watch,
	)

	if *once {
		if _, err := watcher.Run(context.Background()); err != nil {
			logger.Error("watch run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	trigger := server.NewTrigger(watcher, logger.With("component", "server"))
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: trigger.Routes(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting pixiv watcher",
		"addr", cfg.Server.Addr,
		"keywords", len(cfg.Watch.KeywordList()),
		"sinks", len(sinks),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
