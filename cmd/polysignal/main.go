package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polysignal/config"
	"github.com/alejandrodnm/polysignal/internal/adapters/notify"
	"github.com/alejandrodnm/polysignal/internal/adapters/storage"
	"github.com/alejandrodnm/polysignal/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	serve := flag.Bool("serve", false, "start the HTTP API")
	question := flag.String("signal", "", "generate a signal for this question and exit")
	risk := flag.String("risk", "", "risk level: low|medium|high|very-high (default from config)")
	price := flag.Float64("price", domain.NeutralProbability, "current YES market price in [0,1]")
	withBacktest := flag.Bool("with-backtest", false, "calibrate the signal with a fresh backtest")
	backtest := flag.Bool("backtest", false, "run a backtest over resolved markets and exit")
	capital := flag.Float64("capital", 0, "backtest initial capital (default from config)")
	betPct := flag.Float64("bet-pct", 0, "backtest bet size percent (default from config)")
	markets := flag.Bool("markets", false, "list resolved markets and exit")
	history := flag.Bool("history", false, "list archived backtests and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("polysignal starting",
		"config", *configPath,
		"model", cfg.Estimator.Model,
		"indexer", cfg.Indexer.GraphQLURL,
		"news", cfg.News.APIKey != "",
	)

	var store *storage.SQLiteStorage
	if cfg.Storage.DSN != "" {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	svc := buildService(cfg, store)
	console := notify.NewConsole(true)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch {
	case *question != "":
		riskLevel := cfg.Backtest.RiskLevel
		if *risk != "" {
			riskLevel = *risk
		}
		runErr = runSignal(ctx, svc, console, *question, domain.ParseRiskLevel(riskLevel), *price, *withBacktest)
	case *backtest:
		c, p := cfg.Backtest.InitialCapital, cfg.Backtest.BetSizePercent
		if *capital != 0 {
			c = *capital
		}
		if *betPct != 0 {
			p = *betPct
		}
		runErr = runBacktest(ctx, svc, console, c, p)
	case *markets:
		runErr = listMarkets(ctx, svc, console)
	case *history:
		runErr = listHistory(ctx, svc, console)
	case *serve:
		runErr = serveAPI(ctx, cfg, svc)
	default:
		flag.Usage()
		return
	}

	if runErr != nil {
		slog.Error("polysignal exited with error", "err", runErr)
		cancel()
		if store != nil {
			store.Close()
		}
		os.Exit(1)
	}
	slog.Info("polysignal stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
