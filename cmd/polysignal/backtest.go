package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polysignal/internal/adapters/notify"
	"github.com/alejandrodnm/polysignal/internal/application/engine"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
)

func runBacktest(ctx context.Context, svc *engine.Service, notifier ports.Notifier, capital, betPct float64) error {
	slog.Info("=== BACKTEST MODE: replay the policy over resolved markets ===",
		"capital", capital,
		"bet_pct", betPct,
	)

	report, err := svc.RunBacktest(ctx, capital, betPct)
	if errors.Is(err, domain.ErrNoData) {
		return notifier.NotifyBacktest(ctx, report)
	}
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	return notifier.NotifyBacktest(ctx, report)
}

func listMarkets(ctx context.Context, svc *engine.Service, console *notify.Console) error {
	markets, err := svc.ListResolvedMarkets(ctx)
	if err != nil {
		return err
	}
	console.PrintMarkets(markets)
	return nil
}

func listHistory(ctx context.Context, svc *engine.Service, console *notify.Console) error {
	runs, err := svc.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	console.PrintRuns(runs)
	return nil
}
