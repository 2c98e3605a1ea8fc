package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/polysignal/internal/application/engine"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
)

func runSignal(
	ctx context.Context,
	svc *engine.Service,
	notifier ports.Notifier,
	question string,
	risk domain.RiskLevel,
	price float64,
	withBacktest bool,
) error {
	res, err := svc.GenerateSignal(ctx, engine.SignalRequest{
		Question:        question,
		RiskLevel:       risk,
		MarketPrice:     price,
		IncludeBacktest: withBacktest,
	})
	if err != nil {
		return fmt.Errorf("generate signal: %w", err)
	}

	if res.Backtest != nil {
		fmt.Printf("calibrated with backtest: %d bets, %.1f%% accuracy, ROI %+.1f%%\n",
			res.Backtest.TotalBets, res.Backtest.Accuracy, res.Backtest.ROI)
	}
	return notifier.NotifySignal(ctx, res.Signal, res.Status)
}
