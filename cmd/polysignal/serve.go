package main

import (
	"context"

	"github.com/alejandrodnm/polysignal/config"
	"github.com/alejandrodnm/polysignal/internal/adapters/api"
	"github.com/alejandrodnm/polysignal/internal/application/engine"
)

func serveAPI(ctx context.Context, cfg *config.Config, svc *engine.Service) error {
	srv := api.NewServer(api.Config{
		Addr:           cfg.Server.Addr,
		CORSOrigins:    cfg.Server.CORSOrigins,
		InitialCapital: cfg.Backtest.InitialCapital,
		BetSizePercent: cfg.Backtest.BetSizePercent,
	}, svc)
	return srv.Run(ctx)
}
