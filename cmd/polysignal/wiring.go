package main

import (
	"github.com/alejandrodnm/polysignal/config"
	"github.com/alejandrodnm/polysignal/internal/adapters/envio"
	"github.com/alejandrodnm/polysignal/internal/adapters/llm"
	"github.com/alejandrodnm/polysignal/internal/adapters/newsapi"
	"github.com/alejandrodnm/polysignal/internal/adapters/storage"
	"github.com/alejandrodnm/polysignal/internal/application/backtest"
	"github.com/alejandrodnm/polysignal/internal/application/engine"
	"github.com/alejandrodnm/polysignal/internal/application/estimator"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
)

// buildService conecta adapters, estimador, simulador y engine.
// store puede ser nil (sin archivo de backtests).
func buildService(cfg *config.Config, store *storage.SQLiteStorage) *engine.Service {
	est := estimator.New(llm.NewClient(llm.Config{
		BaseURL:     cfg.Estimator.BaseURL,
		APIKey:      cfg.Estimator.APIKey,
		Model:       cfg.Estimator.Model,
		Temperature: cfg.Estimator.Temperature,
		MaxTokens:   cfg.Estimator.MaxTokens,
		Timeout:     cfg.EstimatorTimeout(),
	}))

	news := newsapi.NewClient(newsapi.Config{
		BaseURL:  cfg.News.BaseURL,
		APIKey:   cfg.News.APIKey,
		Language: cfg.News.Language,
		MaxItems: cfg.News.MaxItems,
		Timeout:  cfg.NewsTimeout(),
	})

	markets := envio.NewClient(envio.Config{
		GraphQLURL: cfg.Indexer.GraphQLURL,
		FetchLimit: cfg.Indexer.FetchLimit,
		Timeout:    cfg.IndexerTimeout(),
	})

	bt := cfg.Backtest
	sim := backtest.New(backtest.Config{
		MaxMarkets:      bt.MaxMarkets,
		MinBet:          bt.MinBet,
		Payout:          domain.PayoutModel{WinMultiplier: bt.WinMultiplier, LossFraction: bt.LossFraction},
		BetYesThreshold: bt.BetYesThreshold,
		RiskLevel:       domain.ParseRiskLevel(bt.RiskLevel),
		EstimateWorkers: bt.EstimateWorkers,
		SkipDegraded:    bt.SkipDegraded,
		WithContext:     bt.WithContext,
		ContextItems:    cfg.News.MaxItems,
	}, markets, est, news)

	// Evitar un ports.RunStorage no-nil con puntero nil dentro.
	var runs ports.RunStorage
	if store != nil {
		runs = store
	}

	return engine.New(engine.Config{
		InitialCapital: bt.InitialCapital,
		BetSizePercent: bt.BetSizePercent,
		ContextItems:   cfg.News.MaxItems,
	}, est, sim, news, runs)
}
