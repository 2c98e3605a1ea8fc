package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polysignal/internal/application/estimator"
	"github.com/alejandrodnm/polysignal/internal/domain"
)

type estimateResult struct {
	est domain.ProbabilityEstimate
	err error
}

// estimateAll estima todos los mercados. Con EstimateWorkers > 1 las llamadas
// van en paralelo; results[i] siempre corresponde a markets[i].
func (s *Simulator) estimateAll(ctx context.Context, markets []domain.MarketRecord) []estimateResult {
	results := make([]estimateResult, len(markets))
	if s.cfg.EstimateWorkers <= 1 {
		for i, m := range markets {
			results[i] = s.estimate(ctx, m)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.EstimateWorkers)
	for i, m := range markets {
		g.Go(func() error {
			results[i] = s.estimate(ctx, m)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// estimate obtiene la estimación ciega de un mercado. Un panic se convierte
// en error para que solo se salte ese mercado.
func (s *Simulator) estimate(ctx context.Context, m domain.MarketRecord) (res estimateResult) {
	defer func() {
		if r := recover(); r != nil {
			res = estimateResult{err: fmt.Errorf("estimate panicked: %v", r)}
		}
	}()

	if err := m.Validate(); err != nil {
		return estimateResult{err: fmt.Errorf("invalid market: %w", err)}
	}

	est := s.estimator.Estimate(ctx, estimator.Request{
		Question:     m.Question,
		ContextLines: s.contextFor(ctx, m.Question),
		Mode:         estimator.ModeBlind,
	})
	if est.Degraded() && s.cfg.SkipDegraded {
		return estimateResult{err: fmt.Errorf("degraded estimate: %s", est.Cause)}
	}
	return estimateResult{est: est}
}

// contextFor pide noticias para la pregunta. Un fallo deja el contexto vacío.
func (s *Simulator) contextFor(ctx context.Context, question string) []string {
	if !s.cfg.WithContext || s.news == nil {
		return nil
	}
	lines, err := s.news.FetchContext(ctx, question, s.cfg.ContextItems)
	if err != nil {
		slog.Debug("backtest context fetch failed", "question", domain.Truncate(question, 60), "err", err)
		return nil
	}
	return lines
}
