package envio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polysignal/internal/adapters/httpclient"
	"github.com/alejandrodnm/polysignal/internal/domain"
)

const (
	defaultGraphQLURL = "http://localhost:8080/v1/graphql"
	defaultFetchLimit = 100
	defaultTimeout    = 30 * time.Second
)

const marketsQuery = `query Markets($limit: Int!) {
  ParimutuelPredictionMarket_QuestionAdded(limit: $limit, order_by: {endTime: desc}) {
    questionId
    question
    outcomeNames
    endTime
  }
  ParimutuelPredictionMarket_MarketResolved(limit: $limit, order_by: {id: desc}) {
    id
    questionId
    winningOutcome
  }
}`

// Config configura el cliente del indexer.
type Config struct {
	GraphQLURL string
	FetchLimit int
	Timeout    time.Duration
}

// Client implementa ports.MarketProvider sobre el GraphQL de Envio.
type Client struct {
	http  *httpclient.Client
	url   string
	limit int
}

// NewClient crea un Client con defaults para los campos vacíos.
func NewClient(cfg Config) *Client {
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = defaultGraphQLURL
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http:  httpclient.New(httpclient.Options{Timeout: cfg.Timeout, CallTimeout: cfg.Timeout, RatePerSec: 2, Burst: 2}),
		url:   cfg.GraphQLURL,
		limit: cfg.FetchLimit,
	}
}

// FetchMarkets descarga preguntas y resoluciones y las une por questionId.
// Mantiene el orden de las preguntas que devuelve el indexer.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.MarketRecord, error) {
	req := graphQLRequest{
		Query:     marketsQuery,
		Variables: map[string]any{"limit": c.limit},
	}

	var resp graphQLResponse
	if err := c.http.PostJSON(ctx, c.url, req, &resp); err != nil {
		return nil, fmt.Errorf("envio.FetchMarkets: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("envio.FetchMarkets: graphql: %s", strings.Join(msgs, "; "))
	}

	markets := joinMarkets(resp.Data.Questions, resp.Data.Resolutions)
	slog.Debug("indexer markets fetched",
		"questions", len(resp.Data.Questions),
		"resolutions", len(resp.Data.Resolutions),
		"markets", len(markets),
	)
	return markets, nil
}

// joinMarkets une preguntas y resoluciones. Si una pregunta tiene varias
// resoluciones gana la de evento más reciente (bloque y logIndex numéricos);
// si el id no se puede parsear se queda la primera recibida.
func joinMarkets(questions []questionAdded, resolutions []marketResolved) []domain.MarketRecord {
	type resolution struct {
		winner int
		pos    eventPosition
	}
	winners := make(map[string]resolution, len(resolutions))
	for _, r := range resolutions {
		id := string(r.QuestionID)
		w, err := r.WinningOutcome.Int64()
		if err != nil {
			slog.Warn("invalid winning outcome, resolution ignored",
				"question_id", id,
				"winning_outcome", string(r.WinningOutcome),
			)
			continue
		}
		pos := parseEventID(r.ID)
		if prev, seen := winners[id]; seen && !pos.after(prev.pos) {
			continue
		}
		winners[id] = resolution{winner: int(w), pos: pos}
	}

	markets := make([]domain.MarketRecord, 0, len(questions))
	for _, q := range questions {
		id := string(q.QuestionID)
		if id == "" {
			slog.Warn("question without id, skipping", "question", domain.Truncate(q.Question, 60))
			continue
		}
		m := domain.MarketRecord{
			QuestionID:   id,
			Question:     q.Question,
			OutcomeNames: q.OutcomeNames,
			EndTime:      parseUnix(q.EndTime),
		}
		if w, ok := winners[id]; ok {
			winner := w.winner
			m.WinningOutcome = &winner
		}
		markets = append(markets, m)
	}
	return markets
}

// eventPosition ordena eventos del indexer. Los ids de Envio son strings
// "chainId_block_logIndex", así que el orden de texto no sirve.
type eventPosition struct {
	block    int64
	logIndex int64
	ok       bool
}

func (p eventPosition) after(o eventPosition) bool {
	if !p.ok || !o.ok {
		return false
	}
	if p.block != o.block {
		return p.block > o.block
	}
	return p.logIndex > o.logIndex
}

func parseEventID(id string) eventPosition {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return eventPosition{}
	}
	block, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return eventPosition{}
	}
	logIndex, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return eventPosition{}
	}
	return eventPosition{block: block, logIndex: logIndex, ok: true}
}

func parseUnix(n numericString) time.Time {
	secs, err := n.Int64()
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
