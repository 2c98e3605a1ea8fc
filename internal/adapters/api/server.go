package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/alejandrodnm/polysignal/internal/application/engine"
	"github.com/alejandrodnm/polysignal/internal/domain"
)

const (
	defaultAddr     = ":5000"
	defaultPrice    = domain.NeutralProbability
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// SignalService es lo que el API necesita del engine.
type SignalService interface {
	GenerateSignal(ctx context.Context, req engine.SignalRequest) (engine.SignalResult, error)
	RunBacktest(ctx context.Context, initialCapital, betSizePercent float64) (*domain.BacktestReport, error)
	ListResolvedMarkets(ctx context.Context) ([]domain.MarketRecord, error)
}

// Config configura el servidor HTTP.
type Config struct {
	Addr           string
	CORSOrigins    []string
	InitialCapital float64 // default de /api/backtest/run
	BetSizePercent float64
}

// Server expone el engine por HTTP.
type Server struct {
	cfg     Config
	service SignalService
	server  *http.Server
}

// NewServer crea un Server sobre el servicio dado.
func NewServer(cfg Config, service SignalService) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 100
	}
	if cfg.BetSizePercent <= 0 {
		cfg.BetSizePercent = 5
	}
	return &Server{cfg: cfg, service: service}
}

// Handler devuelve el router con CORS aplicado.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate-signal", s.generateSignal).Methods(http.MethodPost)
	api.HandleFunc("/backtest/run", s.runBacktest).Methods(http.MethodPost)
	api.HandleFunc("/backtest/markets", s.getMarkets).Methods(http.MethodGet)
	api.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})
	return c.Handler(router)
}

// Run sirve hasta que el contexto se cancele y luego hace shutdown ordenado.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server starting", "addr", s.cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api.Run: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api.Run: shutdown: %w", err)
	}
	slog.Info("api server stopped")
	return nil
}

func (s *Server) generateSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price := defaultPrice
	if req.MarketPrice != nil {
		price = *req.MarketPrice
	}

	res, err := s.service.GenerateSignal(r.Context(), engine.SignalRequest{
		Question:        req.Question,
		RiskLevel:       domain.ParseRiskLevel(req.RiskLevel),
		MarketPrice:     price,
		IncludeBacktest: req.IncludeBacktest,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSignalResponse(res))
}

func (s *Server) runBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	capital, pct := s.cfg.InitialCapital, s.cfg.BetSizePercent
	if req.InitialCapital != nil {
		capital = *req.InitialCapital
	}
	if req.BetSizePercent != nil {
		pct = *req.BetSizePercent
	}

	report, err := s.service.RunBacktest(r.Context(), capital, pct)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBacktestResponse(report))
}

func (s *Server) getMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.service.ListResolvedMarkets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := marketsResponse{Success: true, Markets: make([]marketDTO, 0, len(markets))}
	for _, m := range markets {
		out.Markets = append(out.Markets, toMarketDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ---

// decodeBody acepta body vacío (todos los campos por defecto).
func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("api request failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api encode response", "err", err)
	}
}
