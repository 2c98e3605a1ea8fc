package storage

// sqlite.go: archivo de backtests.
//
// Estrategia:
//   - `runs`: una fila por backtest con el resumen (accuracy, ROI, capital).
//   - `trades`: una fila por apuesta simulada, clave (run_id, seq).
//   - Solo auditoría: el estimador nunca lee de aquí, cada request que pide
//     calibración lanza su propio backtest.
//   - Prune automático al arrancar: runs > 30d junto con sus trades.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polysignal/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen por backtest
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    created_at      TEXT    NOT NULL,
    risk_level      TEXT    NOT NULL DEFAULT '',
    bet_size_pct    REAL    NOT NULL DEFAULT 0,
    markets_tested  INTEGER NOT NULL DEFAULT 0,
    skipped         INTEGER NOT NULL DEFAULT 0,
    total_bets      INTEGER NOT NULL DEFAULT 0,
    winning_bets    INTEGER NOT NULL DEFAULT 0,
    accuracy        REAL    NOT NULL DEFAULT 0,
    initial_capital REAL    NOT NULL DEFAULT 0,
    final_capital   REAL    NOT NULL DEFAULT 0,
    total_profit    REAL    NOT NULL DEFAULT 0,
    roi             REAL    NOT NULL DEFAULT 0
);

-- Una fila por apuesta simulada, en orden de replay
CREATE TABLE IF NOT EXISTS trades (
    run_id          TEXT    NOT NULL,
    seq             INTEGER NOT NULL,
    trade_id        TEXT    NOT NULL,
    question_id     TEXT    NOT NULL,
    question        TEXT,
    estimate        REAL    NOT NULL DEFAULT 0,
    estimate_status TEXT    NOT NULL DEFAULT '',
    direction       TEXT    NOT NULL DEFAULT '',
    bet_on_yes      INTEGER NOT NULL DEFAULT 0,
    actual_winner   INTEGER NOT NULL DEFAULT 0,
    correct         INTEGER NOT NULL DEFAULT 0,
    bet_amount      REAL    NOT NULL DEFAULT 0,
    profit          REAL    NOT NULL DEFAULT 0,
    capital_after   REAL    NOT NULL DEFAULT 0,
    traded_at       TEXT    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

const retentionRuns = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el resumen y los trades del backtest en una transacción.
// Si el report no trae RunID se le asigna uno.
func (s *SQLiteStorage) SaveRun(ctx context.Context, report *domain.BacktestReport) error {
	if report == nil {
		return nil
	}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	createdAt := report.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	sum := report.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, created_at, risk_level, bet_size_pct, markets_tested, skipped,
			 total_bets, winning_bets, accuracy, initial_capital, final_capital,
			 total_profit, roi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		report.RunID, formatTime(createdAt), string(report.RiskLevel), report.BetSizePercent,
		report.MarketsTested, report.Skipped,
		sum.TotalBets, sum.WinningBets, sum.Accuracy, sum.InitialCapital, sum.FinalCapital,
		sum.TotalProfit, sum.ROI,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
			(run_id, seq, trade_id, question_id, question, estimate, estimate_status,
			 direction, bet_on_yes, actual_winner, correct, bet_amount, profit,
			 capital_after, traded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for i, t := range report.Trades {
		if _, err := stmt.ExecContext(ctx,
			report.RunID, i, t.ID, t.QuestionID, t.Question,
			t.Estimate, string(t.EstimateStatus), string(t.Direction),
			boolToInt(t.BetOnYes), t.ActualWinner, boolToInt(t.Correct),
			t.BetAmount, t.Profit, t.CapitalAfter, formatTime(t.Timestamp),
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %s: %w", t.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// ListRuns devuelve los últimos limit runs, el más reciente primero.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, risk_level, bet_size_pct, skipped,
		       total_bets, winning_bets, accuracy, initial_capital, final_capital,
		       total_profit, roi
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var createdAt, risk string
		if err := rows.Scan(
			&r.ID, &createdAt, &risk, &r.BetSizePercent, &r.Skipped,
			&r.Summary.TotalBets, &r.Summary.WinningBets, &r.Summary.Accuracy,
			&r.Summary.InitialCapital, &r.Summary.FinalCapital,
			&r.Summary.TotalProfit, &r.Summary.ROI,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.RiskLevel = domain.RiskLevel(risk)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountTrades devuelve cuántos trades hay archivados para un run.
func (s *SQLiteStorage) CountTrades(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE run_id = ?`, runID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountTrades: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina runs antiguos y sus trades para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := formatTime(time.Now().Add(-retentionRuns))
	s.db.ExecContext(ctx, `DELETE FROM trades WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
