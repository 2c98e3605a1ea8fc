package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const questionWidth = 50

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	trades bool // imprimir la tabla de trades del backtest
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(trades bool) *Console {
	return &Console{out: os.Stdout, trades: trades}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, trades: true}
}

// NotifySignal imprime una señal en vivo.
func (c *Console) NotifySignal(_ context.Context, sig domain.Signal, status domain.EstimateStatus) error {
	fmt.Fprintf(c.out, "\n[%s] SIGNAL %s  conf:%.2f  price:%.2f  risk:%s\n",
		sig.Timestamp.Format("15:04:05"), directionLabel(sig.Direction),
		sig.Confidence, sig.MarketPrice, sig.RiskLevel)

	t := domain.Thresholds(sig.RiskLevel)
	fmt.Fprintf(c.out, "  thresholds: buy > %.2f | sell < %.2f\n", t.Buy, t.Sell)
	fmt.Fprintf(c.out, "  reason: %s\n", sig.Reason)

	switch status {
	case domain.StatusDegraded:
		fmt.Fprintln(c.out, "  ⚠ estimator unavailable: neutral fallback, do not act on this signal")
	case domain.StatusHeuristic, domain.StatusDefault:
		fmt.Fprintf(c.out, "  ⚠ low-confidence parse (%s)\n", status)
	}
	fmt.Fprintln(c.out)
	return nil
}

// NotifyBacktest imprime resumen, trades e insights de un backtest.
func (c *Console) NotifyBacktest(_ context.Context, report *domain.BacktestReport) error {
	if report == nil || report.State == domain.StateNoData {
		fmt.Fprintf(c.out, "[%s] no resolved markets to backtest\n", time.Now().Format("15:04:05"))
		return nil
	}

	s := report.Summary
	fmt.Fprintf(c.out, "\n=== BACKTEST %s (%d markets, %d skipped, bet %.1f%%) ===\n",
		shortID(report.RunID), report.MarketsTested, report.Skipped, report.BetSizePercent)

	if c.trades && len(report.Trades) > 0 {
		c.printTrades(report.Trades)
	}

	fmt.Fprintf(c.out, "  Accuracy: %.1f%% (%d/%d)   Losing bets: %d\n",
		s.Accuracy, s.WinningBets, s.TotalBets, s.LosingBets())
	fmt.Fprintf(c.out, "  Capital:  $%.2f → $%.2f   Profit: %+.2f   ROI: %+.1f%%\n",
		s.InitialCapital, s.FinalCapital, s.TotalProfit, s.ROI)

	c.printInsights(report.Insights)
	return nil
}

// printTrades imprime una fila por apuesta simulada en orden de replay.
func (c *Console) printTrades(trades []domain.TradeRecord) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Est", "Bet", "Winner", "OK", "Amount", "Profit", "Capital")

	for i, t := range trades {
		bet := "NO"
		if t.BetOnYes {
			bet = "YES"
		}
		ok := "✗"
		if t.Correct {
			ok = "✓"
		}
		est := fmt.Sprintf("%.2f", t.Estimate)
		if t.EstimateStatus != domain.StatusStructured {
			est += "*"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.Truncate(t.Question, questionWidth),
			est,
			bet,
			t.ActualWinnerName,
			ok,
			fmt.Sprintf("$%.2f", t.BetAmount),
			fmt.Sprintf("%+.2f", t.Profit),
			fmt.Sprintf("$%.2f", t.CapitalAfter),
		)
	}
	table.Render()
	fmt.Fprintln(c.out, "  Est* = estimación sin JSON válido (heurística, default o degradada)")
}

func (c *Console) printInsights(in domain.Insights) {
	if in.Empty() {
		return
	}
	fmt.Fprintln(c.out, "\n  Insights:")
	if in.Recent.Samples > 0 {
		fmt.Fprintf(c.out, "    recent (last %d):   %.1f%%\n", in.Recent.Samples, in.Recent.Accuracy)
	}
	printBand(c.out, "high conf (>=0.7)", in.HighConfidence)
	printBand(c.out, "low conf (<=0.3)", in.LowConfidence)
	for _, t := range in.TopTopics() {
		fmt.Fprintf(c.out, "    topic %-12q %.1f%% over %d\n", t.Keyword, t.Accuracy, t.Samples)
	}
	fmt.Fprintln(c.out)
}

func printBand(w io.Writer, label string, b domain.BandStats) {
	if !b.Presentable() {
		fmt.Fprintf(w, "    %-19s n/a (%d samples)\n", label+":", b.Samples)
		return
	}
	fmt.Fprintf(w, "    %-19s %.1f%% over %d\n", label+":", b.Accuracy, b.Samples)
}

// PrintMarkets imprime los mercados resueltos disponibles para el backtest.
func (c *Console) PrintMarkets(markets []domain.MarketRecord) {
	if len(markets) == 0 {
		fmt.Fprintln(c.out, "No resolved markets found")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "ID", "Market", "Outcomes", "Winner", "Ended")
	for i, m := range markets {
		ended := "-"
		if !m.EndTime.IsZero() {
			ended = m.EndTime.Format("2006-01-02")
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			m.QuestionID,
			domain.Truncate(m.Question, questionWidth),
			strings.Join(m.OutcomeNames, "/"),
			m.WinnerName(),
			ended,
		)
	}
	table.Render()
}

// PrintRuns imprime el histórico de backtests archivados.
func (c *Console) PrintRuns(runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No archived backtests")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Date", "Risk", "Bet%", "Bets", "Acc", "Final", "ROI")
	for _, r := range runs {
		table.Append(
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.RiskLevel),
			fmt.Sprintf("%.1f", r.BetSizePercent),
			fmt.Sprintf("%d", r.Summary.TotalBets),
			fmt.Sprintf("%.1f%%", r.Summary.Accuracy),
			fmt.Sprintf("$%.2f", r.Summary.FinalCapital),
			fmt.Sprintf("%+.1f%%", r.Summary.ROI),
		)
	}
	table.Render()
}

// --- helpers ---

func directionLabel(d domain.Direction) string {
	switch d {
	case domain.DirectionBuy:
		return "BUY YES"
	case domain.DirectionSell:
		return "BUY NO"
	default:
		return "HOLD"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
