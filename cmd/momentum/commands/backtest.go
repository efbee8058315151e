package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/audit"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/database"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "전략 백테스트 실행",
	Long: `과거 데이터로 전략을 시뮬레이션합니다.

워밍업 구간을 포함해 가격을 수집하고, 리밸런스 일정에 따라
시그널 → 스코어 → 선택 → 리스크 순서로 포트폴리오를 운용합니다.

Example:
  go run ./cmd/momentum backtest --from 2023-01-02 --to 2024-12-31
  go run ./cmd/momentum backtest --strategy config/strategy.yaml --frequency M --top-n 10
  go run ./cmd/momentum backtest --json > result.json`,
	RunE: runBacktest,
}

var (
	btFrom      string
	btTo        string
	btJSON      bool
	btSave      bool
	btOverrides strategyOverrides
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btFrom, "from", "", "start date YYYY-MM-DD (default: one year before --to)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "end date YYYY-MM-DD (default: today)")
	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "print the full result as JSON")
	backtestCmd.Flags().BoolVar(&btSave, "save", false, "store the run summary in audit.backtest_runs (needs DATABASE_URL)")
	btOverrides.register(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	to, err := parseDate("to", btTo, contracts.Day(time.Now()))
	if err != nil {
		return err
	}
	from, err := parseDate("from", btFrom, to.AddDate(-1, 0, 0))
	if err != nil {
		return err
	}
	if !from.Before(to) {
		return fmt.Errorf("--from must be before --to")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	strategy, err := a.strategy()
	if err != nil {
		return err
	}
	strategy, err = btOverrides.apply(cmd, strategy)
	if err != nil {
		return err
	}

	eng, err := a.engine(strategy)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := eng.Backtest(ctx, from, to)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	a.log.WithField("elapsed", time.Since(started).String()).Info("Backtest finished")

	report := audit.Analyze(result)
	if btSave {
		if a.db == nil {
			return fmt.Errorf("--save: %w", database.ErrNotConfigured)
		}
		if err := audit.NewRepository(a.db.Pool).SaveRun(ctx, result, report); err != nil {
			return err
		}
		a.log.WithField("run_id", result.RunID).Info("Run saved")
	}

	p := newPrinter(cmd.OutOrStdout())
	if btJSON {
		return p.JSON(struct {
			Result *contracts.BacktestResult `json:"result"`
			Report *audit.Report             `json:"report"`
		}{result, report})
	}
	printBacktestResult(p, result)
	printReport(p, report)
	return nil
}

func printReport(p *printer, r *audit.Report) {
	st := r.Trades
	p.Section("🔍", "Trade Analysis")
	p.KeyValue("Realized", fmt.Sprintf("%d (%d closed)", st.Realized, st.ClosedTrips), 14)
	p.KeyValue("Win Rate", fmt.Sprintf("%.1f%%", st.WinRate*100), 14)
	p.KeyValue("Avg Win/Loss", fmt.Sprintf("%s / %s", formatNumber(st.AvgWin), formatNumber(st.AvgLoss)), 14)
	p.KeyValue("Profit Factor", fmt.Sprintf("%.2f", st.ProfitFactor), 14)
	p.KeyValue("Turnover", fmt.Sprintf("%.2fx / year", r.Turnover), 14)
	p.KeyValue("Costs", formatNumber(r.TotalCost), 14)
	p.KeyValue("Avg Cash", fmt.Sprintf("%.1f%%", r.AvgCash*100), 14)

	if len(r.Sectors) == 0 {
		return
	}
	p.Section("🏭", "Sector Attribution")
	widths := []int{16, 14, 10, 6}
	p.TableHeader([]string{"Sector", "Realized", "Contrib", "Exits"}, widths)
	for _, a := range r.Sectors {
		p.TableRow([]string{a.Key, formatNumber(a.RealizedPnL), formatPercent(a.Contribution), strconv.Itoa(a.Trades)}, widths)
	}

	for _, a := range audit.BottomContributors(r.Instruments, 3) {
		if a.RealizedPnL >= 0 {
			break
		}
		p.Warning(fmt.Sprintf("%s lost %s over %d exits", a.Key, formatNumber(-a.RealizedPnL), a.Trades))
	}
}

func printBacktestResult(p *printer, r *contracts.BacktestResult) {
	m := r.Metrics

	p.Header(fmt.Sprintf("Backtest %s", r.StrategyID))
	p.KeyValue("Run ID", r.RunID, 14)
	p.KeyValue("Config Hash", shortHash(r.ConfigHash), 14)
	p.KeyValue("Period", fmt.Sprintf("%s ~ %s", r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout)), 14)
	p.KeyValue("Rebalances", strconv.Itoa(r.RebalanceCount), 14)
	if r.RegimeDampened > 0 {
		p.KeyValue("Dampened", fmt.Sprintf("%d (regime)", r.RegimeDampened), 14)
	}

	p.Section("💰", "Performance")
	p.KeyValue("Initial", formatNumber(r.InitialCapital), 14)
	p.KeyValue("Final", formatNumber(r.FinalEquity), 14)
	p.KeyValue("Total Return", formatPercent(m.TotalReturn), 14)
	p.KeyValue("CAGR", formatPercent(m.CAGR), 14)
	p.KeyValue("Volatility", fmt.Sprintf("%.2f%%", m.Volatility*100), 14)

	p.Section("📉", "Risk")
	p.KeyValue("Sharpe", fmt.Sprintf("%.2f %s", m.Sharpe, sharpeGrade(m.Sharpe)), 14)
	p.KeyValue("Sortino", fmt.Sprintf("%.2f", m.Sortino), 14)
	p.KeyValue("Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown*100), 14)
	p.KeyValue("VaR 95", fmt.Sprintf("%.2f%%", m.VaR95*100), 14)
	p.KeyValue("CVaR 95", fmt.Sprintf("%.2f%%", m.CVaR95*100), 14)

	p.Section("💹", "Trades")
	for _, action := range []contracts.Action{contracts.ActionBuy, contracts.ActionSell, contracts.ActionTrim} {
		p.KeyValue(string(action), strconv.Itoa(r.TradeCounts[action]), 14)
	}
	if len(r.Ineligible) > 0 {
		reasons := make([]string, 0, len(r.Ineligible))
		for reason := range r.Ineligible {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			p.KeyValue("skip "+reason, strconv.Itoa(r.Ineligible[contracts.IneligibleReason(reason)]), 14)
		}
	}

	if len(r.FinalPositions) > 0 {
		p.Section("📦", "Final Positions")
		widths := []int{10, 14, 12, 12}
		p.TableHeader([]string{"ID", "Sector", "Quantity", "Entry"}, widths)
		for _, pos := range r.FinalPositions {
			p.TableRow([]string{
				pos.Instrument.ID,
				pos.Instrument.Sector,
				fmt.Sprintf("%.2f", pos.Quantity),
				formatNumber(pos.EntryPrice),
			}, widths)
		}
	}

	printEquityTail(p, r.EquityCurve, 10)
}

// printEquityTail prints the last n equity points
func printEquityTail(p *printer, curve []contracts.PerformanceRecord, n int) {
	if len(curve) == 0 {
		return
	}
	p.Section("📈", fmt.Sprintf("Equity Curve (last %d)", n))
	start := len(curve) - n
	if start < 0 {
		start = 0
	}
	widths := []int{12, 16, 10}
	p.TableHeader([]string{"Date", "Equity", "Drawdown"}, widths)
	for _, pt := range curve[start:] {
		p.TableRow([]string{
			pt.Date.Format(dateLayout),
			formatNumber(pt.Equity),
			fmt.Sprintf("%.2f%%", pt.Drawdown*100),
		}, widths)
	}
}

func sharpeGrade(s float64) string {
	switch {
	case s > 2.0:
		return "🌟"
	case s > 1.0:
		return "✅"
	case s > 0.5:
		return "⚠️"
	default:
		return "❌"
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
