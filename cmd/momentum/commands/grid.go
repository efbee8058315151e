package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/backtest"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
)

var gridCmd = &cobra.Command{
	Use:   "grid <strategy.yaml>...",
	Short: "여러 전략 변형을 병렬 백테스트",
	Long: `여러 전략 파일을 같은 데이터로 병렬 백테스트하고 Sharpe 순으로 정렬합니다.
실패한 변형은 결과 맨 아래에 에러와 함께 표시됩니다.

Example:
  go run ./cmd/momentum grid config/strategy.yaml config/strategy_monthly.yaml --workers 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGrid,
}

var (
	gridFrom    string
	gridTo      string
	gridWorkers int
	gridJSON    bool
)

func init() {
	rootCmd.AddCommand(gridCmd)

	gridCmd.Flags().StringVar(&gridFrom, "from", "", "start date YYYY-MM-DD (default: one year before --to)")
	gridCmd.Flags().StringVar(&gridTo, "to", "", "end date YYYY-MM-DD (default: today)")
	gridCmd.Flags().IntVar(&gridWorkers, "workers", 4, "concurrent backtests")
	gridCmd.Flags().BoolVar(&gridJSON, "json", false, "print results as JSON")
}

func runGrid(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	to, err := parseDate("to", gridTo, contracts.Day(time.Now()))
	if err != nil {
		return err
	}
	from, err := parseDate("from", gridFrom, to.AddDate(-1, 0, 0))
	if err != nil {
		return err
	}

	configs, err := loadStrategies(args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.engine(configs[0])
	if err != nil {
		return err
	}

	results, err := eng.Grid(ctx, configs, from, to, gridWorkers)
	if err != nil {
		return fmt.Errorf("grid: %w", err)
	}

	p := newPrinter(cmd.OutOrStdout())
	if gridJSON {
		return p.JSON(results)
	}
	printGrid(p, results)
	return nil
}

// loadStrategies loads every file; duplicate strategy IDs are rejected
func loadStrategies(paths []string) ([]*strategyconfig.Config, error) {
	configs := make([]*strategyconfig.Config, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		cfg, _, err := strategyconfig.Load(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[cfg.Meta.StrategyID]; ok {
			return nil, fmt.Errorf("strategy_id %q used by both %s and %s", cfg.Meta.StrategyID, prev, path)
		}
		seen[cfg.Meta.StrategyID] = path
		configs = append(configs, cfg)
	}
	return configs, nil
}

func printGrid(p *printer, results []backtest.GridResult) {
	p.Header(fmt.Sprintf("Grid (%d variants)", len(results)))

	widths := []int{4, 20, 9, 9, 9, 9}
	p.TableHeader([]string{"#", "Strategy", "Sharpe", "CAGR", "MaxDD", "Return"}, widths)
	failed := 0
	for i, r := range results {
		if r.Err != nil || r.Result == nil {
			failed++
			p.TableRow([]string{fmt.Sprintf("%d", i+1), r.StrategyID, "-", "-", "-", "-"}, widths)
			continue
		}
		m := r.Result.Metrics
		p.TableRow([]string{
			fmt.Sprintf("%d", i+1),
			r.StrategyID,
			fmt.Sprintf("%.2f", m.Sharpe),
			formatPercent(m.CAGR),
			fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
			formatPercent(m.TotalReturn),
		}, widths)
	}

	if failed > 0 {
		fmt.Fprintln(p.w)
		for _, r := range results {
			if r.Err != nil {
				p.Error(fmt.Sprintf("%s: %s", r.StrategyID, r.Error))
			}
		}
	}
}
