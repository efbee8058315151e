package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/audit"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "저장된 백테스트 실행 목록",
	Long: `backtest --save 로 저장한 실행 요약을 최신순으로 보여줍니다.

Example:
  go run ./cmd/momentum runs --strategy-id momentum_weekly --limit 10`,
	RunE: runRuns,
}

var (
	runsStrategyID string
	runsLimit      int
)

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringVar(&runsStrategyID, "strategy-id", "", "only this strategy")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum rows")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return errors.New("runs needs DATABASE_URL")
	}

	runs, err := audit.NewRepository(a.db.Pool).ListRuns(cmd.Context(), runsStrategyID, runsLimit)
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	if len(runs) == 0 {
		p.Info("No stored runs")
		return nil
	}

	widths := []int{24, 14, 23, 8, 9, 9}
	p.TableHeader([]string{"Strategy", "Hash", "Period", "Sharpe", "CAGR", "MaxDD"}, widths)
	for _, r := range runs {
		p.TableRow([]string{
			r.StrategyID,
			shortHash(r.ConfigHash),
			r.StartDate.Format(dateLayout) + "~" + r.EndDate.Format(dateLayout),
			fmt.Sprintf("%.2f", r.Metrics.Sharpe),
			formatPercent(r.Metrics.CAGR),
			fmt.Sprintf("%.2f%%", r.Metrics.MaxDrawdown*100),
		}, widths)
	}
	return nil
}
