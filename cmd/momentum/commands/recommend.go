package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/engine"
	"github.com/wonny/aegis-momentum/internal/portfolio"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "오늘의 포트폴리오 추천",
	Long: `기준일의 목표 포트폴리오와 보유 종목별 액션(BUY/SELL/TRIM/HOLD)을 계산합니다.

보유 종목 출처 (우선순위):
  1. --holdings YAML 파일
  2. DATABASE_URL 이 설정된 경우 portfolio.holdings 테이블
  3. 없으면 전액 현금

Example:
  go run ./cmd/momentum recommend
  go run ./cmd/momentum recommend --as-of 2024-06-28 --holdings config/holdings.example.yaml`,
	RunE: runRecommend,
}

var (
	recAsOf      string
	recHoldings  string
	recJSON      bool
	recOverrides strategyOverrides
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVar(&recAsOf, "as-of", "", "recommendation date YYYY-MM-DD (default: today)")
	recommendCmd.Flags().StringVar(&recHoldings, "holdings", "", "holdings YAML file")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "print the recommendation as JSON")
	recOverrides.register(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asOf, err := parseDate("as-of", recAsOf, contracts.Day(time.Now()))
	if err != nil {
		return err
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
	strategy, err = recOverrides.apply(cmd, strategy)
	if err != nil {
		return err
	}

	eng, err := a.engine(strategy)
	if err != nil {
		return err
	}

	source, err := a.holdings(recHoldings)
	if err != nil {
		return err
	}
	var holdings []contracts.Holding
	if source != nil {
		if holdings, err = source.CurrentHoldings(ctx); err != nil {
			return fmt.Errorf("load holdings: %w", err)
		}
	}

	rec, err := eng.Recommend(ctx, asOf, holdings)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	p := newPrinter(cmd.OutOrStdout())
	if recJSON {
		return p.JSON(rec)
	}
	printRecommendation(p, rec)
	return nil
}

// holdings picks the holdings source; nil means all cash
func (a *app) holdings(path string) (engine.HoldingsSource, error) {
	switch {
	case path != "":
		h, err := portfolio.LoadHoldingsFile(path)
		if err != nil {
			return nil, err
		}
		return h, nil
	case a.db != nil:
		return portfolio.NewRepository(a.db.Pool), nil
	default:
		return nil, nil
	}
}

func printRecommendation(p *printer, rec *contracts.RecommendedPortfolio) {
	p.Header(fmt.Sprintf("Recommendation %s @ %s", rec.StrategyID, rec.Date.Format(dateLayout)))

	if g := rec.Regime; g != nil && g.Cautious {
		p.Warning(fmt.Sprintf("Regime %s: %s %.2f below SMA %.2f, weights x%.2f",
			g.State, g.Benchmark, g.Inputs.Price, g.Inputs.SMA, g.Scale))
	}

	if len(rec.Positions) == 0 {
		p.Warning("No eligible instruments, stay in cash")
		return
	}

	widths := []int{4, 10, 14, 6, 9, 9, 8, 16}
	p.TableHeader([]string{"#", "ID", "Sector", "Action", "Target", "Current", "Score", "Reason"}, widths)
	for _, r := range rec.Positions {
		rank := "-"
		if r.Rank > 0 {
			rank = fmt.Sprintf("%d", r.Rank)
		}
		p.TableRow([]string{
			rank,
			r.Instrument.ID,
			r.Instrument.Sector,
			string(r.Action),
			fmt.Sprintf("%.2f%%", r.TargetWeight*100),
			fmt.Sprintf("%.2f%%", r.CurrentWeight*100),
			fmt.Sprintf("%.1f", r.Score),
			r.Reason,
		}, widths)
	}

	p.Separator()
	p.KeyValue("Cash", fmt.Sprintf("%.2f%%", rec.Cash*100), 8)
	p.KeyValue("BUY", fmt.Sprintf("%d", rec.Count(contracts.ActionBuy)), 8)
	p.KeyValue("SELL", fmt.Sprintf("%d", rec.Count(contracts.ActionSell)), 8)
	p.KeyValue("TRIM", fmt.Sprintf("%d", rec.Count(contracts.ActionTrim)), 8)
	p.KeyValue("HOLD", fmt.Sprintf("%d", rec.Count(contracts.ActionHold)), 8)
}
