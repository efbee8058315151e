package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	universeFile string
	env          string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "momentum",
	Short: "Aegis Momentum - 멀티팩터 모멘텀 전략 엔진",
	Long: `Aegis Momentum Unified CLI

시그널 계산 → 복합 점수 → 포지션 사이징 → 포트폴리오 선택 → 리스크 관리.
같은 엔진이 백테스트와 라이브 추천을 모두 처리합니다.

Usage:
  go run ./cmd/momentum [command]

Examples:
  go run ./cmd/momentum backtest --from 2023-01-02 --to 2024-12-31
  go run ./cmd/momentum recommend --holdings config/holdings.example.yaml
  go run ./cmd/momentum grid config/strategy.yaml config/strategy_monthly.yaml
  go run ./cmd/momentum serve
  go run ./cmd/momentum config validate`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 플래그가 환경변수보다 우선
		if cmd.Flags().Changed("env") {
			_ = os.Setenv("ENV", env)
		}
		if verbose {
			_ = os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: $STRATEGY_CONFIG, then built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&universeFile, "universe", "", "universe YAML (default: $UNIVERSE_FILE)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
