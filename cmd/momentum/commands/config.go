package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/strategyconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 도구",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [strategy.yaml]...",
	Short: "전략 파일 검증 및 해시 출력",
	Long: `전략 YAML을 기본값 위에 로드하고 검증합니다.
경고(실패는 아니지만 의심스러운 값)와 설정 해시를 출력합니다.
인자가 없으면 --strategy 또는 $STRATEGY_CONFIG 를 검증합니다.

Example:
  go run ./cmd/momentum config validate config/strategy.yaml`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "적용될 전략 설정을 JSON 으로 출력",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveStrategy(strategyFile)
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).JSON(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{strategyFile}
	}

	p := newPrinter(cmd.OutOrStdout())
	failed := 0
	for _, path := range paths {
		if err := validateOne(p, path); err != nil {
			p.Error(err.Error())
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d strategy files invalid", failed, len(paths))
	}
	return nil
}

func validateOne(p *printer, path string) error {
	cfg, err := resolveStrategy(path)
	if err != nil {
		return err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	name := path
	if name == "" {
		name = "(built-in defaults)"
	}
	p.Success(fmt.Sprintf("%s: %s v%s", name, cfg.Meta.StrategyID, cfg.Meta.Version))
	p.KeyValue("hash", hash, 10)
	p.KeyValue("window", fmt.Sprintf("%d closes", cfg.Signals.WindowLength()), 10)
	p.KeyValue("rebalance", cfg.Rebalance.Frequency, 10)
	for _, w := range strategyconfig.Warn(cfg) {
		p.Warning(fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	return nil
}

// resolveStrategy loads path, or the built-in defaults when path is empty
func resolveStrategy(path string) (*strategyconfig.Config, error) {
	if path == "" {
		return strategyconfig.Default(), nil
	}
	cfg, _, err := strategyconfig.Load(path)
	return cfg, err
}
