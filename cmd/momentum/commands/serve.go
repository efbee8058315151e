package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/api"
	"github.com/wonny/aegis-momentum/internal/api/handlers"
	"github.com/wonny/aegis-momentum/internal/engine"
	"github.com/wonny/aegis-momentum/internal/rebalance"
	"github.com/wonny/aegis-momentum/internal/scheduler"
	"github.com/wonny/aegis-momentum/internal/scheduler/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 추천 스케줄러 시작",
	Long: `REST API 서버와 추천 갱신 스케줄러를 함께 시작합니다.

Endpoints:
  GET  /health                     - Health check
  GET  /metrics                    - Prometheus metrics (METRICS_ENABLED)
  GET  /api/recommendation         - 최신 추천
  POST /api/recommendation/refresh - 추천 즉시 갱신
  GET  /api/backtest?from=&to=     - 백테스트 실행

Example:
  go run ./cmd/momentum serve
  go run ./cmd/momentum serve --port 8089 --holdings config/holdings.example.yaml`,
	RunE: runServe,
}

var (
	servePort      string
	serveHoldings  string
	serveNoRefresh bool
	serveTimezone  string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (default: $PORT)")
	serveCmd.Flags().StringVar(&serveHoldings, "holdings", "", "holdings YAML file")
	serveCmd.Flags().BoolVar(&serveNoRefresh, "no-refresh", false, "skip the refresh at startup")
	serveCmd.Flags().StringVar(&serveTimezone, "timezone", "Asia/Seoul", "time zone of the refresh schedule")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	strategy, err := a.strategy()
	if err != nil {
		return err
	}
	eng, err := a.engine(strategy)
	if err != nil {
		return err
	}
	source, err := a.holdings(serveHoldings)
	if err != nil {
		return err
	}
	service := engine.NewService(eng, source, a.cache(), a.log)

	// 1. Scheduler
	opts := scheduler.DefaultOptions()
	loc, err := time.LoadLocation(serveTimezone)
	if err != nil {
		return fmt.Errorf("--timezone: %w", err)
	}
	opts.Location = loc

	freq, err := rebalance.ParseFrequency(strategy.Rebalance.Frequency)
	if err != nil {
		return err
	}
	sched := scheduler.New(opts, a.log)
	job := jobs.NewRecommendationJob(service, freq, a.log)
	if err := sched.AddJob(job); err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if !serveNoRefresh {
		if err := sched.Trigger(job.Name()); err != nil {
			a.log.WithError(err).Warn("Initial refresh not triggered")
		}
	}

	// 2. HTTP
	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}
	checks := []api.HealthCheck{{Name: "redis", Check: a.redis.Ping}}
	if a.db != nil {
		checks = append(checks, api.HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			_, err := a.db.HealthCheck(ctx)
			return err
		}})
	}
	router := api.NewRouter(handlers.NewStrategyHandler(service, a.log), metricsHandler, a.log, checks...)
	server := api.New(a.cfg, a.log, router)

	a.log.WithFields(map[string]interface{}{
		"strategy": strategy.Meta.StrategyID,
		"schedule": job.Schedule(),
		"port":     a.cfg.Port,
	}).Info("Momentum server ready")

	return server.Run(ctx, 30*time.Second)
}
