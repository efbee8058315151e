package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/rebalance"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// DefaultRefreshSchedule is Friday 16:30, after the close
const DefaultRefreshSchedule = "30 16 * * 5"

// Refresher recomputes the latest recommendation
type Refresher interface {
	Refresh(ctx context.Context) (*contracts.RecommendedPortfolio, error)
}

// RecommendationJob refreshes the recommendation on the rebalance cadence
// ⭐ SSOT: 추천 갱신 스케줄은 이 Job에서만
type RecommendationJob struct {
	service  Refresher
	schedule string
	logger   *logger.Logger
}

// NewRecommendationJob creates the refresh job for a rebalance frequency
func NewRecommendationJob(service Refresher, freq rebalance.Frequency, log *logger.Logger) *RecommendationJob {
	return &RecommendationJob{
		service:  service,
		schedule: RefreshSchedule(freq),
		logger:   log,
	}
}

// Name returns the job name
func (j *RecommendationJob) Name() string {
	return "recommendation_refresh"
}

// Schedule returns the cron schedule
func (j *RecommendationJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh
func (j *RecommendationJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled recommendation refresh")

	rec, err := j.service.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh recommendation: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(rec.Date),
		"positions": len(rec.Positions),
		"cash":      rec.Cash,
	}).Info("Recommendation refreshed")

	return nil
}

// RefreshSchedule moves a rebalance cadence to 16:30 on the same days.
// @every intervals are kept as they are.
func RefreshSchedule(freq rebalance.Frequency) string {
	spec := freq.Spec()

	switch spec {
	case "@daily", "@midnight":
		return "30 16 * * *"
	case "@weekly":
		return "30 16 * * 0"
	case "@monthly":
		return "30 16 1 * *"
	case "@yearly", "@annually":
		return "30 16 1 1 *"
	}
	if strings.HasPrefix(spec, "@") {
		return spec
	}

	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return DefaultRefreshSchedule
	}
	return strings.Join(append([]string{"30", "16"}, fields[2:]...), " ")
}
