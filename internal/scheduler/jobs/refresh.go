package jobs

import (
	"context"
	"fmt"

	"github.com/kiki830621/customer-dna/internal/orchestrator"
	"github.com/kiki830621/customer-dna/pkg/config"
	"github.com/kiki830621/customer-dna/pkg/logger"
	"github.com/kiki830621/customer-dna/pkg/redis"
)

// RefreshJob reruns the DNA analysis over the configured scopes
// ⭐ SSOT: 야간 DNA 갱신 스케줄은 이 Job에서만
type RefreshJob struct {
	orch   *orchestrator.Orchestrator
	cache  *redis.Cache
	config *config.Config
	logger *logger.Logger
}

// NewRefreshJob creates a new DNA refresh job
func NewRefreshJob(orch *orchestrator.Orchestrator, cache *redis.Cache, cfg *config.Config, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		orch:   orch,
		cache:  cache,
		config: cfg,
		logger: log,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "dna_refresh"
}

// Schedule returns the cron schedule (default: 3 AM daily, with seconds)
func (j *RefreshJob) Schedule() string {
	return j.config.DNA.RefreshSchedule
}

// Run executes a full analysis over the configured scopes
func (j *RefreshJob) Run(ctx context.Context) error {
	j.logger.WithField("scopes", j.config.DNA.ScopeKeys).Info("Starting scheduled DNA refresh")

	bundle, err := j.orch.Run(ctx, orchestrator.RunConfig{
		ScopeKeys: j.config.DNA.ScopeKeys,
	})
	if err != nil {
		return fmt.Errorf("dna refresh: %w", err)
	}

	// New rows are live; serve fresh listings from here on
	if j.cache != nil {
		if err := j.cache.DeletePrefix(ctx, "profiles:"); err != nil {
			j.logger.WithError(err).Warn("Profile cache invalidation failed")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":          bundle.Run.RunID,
		"total_customers": bundle.Run.TotalCustomers,
		"failed_scopes":   len(bundle.Run.ScopeKeysFailed),
	}).Info("Scheduled DNA refresh completed")

	return nil
}
