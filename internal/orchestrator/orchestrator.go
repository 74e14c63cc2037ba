package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dna"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

// =============================================================================
// Batch Orchestrator
// =============================================================================

// Orchestrator drives one analysis run across a set of scopes
// ⭐ SSOT: 멀티 스코프 조율은 여기서만 (엔진은 스코프 하나만 안다)
type Orchestrator struct {
	source    contracts.TransactionSource
	analyzer  contracts.ScopeAnalyzer
	sink      contracts.ProfileSink
	publisher contracts.RunPublisher

	maxParallel  int
	scopeTimeout time.Duration

	logger *logger.Logger
}

// Options tune the worker pool; zero values fall back to safe defaults
type Options struct {
	MaxParallelScopes int
	ScopeTimeout      time.Duration // 0 = unlimited
}

// RunConfig holds the parameters of a single run
type RunConfig struct {
	ScopeKeys     []string
	ReferenceTime time.Time // zero = now
	DryRun        bool      // skip persistence
}

// New creates an orchestrator. sink and publisher may be nil
// (dry runs and CLI invocations without an API server).
func New(
	source contracts.TransactionSource,
	analyzer contracts.ScopeAnalyzer,
	sink contracts.ProfileSink,
	publisher contracts.RunPublisher,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	if opts.MaxParallelScopes < 1 {
		opts.MaxParallelScopes = 1
	}
	return &Orchestrator{
		source:       source,
		analyzer:     analyzer,
		sink:         sink,
		publisher:    publisher,
		maxParallel:  opts.MaxParallelScopes,
		scopeTimeout: opts.ScopeTimeout,
		logger:       log.WithComponent("orchestrator"),
	}
}

// Run analyzes every requested scope and persists the bundle.
// 스코프 하나의 실패는 나머지 스코프에 영향을 주지 않는다.
// 단, 필수 입력 누락(MissingDataError)은 런 전체를 중단시킨다.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*contracts.ResultBundle, error) {
	if len(cfg.ScopeKeys) == 0 {
		return nil, fmt.Errorf("no scope keys requested")
	}

	reference := cfg.ReferenceTime
	if reference.IsZero() {
		reference = time.Now()
	}

	run := contracts.AnalysisRun{
		RunID:              uuid.New().String(),
		ReferenceTime:      reference,
		ScopeKeysRequested: append([]string(nil), cfg.ScopeKeys...),
		ScopeKeysFailed:    make(map[string]string),
		StartedAt:          time.Now(),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":    run.RunID,
		"scopes":    cfg.ScopeKeys,
		"reference": reference.Format(time.RFC3339),
		"dry_run":   cfg.DryRun,
	}).Info("Starting analysis run")

	o.publish(contracts.RunEvent{Type: "run_started", RunID: run.RunID})

	results := o.analyzeAll(ctx, run.RunID, cfg.ScopeKeys, reference)

	// Aggregation is serialized after all workers finish
	bundle := &contracts.ResultBundle{Run: run}
	var fatal error
	weightedCorrect := 0.0
	totalSample := 0

	for _, result := range results {
		if !result.Succeeded() {
			bundle.Run.ScopeKeysFailed[result.ScopeKey] = result.Err.Error()
			o.publish(contracts.RunEvent{
				Type:     "scope_failed",
				RunID:    run.RunID,
				ScopeKey: result.ScopeKey,
				Message:  result.Err.Error(),
			})
			if fatal == nil && dna.IsFatal(result.Err) {
				fatal = result.Err
			}
			continue
		}

		bundle.Run.ScopeKeysSucceeded = append(bundle.Run.ScopeKeysSucceeded, result.ScopeKey)
		bundle.Run.TotalCustomers += result.CustomerCount
		bundle.Run.SkippedCustomers += result.Skipped
		weightedCorrect += result.ChurnAccuracy * float64(result.BacktestSample)
		totalSample += result.BacktestSample
		bundle.Profiles = append(bundle.Profiles, *result)

		o.publish(contracts.RunEvent{
			Type:     "scope_done",
			RunID:    run.RunID,
			ScopeKey: result.ScopeKey,
			Message:  fmt.Sprintf("%d customers", result.CustomerCount),
		})
	}

	sort.Strings(bundle.Run.ScopeKeysSucceeded)

	// 런 전체 정확도는 스코프별 샘플 크기로 가중 평균
	if totalSample > 0 {
		bundle.Run.ChurnAccuracy = weightedCorrect / float64(totalSample)
	}

	bundle.Run.FinishedAt = time.Now()
	bundle.Run.Duration = bundle.Run.FinishedAt.Sub(bundle.Run.StartedAt)

	if fatal != nil {
		// Run summary is still emitted so the failure is inspectable
		o.publish(contracts.RunEvent{
			Type:    "run_finished",
			RunID:   run.RunID,
			Message: fatal.Error(),
		})
		o.logger.WithError(fatal).WithField("run_id", run.RunID).Error("Run aborted")
		return bundle, fatal
	}

	if !cfg.DryRun && o.sink != nil {
		if err := o.saveBundle(ctx, bundle); err != nil {
			o.logger.WithError(err).WithField("run_id", run.RunID).Error("Persistence failed")
			return bundle, err
		}
	}

	o.publish(contracts.RunEvent{
		Type:    "run_finished",
		RunID:   run.RunID,
		Message: fmt.Sprintf("%d/%d scopes", len(bundle.Run.ScopeKeysSucceeded), len(cfg.ScopeKeys)),
	})

	o.logger.WithFields(map[string]interface{}{
		"run_id":          run.RunID,
		"succeeded":       len(bundle.Run.ScopeKeysSucceeded),
		"failed":          len(bundle.Run.ScopeKeysFailed),
		"total_customers": bundle.Run.TotalCustomers,
		"churn_accuracy":  bundle.Run.ChurnAccuracy,
		"duration":        bundle.Run.Duration.String(),
	}).Info("Analysis run finished")

	return bundle, nil
}

// saveBundle persists the bundle, retrying once on a transient
// PersistenceError. 계산은 재실행하지 않고 쓰기만 재시도한다.
func (o *Orchestrator) saveBundle(ctx context.Context, bundle *contracts.ResultBundle) error {
	err := o.sink.SaveBundle(ctx, bundle)
	if err == nil {
		return nil
	}

	var persistence *contracts.PersistenceError
	if !errors.As(err, &persistence) {
		return err
	}

	o.logger.WithError(err).WithField("run_id", bundle.Run.RunID).Warn("Persistence failed, retrying once")
	return o.sink.SaveBundle(ctx, bundle)
}

// analyzeAll fans scopes out over a bounded worker pool and collects
// results in requested order.
func (o *Orchestrator) analyzeAll(
	ctx context.Context,
	runID string,
	scopeKeys []string,
	reference time.Time,
) []*contracts.ScopeResult {
	results := make([]*contracts.ScopeResult, len(scopeKeys))

	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup

	for i, scopeKey := range scopeKeys {
		wg.Add(1)
		go func(i int, scopeKey string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = o.analyzeScope(ctx, runID, scopeKey, reference)
		}(i, scopeKey)
	}

	wg.Wait()
	return results
}

// analyzeScope loads one scope's rows and runs the engine under the
// per-scope wall-clock budget.
func (o *Orchestrator) analyzeScope(
	ctx context.Context,
	runID string,
	scopeKey string,
	reference time.Time,
) *contracts.ScopeResult {
	if o.scopeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.scopeTimeout)
		defer cancel()
	}

	start := time.Now()

	txns, err := o.source.GetByScope(ctx, scopeKey)
	if err != nil {
		return &contracts.ScopeResult{
			ScopeKey: scopeKey,
			Err:      &contracts.ScopeError{ScopeKey: scopeKey, Err: err},
		}
	}

	result := o.analyzer.AnalyzeScope(ctx, scopeKey, txns, reference)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"scope_key": scopeKey,
		"rows":      len(txns),
		"elapsed":   time.Since(start).String(),
		"ok":        result.Succeeded(),
	}).Debug("Scope pass complete")

	return result
}

func (o *Orchestrator) publish(event contracts.RunEvent) {
	if o.publisher == nil {
		return
	}
	event.Timestamp = time.Now()
	o.publisher.Publish(event)
}
