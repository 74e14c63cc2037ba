package dna

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

// =============================================================================
// Customer DNA Engine (per-scope)
// =============================================================================

// Engine converts one scope's raw transactions into behavioral profiles.
// ⭐ 순수 함수: 입력 + 레퍼런스 시각만으로 결과가 결정되고 숨은 상태가 없다
type Engine struct {
	model *dnaconfig.Config
	log   *logger.Logger
}

// New creates an engine bound to one model parameter set
func New(model *dnaconfig.Config, log *logger.Logger) *Engine {
	return &Engine{
		model: model,
		log:   log.WithComponent("dna.engine"),
	}
}

// AnalyzeScope runs the full pipeline for one scope:
// timelines → population stats → per-customer profile → back-test → segments.
// 스코프 전체 실패는 ScopeResult.Err로, 고객 단위 실패는 Skipped로 보고된다.
func (e *Engine) AnalyzeScope(
	ctx context.Context,
	scopeKey string,
	txns []contracts.Transaction,
	reference time.Time,
) *contracts.ScopeResult {
	result := &contracts.ScopeResult{ScopeKey: scopeKey}

	if len(txns) == 0 {
		result.Err = &contracts.ScopeError{
			ScopeKey: scopeKey,
			Err:      fmt.Errorf("empty post-filter dataset"),
		}
		return result
	}

	// Required input fields; a hole here is fatal for the whole run
	if err := validateTransactions(txns); err != nil {
		result.Err = &contracts.ScopeError{ScopeKey: scopeKey, Err: err}
		return result
	}

	// Timeline Builder
	timelines := BuildTimelines(txns)

	if err := ctx.Err(); err != nil {
		result.Err = &contracts.ScopeError{ScopeKey: scopeKey, Err: err}
		return result
	}

	// Population Statistics Estimator
	pop := ComputePopulationStats(timelines)
	cycles := NewCycleEstimator(e.model, pop)

	classifier := NewClassifier(e.model)
	churn := NewChurnEstimator(e.model)
	value := NewValueEstimator(e.model)

	profiles := make([]contracts.CustomerDNAProfile, 0, len(timelines))

	for i, tl := range timelines {
		// Honor the per-scope wall-clock budget
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				result.Err = &contracts.ScopeError{ScopeKey: scopeKey, Err: err}
				return result
			}
		}

		profile, err := e.buildProfile(tl, scopeKey, reference, cycles, classifier, churn, value)
		if err != nil {
			// ComputationError: skip this customer, never the scope
			result.Skipped++
			e.log.WithError(err).WithFields(map[string]interface{}{
				"scope_key":   scopeKey,
				"customer_id": tl.CustomerID,
			}).Warn("Customer skipped")
			continue
		}

		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 {
		result.Err = &contracts.ScopeError{
			ScopeKey: scopeKey,
			Err:      fmt.Errorf("no computable customers (%d skipped)", result.Skipped),
		}
		return result
	}

	// Churn back-test over the scope's population
	report := churn.Backtest(timelines, reference, cycles)
	result.ChurnAccuracy = report.Accuracy
	result.BacktestSample = report.Sample

	// Population-relative quartile labels, recomputed this run
	AssignValueSegments(profiles)

	result.Profiles = profiles
	result.CustomerCount = len(profiles)

	e.log.WithFields(map[string]interface{}{
		"scope_key":       scopeKey,
		"customers":       result.CustomerCount,
		"skipped":         result.Skipped,
		"churn_accuracy":  result.ChurnAccuracy,
		"backtest_sample": result.BacktestSample,
	}).Info("Scope analyzed")

	return result
}

// buildProfile assembles and validates one customer's profile row
func (e *Engine) buildProfile(
	tl contracts.CustomerTimeline,
	scopeKey string,
	reference time.Time,
	cycles *CycleEstimator,
	classifier *Classifier,
	churn *ChurnEstimator,
	value *ValueEstimator,
) (contracts.CustomerDNAProfile, error) {
	recency := tl.RecencyDays(reference)
	totalSpent := tl.TotalSpent()

	profile := contracts.CustomerDNAProfile{
		CustomerID: tl.CustomerID,
		ScopeKey:   scopeKey,
		Recency:    recency,
		Frequency:  tl.Frequency,
		Monetary:   totalSpent / float64(tl.Frequency),
		TotalSpent: totalSpent,
	}

	// IPT statistics stay nil (undefined) for single-purchase customers
	if mean, ok := tl.IPTMean(); ok {
		m := mean
		profile.IPTMean = &m
	}
	if sd, ok := tl.IPTSD(); ok {
		s := sd
		profile.IPTSD = &s
	}

	profile.NESStatus = classifier.Classify(tl.Frequency, recency, cycles.ExpectedCycle(tl))
	profile.NRec = churn.Estimate(tl, recency, cycles)
	profile.CLV = value.CLV(totalSpent, tl.Frequency, recency)
	profile.LoyaltyTier = value.LoyaltyTier(tl.Frequency, profile.NESStatus)

	// ValueSegment is assigned after the whole population's CLV is known

	if err := profile.Validate(); err != nil {
		return contracts.CustomerDNAProfile{}, err
	}

	return profile, nil
}

// validateTransactions checks required input fields on every row
func validateTransactions(txns []contracts.Transaction) error {
	for _, t := range txns {
		if t.CustomerID == "" {
			return &contracts.MissingDataError{Field: "customer_id"}
		}
		if t.Timestamp.IsZero() {
			return &contracts.MissingDataError{Field: "timestamp"}
		}
	}
	return nil
}

// IsFatal reports whether a scope failure should abort the whole run
// (필수 입력 컬럼 누락은 스코프 단위가 아니라 런 단위 실패)
func IsFatal(err error) bool {
	var missing *contracts.MissingDataError
	return errors.As(err, &missing)
}
