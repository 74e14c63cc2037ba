package dna

import (
	"math"
	"sort"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
)

// =============================================================================
// Value Estimator
// =============================================================================

// ValueEstimator computes spend totals, the CLV projection, and the loyalty
// tier rule table. Value segments are assigned population-relative per run.
type ValueEstimator struct {
	cfg *dnaconfig.Config
}

// NewValueEstimator creates an estimator with the given model parameters
func NewValueEstimator(cfg *dnaconfig.Config) *ValueEstimator {
	return &ValueEstimator{cfg: cfg}
}

// CLV projects customer lifetime value:
//
//	total_spent × (1 + w·ln(1 + frequency)) × exp(−recency / horizon)
//
// 충성도 승수와 침묵 감쇠 페널티의 상수는 dnaconfig clv 블록에서만 온다.
func (v *ValueEstimator) CLV(totalSpent float64, frequency int, recency float64) float64 {
	loyalty := 1 + v.cfg.CLV.FrequencyWeight*math.Log(1+float64(frequency))
	decay := math.Exp(-recency / v.cfg.CLV.HorizonDays)
	return totalSpent * loyalty * decay
}

// LoyaltyTier resolves the (frequency, NES) rule table, first match wins;
// customers matching no rule are Bronze.
func (v *ValueEstimator) LoyaltyTier(frequency int, status contracts.NESStatus) string {
	for _, rule := range v.cfg.Loyalty.Rules {
		if frequency < rule.MinFrequency {
			continue
		}
		for _, s := range rule.NESStatuses {
			if contracts.NESStatus(s) == status {
				return rule.Tier
			}
		}
	}
	return contracts.TierBronze
}

// AssignValueSegments bins the run's CLV distribution into quartiles and
// labels each profile in place. Thresholds are recomputed from the current
// population every run — 고정 컷오프로 저장하지 않는다.
func AssignValueSegments(profiles []contracts.CustomerDNAProfile) {
	if len(profiles) == 0 {
		return
	}

	values := make([]float64, len(profiles))
	for i, p := range profiles {
		values[i] = p.CLV
	}
	sort.Float64s(values)

	q1 := quantile(values, 0.25)
	q2 := quantile(values, 0.50)
	q3 := quantile(values, 0.75)

	for i := range profiles {
		// Ties resolve toward the higher segment
		switch clv := profiles[i].CLV; {
		case clv >= q3:
			profiles[i].ValueSegment = contracts.SegmentHigh
		case clv >= q2:
			profiles[i].ValueSegment = contracts.SegmentMediumHigh
		case clv >= q1:
			profiles[i].ValueSegment = contracts.SegmentMedium
		default:
			profiles[i].ValueSegment = contracts.SegmentStandard
		}
	}
}

// quantile uses the nearest-rank method on a sorted slice
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
