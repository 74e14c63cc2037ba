package dna

import (
	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
)

// =============================================================================
// Lifecycle Classifier (NES engine)
// =============================================================================

// Classifier assigns each customer to one of the five lifecycle states.
// 휴면 티어는 고객 자신의 기대 구매 주기의 정수 배수로 상승한다 (설계 결정)
type Classifier struct {
	cfg *dnaconfig.Config
}

// NewClassifier creates a classifier with the given model parameters
func NewClassifier(cfg *dnaconfig.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify maps (frequency, recency, expected cycle) to an NES status.
// The partition is total and mutually exclusive:
//
//	frequency == 1            -> N   (사이클이 아직 정의되지 않음)
//	ratio <= established_max  -> E0
//	ratio <= sleeping_tiers[0]-> S1
//	ratio <= sleeping_tiers[1]-> S2
//	otherwise                 -> S3
//
// expectedCycle == 0 is guarded as S3 rather than dividing by zero
// (폴백 정책상 발생하지 않지만 반드시 방어).
func (c *Classifier) Classify(frequency int, recency, expectedCycle float64) contracts.NESStatus {
	if frequency <= 1 {
		return contracts.NESNew
	}

	if expectedCycle <= 0 {
		return contracts.NESSleepingDeep
	}

	ratio := recency / expectedCycle

	switch {
	case ratio <= c.cfg.NES.EstablishedMaxCycles:
		return contracts.NESEstablished
	case ratio <= c.cfg.NES.SleepingTiers[0]:
		return contracts.NESSleepingOne
	case ratio <= c.cfg.NES.SleepingTiers[1]:
		return contracts.NESSleepingTwo
	default:
		return contracts.NESSleepingDeep
	}
}
