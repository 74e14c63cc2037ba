package dna

import (
	"math"
	"time"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
)

// =============================================================================
// Churn Probability Estimator
// =============================================================================

// ChurnEstimator produces the "still alive" probability (nrec) and its
// back-tested accuracy over the population.
// 모델: 구매 간격을 정규분포로 근사한 생존 확률 p = 1 - Φ((recency - μ) / σ)
type ChurnEstimator struct {
	cfg *dnaconfig.Config
}

// NewChurnEstimator creates an estimator with the given model parameters
func NewChurnEstimator(cfg *dnaconfig.Config) *ChurnEstimator {
	return &ChurnEstimator{cfg: cfg}
}

// StillAliveProbability estimates P(customer will purchase again) given the
// elapsed recency, the expected cycle μ, and the gap spread σ.
// 항상 [0, 1]로 클램프된다.
func (c *ChurnEstimator) StillAliveProbability(recency, cycle, sigma float64) float64 {
	if sigma <= 0 {
		// Guarded upstream by SpreadSigma; kept so the function is total
		sigma = c.cfg.Churn.MinSigmaDays
	}

	z := (recency - cycle) / sigma
	p := 1 - normCDF(z)

	return clamp01(p)
}

// Estimate computes nrec for one customer. Single-purchase customers have no
// individual cycle evidence and receive the configured default.
func (c *ChurnEstimator) Estimate(tl contracts.CustomerTimeline, recency float64, est *CycleEstimator) float64 {
	if tl.Frequency < 2 {
		return c.cfg.Churn.DefaultNRec
	}

	cycle := est.ExpectedCycle(tl)
	sigma := est.SpreadSigma(tl)
	return c.StillAliveProbability(recency, cycle, sigma)
}

// BacktestReport summarizes the back-test over one scope's population
type BacktestReport struct {
	Accuracy         float64 // correct / sample
	Sample           int     // labeled points evaluated
	Correct          int
	SkippedCustomers int // frequency == 1, no ground truth
}

// Backtest validates the survival model against observed outcomes.
// 각 frequency >= 2 고객이 두 개의 라벨 포인트를 제공한다:
//
//  1. 마지막 구매를 홀드아웃: 잘린 이력 기준으로 홀드아웃 간격만큼 침묵한
//     시점의 생존 확률 — 실제로는 재구매했으므로 정답은 "alive"
//  2. 마지막 구매 이후 레퍼런스까지의 열린 간격 — 레퍼런스까지 재구매가
//     없었으므로 정답은 "not returned"
//
// frequency == 1 고객은 정답이 없어 제외되고 SkippedCustomers로 집계된다.
func (c *ChurnEstimator) Backtest(
	timelines []contracts.CustomerTimeline,
	reference time.Time,
	est *CycleEstimator,
) BacktestReport {
	var report BacktestReport
	threshold := c.cfg.Churn.ActiveThreshold

	for _, tl := range timelines {
		if tl.Frequency < 2 {
			report.SkippedCustomers++
			continue
		}

		// (1) Held-out last interval: known positive outcome
		truncated := Truncate(tl)
		heldOutGap := tl.IPT[len(tl.IPT)-1]

		cycle := est.ExpectedCycle(truncated)
		sigma := est.SpreadSigma(truncated)
		pReturn := c.StillAliveProbability(heldOutGap, cycle, sigma)

		report.Sample++
		if pReturn >= threshold {
			report.Correct++
		}

		// (2) Open interval up to the reference: known negative outcome
		openGap := tl.RecencyDays(reference)
		cycleFull := est.ExpectedCycle(tl)
		sigmaFull := est.SpreadSigma(tl)
		pOpen := c.StillAliveProbability(openGap, cycleFull, sigmaFull)

		report.Sample++
		if pOpen < threshold {
			report.Correct++
		}
	}

	if report.Sample > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Sample)
	}

	return report
}

// normCDF is the standard normal cumulative distribution Φ(z)
func normCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
