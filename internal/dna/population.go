package dna

import (
	"math"
	"sort"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
)

// =============================================================================
// Population Statistics Estimator
// =============================================================================

// PopulationStats holds population-level IPT dispersion, the fallback source
// for customers whose individual statistics are undefined or degenerate
// ⭐ SSOT: 모집단 폴백 통계는 매 런마다 여기서 새로 계산
type PopulationStats struct {
	MedianIPT float64 // median of per-customer IPT means (frequency >= 2)
	MeanIPT   float64 // mean of per-customer IPT means
	SDIPT     float64 // pooled sample sd over every gap in the population

	RepeatCustomers int // customers with frequency >= 2
	GapCount        int // total gaps pooled into SDIPT
}

// ComputePopulationStats aggregates IPT dispersion across all repeat customers
func ComputePopulationStats(timelines []contracts.CustomerTimeline) PopulationStats {
	var stats PopulationStats

	var customerMeans []float64
	var allGaps []float64

	for _, tl := range timelines {
		mean, ok := tl.IPTMean()
		if !ok {
			continue
		}
		customerMeans = append(customerMeans, mean)
		allGaps = append(allGaps, tl.IPT...)
	}

	stats.RepeatCustomers = len(customerMeans)
	stats.GapCount = len(allGaps)
	if len(customerMeans) == 0 {
		return stats
	}

	sort.Float64s(customerMeans)
	stats.MedianIPT = median(customerMeans)

	var sum float64
	for _, m := range customerMeans {
		sum += m
	}
	stats.MeanIPT = sum / float64(len(customerMeans))

	stats.SDIPT = sampleSD(allGaps)

	return stats
}

// median expects a sorted slice
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleSD computes the sample standard deviation (n-1 denominator)
func sampleSD(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// CycleEstimator resolves each customer's expected purchase cycle, falling
// back to population statistics per the replace-with-population policy
type CycleEstimator struct {
	cfg *dnaconfig.Config
	pop PopulationStats
}

// NewCycleEstimator creates an estimator bound to one run's population
func NewCycleEstimator(cfg *dnaconfig.Config, pop PopulationStats) *CycleEstimator {
	return &CycleEstimator{cfg: cfg, pop: pop}
}

// Population returns the underlying population statistics
func (e *CycleEstimator) Population() PopulationStats {
	return e.pop
}

// ExpectedCycle returns the customer's own mean IPT when computable,
// otherwise the population fallback (when enabled), otherwise 0.
// ⭐ 단일 진입점: 기대 구매 주기는 반드시 이 함수로만 계산
func (e *CycleEstimator) ExpectedCycle(tl contracts.CustomerTimeline) float64 {
	if mean, ok := tl.IPTMean(); ok && mean > 0 && !math.IsNaN(mean) {
		return mean
	}

	if !e.cfg.Population.UsePopulationFallback {
		return 0
	}

	return e.populationCycle()
}

// populationCycle picks the configured fallback statistic, with a fixed
// default when the population has no repeat customers at all
func (e *CycleEstimator) populationCycle() float64 {
	var cycle float64
	switch e.cfg.Population.FallbackStat {
	case "mean":
		cycle = e.pop.MeanIPT
	default: // median
		cycle = e.pop.MedianIPT
	}

	if cycle <= 0 || math.IsNaN(cycle) {
		return e.cfg.Population.DefaultCycleDays
	}
	return cycle
}

// SpreadSigma returns the customer's IPT spread for the survival model:
// individual sample sd when defined and positive, else the population sd,
// floored at churn.min_sigma_days so the model never degenerates into a
// step function.
func (e *CycleEstimator) SpreadSigma(tl contracts.CustomerTimeline) float64 {
	sigma, ok := tl.IPTSD()
	if !ok || sigma <= 0 || math.IsNaN(sigma) {
		sigma = e.pop.SDIPT
	}

	if sigma < e.cfg.Churn.MinSigmaDays {
		sigma = e.cfg.Churn.MinSigmaDays
	}
	return sigma
}
