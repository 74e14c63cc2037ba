package dna

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
)

func TestCLV(t *testing.T) {
	cfg := dnaconfig.Default()
	value := NewValueEstimator(cfg)

	// Zero recency: only the loyalty multiplier applies
	want := 100.0 * (1 + cfg.CLV.FrequencyWeight*math.Log(4))
	assert.InDelta(t, want, value.CLV(100, 3, 0), 1e-9)

	// Recency decay: one full horizon shrinks the projection by 1/e
	fresh := value.CLV(100, 3, 0)
	stale := value.CLV(100, 3, cfg.CLV.HorizonDays)
	assert.InDelta(t, fresh/math.E, stale, 1e-9)

	// More frequency never lowers CLV for the same spend
	assert.Greater(t, value.CLV(100, 10, 5), value.CLV(100, 2, 5))
}

func TestCLVConstantsComeFromConfig(t *testing.T) {
	cfg := dnaconfig.Default()
	cfg.CLV.FrequencyWeight = 0 // loyalty multiplier off
	cfg.CLV.HorizonDays = 10

	value := NewValueEstimator(cfg)

	assert.InDelta(t, 100*math.Exp(-1), value.CLV(100, 5, 10), 1e-9)
}

func TestLoyaltyTier(t *testing.T) {
	value := NewValueEstimator(dnaconfig.Default())

	tests := []struct {
		name      string
		frequency int
		status    contracts.NESStatus
		want      string
	}{
		{"active heavy buyer", 12, contracts.NESEstablished, contracts.TierPlatinum},
		{"heavy but dozing", 12, contracts.NESSleepingOne, contracts.TierGold},
		{"mid frequency active", 6, contracts.NESEstablished, contracts.TierGold},
		{"mid frequency sleeping two", 6, contracts.NESSleepingTwo, contracts.TierSilver},
		{"repeat sleeping deep", 6, contracts.NESSleepingDeep, contracts.TierBronze},
		{"low frequency active", 2, contracts.NESEstablished, contracts.TierSilver},
		{"new customer", 1, contracts.NESNew, contracts.TierBronze},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := value.LoyaltyTier(tt.frequency, tt.status)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignValueSegments(t *testing.T) {
	profiles := make([]contracts.CustomerDNAProfile, 8)
	for i := range profiles {
		profiles[i].CustomerID = "cust"
		profiles[i].CLV = float64((i + 1) * 100) // 100..800
	}

	AssignValueSegments(profiles)

	// Nearest-rank quartiles on 100..800: q1=200, q2=400, q3=600
	wantSegments := []string{
		contracts.SegmentStandard,   // 100
		contracts.SegmentMedium,     // 200
		contracts.SegmentMedium,     // 300
		contracts.SegmentMediumHigh, // 400
		contracts.SegmentMediumHigh, // 500
		contracts.SegmentHigh,       // 600
		contracts.SegmentHigh,       // 700
		contracts.SegmentHigh,       // 800
	}

	for i, want := range wantSegments {
		assert.Equal(t, want, profiles[i].ValueSegment, "profile %d (clv=%v)", i, profiles[i].CLV)
	}
}

// Adding customers shifts the quartile thresholds: segments are always
// relative to the current run's population.
func TestAssignValueSegmentsShiftWithPopulation(t *testing.T) {
	base := []contracts.CustomerDNAProfile{
		{CustomerID: "a", CLV: 100},
		{CustomerID: "b", CLV: 200},
		{CustomerID: "c", CLV: 300},
		{CustomerID: "d", CLV: 400},
	}
	AssignValueSegments(base)
	assert.Equal(t, contracts.SegmentHigh, base[3].ValueSegment)

	// Same customer d, now dwarfed by wealthier newcomers
	grown := []contracts.CustomerDNAProfile{
		{CustomerID: "a", CLV: 100},
		{CustomerID: "b", CLV: 200},
		{CustomerID: "c", CLV: 300},
		{CustomerID: "d", CLV: 400},
		{CustomerID: "e", CLV: 5000},
		{CustomerID: "f", CLV: 6000},
		{CustomerID: "g", CLV: 7000},
		{CustomerID: "h", CLV: 8000},
	}
	AssignValueSegments(grown)

	assert.NotEqual(t, contracts.SegmentHigh, grown[3].ValueSegment)
}

func TestAssignValueSegmentsEmpty(t *testing.T) {
	AssignValueSegments(nil) // must not panic
}

func TestQuantileNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, quantile(sorted, 0.25))
	assert.Equal(t, 2.0, quantile(sorted, 0.50))
	assert.Equal(t, 3.0, quantile(sorted, 0.75))
	assert.Equal(t, 4.0, quantile(sorted, 1.0))

	// Single element
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.75))
}
