package contracts

import (
	"math"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func timelineAt(days []int, amounts []float64) CustomerTimeline {
	txns := make([]Transaction, len(days))
	for i, d := range days {
		txns[i] = Transaction{
			CustomerID: "cust_001",
			Timestamp:  day(d),
			Amount:     amounts[i],
			ScopeKey:   "amz_001",
		}
	}

	ipt := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		ipt = append(ipt, float64(days[i]-days[i-1]))
	}

	return CustomerTimeline{
		CustomerID:    "cust_001",
		Transactions:  txns,
		Frequency:     len(txns),
		IPT:           ipt,
		FirstPurchase: day(days[0]),
		LastPurchase:  day(days[len(days)-1]),
	}
}

func TestTimelineTotalSpent(t *testing.T) {
	tl := timelineAt([]int{0, 10, 20}, []float64{10.5, 20.25, 30.25})

	if got := tl.TotalSpent(); math.Abs(got-61.0) > 1e-6 {
		t.Errorf("TotalSpent() = %v, want 61.0", got)
	}
}

func TestTimelineRecencyDays(t *testing.T) {
	tl := timelineAt([]int{0, 10, 20}, []float64{1, 1, 1})

	if got := tl.RecencyDays(day(25)); got != 5 {
		t.Errorf("RecencyDays(day 25) = %v, want 5", got)
	}

	// Reference before last purchase floors at zero
	if got := tl.RecencyDays(day(15)); got != 0 {
		t.Errorf("RecencyDays(day 15) = %v, want 0", got)
	}
}

func TestTimelineIPTMean(t *testing.T) {
	tl := timelineAt([]int{0, 10, 20}, []float64{1, 1, 1})

	mean, ok := tl.IPTMean()
	if !ok {
		t.Fatal("Expected IPTMean to be defined")
	}
	if mean != 10 {
		t.Errorf("IPTMean() = %v, want 10", mean)
	}

	// Single purchase: undefined
	single := timelineAt([]int{0}, []float64{50})
	if _, ok := single.IPTMean(); ok {
		t.Error("Expected IPTMean to be undefined for a single purchase")
	}
}

func TestTimelineIPTSD(t *testing.T) {
	// Gaps: 10, 20 -> sample sd = sqrt(50) ≈ 7.0711
	tl := timelineAt([]int{0, 10, 30}, []float64{1, 1, 1})

	sd, ok := tl.IPTSD()
	if !ok {
		t.Fatal("Expected IPTSD to be defined")
	}
	if math.Abs(sd-math.Sqrt(50)) > 1e-9 {
		t.Errorf("IPTSD() = %v, want %v", sd, math.Sqrt(50))
	}

	// Two purchases: one gap, variance undefined
	two := timelineAt([]int{0, 10}, []float64{1, 1})
	if _, ok := two.IPTSD(); ok {
		t.Error("Expected IPTSD to be undefined with a single gap")
	}
}
