package dna

import (
	"sort"

	"github.com/kiki830621/customer-dna/internal/contracts"
)

// =============================================================================
// Timeline Builder
// =============================================================================

// hoursPerDay converts timestamp differences into fractional days
const hoursPerDay = 24.0

// BuildTimelines groups one scope's transactions per customer and derives
// purchase-order statistics (frequency, IPT gaps, first/last purchase).
// 정렬은 (customer_id, timestamp) 오름차순, 동시각 거래는 입력 순서 유지
func BuildTimelines(txns []contracts.Transaction) []contracts.CustomerTimeline {
	if len(txns) == 0 {
		return nil
	}

	// Stable sort keeps same-timestamp rows in input order
	sorted := make([]contracts.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CustomerID != sorted[j].CustomerID {
			return sorted[i].CustomerID < sorted[j].CustomerID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var timelines []contracts.CustomerTimeline

	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].CustomerID == sorted[start].CustomerID {
			continue
		}
		timelines = append(timelines, buildTimeline(sorted[start:i]))
		start = i
	}

	return timelines
}

// buildTimeline derives a single customer's timeline from its sorted rows
func buildTimeline(txns []contracts.Transaction) contracts.CustomerTimeline {
	tl := contracts.CustomerTimeline{
		CustomerID:    txns[0].CustomerID,
		Transactions:  txns,
		Frequency:     len(txns),
		FirstPurchase: txns[0].Timestamp,
		LastPurchase:  txns[len(txns)-1].Timestamp,
	}

	// IPT[i] = gap to the previous purchase in days; first purchase has none
	if len(txns) > 1 {
		tl.IPT = make([]float64, 0, len(txns)-1)
		for i := 1; i < len(txns); i++ {
			gap := txns[i].Timestamp.Sub(txns[i-1].Timestamp).Hours() / hoursPerDay
			tl.IPT = append(tl.IPT, gap)
		}
	}

	return tl
}

// Truncate returns the timeline with its final transaction removed,
// recomputed from scratch. 백테스트에서 마지막 구매를 홀드아웃할 때 사용.
// Frequency must be >= 2.
func Truncate(tl contracts.CustomerTimeline) contracts.CustomerTimeline {
	return buildTimeline(tl.Transactions[:len(tl.Transactions)-1])
}
