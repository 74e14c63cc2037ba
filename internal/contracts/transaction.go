package contracts

import (
	"math"
	"time"
)

// ScopeAll is the aggregate sentinel scope: the union of every scope's rows
// ⭐ SSOT: "all" 스코프 상수는 여기서만 정의
const ScopeAll = "all"

// Transaction is a single raw purchase record
// ETL 단계에서 정제된 행을 읽기 전용으로 받는다
type Transaction struct {
	CustomerID string    `json:"customer_id"`
	Timestamp  time.Time `json:"timestamp"`
	Amount     float64   `json:"amount"`
	ScopeKey   string    `json:"scope_key"` // product line × platform partition
}

// CustomerTimeline is the ordered purchase history of one customer within a scope
// ⭐ SSOT: Timeline Builder → 모든 추정기로 전달되는 파생 데이터
type CustomerTimeline struct {
	CustomerID   string        `json:"customer_id"`
	Transactions []Transaction `json:"transactions"` // sorted by timestamp ascending

	// Derived
	Frequency     int       `json:"frequency"` // == len(Transactions), always >= 1
	IPT           []float64 `json:"ipt"`       // inter-purchase gaps in days, len == Frequency-1
	FirstPurchase time.Time `json:"first_purchase"`
	LastPurchase  time.Time `json:"last_purchase"`
}

// TotalSpent sums the transaction amounts
func (tl *CustomerTimeline) TotalSpent() float64 {
	var total float64
	for _, t := range tl.Transactions {
		total += t.Amount
	}
	return total
}

// RecencyDays returns days elapsed from the last purchase to the reference time
// 미래 레퍼런스가 아닌 경우는 0으로 바닥 처리
func (tl *CustomerTimeline) RecencyDays(reference time.Time) float64 {
	days := reference.Sub(tl.LastPurchase).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// IPTMean returns the mean inter-purchase gap, defined only when Frequency >= 2
func (tl *CustomerTimeline) IPTMean() (float64, bool) {
	if len(tl.IPT) == 0 {
		return 0, false
	}

	var sum float64
	for _, gap := range tl.IPT {
		sum += gap
	}
	return sum / float64(len(tl.IPT)), true
}

// IPTSD returns the sample standard deviation of inter-purchase gaps
// Frequency < 3이면 분산 자체가 정의되지 않음
func (tl *CustomerTimeline) IPTSD() (float64, bool) {
	if len(tl.IPT) < 2 {
		return 0, false
	}

	mean, _ := tl.IPTMean()
	var ss float64
	for _, gap := range tl.IPT {
		d := gap - mean
		ss += d * d
	}
	variance := ss / float64(len(tl.IPT)-1)
	return math.Sqrt(variance), true
}
