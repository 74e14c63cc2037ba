package contracts

import "math"

// NESStatus is the five-stage lifecycle classification
// ⭐ SSOT: N/E0/S1/S2/S3 상태값은 여기서만 정의
type NESStatus string

const (
	NESNew          NESStatus = "N"  // first purchase only, no cycle defined yet
	NESEstablished  NESStatus = "E0" // within one expected purchase cycle
	NESSleepingOne  NESStatus = "S1" // 1~2 cycles silent
	NESSleepingTwo  NESStatus = "S2" // 2~3 cycles silent
	NESSleepingDeep NESStatus = "S3" // more than 3 cycles silent
)

// Valid reports whether s is one of the five defined states
func (s NESStatus) Valid() bool {
	switch s {
	case NESNew, NESEstablished, NESSleepingOne, NESSleepingTwo, NESSleepingDeep:
		return true
	}
	return false
}

// Value segment labels, recomputed from the current population every run
// 고정 컷오프가 아니라 매 런마다 CLV 사분위로 재계산
const (
	SegmentHigh       = "High Value"
	SegmentMediumHigh = "Medium-High Value"
	SegmentMedium     = "Medium Value"
	SegmentStandard   = "Standard Value"
)

// Loyalty tier labels
const (
	TierPlatinum = "Platinum"
	TierGold     = "Gold"
	TierSilver   = "Silver"
	TierBronze   = "Bronze"
)

// CustomerDNAProfile is one behavioral profile row, the engine's unit of output
// 대시보드가 컬럼명으로 직접 읽으므로 JSON/DB 필드명은 고정 계약이다
type CustomerDNAProfile struct {
	CustomerID string `json:"customer_id"`
	ScopeKey   string `json:"scope_key"`

	// RFM
	Recency    float64 `json:"recency"`  // days since last purchase at reference time
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"` // mean order amount
	TotalSpent float64 `json:"total_spent"`

	// IPT statistics; nil when frequency == 1 (undefined, not zero)
	IPTMean *float64 `json:"ipt_mean"`
	IPTSD   *float64 `json:"ipt_sd"`

	// Lifecycle
	NESStatus NESStatus `json:"nes_status"`

	// NRec is the churn probability complement: P(고객이 아직 살아있음)
	NRec float64 `json:"nrec"`

	// Value
	CLV          float64 `json:"clv"`
	ValueSegment string  `json:"value_segment"`
	LoyaltyTier  string  `json:"loyalty_tier"`
}

// Validate checks the profile invariants at the component boundary
func (p *CustomerDNAProfile) Validate() error {
	if p.CustomerID == "" {
		return &MissingDataError{Field: "customer_id"}
	}
	if p.Frequency < 1 {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "frequency < 1"}
	}
	if p.Recency < 0 {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "negative recency"}
	}
	if !p.NESStatus.Valid() {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "invalid nes_status " + string(p.NESStatus)}
	}
	if p.Frequency == 1 && p.NESStatus != NESNew {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "single-purchase customer must be N"}
	}
	if p.Frequency == 1 && p.IPTMean != nil {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "ipt_mean defined for single-purchase customer"}
	}
	if p.NRec < 0 || p.NRec > 1 {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "nrec outside [0,1]"}
	}

	// NaN/Inf anywhere makes the row unusable downstream
	for _, v := range []float64{p.Recency, p.Monetary, p.TotalSpent, p.NRec, p.CLV} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ComputationError{CustomerID: p.CustomerID, Reason: "non-finite value in profile"}
		}
	}
	if p.IPTMean != nil && (math.IsNaN(*p.IPTMean) || math.IsInf(*p.IPTMean, 0)) {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "non-finite ipt_mean"}
	}
	if p.IPTSD != nil && (math.IsNaN(*p.IPTSD) || math.IsInf(*p.IPTSD, 0)) {
		return &ComputationError{CustomerID: p.CustomerID, Reason: "non-finite ipt_sd"}
	}

	return nil
}
