package contracts

import "time"

// ScopeResult is the outcome of running the engine over one scope
// 부분 실패를 일급 반환값으로 다룬다 (전역 플래그 금지)
type ScopeResult struct {
	ScopeKey string               `json:"scope_key"`
	Profiles []CustomerDNAProfile `json:"profiles"`

	CustomerCount int `json:"customer_count"` // profiles emitted
	Skipped       int `json:"skipped"`        // customers dropped by per-customer ComputationError

	// Back-test outcome for this scope
	ChurnAccuracy  float64 `json:"churn_accuracy"`
	BacktestSample int     `json:"backtest_sample"` // labeled points behind ChurnAccuracy

	// Err is non-nil when the whole scope failed; siblings are unaffected
	Err error `json:"-"`
}

// Succeeded reports whether the scope produced usable output
func (r *ScopeResult) Succeeded() bool {
	return r.Err == nil
}

// AnalysisRun is the per-invocation summary, emitted even on partial failure
// ⭐ SSOT: 런 메타데이터 구조는 여기서만 정의
type AnalysisRun struct {
	RunID         string    `json:"run_id"`
	ReferenceTime time.Time `json:"reference_time"`

	ScopeKeysRequested []string          `json:"scope_keys_requested"`
	ScopeKeysSucceeded []string          `json:"scope_keys_succeeded"`
	ScopeKeysFailed    map[string]string `json:"scope_keys_failed"` // scope -> failure reason

	TotalCustomers   int     `json:"total_customers"`
	SkippedCustomers int     `json:"skipped_customers"`
	ChurnAccuracy    float64 `json:"churn_accuracy"` // back-test sample weighted across scopes

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// ResultBundle is the full output contract handed to persistence
type ResultBundle struct {
	Run      AnalysisRun   `json:"run"`
	Profiles []ScopeResult `json:"profiles"`
}

// RunEvent is a lifecycle notification published to the websocket feed
type RunEvent struct {
	Type      string    `json:"type"` // run_started, scope_done, scope_failed, run_finished
	RunID     string    `json:"run_id"`
	ScopeKey  string    `json:"scope_key,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
