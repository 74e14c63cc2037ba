package contracts

import "fmt"

// Error taxonomy for the DNA engine.
// 복구 단위가 다른 실패를 타입으로 구분한다:
//   - MissingDataError    → 런 전체 중단
//   - ComputationError    → 해당 고객만 스킵
//   - ScopeError          → 해당 스코프만 실패 처리
//   - PersistenceError    → 저장 경계에서 별도 재시도/보고

// MissingDataError indicates a required input column or table is absent.
// Fatal for the whole run.
type MissingDataError struct {
	Field string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Field)
}

// ComputationError indicates a numeric failure for a single customer.
// That customer is skipped and counted; the scope continues.
type ComputationError struct {
	CustomerID string
	Reason     string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed for customer %s: %s", e.CustomerID, e.Reason)
}

// ScopeError indicates an entire scope failed (e.g. empty post-filter dataset).
// Sibling scopes are unaffected.
type ScopeError struct {
	ScopeKey string
	Err      error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope %s failed: %v", e.ScopeKey, e.Err)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}

// PersistenceError indicates a downstream write failure, distinct from
// computation failures so the orchestration boundary can retry it.
type PersistenceError struct {
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed for %s: %v", e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
