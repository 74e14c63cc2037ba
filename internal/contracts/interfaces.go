package contracts

import (
	"context"
	"time"
)

// TransactionSource provides fully materialized transaction rows per scope
// ⭐ SSOT: 엔진 입력 인터페이스 (ETL 협력자가 구현)
type TransactionSource interface {
	// GetByScope returns rows for one scope; ScopeAll means every row
	GetByScope(ctx context.Context, scopeKey string) ([]Transaction, error)
}

// ScopeAnalyzer runs the engine over one scope's transactions
// ⭐ SSOT: 스코프 단위 분석 인터페이스
type ScopeAnalyzer interface {
	AnalyzeScope(ctx context.Context, scopeKey string, txns []Transaction, reference time.Time) *ScopeResult
}

// ProfileSink persists the assembled result bundle
// ⭐ SSOT: 영속화 인터페이스 (오케스트레이션 경계에서만 호출)
type ProfileSink interface {
	SaveBundle(ctx context.Context, bundle *ResultBundle) error
}

// RunPublisher broadcasts run lifecycle events (websocket feed 등)
type RunPublisher interface {
	Publish(event RunEvent)
}
