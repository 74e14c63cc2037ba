package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dna"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
	"github.com/kiki830621/customer-dna/pkg/config"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

var baseDay = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

// memorySource serves canned transactions per scope; ScopeAll returns the union
type memorySource struct {
	mu     sync.Mutex
	byKey  map[string][]contracts.Transaction
	errors map[string]error
	calls  []string
}

func (s *memorySource) GetByScope(_ context.Context, scopeKey string) ([]contracts.Transaction, error) {
	s.mu.Lock()
	s.calls = append(s.calls, scopeKey)
	s.mu.Unlock()

	if err := s.errors[scopeKey]; err != nil {
		return nil, err
	}
	if scopeKey == contracts.ScopeAll {
		var all []contracts.Transaction
		for _, txns := range s.byKey {
			all = append(all, txns...)
		}
		return all, nil
	}
	return s.byKey[scopeKey], nil
}

type memorySink struct {
	mu      sync.Mutex
	bundles []*contracts.ResultBundle
	err     error
}

func (s *memorySink) SaveBundle(_ context.Context, bundle *contracts.ResultBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bundles = append(s.bundles, bundle)
	return nil
}

type memoryPublisher struct {
	mu     sync.Mutex
	events []contracts.RunEvent
}

func (p *memoryPublisher) Publish(event contracts.RunEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *memoryPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func txn(customer string, dayOffset int, amount float64, scope string) contracts.Transaction {
	return contracts.Transaction{
		CustomerID: customer,
		Timestamp:  baseDay.AddDate(0, 0, dayOffset),
		Amount:     amount,
		ScopeKey:   scope,
	}
}

func scopeTxns(scope string, customers int) []contracts.Transaction {
	var txns []contracts.Transaction
	for i := 0; i < customers; i++ {
		id := fmt.Sprintf("%s_cust_%d", scope, i)
		txns = append(txns,
			txn(id, 0, 10, scope),
			txn(id, 10+i, 20, scope),
		)
	}
	return txns
}

func newTestOrchestrator(source contracts.TransactionSource, sink contracts.ProfileSink, publisher contracts.RunPublisher, opts Options) *Orchestrator {
	log := testLogger()
	engine := dna.New(dnaconfig.Default(), log)
	return New(source, engine, sink, publisher, opts, log)
}

func TestRunPartialFailure(t *testing.T) {
	source := &memorySource{
		byKey: map[string][]contracts.Transaction{
			"amz_001": scopeTxns("amz_001", 4),
			"amz_002": nil, // empty after filtering
		},
	}
	sink := &memorySink{}
	publisher := &memoryPublisher{}

	orch := newTestOrchestrator(source, sink, publisher, Options{MaxParallelScopes: 4})

	bundle, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"amz_001", "amz_002", contracts.ScopeAll},
		ReferenceTime: baseDay.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	require.NotNil(t, bundle)

	// Empty scope fails alone; siblings and the union scope both complete
	assert.Equal(t, []string{"all", "amz_001"}, bundle.Run.ScopeKeysSucceeded)
	require.Contains(t, bundle.Run.ScopeKeysFailed, "amz_002")
	assert.Contains(t, bundle.Run.ScopeKeysFailed["amz_002"], "empty")

	assert.Equal(t, 8, bundle.Run.TotalCustomers) // 4 per succeeded scope
	assert.Len(t, bundle.Profiles, 2)

	require.Len(t, sink.bundles, 1)

	types := publisher.types()
	assert.Contains(t, types, "run_started")
	assert.Contains(t, types, "scope_done")
	assert.Contains(t, types, "scope_failed")
	assert.Equal(t, "run_finished", types[len(types)-1])
}

func TestRunMissingDataAbortsWithoutPersisting(t *testing.T) {
	source := &memorySource{
		byKey: map[string][]contracts.Transaction{
			"amz_001": scopeTxns("amz_001", 2),
			"amz_002": {
				{CustomerID: "", Timestamp: baseDay, Amount: 5, ScopeKey: "amz_002"},
			},
		},
	}
	sink := &memorySink{}

	orch := newTestOrchestrator(source, sink, nil, Options{MaxParallelScopes: 2})

	bundle, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"amz_001", "amz_002"},
		ReferenceTime: baseDay.AddDate(0, 0, 30),
	})

	require.Error(t, err)
	var missing *contracts.MissingDataError
	assert.ErrorAs(t, err, &missing)

	// Run summary still describes what happened
	require.NotNil(t, bundle)
	assert.Contains(t, bundle.Run.ScopeKeysFailed, "amz_002")

	// Nothing written
	assert.Empty(t, sink.bundles)
}

func TestRunWeightedChurnAccuracy(t *testing.T) {
	// Analyzer stub with controlled accuracies and sample sizes
	orch := New(
		&memorySource{byKey: map[string][]contracts.Transaction{
			"a": scopeTxns("a", 1),
			"b": scopeTxns("b", 1),
		}},
		stubAnalyzer{results: map[string]*contracts.ScopeResult{
			"a": {ScopeKey: "a", CustomerCount: 1, ChurnAccuracy: 1.0, BacktestSample: 10,
				Profiles: []contracts.CustomerDNAProfile{{}}},
			"b": {ScopeKey: "b", CustomerCount: 1, ChurnAccuracy: 0.5, BacktestSample: 30,
				Profiles: []contracts.CustomerDNAProfile{{}}},
		}},
		nil, nil, Options{MaxParallelScopes: 2}, testLogger(),
	)

	bundle, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"a", "b"},
		ReferenceTime: baseDay,
		DryRun:        true,
	})
	require.NoError(t, err)

	// (1.0*10 + 0.5*30) / 40
	assert.InDelta(t, 0.625, bundle.Run.ChurnAccuracy, 1e-9)
}

type stubAnalyzer struct {
	results map[string]*contracts.ScopeResult
}

func (s stubAnalyzer) AnalyzeScope(_ context.Context, scopeKey string, _ []contracts.Transaction, _ time.Time) *contracts.ScopeResult {
	if r, ok := s.results[scopeKey]; ok {
		return r
	}
	return &contracts.ScopeResult{
		ScopeKey: scopeKey,
		Err:      &contracts.ScopeError{ScopeKey: scopeKey, Err: fmt.Errorf("no stub")},
	}
}

// flakySink fails the first write with a PersistenceError, then recovers
type flakySink struct {
	memorySink
	failures int
}

func (s *flakySink) SaveBundle(ctx context.Context, bundle *contracts.ResultBundle) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return &contracts.PersistenceError{Table: "dna_profiles", Err: fmt.Errorf("connection reset")}
	}
	s.mu.Unlock()
	return s.memorySink.SaveBundle(ctx, bundle)
}

func TestRunRetriesPersistenceOnce(t *testing.T) {
	source := &memorySource{byKey: map[string][]contracts.Transaction{
		"amz_001": scopeTxns("amz_001", 2),
	}}
	sink := &flakySink{failures: 1}

	orch := newTestOrchestrator(source, sink, nil, Options{MaxParallelScopes: 1})

	_, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"amz_001"},
		ReferenceTime: baseDay.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	assert.Len(t, sink.bundles, 1)

	// A second consecutive failure is surfaced, not retried forever
	stubborn := &flakySink{failures: 2}
	orch = newTestOrchestrator(source, stubborn, nil, Options{MaxParallelScopes: 1})

	_, err = orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"amz_001"},
		ReferenceTime: baseDay.AddDate(0, 0, 30),
	})
	require.Error(t, err)
	var persistence *contracts.PersistenceError
	assert.ErrorAs(t, err, &persistence)
}

func TestRunDryRunSkipsSink(t *testing.T) {
	source := &memorySource{byKey: map[string][]contracts.Transaction{
		"amz_001": scopeTxns("amz_001", 2),
	}}
	sink := &memorySink{}

	orch := newTestOrchestrator(source, sink, nil, Options{MaxParallelScopes: 1})

	_, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"amz_001"},
		ReferenceTime: baseDay.AddDate(0, 0, 20),
		DryRun:        true,
	})
	require.NoError(t, err)
	assert.Empty(t, sink.bundles)
}

func TestRunSourceErrorFailsScopeOnly(t *testing.T) {
	source := &memorySource{
		byKey: map[string][]contracts.Transaction{
			"amz_001": scopeTxns("amz_001", 2),
		},
		errors: map[string]error{
			"amz_002": fmt.Errorf("relation does not exist"),
		},
	}

	orch := newTestOrchestrator(source, &memorySink{}, nil, Options{MaxParallelScopes: 2})

	bundle, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys:     []string{"amz_001", "amz_002"},
		ReferenceTime: baseDay.AddDate(0, 0, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"amz_001"}, bundle.Run.ScopeKeysSucceeded)
	assert.Contains(t, bundle.Run.ScopeKeysFailed, "amz_002")
}

func TestRunNoScopes(t *testing.T) {
	orch := newTestOrchestrator(&memorySource{}, nil, nil, Options{})
	_, err := orch.Run(context.Background(), RunConfig{})
	assert.Error(t, err)
}

func TestRunAssignsRunID(t *testing.T) {
	source := &memorySource{byKey: map[string][]contracts.Transaction{
		"amz_001": scopeTxns("amz_001", 1),
	}}

	orch := newTestOrchestrator(source, nil, nil, Options{MaxParallelScopes: 1})

	first, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys: []string{"amz_001"}, ReferenceTime: baseDay.AddDate(0, 0, 15), DryRun: true,
	})
	require.NoError(t, err)

	second, err := orch.Run(context.Background(), RunConfig{
		ScopeKeys: []string{"amz_001"}, ReferenceTime: baseDay.AddDate(0, 0, 15), DryRun: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, first.Run.RunID)
	assert.NotEqual(t, first.Run.RunID, second.Run.RunID)
}
