package dna

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiki830621/customer-dna/internal/contracts"
)

var baseDay = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func txn(customer string, dayOffset int, amount float64) contracts.Transaction {
	return contracts.Transaction{
		CustomerID: customer,
		Timestamp:  baseDay.AddDate(0, 0, dayOffset),
		Amount:     amount,
		ScopeKey:   "amz_001",
	}
}

func TestBuildTimelines(t *testing.T) {
	// Deliberately unordered input
	txns := []contracts.Transaction{
		txn("cust_b", 20, 30),
		txn("cust_a", 10, 20),
		txn("cust_b", 0, 10),
		txn("cust_a", 0, 10),
		txn("cust_a", 25, 30),
	}

	timelines := BuildTimelines(txns)
	require.Len(t, timelines, 2)

	// Deterministic customer order
	a, b := timelines[0], timelines[1]
	assert.Equal(t, "cust_a", a.CustomerID)
	assert.Equal(t, "cust_b", b.CustomerID)

	// frequency == count(transactions)
	assert.Equal(t, 3, a.Frequency)
	assert.Equal(t, 2, b.Frequency)

	// IPT length == frequency - 1
	require.Len(t, a.IPT, 2)
	assert.Equal(t, 10.0, a.IPT[0])
	assert.Equal(t, 15.0, a.IPT[1])

	assert.Equal(t, baseDay, a.FirstPurchase)
	assert.Equal(t, baseDay.AddDate(0, 0, 25), a.LastPurchase)

	require.Len(t, b.IPT, 1)
	assert.Equal(t, 20.0, b.IPT[0])
}

func TestBuildTimelinesStableOnTies(t *testing.T) {
	// Two rows at the same timestamp keep input order
	first := txn("cust_a", 0, 1)
	second := txn("cust_a", 0, 2)

	timelines := BuildTimelines([]contracts.Transaction{first, second})
	require.Len(t, timelines, 1)
	require.Len(t, timelines[0].Transactions, 2)

	assert.Equal(t, 1.0, timelines[0].Transactions[0].Amount)
	assert.Equal(t, 2.0, timelines[0].Transactions[1].Amount)
	assert.Equal(t, 0.0, timelines[0].IPT[0])
}

func TestBuildTimelinesEmpty(t *testing.T) {
	assert.Nil(t, BuildTimelines(nil))
}

func TestBuildTimelinesFractionalDays(t *testing.T) {
	txns := []contracts.Transaction{
		{CustomerID: "cust_a", Timestamp: baseDay, Amount: 1},
		{CustomerID: "cust_a", Timestamp: baseDay.Add(36 * time.Hour), Amount: 1},
	}

	timelines := BuildTimelines(txns)
	require.Len(t, timelines, 1)
	assert.InDelta(t, 1.5, timelines[0].IPT[0], 1e-9)
}

func TestTruncate(t *testing.T) {
	timelines := BuildTimelines([]contracts.Transaction{
		txn("cust_a", 0, 10),
		txn("cust_a", 10, 20),
		txn("cust_a", 30, 30),
	})
	require.Len(t, timelines, 1)

	truncated := Truncate(timelines[0])

	assert.Equal(t, 2, truncated.Frequency)
	assert.Equal(t, baseDay.AddDate(0, 0, 10), truncated.LastPurchase)
	require.Len(t, truncated.IPT, 1)
	assert.Equal(t, 10.0, truncated.IPT[0])

	// Original untouched
	assert.Equal(t, 3, timelines[0].Frequency)
}
