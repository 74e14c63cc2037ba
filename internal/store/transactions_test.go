package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiki830621/customer-dna/internal/contracts"
)

func TestClassifyReadError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantField string // 비어 있으면 MissingDataError가 아니어야 함
	}{
		{
			name:      "undefined column escalates with the server message",
			err:       &pgconn.PgError{Code: "42703", Message: `column "txn_date" does not exist`},
			wantField: `column "txn_date" does not exist`,
		},
		{
			name:      "undefined table escalates naming the input table",
			err:       &pgconn.PgError{Code: "42P01", Message: `relation "analytics.cleansed_transactions" does not exist`},
			wantField: "analytics.cleansed_transactions",
		},
		{
			name: "other pg errors stay scope-local",
			err:  &pgconn.PgError{Code: "23505", Message: "duplicate key value"},
		},
		{
			name: "plain errors stay scope-local",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyReadError(tt.err)
			require.Error(t, got)

			var missing *contracts.MissingDataError
			if tt.wantField != "" {
				require.ErrorAs(t, got, &missing)
				assert.Equal(t, tt.wantField, missing.Field)
				return
			}

			assert.False(t, errors.As(got, &missing))
			assert.Contains(t, got.Error(), "failed to query transactions")
			// 원인은 %w로 유지되어 호출자가 풀어볼 수 있다
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
