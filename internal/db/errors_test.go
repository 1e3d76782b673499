package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go"
)

func TestWrapQueryError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("connection closed"), false},
		{"other query error", &surrealdb.QueryError{Message: "Parse error"}, false},
		{"conflict", &surrealdb.QueryError{Message: "Transaction conflict: resource busy"}, true},
		{"wrapped conflict", fmt.Errorf("query: %w", &surrealdb.QueryError{Message: "Transaction conflict"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapQueryError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.conflict, errors.Is(got, ErrTransactionConflict))
		})
	}
}
