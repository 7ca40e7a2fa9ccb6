package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped unique", err: fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "other pg error", err: &pgconn.PgError{Code: "23503"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
