package postgres

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "no rows", err: pgx.ErrNoRows, expected: errs.NotFound},
		{name: "wrapped no rows", err: errors.Wrap(pgx.ErrNoRows, "query"), expected: errs.NotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, expected: errs.PersistenceConflict},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, expected: errs.PersistenceConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, expected: errs.PersistenceConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.expected)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		err := &pgconn.PgError{Code: "42P01"}
		mapped := mapError(err)
		assert.NotErrorIs(t, mapped, errs.PersistenceConflict)
		assert.NotErrorIs(t, mapped, errs.NotFound)
		assert.Nil(t, mapError(nil))
	})
}
