package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that are resolved by retrying the whole block commit.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError marks conflicts between concurrent writers with [errs.PersistenceConflict] and missing rows with [errs.NotFound].
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.WithStack(errs.NotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected:
			return errors.Wrapf(errs.PersistenceConflict, "%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
		}
	}
	return err
}
