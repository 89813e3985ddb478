package services

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orgledger/orgledger/pkg/serrors"
)

// mapRepoError translates storage-layer failures into the service error
// taxonomy. Errors already shaped by a service pass through untouched;
// constraint violations act as a backstop behind the explicit checks the
// services run inside the same transaction.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *serrors.Error
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return serrors.NewNotFound("ORG_NOT_FOUND", "record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if strings.Contains(pgErr.ConstraintName, "is_current") {
				return serrors.NewConflict("ORG_CURRENT_CONFLICT", "lineage already has a current version")
			}
			return serrors.NewConflict("ORG_DUPLICATE", "duplicate record")
		case "23503":
			return serrors.NewReferentialIntegrity("ORG_FK_VIOLATION", "operation violates referential integrity")
		case "23514":
			return serrors.NewValidation("ORG_CHECK_VIOLATION", pgErr.Message, nil)
		case "40001", "23P01":
			return serrors.NewConflict("ORG_SERIALIZATION", "concurrent modification, retry the operation")
		}
	}
	return serrors.NewInternal(err)
}
