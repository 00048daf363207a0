package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"certsync/pkg/platform/sentinel"
)

var (
	// ErrNotFound is returned when no row exists for an id.
	ErrNotFound = fmt.Errorf("product %w", sentinel.ErrNotFound)
	// ErrConstraint wraps integrity-constraint violations (SQLSTATE class 23).
	ErrConstraint = fmt.Errorf("constraint violation: %w", sentinel.ErrConflict)
)

func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%s: %w: %s (%s)", op, ErrConstraint, pgErr.Message, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
