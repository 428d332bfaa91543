package repository

import (
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// uniqueConflict maps a unique violation to the canonical conflict error,
// naming the violated constraint in the message.
func uniqueConflict(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		msg := message
		if pqErr.Constraint != "" {
			msg = message + " (" + pqErr.Constraint + ")"
		}
		conflict := appErrors.Clone(appErrors.ErrConflict, msg)
		conflict.Err = err
		return conflict
	}
	return err
}
