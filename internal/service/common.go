package service

import (
	"errors"

	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

// asAppError unwraps a typed error when one is present, otherwise nil.
func asAppError(err error) *appErrors.Error {
	var e *appErrors.Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
