package service

import (
	"errors"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

// storeErr converts a repository failure into the taxonomy. Errors that are
// already classified pass through, so it is safe on values returned from a
// WithTx callback.
func storeErr(op string, err error, notFound string) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, repository.ErrNotFound) && notFound != "":
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("resource already exists")
	case errors.Is(err, repository.ErrTooLong):
		return apperr.Validation("a value exceeds its maximum length")
	default:
		return apperr.Internal(op, err)
	}
}
