package services

import (
	stderrors "errors"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// Service errors
var (
	ErrCategoryNotFound     = errors.NotFound("category not found")
	ErrRiderNotFound        = errors.NotFound("rider not found")
	ErrHeatNotFound         = errors.NotFound("heat not found")
	ErrPenaltyNotFound      = errors.NotFound("penalty not found")
	ErrNoResults            = errors.Validation("no results submitted")
	ErrNoRiders             = errors.Validation("no riders selected")
	ErrInvalidBatchSize     = errors.Validation("batch size must be between 4 and 8")
	ErrTooFewRiders         = errors.Validation("a batch needs at least 4 riders")
	ErrInvalidPenalty       = errors.Validation("penalty points must be positive")
	ErrBaseURLNotConfigured = errors.Validation("base_url not configured")
)

// notFound converts the repository sentinel into a service not-found error
func notFound(err error, replacement *errors.Error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return replacement
	}
	return err
}
