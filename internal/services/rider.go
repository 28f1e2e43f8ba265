package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// RiderService handles rider registration
type RiderService struct {
	log  logger.Logger
	repo repository.RiderRepository
}

// NewRiderService creates a new RiderService
func NewRiderService(log logger.Logger, repo repository.RiderRepository) *RiderService {
	return &RiderService{log: log, repo: repo}
}

// ListRiders returns all riders
func (s *RiderService) ListRiders(ctx context.Context) ([]models.Rider, error) {
	return s.repo.ListRiders(ctx)
}

// GetRider returns a rider by ID
func (s *RiderService) GetRider(ctx context.Context, id int) (*models.Rider, error) {
	rd, err := s.repo.GetRider(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrRiderNotFound)
	}
	return rd, nil
}

// CreateRider validates and registers a rider
func (s *RiderService) CreateRider(ctx context.Context, rider models.Rider) (int64, error) {
	rider.Name = strings.TrimSpace(rider.Name)
	rider.Plate = strings.TrimSpace(rider.Plate)
	rider.Gender = strings.ToUpper(strings.TrimSpace(rider.Gender))
	if rider.Name == "" {
		return 0, errors.Validation("rider name is required")
	}
	if rider.Plate == "" {
		return 0, errors.Validation("plate is required")
	}
	if rider.Gender != GenderMale && rider.Gender != GenderFemale {
		return 0, errors.Validationf("unknown gender %q", rider.Gender)
	}
	if rider.BirthYear <= 0 {
		return 0, errors.Validation("birth_year is required")
	}

	id, err := s.repo.CreateRider(ctx, rider)
	if err != nil {
		return 0, err
	}
	s.log.Debug("Rider registered", "id", id, "plate", rider.Plate)
	return id, nil
}

// SetAbsent flags or unflags a rider as ABSENT
func (s *RiderService) SetAbsent(ctx context.Context, id int, absent bool) error {
	if err := s.repo.SetRiderAbsent(ctx, id, absent); err != nil {
		return notFound(err, ErrRiderNotFound)
	}
	s.log.Info("Rider absence updated", "id", id, "absent", absent)
	return nil
}
