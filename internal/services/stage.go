package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/race"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// Stage sources reported on a Resolution
const (
	SourceOverride = "override"
	SourceRule     = "rule"
	SourceNone     = "none"
)

// Resolution is the set of stages enabled for a category
type Resolution struct {
	CategoryID int         `json:"category_id"`
	RiderCount int         `json:"rider_count"`
	Stages     race.Stages `json:"stages"`
	Source     string      `json:"source"`
	Warning    string      `json:"warning,omitempty"`
}

// StageService resolves which bracket stages a category runs
type StageService struct {
	log  logger.Logger
	repo repository.CategoryRepository
}

// NewStageService creates a new StageService
func NewStageService(log logger.Logger, repo repository.CategoryRepository) *StageService {
	return &StageService{log: log, repo: repo}
}

// Resolve returns the enabled stages for a category. It never fails: lookup
// problems come back as all stages disabled with a warning.
func (s *StageService) Resolve(ctx context.Context, categoryID int) Resolution {
	res := Resolution{CategoryID: categoryID, Source: SourceNone}

	cat, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		if !stderrors.Is(err, repository.ErrNotFound) {
			s.log.Error("Failed to load category for stage resolution", "category", categoryID, "error", err)
		}
		res.Warning = race.WarnCategoryNotFound
		return res
	}
	if cat.Override != nil {
		res.Stages = race.StagesFromOverride(*cat.Override)
		res.Source = SourceOverride
		return res
	}

	count, err := s.repo.CountEligibleRiders(ctx, categoryID)
	if err != nil {
		s.log.Error("Failed to count eligible riders", "category", categoryID, "error", err)
		res.Warning = race.WarnNoRuleMatched
		return res
	}
	res.RiderCount = count

	rules, err := s.repo.ListStageRules(ctx, categoryID)
	if err != nil {
		s.log.Error("Failed to list stage rules", "category", categoryID, "error", err)
		res.Warning = race.WarnNoRuleMatched
		return res
	}

	stages, warning := race.SelectTier(rules, count)
	res.Stages = stages
	res.Warning = warning
	if warning == "" {
		res.Source = SourceRule
	} else {
		s.log.Warn("Stage resolution degraded", "category", categoryID, "riders", count, "warning", warning)
	}
	return res
}
