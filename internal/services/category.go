package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// Genders accepted on categories and riders
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderMix    = "MIX"
)

var knownFinalClasses = map[models.FinalClass]bool{
	models.FinalAcademy: true, models.FinalAmateur: true, models.FinalBeginner: true,
	models.FinalPro: true, models.FinalRookie: true, models.FinalElite: true, models.FinalNovice: true,
}

// CategoryService handles category and stage rule business logic
type CategoryService struct {
	log  logger.Logger
	repo repository.CategoryRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(log logger.Logger, repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{log: log, repo: repo}
}

// Category represents a category for create operations
type Category struct {
	Name         string
	Gender       string
	BirthYearMin int
	BirthYearMax int
}

// ListCategories returns all categories
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// GetCategory returns a category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return cat, nil
}

// CreateCategory validates and creates a category
func (s *CategoryService) CreateCategory(ctx context.Context, cat Category) (int64, error) {
	name := strings.TrimSpace(cat.Name)
	if name == "" {
		return 0, errors.Validation("category name is required")
	}
	gender := strings.ToUpper(strings.TrimSpace(cat.Gender))
	if gender == "" {
		gender = GenderMix
	}
	if gender != GenderMale && gender != GenderFemale && gender != GenderMix {
		return 0, errors.Validationf("unknown gender %q", cat.Gender)
	}
	if cat.BirthYearMin > cat.BirthYearMax {
		return 0, errors.Validation("birth_year_min must not exceed birth_year_max")
	}

	id, err := s.repo.CreateCategory(ctx, models.Category{
		Name: name, Gender: gender, BirthYearMin: cat.BirthYearMin, BirthYearMax: cat.BirthYearMax,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("Category created", "id", id, "name", name)
	return id, nil
}

// SetOverride forces the enabled stages of a category, bypassing its rules
func (s *CategoryService) SetOverride(ctx context.Context, categoryID int, override models.StageOverride) error {
	if err := validateFinalClasses(override.FinalClasses); err != nil {
		return err
	}
	if err := s.repo.SetStageOverride(ctx, categoryID, &override); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	s.log.Info("Stage override set", "category", categoryID)
	return nil
}

// ClearOverride returns a category to rule-based stage selection
func (s *CategoryService) ClearOverride(ctx context.Context, categoryID int) error {
	if err := s.repo.SetStageOverride(ctx, categoryID, nil); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	s.log.Info("Stage override cleared", "category", categoryID)
	return nil
}

// ListRules returns a category's stage rule tiers
func (s *CategoryService) ListRules(ctx context.Context, categoryID int) ([]models.StageRule, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListStageRules(ctx, categoryID)
}

// AddRule adds a stage rule tier to a category
func (s *CategoryService) AddRule(ctx context.Context, rule models.StageRule) (int64, error) {
	if rule.MinRiders < 0 {
		return 0, errors.Validation("min_riders must not be negative")
	}
	if err := validateFinalClasses(rule.FinalClasses); err != nil {
		return 0, err
	}
	if _, err := s.GetCategory(ctx, rule.CategoryID); err != nil {
		return 0, err
	}
	return s.repo.CreateStageRule(ctx, rule)
}

// EligibleRiderCount counts riders matching the category's birth years and gender
func (s *CategoryService) EligibleRiderCount(ctx context.Context, categoryID int) (int, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return 0, err
	}
	return s.repo.CountEligibleRiders(ctx, categoryID)
}

func validateFinalClasses(classes []models.FinalClass) error {
	for _, c := range classes {
		if !knownFinalClasses[c] {
			return errors.Validationf("unknown final class %q", c)
		}
	}
	return nil
}
