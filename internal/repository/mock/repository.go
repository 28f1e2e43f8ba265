package mock

import (
	"context"

	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.UpsertHeatResultsError = errors.New("database error")
//	svc := services.NewHeatService(log, mockRepo, nil, services.HeatConfig{})
//	_, err := svc.SubmitResults(ctx, heatID, entries)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Category Errors =====
	GetCategoryError         error
	ListCategoriesError      error
	CreateCategoryError      error
	SetStageOverrideError    error
	CountEligibleRidersError error
	ListStageRulesError      error
	CreateStageRuleError     error

	// ===== Rider Errors =====
	ListRidersError     error
	GetRiderError       error
	CreateRiderError    error
	SetRiderAbsentError error

	// ===== Heat Errors =====
	ListHeatsError        error
	GetHeatError          error
	CreateHeatError       error
	AddHeatRidersError    error
	RemoveHeatRidersError error
	ListHeatRosterError   error
	SetGatesError         error
	SetHeatStatusError    error
	SetHeatPublishedError error

	// ===== Result Errors =====
	ListHeatResultsError      error
	UpsertHeatResultsError    error
	CreatePenaltyError        error
	ApprovePenaltyError       error
	SumApprovedPenaltiesError error

	// ===== Stage Result Errors =====
	ListStageResultsError            error
	ReplaceQualificationResultsError error
	ReplaceEliminationResultsError   error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Category Methods =====

func (m *Repository) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	if m.GetCategoryError != nil {
		return nil, m.GetCategoryError
	}
	return m.FullRepository.GetCategory(ctx, id)
}

func (m *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.FullRepository.ListCategories(ctx)
}

func (m *Repository) CreateCategory(ctx context.Context, cat models.Category) (int64, error) {
	if m.CreateCategoryError != nil {
		return 0, m.CreateCategoryError
	}
	return m.FullRepository.CreateCategory(ctx, cat)
}

func (m *Repository) SetStageOverride(ctx context.Context, categoryID int, override *models.StageOverride) error {
	if m.SetStageOverrideError != nil {
		return m.SetStageOverrideError
	}
	return m.FullRepository.SetStageOverride(ctx, categoryID, override)
}

func (m *Repository) CountEligibleRiders(ctx context.Context, categoryID int) (int, error) {
	if m.CountEligibleRidersError != nil {
		return 0, m.CountEligibleRidersError
	}
	return m.FullRepository.CountEligibleRiders(ctx, categoryID)
}

func (m *Repository) ListStageRules(ctx context.Context, categoryID int) ([]models.StageRule, error) {
	if m.ListStageRulesError != nil {
		return nil, m.ListStageRulesError
	}
	return m.FullRepository.ListStageRules(ctx, categoryID)
}

func (m *Repository) CreateStageRule(ctx context.Context, rule models.StageRule) (int64, error) {
	if m.CreateStageRuleError != nil {
		return 0, m.CreateStageRuleError
	}
	return m.FullRepository.CreateStageRule(ctx, rule)
}

// ===== Rider Methods =====

func (m *Repository) ListRiders(ctx context.Context) ([]models.Rider, error) {
	if m.ListRidersError != nil {
		return nil, m.ListRidersError
	}
	return m.FullRepository.ListRiders(ctx)
}

func (m *Repository) GetRider(ctx context.Context, id int) (*models.Rider, error) {
	if m.GetRiderError != nil {
		return nil, m.GetRiderError
	}
	return m.FullRepository.GetRider(ctx, id)
}

func (m *Repository) CreateRider(ctx context.Context, rider models.Rider) (int64, error) {
	if m.CreateRiderError != nil {
		return 0, m.CreateRiderError
	}
	return m.FullRepository.CreateRider(ctx, rider)
}

func (m *Repository) SetRiderAbsent(ctx context.Context, id int, absent bool) error {
	if m.SetRiderAbsentError != nil {
		return m.SetRiderAbsentError
	}
	return m.FullRepository.SetRiderAbsent(ctx, id, absent)
}

// ===== Heat Methods =====

func (m *Repository) ListHeats(ctx context.Context, categoryID int) ([]models.Heat, error) {
	if m.ListHeatsError != nil {
		return nil, m.ListHeatsError
	}
	return m.FullRepository.ListHeats(ctx, categoryID)
}

func (m *Repository) GetHeat(ctx context.Context, id int) (*models.Heat, error) {
	if m.GetHeatError != nil {
		return nil, m.GetHeatError
	}
	return m.FullRepository.GetHeat(ctx, id)
}

func (m *Repository) CreateHeat(ctx context.Context, heat models.Heat, riderIDs []int) (int64, error) {
	if m.CreateHeatError != nil {
		return 0, m.CreateHeatError
	}
	return m.FullRepository.CreateHeat(ctx, heat, riderIDs)
}

func (m *Repository) AddHeatRiders(ctx context.Context, heatID int, riderIDs []int) error {
	if m.AddHeatRidersError != nil {
		return m.AddHeatRidersError
	}
	return m.FullRepository.AddHeatRiders(ctx, heatID, riderIDs)
}

func (m *Repository) RemoveHeatRiders(ctx context.Context, heatID int, riderIDs []int) error {
	if m.RemoveHeatRidersError != nil {
		return m.RemoveHeatRidersError
	}
	return m.FullRepository.RemoveHeatRiders(ctx, heatID, riderIDs)
}

func (m *Repository) ListHeatRoster(ctx context.Context, heatID int) ([]models.RosterEntry, error) {
	if m.ListHeatRosterError != nil {
		return nil, m.ListHeatRosterError
	}
	return m.FullRepository.ListHeatRoster(ctx, heatID)
}

func (m *Repository) SetGates(ctx context.Context, heatID int, gates map[int]int) error {
	if m.SetGatesError != nil {
		return m.SetGatesError
	}
	return m.FullRepository.SetGates(ctx, heatID, gates)
}

func (m *Repository) SetHeatStatus(ctx context.Context, id int, status models.HeatStatus) error {
	if m.SetHeatStatusError != nil {
		return m.SetHeatStatusError
	}
	return m.FullRepository.SetHeatStatus(ctx, id, status)
}

func (m *Repository) SetHeatPublished(ctx context.Context, id int, published bool) error {
	if m.SetHeatPublishedError != nil {
		return m.SetHeatPublishedError
	}
	return m.FullRepository.SetHeatPublished(ctx, id, published)
}

// ===== Result Methods =====

func (m *Repository) ListHeatResults(ctx context.Context, heatID int) ([]models.HeatResult, error) {
	if m.ListHeatResultsError != nil {
		return nil, m.ListHeatResultsError
	}
	return m.FullRepository.ListHeatResults(ctx, heatID)
}

func (m *Repository) UpsertHeatResults(ctx context.Context, heatID int, results []models.HeatResult) error {
	if m.UpsertHeatResultsError != nil {
		return m.UpsertHeatResultsError
	}
	return m.FullRepository.UpsertHeatResults(ctx, heatID, results)
}

func (m *Repository) CreatePenalty(ctx context.Context, p models.Penalty) (int64, error) {
	if m.CreatePenaltyError != nil {
		return 0, m.CreatePenaltyError
	}
	return m.FullRepository.CreatePenalty(ctx, p)
}

func (m *Repository) ApprovePenalty(ctx context.Context, id int) error {
	if m.ApprovePenaltyError != nil {
		return m.ApprovePenaltyError
	}
	return m.FullRepository.ApprovePenalty(ctx, id)
}

func (m *Repository) SumApprovedPenalties(ctx context.Context, heatIDs []int) (map[int]int, error) {
	if m.SumApprovedPenaltiesError != nil {
		return nil, m.SumApprovedPenaltiesError
	}
	return m.FullRepository.SumApprovedPenalties(ctx, heatIDs)
}

// ===== Stage Result Methods =====

func (m *Repository) ListStageResults(ctx context.Context, categoryID int, stage *models.Stage) ([]models.StageResult, error) {
	if m.ListStageResultsError != nil {
		return nil, m.ListStageResultsError
	}
	return m.FullRepository.ListStageResults(ctx, categoryID, stage)
}

func (m *Repository) ReplaceQualificationResults(ctx context.Context, categoryID int, riderIDs []int, rows []models.StageResult) error {
	if m.ReplaceQualificationResultsError != nil {
		return m.ReplaceQualificationResultsError
	}
	return m.FullRepository.ReplaceQualificationResults(ctx, categoryID, riderIDs, rows)
}

func (m *Repository) ReplaceEliminationResults(ctx context.Context, categoryID int, rows []models.StageResult) error {
	if m.ReplaceEliminationResultsError != nil {
		return m.ReplaceEliminationResultsError
	}
	return m.FullRepository.ReplaceEliminationResults(ctx, categoryID, rows)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}
