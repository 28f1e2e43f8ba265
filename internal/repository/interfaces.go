package repository

import (
	"context"

	"github.com/abrezinsky/gaterace/internal/models"
)

// CategoryRepository defines category and stage rule data operations
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	CreateCategory(ctx context.Context, cat models.Category) (int64, error)
	SetStageOverride(ctx context.Context, categoryID int, override *models.StageOverride) error
	CountEligibleRiders(ctx context.Context, categoryID int) (int, error)
	ListStageRules(ctx context.Context, categoryID int) ([]models.StageRule, error)
	CreateStageRule(ctx context.Context, rule models.StageRule) (int64, error)
}

// RiderRepository defines rider data operations
type RiderRepository interface {
	ListRiders(ctx context.Context) ([]models.Rider, error)
	GetRider(ctx context.Context, id int) (*models.Rider, error)
	CreateRider(ctx context.Context, rider models.Rider) (int64, error)
	SetRiderAbsent(ctx context.Context, id int, absent bool) error
}

// HeatRepository defines heat, roster and gate data operations
type HeatRepository interface {
	ListHeats(ctx context.Context, categoryID int) ([]models.Heat, error)
	GetHeat(ctx context.Context, id int) (*models.Heat, error)
	CreateHeat(ctx context.Context, heat models.Heat, riderIDs []int) (int64, error)
	AddHeatRiders(ctx context.Context, heatID int, riderIDs []int) error
	RemoveHeatRiders(ctx context.Context, heatID int, riderIDs []int) error
	ListHeatRoster(ctx context.Context, heatID int) ([]models.RosterEntry, error)
	SetGates(ctx context.Context, heatID int, gates map[int]int) error
	SetHeatStatus(ctx context.Context, id int, status models.HeatStatus) error
	SetHeatPublished(ctx context.Context, id int, published bool) error
}

// ResultRepository defines heat result and penalty data operations
type ResultRepository interface {
	ListHeatResults(ctx context.Context, heatID int) ([]models.HeatResult, error)
	UpsertHeatResults(ctx context.Context, heatID int, results []models.HeatResult) error
	CreatePenalty(ctx context.Context, p models.Penalty) (int64, error)
	GetPenalty(ctx context.Context, id int) (*models.Penalty, error)
	ApprovePenalty(ctx context.Context, id int) error
	ListPenalties(ctx context.Context, heatID int) ([]models.Penalty, error)
	SumApprovedPenalties(ctx context.Context, heatIDs []int) (map[int]int, error)
}

// StageResultRepository defines bracket output data operations
type StageResultRepository interface {
	ListStageResults(ctx context.Context, categoryID int, stage *models.Stage) ([]models.StageResult, error)
	ReplaceQualificationResults(ctx context.Context, categoryID int, riderIDs []int, rows []models.StageResult) error
	ReplaceEliminationResults(ctx context.Context, categoryID int, rows []models.StageResult) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	CategoryRepository
	RiderRepository
	HeatRepository
	ResultRepository
	StageResultRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
