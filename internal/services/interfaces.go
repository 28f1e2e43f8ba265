package services

import (
	"context"

	"github.com/abrezinsky/gaterace/internal/models"
)

// CategoryServicer defines the interface for category operations
type CategoryServicer interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	CreateCategory(ctx context.Context, cat Category) (int64, error)
	SetOverride(ctx context.Context, categoryID int, override models.StageOverride) error
	ClearOverride(ctx context.Context, categoryID int) error
	ListRules(ctx context.Context, categoryID int) ([]models.StageRule, error)
	AddRule(ctx context.Context, rule models.StageRule) (int64, error)
	EligibleRiderCount(ctx context.Context, categoryID int) (int, error)
}

// RiderServicer defines the interface for rider operations
type RiderServicer interface {
	ListRiders(ctx context.Context) ([]models.Rider, error)
	GetRider(ctx context.Context, id int) (*models.Rider, error)
	CreateRider(ctx context.Context, rider models.Rider) (int64, error)
	SetAbsent(ctx context.Context, id int, absent bool) error
}

// HeatServicer defines the interface for heat operations
type HeatServicer interface {
	ListHeats(ctx context.Context, categoryID int) ([]models.Heat, error)
	GetHeat(ctx context.Context, heatID int) (*models.Heat, error)
	CreateBatches(ctx context.Context, categoryID int, riderIDs []int, batchSize int) (*BatchPlan, error)
	AssignGates(ctx context.Context, categoryID int) (int, error)
	Lineup(ctx context.Context, heatID int) (*HeatLineup, error)
	SubmitResults(ctx context.Context, heatID int, entries []ResultEntry) (*SubmitOutcome, error)
	StartHeat(ctx context.Context, heatID int) (*models.Heat, error)
	Transition(ctx context.Context, heatID int, to models.HeatStatus) (*models.Heat, error)
	SetPublished(ctx context.Context, heatID int, published bool) (*models.Heat, error)
	AddPenalty(ctx context.Context, heatID, riderID, points int, reason string) (int64, error)
	ApprovePenalty(ctx context.Context, penaltyID int) error
	ListPenalties(ctx context.Context, heatID int) ([]models.Penalty, error)
	BatchStandings(ctx context.Context, categoryID, batchNumber int) (*BatchStandings, error)
	HeatQRCode(ctx context.Context, heatID int) ([]byte, error)
	SetBroadcaster(b Broadcaster)
}

// BracketServicer defines the interface for bracket progression
type BracketServicer interface {
	ComputeQualification(ctx context.Context, categoryID int) (*QualificationOutcome, error)
	ComputeElimination(ctx context.Context, categoryID int) (*EliminationOutcome, error)
	StageResults(ctx context.Context, categoryID int, stage *models.Stage) ([]models.StageResult, error)
	SetBroadcaster(b Broadcaster)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
}

// Ensure concrete types implement interfaces
var (
	_ CategoryServicer = (*CategoryService)(nil)
	_ RiderServicer    = (*RiderService)(nil)
	_ HeatServicer     = (*HeatService)(nil)
	_ BracketServicer  = (*BracketService)(nil)
	_ SettingsServicer = (*SettingsService)(nil)
	_ StageResolver    = (*StageService)(nil)
)
