package services_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/race"
	"github.com/abrezinsky/gaterace/internal/repository/mock"
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/testutil"
)

func TestStageService_Resolve_SelectsTierByRiderCount(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	catID := testutil.SeedCategory(t, repo, "Boys 8")
	testutil.SeedRiders(t, repo, 10)

	small := models.StageRule{CategoryID: catID, MinRiders: 4, EnableQualification: true,
		FinalClasses: []models.FinalClass{models.FinalAcademy, models.FinalAmateur}}
	large := models.StageRule{CategoryID: catID, MinRiders: 16, EnableQualification: true, EnableQuarterFinal: true, EnableSemiFinal: true}
	for _, r := range []models.StageRule{large, small} {
		if _, err := repo.CreateStageRule(ctx, r); err != nil {
			t.Fatalf("CreateStageRule failed: %v", err)
		}
	}

	res := services.NewStageService(logger.Nop(), repo).Resolve(ctx, catID)

	want := services.Resolution{
		CategoryID: catID,
		RiderCount: 10,
		Stages: race.Stages{
			Qualification: true,
			FinalClasses:  []models.FinalClass{models.FinalAcademy, models.FinalAmateur},
		},
		Source: services.SourceRule,
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("resolution mismatch (-want +got):\n%s", diff)
	}
}

func TestStageService_Resolve_OverrideBypassesRules(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	catID := testutil.SeedCategory(t, repo, "Boys 8")
	if _, err := repo.CreateStageRule(ctx, models.StageRule{CategoryID: catID, MinRiders: 0, EnableQualification: true}); err != nil {
		t.Fatalf("CreateStageRule failed: %v", err)
	}
	override := &models.StageOverride{SemiFinal: true, FinalClasses: []models.FinalClass{models.FinalElite}}
	if err := repo.SetStageOverride(ctx, catID, override); err != nil {
		t.Fatalf("SetStageOverride failed: %v", err)
	}

	res := services.NewStageService(logger.Nop(), repo).Resolve(ctx, catID)

	if res.Source != services.SourceOverride {
		t.Errorf("expected source override, got %q", res.Source)
	}
	if res.Stages.Qualification || !res.Stages.SemiFinal {
		t.Errorf("expected override flags verbatim, got %+v", res.Stages)
	}
}

func TestStageService_Resolve_Degraded(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	catID := testutil.SeedCategory(t, repo, "Boys 8")
	testutil.SeedRiders(t, repo, 3)
	if _, err := repo.CreateStageRule(ctx, models.StageRule{CategoryID: catID, MinRiders: 4, EnableQualification: true}); err != nil {
		t.Fatalf("CreateStageRule failed: %v", err)
	}
	svc := services.NewStageService(logger.Nop(), repo)

	t.Run("no tier matches", func(t *testing.T) {
		res := svc.Resolve(ctx, catID)
		if res.Source != services.SourceNone {
			t.Errorf("expected source none, got %q", res.Source)
		}
		if !strings.HasPrefix(res.Warning, race.WarnNoRuleMatched) {
			t.Errorf("expected no-rule warning, got %q", res.Warning)
		}
		if res.Stages.Qualification {
			t.Error("expected all stages disabled")
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		res := svc.Resolve(ctx, 99)
		if res.Warning != race.WarnCategoryNotFound {
			t.Errorf("expected category warning, got %q", res.Warning)
		}
	})
}

func TestStageService_Resolve_RepositoryErrorsNeverFail(t *testing.T) {
	base := testutil.NewTestRepository(t)
	catID := testutil.SeedCategory(t, base, "Boys 8")
	repo := mock.NewRepository(base)
	svc := services.NewStageService(logger.Nop(), repo)
	dbErr := stderrors.New("database error")

	repo.ListStageRulesError = dbErr
	if res := svc.Resolve(context.Background(), catID); !strings.HasPrefix(res.Warning, race.WarnNoRuleMatched) {
		t.Errorf("expected degraded resolution, got %+v", res)
	}

	repo.GetCategoryError = dbErr
	if res := svc.Resolve(context.Background(), catID); res.Warning != race.WarnCategoryNotFound {
		t.Errorf("expected category warning, got %+v", res)
	}
}
