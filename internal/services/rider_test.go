package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/repository/mock"
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/testutil"
)

func TestRiderService_CreateRider(t *testing.T) {
	svc := services.NewRiderService(logger.Nop(), testutil.NewTestRepository(t))
	ctx := context.Background()

	id, err := svc.CreateRider(ctx, models.Rider{Name: " Sam ", Plate: " 42 ", Gender: "male", BirthYear: 2016})
	if err != nil {
		t.Fatalf("CreateRider failed: %v", err)
	}

	rd, err := svc.GetRider(ctx, int(id))
	if err != nil {
		t.Fatalf("GetRider failed: %v", err)
	}
	if rd.Name != "Sam" || rd.Plate != "42" || rd.Gender != services.GenderMale {
		t.Errorf("expected normalized rider, got %+v", rd)
	}
	if rd.Absent {
		t.Error("expected new rider not to be absent")
	}
}

func TestRiderService_CreateRider_Validation(t *testing.T) {
	svc := services.NewRiderService(logger.Nop(), testutil.NewTestRepository(t))

	tests := []struct {
		name  string
		rider models.Rider
	}{
		{"missing name", models.Rider{Plate: "1", Gender: "MALE", BirthYear: 2015}},
		{"missing plate", models.Rider{Name: "A", Gender: "MALE", BirthYear: 2015}},
		{"mix gender", models.Rider{Name: "A", Plate: "1", Gender: "MIX", BirthYear: 2015}},
		{"missing birth year", models.Rider{Name: "A", Plate: "1", Gender: "FEMALE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRider(context.Background(), tt.rider)
			if !errors.Is(err, errors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRiderService_SetAbsent(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewRiderService(logger.Nop(), repo)
	ctx := context.Background()
	ids := testutil.SeedRiders(t, repo, 2)

	if err := svc.SetAbsent(ctx, ids[1], true); err != nil {
		t.Fatalf("SetAbsent failed: %v", err)
	}
	riders, err := svc.ListRiders(ctx)
	if err != nil {
		t.Fatalf("ListRiders failed: %v", err)
	}
	if riders[0].Absent || !riders[1].Absent {
		t.Errorf("expected only the second rider absent, got %+v", riders)
	}

	if err := svc.SetAbsent(ctx, 99, true); err != services.ErrRiderNotFound {
		t.Errorf("expected ErrRiderNotFound, got %v", err)
	}
}

func TestRiderService_GetRider_NotFound(t *testing.T) {
	svc := services.NewRiderService(logger.Nop(), testutil.NewTestRepository(t))

	if _, err := svc.GetRider(context.Background(), 99); err != services.ErrRiderNotFound {
		t.Errorf("expected ErrRiderNotFound, got %v", err)
	}
}

func TestRiderService_RepositoryErrors(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	svc := services.NewRiderService(logger.Nop(), repo)
	ctx := context.Background()
	dbErr := stderrors.New("database error")

	repo.CreateRiderError = dbErr
	if _, err := svc.CreateRider(ctx, models.Rider{Name: "A", Plate: "1", Gender: "MALE", BirthYear: 2015}); err != dbErr {
		t.Errorf("expected database error, got %v", err)
	}
	repo.ListRidersError = dbErr
	if _, err := svc.ListRiders(ctx); err != dbErr {
		t.Errorf("expected database error, got %v", err)
	}
}
