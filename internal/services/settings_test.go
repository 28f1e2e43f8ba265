package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/repository/mock"
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/testutil"
)

func TestSettingsService_BaseURL(t *testing.T) {
	svc := services.NewSettingsService(logger.Nop(), testutil.NewTestRepository(t))
	ctx := context.Background()

	url, err := svc.GetBaseURL(ctx)
	if err != nil {
		t.Fatalf("GetBaseURL failed: %v", err)
	}
	if url != "" {
		t.Errorf("expected empty base URL before it is set, got %q", url)
	}

	if err := svc.SetBaseURL(ctx, "http://192.168.1.20:8080"); err != nil {
		t.Fatalf("SetBaseURL failed: %v", err)
	}
	url, _ = svc.GetBaseURL(ctx)
	if url != "http://192.168.1.20:8080" {
		t.Errorf("expected stored base URL, got %q", url)
	}
}

func TestSettingsService_GetBaseURL_DatabaseError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.GetSettingError = stderrors.New("database error")
	svc := services.NewSettingsService(logger.Nop(), repo)

	if _, err := svc.GetBaseURL(context.Background()); err == nil {
		t.Error("expected database error to propagate")
	}
}
