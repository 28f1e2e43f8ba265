package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/abrezinsky/gaterace/internal/models"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db}, mock
}

// TestListCategories_ScanError tests row scanning error
func TestListCategories_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "gender", "birth_year_min", "birth_year_max",
		"override_enabled", "override_qualification", "override_quarter_final", "override_semi_final", "override_final_classes"}).
		AddRow("bad-id", "Cat", "MIX", 2010, 2012, false, false, false, false, nil)
	mock.ExpectQuery("SELECT (.+) FROM categories").WillReturnRows(rows)

	if _, err := repo.ListCategories(context.Background()); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestGetCategory_BadOverrideJSON tests a corrupt final class column
func TestGetCategory_BadOverrideJSON(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "gender", "birth_year_min", "birth_year_max",
		"override_enabled", "override_qualification", "override_quarter_final", "override_semi_final", "override_final_classes"}).
		AddRow(1, "Cat", "MIX", 2010, 2012, true, true, false, false, "{not json")
	mock.ExpectQuery("SELECT (.+) FROM categories WHERE id").WillReturnRows(rows)

	if _, err := repo.GetCategory(context.Background(), 1); err == nil {
		t.Error("expected decode error, got nil")
	}
}

// TestListStageRules_QueryError tests query failure
func TestListStageRules_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM stage_rules").WillReturnError(errors.New("db down"))

	if _, err := repo.ListStageRules(context.Background(), 1); err == nil {
		t.Error("expected error, got nil")
	}
}

// TestListHeats_BadStatus tests an unknown stored heat status
func TestListHeats_BadStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "category_id", "name", "stage", "batch", "moto", "number",
		"final_class", "heat_order", "status", "published"}).
		AddRow(1, 1, "Moto 1 - Batch 1", "QUALIFICATION", 1, 1, 0, "", 1, "PAUSED", false)
	mock.ExpectQuery("SELECT (.+) FROM heats").WillReturnRows(rows)

	if _, err := repo.ListHeats(context.Background(), 1); err == nil {
		t.Error("expected error for unknown status, got nil")
	}
}

// TestCreateHeat_RollsBackOnRosterError tests the heat insert is undone
func TestCreateHeat_RollsBackOnRosterError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec("INSERT INTO heats").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT OR IGNORE INTO heat_riders").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	_, err := repo.CreateHeat(context.Background(), models.Heat{
		CategoryID: 1, Name: "Moto 1 - Batch 1",
		Ident: models.HeatIdent{Stage: models.StageQualification, Batch: 1, Moto: 1},
	}, []int{10})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestUpsertHeatResults_RollsBack tests a failed result write leaves nothing behind
func TestUpsertHeatResults_RollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO heat_results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO heat_results").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	order := 1
	err := repo.UpsertHeatResults(context.Background(), 1, []models.HeatResult{
		{RiderID: 1, Status: models.ResultFinish, FinishOrder: &order},
		{RiderID: 2, Status: models.ResultDNF},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestReplaceEliminationResults_DeleteError tests a failed delete aborts the insert
func TestReplaceEliminationResults_DeleteError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stage_results").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := repo.ReplaceEliminationResults(context.Background(), 1, []models.StageResult{
		{RiderID: 1, Stage: models.StageSemiFinal},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestReplaceQualificationResults_BeginError tests transaction start failure
func TestReplaceQualificationResults_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("busy"))

	err := repo.ReplaceQualificationResults(context.Background(), 1, []int{1}, nil)
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// TestSumApprovedPenalties_ScanError tests row scanning error
func TestSumApprovedPenalties_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"rider_id", "sum"}).AddRow("x", 3)
	mock.ExpectQuery("SELECT rider_id, SUM").WillReturnRows(rows)

	if _, err := repo.SumApprovedPenalties(context.Background(), []int{1, 2}); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestSetHeatStatus_RowsAffectedError tests result inspection failure
func TestSetHeatStatus_RowsAffectedError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE heats SET status").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no rows info")))

	if err := repo.SetHeatStatus(context.Background(), 1, models.HeatLive); err == nil {
		t.Error("expected error, got nil")
	}
}

// TestListHeatRoster_QueryError tests query failure
func TestListHeatRoster_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM heat_riders").WillReturnError(errors.New("db down"))

	if _, err := repo.ListHeatRoster(context.Background(), 1); err == nil {
		t.Error("expected error, got nil")
	}
}
