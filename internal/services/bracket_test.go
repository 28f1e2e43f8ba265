package services_test

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/race"
	"github.com/abrezinsky/gaterace/internal/repository/mock"
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/testutil"
)

// qualified creates and runs one batch of 8 riders finishing in seed order,
// then runs a qualification pass
func qualified(t *testing.T, f *fixture) []int {
	t.Helper()
	riders := testutil.SeedRiders(t, f.repo, 8)
	if _, err := f.heats.CreateBatches(context.Background(), f.categoryID, riders, 8); err != nil {
		t.Fatalf("CreateBatches failed: %v", err)
	}
	f.runBatch(t, 1, riders)
	if _, err := f.bracket.ComputeQualification(context.Background(), f.categoryID); err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	return riders
}

func (f *fixture) stageResults(t *testing.T, stage *models.Stage) []models.StageResult {
	t.Helper()
	rows, err := f.bracket.StageResults(context.Background(), f.categoryID, stage)
	if err != nil {
		t.Fatalf("StageResults failed: %v", err)
	}
	return rows
}

func TestBracketService_ComputeQualification(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := testutil.SeedRiders(t, f.repo, 8)
	if _, err := f.heats.CreateBatches(ctx, f.categoryID, riders, 8); err != nil {
		t.Fatalf("CreateBatches failed: %v", err)
	}
	f.runBatch(t, 1, riders)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if diff := cmp.Diff([]int{1}, out.BatchesComputed); diff != "" {
		t.Errorf("computed batches mismatch (-want +got):\n%s", diff)
	}
	// 8 qualification rows plus 4 QF, 1 ACADEMY, 1 AMATEUR, 2 BEGINNER
	if out.RowsWritten != 16 {
		t.Errorf("expected 16 rows written, got %d", out.RowsWritten)
	}
	if out.HeatsCreated != 4 {
		t.Errorf("expected 4 heats created, got %d", out.HeatsCreated)
	}

	rosters := map[string][]int{
		"Quarter Final - Heat 1": riders[:4],
		"Final ACADEMY":          riders[4:5],
		"Final AMATEUR":          riders[5:6],
		"Final BEGINNER":         riders[6:8],
	}
	for name, want := range rosters {
		h := f.heat(t, name)
		if diff := cmp.Diff(want, f.roster(t, h.ID)); diff != "" {
			t.Errorf("%s roster mismatch (-want +got):\n%s", name, diff)
		}
		lineup, err := f.heats.Lineup(ctx, h.ID)
		if err != nil {
			t.Fatalf("Lineup failed: %v", err)
		}
		for i, e := range lineup.Riders {
			if e.Gate == nil || *e.Gate != i+1 {
				t.Errorf("%s: expected rider %d at gate %d, got %v", name, e.RiderID, i+1, e.Gate)
			}
		}
	}

	stage := models.StageQualification
	qual := f.stageResults(t, &stage)
	if len(qual) != 8 {
		t.Fatalf("expected 8 qualification rows, got %d", len(qual))
	}
	for _, row := range qual {
		if row.RiderID == riders[0] && (*row.Position != 1 || *row.Points != 3 || *row.Batch != 1) {
			t.Errorf("expected leader at position 1 with 3 points in batch 1, got %+v", row)
		}
	}
	if len(f.broadcaster.standings) == 0 {
		t.Error("expected a standings broadcast")
	}
}

func TestBracketService_ComputeQualification_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	qualified(t, f)
	before := f.stageResults(t, nil)
	heatsBefore, _ := f.heats.ListHeats(ctx, f.categoryID)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if out.HeatsCreated != 0 {
		t.Errorf("expected no new heats on rerun, got %d", out.HeatsCreated)
	}
	if diff := cmp.Diff(before, f.stageResults(t, nil)); diff != "" {
		t.Errorf("stage results changed on rerun (-before +after):\n%s", diff)
	}
	heatsAfter, _ := f.heats.ListHeats(ctx, f.categoryID)
	if diff := cmp.Diff(heatsBefore, heatsAfter); diff != "" {
		t.Errorf("heats changed on rerun (-before +after):\n%s", diff)
	}
}

func TestBracketService_ComputeQualification_SkipsIncompleteBatch(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := testutil.SeedRiders(t, f.repo, 6)
	if _, err := f.heats.CreateBatches(ctx, f.categoryID, riders, 8); err != nil {
		t.Fatalf("CreateBatches failed: %v", err)
	}
	f.finish(t, f.heat(t, "Moto 1 - Batch 1").ID, riders)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if diff := cmp.Diff([]int{1}, out.BatchesSkipped); diff != "" {
		t.Errorf("skipped batches mismatch (-want +got):\n%s", diff)
	}
	if !slices.Contains(out.Warnings, race.WarnNoQualifyingData) {
		t.Errorf("expected %q warning, got %v", race.WarnNoQualifyingData, out.Warnings)
	}
	if rows := f.stageResults(t, nil); len(rows) != 0 {
		t.Errorf("expected no stage rows, got %d", len(rows))
	}

	// a pending third moto does not hold the batch back
	f.finish(t, f.heat(t, "Moto 2 - Batch 1").ID, riders)
	out, err = f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if diff := cmp.Diff([]int{1}, out.BatchesComputed); diff != "" {
		t.Errorf("computed batches mismatch (-want +got):\n%s", diff)
	}
}

func TestBracketService_ComputeQualification_NoHeats(t *testing.T) {
	f := newFixture(t)

	out, err := f.bracket.ComputeQualification(context.Background(), f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if !slices.Contains(out.Warnings, race.WarnNoQualifyingData) {
		t.Errorf("expected %q warning, got %v", race.WarnNoQualifyingData, out.Warnings)
	}
}

func TestBracketService_ComputeQualification_IncrementalBatches(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	first := qualified(t, f)

	second := testutil.SeedRiders(t, f.repo, 8)
	if _, err := f.heats.CreateBatches(ctx, f.categoryID, second, 8); err != nil {
		t.Fatalf("CreateBatches failed: %v", err)
	}
	f.runBatch(t, 2, second)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, out.BatchesComputed); diff != "" {
		t.Errorf("computed batches mismatch (-want +got):\n%s", diff)
	}
	if out.HeatsCreated != 1 {
		t.Errorf("expected only a second quarter final to be created, got %d heats", out.HeatsCreated)
	}

	if diff := cmp.Diff(first[:4], f.roster(t, f.heat(t, "Quarter Final - Heat 1").ID)); diff != "" {
		t.Errorf("first quarter final changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(second[:4], f.roster(t, f.heat(t, "Quarter Final - Heat 2").ID)); diff != "" {
		t.Errorf("second quarter final mismatch (-want +got):\n%s", diff)
	}
	academy := f.heat(t, "Final ACADEMY")
	if diff := cmp.Diff([]int{first[4], second[4]}, f.roster(t, academy.ID)); diff != "" {
		t.Errorf("academy final roster mismatch (-want +got):\n%s", diff)
	}
	lineup, _ := f.heats.Lineup(ctx, academy.ID)
	if g := lineup.Riders[1].Gate; g == nil || *g != 2 {
		t.Errorf("expected appended rider at gate 2, got %v", g)
	}

	stage := models.StageQualification
	if rows := f.stageResults(t, &stage); len(rows) != 16 {
		t.Errorf("expected 16 qualification rows, got %d", len(rows))
	}
}

func TestBracketService_ComputeQualification_StartedFinalIsNotExtended(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	first := qualified(t, f)
	academy := f.heat(t, "Final ACADEMY")
	if err := f.repo.SetHeatStatus(ctx, academy.ID, models.HeatLive); err != nil {
		t.Fatalf("SetHeatStatus failed: %v", err)
	}

	second := testutil.SeedRiders(t, f.repo, 8)
	if _, err := f.heats.CreateBatches(ctx, f.categoryID, second, 8); err != nil {
		t.Fatalf("CreateBatches failed: %v", err)
	}
	f.runBatch(t, 2, second)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	found := slices.ContainsFunc(out.Warnings, func(w string) bool { return strings.HasPrefix(w, "Final ACADEMY is LIVE") })
	if !found {
		t.Errorf("expected a warning about the live academy final, got %v", out.Warnings)
	}
	if diff := cmp.Diff(first[4:5], f.roster(t, academy.ID)); diff != "" {
		t.Errorf("live final roster changed (-want +got):\n%s", diff)
	}
}

// demoteFourth resubmits moto 3 of batch 1 with the fourth seed last, so the
// fifth seed overtakes them: ranks become 0 1 2 4 3 5 6 7 by seed index
func demoteFourth(t *testing.T, f *fixture, riders []int) {
	t.Helper()
	order := []int{riders[0], riders[1], riders[2], riders[4], riders[5], riders[6], riders[7], riders[3]}
	f.finish(t, f.heat(t, motoName(3, 1)).ID, order)
}

func TestBracketService_ComputeQualification_CorrectionMovesRider(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := qualified(t, f)
	demoteFourth(t, f, riders)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	if out.HeatsCreated != 0 {
		t.Errorf("expected the correction to reuse existing heats, got %d created", out.HeatsCreated)
	}

	rosters := map[string][]int{
		"Quarter Final - Heat 1": {riders[0], riders[1], riders[2], riders[4]},
		"Final ACADEMY":          {riders[3]},
		"Final AMATEUR":          {riders[5]},
		"Final BEGINNER":         {riders[6], riders[7]},
	}
	for name, want := range rosters {
		h := f.heat(t, name)
		if diff := cmp.Diff(want, f.roster(t, h.ID)); diff != "" {
			t.Errorf("%s roster (-want +got):\n%s", name, diff)
		}
		lineup, err := f.heats.Lineup(ctx, h.ID)
		if err != nil {
			t.Fatalf("Lineup failed: %v", err)
		}
		for i, e := range lineup.Riders {
			if e.Gate == nil || *e.Gate != i+1 {
				t.Errorf("%s: expected gates 1..%d, rider %d has %v", name, len(want), e.RiderID, e.Gate)
			}
		}
	}
	if f.hasHeat(t, "Quarter Final - Heat 2") {
		t.Error("expected no second quarter final")
	}

	rows := f.stageResults(t, nil)
	var qf []int
	for _, row := range stageRows(rows, models.StageQuarterFinal) {
		qf = append(qf, row.RiderID)
	}
	slices.Sort(qf)
	wantQF := []int{riders[0], riders[1], riders[2], riders[4]}
	slices.Sort(wantQF)
	if diff := cmp.Diff(wantQF, qf); diff != "" {
		t.Errorf("quarter final rows (-want +got):\n%s", diff)
	}
	for _, row := range stageRows(rows, models.StageFinal) {
		if row.RiderID == riders[3] && row.FinalClass != models.FinalAcademy {
			t.Errorf("expected demoted rider in ACADEMY, got %s", row.FinalClass)
		}
		if row.RiderID == riders[4] {
			t.Errorf("promoted rider still has a final row: %+v", row)
		}
	}
}

func TestBracketService_ComputeQualification_CorrectionAfterHeatStarted(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := qualified(t, f)
	qf := f.heat(t, "Quarter Final - Heat 1")
	if err := f.repo.SetHeatStatus(ctx, qf.ID, models.HeatLive); err != nil {
		t.Fatalf("SetHeatStatus failed: %v", err)
	}
	demoteFourth(t, f, riders)

	out, err := f.bracket.ComputeQualification(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	found := slices.ContainsFunc(out.Warnings, func(w string) bool {
		return strings.HasPrefix(w, "Quarter Final - Heat 1 is LIVE")
	})
	if !found {
		t.Errorf("expected a warning about the live quarter final, got %v", out.Warnings)
	}
	if diff := cmp.Diff(riders[:4], f.roster(t, qf.ID)); diff != "" {
		t.Errorf("live quarter final roster changed (-want +got):\n%s", diff)
	}
}

func TestBracketService_ComputeQualification_StageGating(t *testing.T) {
	t.Run("quarter final disabled sends top four to semi final", func(t *testing.T) {
		f := newFixture(t)
		f.override(t, models.StageOverride{Qualification: true, SemiFinal: true})
		riders := qualified(t, f)

		if f.hasHeat(t, "Quarter Final - Heat 1") {
			t.Error("expected no quarter final heat")
		}
		if diff := cmp.Diff(riders[:4], f.roster(t, f.heat(t, "Semi Final - Heat 1").ID)); diff != "" {
			t.Errorf("semi final roster mismatch (-want +got):\n%s", diff)
		}
		if f.hasHeat(t, "Final ACADEMY") {
			t.Error("expected disabled final classes to get no heat")
		}
		stage := models.StageSemiFinal
		if rows := f.stageResults(t, &stage); len(rows) != 4 {
			t.Errorf("expected 4 semi final placeholders, got %d", len(rows))
		}
	})

	t.Run("everything disabled still records qualification", func(t *testing.T) {
		f := newFixture(t)
		f.override(t, models.StageOverride{})
		qualified(t, f)

		rows := f.stageResults(t, nil)
		if len(rows) != 8 || len(stageRows(rows, models.StageQualification)) != 8 {
			t.Errorf("expected only 8 qualification rows, got %+v", rows)
		}
		heats, _ := f.heats.ListHeats(context.Background(), f.categoryID)
		if len(heats) != 3 {
			t.Errorf("expected only the 3 motos, got %d heats", len(heats))
		}

		out, err := f.bracket.ComputeQualification(context.Background(), f.categoryID)
		if err != nil {
			t.Fatalf("ComputeQualification failed: %v", err)
		}
		if !slices.Contains(out.Warnings, services.WarnQualificationDisabled) {
			t.Errorf("expected %q warning, got %v", services.WarnQualificationDisabled, out.Warnings)
		}
	})

	t.Run("enabled qualification has no disabled warning", func(t *testing.T) {
		f := newFixture(t)
		f.enableAll(t)
		qualified(t, f)

		out, err := f.bracket.ComputeQualification(context.Background(), f.categoryID)
		if err != nil {
			t.Fatalf("ComputeQualification failed: %v", err)
		}
		if slices.Contains(out.Warnings, services.WarnQualificationDisabled) {
			t.Errorf("unexpected %q warning", services.WarnQualificationDisabled)
		}
	})
}

func TestBracketService_ComputeElimination(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := qualified(t, f)

	// quarter final not yet raced: riders are recorded without placings
	out, err := f.bracket.ComputeElimination(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeElimination failed: %v", err)
	}
	if out.HeatsCreated != 0 {
		t.Errorf("expected no heats before the quarter final runs, got %d", out.HeatsCreated)
	}
	qfStage := models.StageQuarterFinal
	for _, row := range f.stageResults(t, &qfStage) {
		if row.Position != nil {
			t.Errorf("expected unraced quarter final row without position, got %+v", row)
		}
	}

	qfOrder := []int{riders[3], riders[2], riders[1], riders[0]}
	f.finish(t, f.heat(t, "Quarter Final - Heat 1").ID, qfOrder)
	out, err = f.bracket.ComputeElimination(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeElimination failed: %v", err)
	}
	if out.HeatsCreated != 1 {
		t.Errorf("expected the semi final to be created, got %d heats", out.HeatsCreated)
	}
	sf := f.heat(t, "Semi Final - Heat 1")
	if diff := cmp.Diff(qfOrder, f.roster(t, sf.ID)); diff != "" {
		t.Errorf("semi final roster mismatch (-want +got):\n%s", diff)
	}
	for _, row := range f.stageResults(t, &qfStage) {
		if row.RiderID == riders[3] && (*row.Position != 1 || *row.Points != 1) {
			t.Errorf("expected quarter final winner at position 1, got %+v", row)
		}
	}

	sfOrder := []int{riders[0], riders[1], riders[2], riders[3]}
	f.finish(t, sf.ID, sfOrder)
	if _, err := f.bracket.ComputeElimination(ctx, f.categoryID); err != nil {
		t.Fatalf("ComputeElimination failed: %v", err)
	}
	elite := f.heat(t, "Final ELITE")
	if diff := cmp.Diff(sfOrder, f.roster(t, elite.ID)); diff != "" {
		t.Errorf("elite final roster mismatch (-want +got):\n%s", diff)
	}

	f.finish(t, elite.ID, []int{riders[1], riders[0], riders[2], riders[3]})
	out, err = f.bracket.ComputeElimination(ctx, f.categoryID)
	if err != nil {
		t.Fatalf("ComputeElimination failed: %v", err)
	}
	if out.HeatsCreated != 0 {
		t.Errorf("expected no heats after the final, got %d", out.HeatsCreated)
	}

	finalStage := models.StageFinal
	finals := f.stageResults(t, &finalStage)
	want := map[int]int{riders[1]: 1, riders[0]: 2, riders[2]: 3, riders[3]: 4}
	for _, row := range finals {
		pos, ok := want[row.RiderID]
		if !ok {
			continue
		}
		if row.FinalClass != models.FinalElite || row.Position == nil || *row.Position != pos || *row.Points != pos {
			t.Errorf("expected rider %d ELITE at %d, got %+v", row.RiderID, pos, row)
		}
	}

	// qualification survives elimination passes and a rerun keeps elimination rows
	if _, err := f.bracket.ComputeQualification(ctx, f.categoryID); err != nil {
		t.Fatalf("ComputeQualification failed: %v", err)
	}
	qualStage := models.StageQualification
	if rows := f.stageResults(t, &qualStage); len(rows) != 8 {
		t.Errorf("expected 8 qualification rows, got %d", len(rows))
	}
	if diff := cmp.Diff(finals, f.stageResults(t, &finalStage)); diff != "" {
		t.Errorf("final rows changed by qualification rerun (-want +got):\n%s", diff)
	}
}

func TestBracketService_ComputeElimination_NoHeats(t *testing.T) {
	f := newFixture(t)

	out, err := f.bracket.ComputeElimination(context.Background(), f.categoryID)
	if err != nil {
		t.Fatalf("ComputeElimination failed: %v", err)
	}
	if !slices.Contains(out.Warnings, services.WarnNoEliminationHeats) {
		t.Errorf("expected %q warning, got %v", services.WarnNoEliminationHeats, out.Warnings)
	}
}

func TestBracketService_ConcurrentPassesDoNotDuplicateHeats(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := testutil.SeedRiders(t, f.repo, 8)
	if _, err := f.heats.CreateBatches(ctx, f.categoryID, riders, 8); err != nil {
		t.Fatalf("CreateBatches failed: %v", err)
	}
	f.runBatch(t, 1, riders)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.bracket.ComputeQualification(ctx, f.categoryID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("ComputeQualification failed: %v", err)
	}

	heats, _ := f.heats.ListHeats(ctx, f.categoryID)
	names := make(map[string]int)
	for _, h := range heats {
		names[h.Name]++
	}
	for name, n := range names {
		if n != 1 {
			t.Errorf("expected one %s, got %d", name, n)
		}
	}
}

func TestBracketService_StageResults_UnknownStage(t *testing.T) {
	f := newFixture(t)
	stage := models.Stage("PRACTICE")

	_, err := f.bracket.StageResults(context.Background(), f.categoryID, &stage)
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBracketService_RepositoryErrors(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	qualified(t, f)
	repo := mock.NewRepository(f.repo)
	svc := services.NewBracketService(nopLog(), repo, services.NewStageService(nopLog(), repo), services.BracketConfig{})
	dbErr := stderrors.New("database error")

	repo.ReplaceQualificationResultsError = dbErr
	if _, err := svc.ComputeQualification(ctx, f.categoryID); err != dbErr {
		t.Errorf("expected database error from ComputeQualification, got %v", err)
	}
	repo.ReplaceEliminationResultsError = dbErr
	if _, err := svc.ComputeElimination(ctx, f.categoryID); err != dbErr {
		t.Errorf("expected database error from ComputeElimination, got %v", err)
	}
	repo.ListHeatsError = dbErr
	if _, err := svc.ComputeQualification(ctx, f.categoryID); err != dbErr {
		t.Errorf("expected database error from ListHeats, got %v", err)
	}
}

func TestBracketService_ComputeQualification_ReleaseError(t *testing.T) {
	f := newFixture(t)
	f.enableAll(t)
	ctx := context.Background()
	riders := qualified(t, f)
	demoteFourth(t, f, riders)
	repo := mock.NewRepository(f.repo)
	svc := services.NewBracketService(nopLog(), repo, services.NewStageService(nopLog(), repo), services.BracketConfig{})
	dbErr := stderrors.New("database error")

	repo.RemoveHeatRidersError = dbErr
	if _, err := svc.ComputeQualification(ctx, f.categoryID); err != dbErr {
		t.Errorf("expected database error from RemoveHeatRiders, got %v", err)
	}
}
