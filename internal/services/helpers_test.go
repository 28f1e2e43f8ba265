package services_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/repository"
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/testutil"
)

// recordingBroadcaster captures broadcasts for assertions
type recordingBroadcaster struct {
	mu        sync.Mutex
	statuses  []models.Heat
	results   []int
	standings []int
}

func (b *recordingBroadcaster) BroadcastHeatStatus(heat models.Heat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, heat)
}

func (b *recordingBroadcaster) BroadcastResults(heatID int, _ []models.HeatResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, heatID)
}

func (b *recordingBroadcaster) BroadcastStandings(categoryID int, _ models.Stage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.standings = append(b.standings, categoryID)
}

// fixture wires the race services over a fresh in-memory database
type fixture struct {
	repo        *repository.Repository
	settings    *services.SettingsService
	categories  *services.CategoryService
	heats       *services.HeatService
	bracket     *services.BracketService
	broadcaster *recordingBroadcaster
	categoryID  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	log := logger.Nop()
	settings := services.NewSettingsService(log, repo)
	f := &fixture{
		repo:        repo,
		settings:    settings,
		categories:  services.NewCategoryService(log, repo),
		heats:       services.NewHeatService(log, repo, settings, services.HeatConfig{Rand: rand.New(rand.NewPCG(7, 11))}),
		bracket:     services.NewBracketService(log, repo, services.NewStageService(log, repo), services.BracketConfig{}),
		broadcaster: &recordingBroadcaster{},
		categoryID:  testutil.SeedCategory(t, repo, "Boys 8"),
	}
	f.heats.SetBroadcaster(f.broadcaster)
	f.bracket.SetBroadcaster(f.broadcaster)
	return f
}

// enableAll forces every stage and final class on the fixture's category
func (f *fixture) enableAll(t *testing.T) {
	t.Helper()
	f.override(t, models.StageOverride{
		Qualification: true, QuarterFinal: true, SemiFinal: true,
		FinalClasses: []models.FinalClass{
			models.FinalAcademy, models.FinalAmateur, models.FinalBeginner,
			models.FinalPro, models.FinalRookie, models.FinalElite, models.FinalNovice,
		},
	})
}

func (f *fixture) override(t *testing.T, o models.StageOverride) {
	t.Helper()
	if err := f.categories.SetOverride(context.Background(), f.categoryID, o); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
}

// heat returns the fixture category's heat with the given name
func (f *fixture) heat(t *testing.T, name string) models.Heat {
	t.Helper()
	heats, err := f.heats.ListHeats(context.Background(), f.categoryID)
	if err != nil {
		t.Fatalf("ListHeats failed: %v", err)
	}
	for _, h := range heats {
		if h.Name == name {
			return h
		}
	}
	t.Fatalf("heat %q not found", name)
	return models.Heat{}
}

// hasHeat reports whether the fixture category has a heat with the given name
func (f *fixture) hasHeat(t *testing.T, name string) bool {
	t.Helper()
	heats, err := f.heats.ListHeats(context.Background(), f.categoryID)
	if err != nil {
		t.Fatalf("ListHeats failed: %v", err)
	}
	for _, h := range heats {
		if h.Name == name {
			return true
		}
	}
	return false
}

// roster returns a heat's rider IDs in arrival order
func (f *fixture) roster(t *testing.T, heatID int) []int {
	t.Helper()
	entries, err := f.repo.ListHeatRoster(context.Background(), heatID)
	if err != nil {
		t.Fatalf("ListHeatRoster failed: %v", err)
	}
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.RiderID
	}
	return ids
}

// finish records a heat where riders cross the line in the given order
func (f *fixture) finish(t *testing.T, heatID int, order []int) *services.SubmitOutcome {
	t.Helper()
	out, err := f.heats.SubmitResults(context.Background(), heatID, finishEntries(order))
	if err != nil {
		t.Fatalf("SubmitResults(%d) failed: %v", heatID, err)
	}
	return out
}

// runBatch finishes every moto of a batch in the given order
func (f *fixture) runBatch(t *testing.T, batch int, riders []int) {
	t.Helper()
	for moto := 1; moto <= 3; moto++ {
		h := f.heat(t, motoName(moto, batch))
		f.finish(t, h.ID, riders)
	}
}

func finishEntries(order []int) []services.ResultEntry {
	entries := make([]services.ResultEntry, len(order))
	for i, id := range order {
		fo := i + 1
		entries[i] = services.ResultEntry{RiderID: id, Status: models.ResultFinish, FinishOrder: &fo}
	}
	return entries
}

func motoName(moto, batch int) string {
	return fmt.Sprintf("Moto %d - Batch %d", moto, batch)
}

func intp(n int) *int { return &n }

func nopLog() logger.Logger { return logger.Nop() }

// stageRows filters stage results by stage
func stageRows(rows []models.StageResult, stage models.Stage) []models.StageResult {
	var out []models.StageResult
	for _, r := range rows {
		if r.Stage == stage {
			out = append(out, r)
		}
	}
	return out
}
