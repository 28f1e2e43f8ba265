package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/race"
	"github.com/abrezinsky/gaterace/internal/repository"
)

const (
	// WarnNoEliminationHeats is returned when an elimination pass has nothing to rank
	WarnNoEliminationHeats = "No elimination heats found"
	// WarnQualificationDisabled is returned when qualification rows are
	// computed for a category whose qualification stage is switched off
	WarnQualificationDisabled = "Qualification stage is disabled for this category; rows recorded for reference"
)

// BracketServiceRepository defines the repository methods needed by BracketService
type BracketServiceRepository interface {
	repository.RiderRepository
	repository.HeatRepository
	repository.ResultRepository
	repository.StageResultRepository
}

// StageResolver resolves the enabled stages of a category
type StageResolver interface {
	Resolve(ctx context.Context, categoryID int) Resolution
}

// BracketConfig carries the tunables of bracket progression
type BracketConfig struct {
	HeatMaxSize int
	DNSPoint    int
	DQThreshold int
}

// BracketService computes stage results and materializes next-round heats.
// Passes for one category never run concurrently.
type BracketService struct {
	log         logger.Logger
	repo        BracketServiceRepository
	stages      StageResolver
	broadcaster Broadcaster
	cfg         BracketConfig
	aggregator  race.Aggregator

	locks sync.Map // category ID -> *sync.Mutex
}

// NewBracketService creates a new BracketService
func NewBracketService(log logger.Logger, repo BracketServiceRepository, stages StageResolver, cfg BracketConfig) *BracketService {
	if cfg.HeatMaxSize <= 0 {
		cfg.HeatMaxSize = race.DefaultHeatMaxSize
	}
	return &BracketService{
		log:        log,
		repo:       repo,
		stages:     stages,
		cfg:        cfg,
		aggregator: newAggregator(cfg.DNSPoint, cfg.DQThreshold),
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *BracketService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// QualificationOutcome reports what a qualification pass did
type QualificationOutcome struct {
	CategoryID      int         `json:"category_id"`
	Stages          race.Stages `json:"stages"`
	BatchesComputed []int       `json:"batches_computed"`
	BatchesSkipped  []int       `json:"batches_skipped"`
	RowsWritten     int         `json:"rows_written"`
	HeatsCreated    int         `json:"heats_created"`
	Warnings        []string    `json:"warnings"`
}

// EliminationOutcome reports what an elimination pass did
type EliminationOutcome struct {
	CategoryID   int         `json:"category_id"`
	Stages       race.Stages `json:"stages"`
	RowsWritten  int         `json:"rows_written"`
	HeatsCreated int         `json:"heats_created"`
	Warnings     []string    `json:"warnings"`
}

func (s *BracketService) lock(categoryID int) func() {
	m, _ := s.locks.LoadOrStore(categoryID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// advancement is the next-round destination a pass decided for a ranked
// rider. ok is false when the rider goes nowhere from stage from.
type advancement struct {
	riderID int
	from    models.Stage
	to      race.Advance
	ok      bool
}

// sends reports whether the advancement puts its rider on heat h
func (a advancement) sends(h models.Heat) bool {
	if !a.ok || a.to.Stage != h.Ident.Stage {
		return false
	}
	return h.Ident.Stage != models.StageFinal || a.to.Class == h.Ident.FinalClass
}

// ComputeQualification ranks every complete batch of a category, replaces the
// qualification rows of its riders and creates next-round heats for riders who
// advance. Incomplete batches are skipped.
func (s *BracketService) ComputeQualification(ctx context.Context, categoryID int) (*QualificationOutcome, error) {
	unlock := s.lock(categoryID)
	defer unlock()

	res := s.stages.Resolve(ctx, categoryID)
	out := &QualificationOutcome{CategoryID: categoryID, Stages: res.Stages, Warnings: []string{}}
	if res.Warning != "" {
		out.Warnings = append(out.Warnings, res.Warning)
	}
	if !res.Stages.Qualification {
		out.Warnings = append(out.Warnings, WarnQualificationDisabled)
	}

	heats, err := s.repo.ListHeats(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	numbers, batches := qualificationBatches(heats)

	var rows []models.StageResult
	var riders []int
	var advances []advancement
	for _, n := range numbers {
		b, err := loadBatch(ctx, s.repo, n, batches[n])
		if err != nil {
			return nil, err
		}
		if !b.complete() {
			out.BatchesSkipped = append(out.BatchesSkipped, n)
			continue
		}
		out.BatchesComputed = append(out.BatchesComputed, n)
		riders = append(riders, b.Roster...)

		for _, row := range s.aggregator.Aggregate(b.Riders, b.Input) {
			if row.Rank == nil {
				advances = append(advances, advancement{riderID: row.RiderID, from: models.StageQualification})
				continue
			}
			batchNo := n
			rows = append(rows, models.StageResult{
				CategoryID: categoryID, RiderID: row.RiderID, Stage: models.StageQualification,
				Batch: &batchNo, Position: row.Rank, Points: row.TotalPoint,
			})
			adv, ok := race.QualificationAdvance(*row.Rank, res.Stages)
			if ok {
				rows = append(rows, models.StageResult{
					CategoryID: categoryID, RiderID: row.RiderID, Stage: adv.Stage, Batch: &batchNo, FinalClass: adv.Class,
				})
			}
			advances = append(advances, advancement{riderID: row.RiderID, from: models.StageQualification, to: adv, ok: ok})
		}
	}

	if len(out.BatchesComputed) == 0 {
		out.Warnings = append(out.Warnings, race.WarnNoQualifyingData)
		s.log.Info("Qualification pass found nothing to compute", "category", categoryID, "skipped", len(out.BatchesSkipped))
		return out, nil
	}

	if err := s.repo.ReplaceQualificationResults(ctx, categoryID, riders, rows); err != nil {
		return nil, err
	}
	out.RowsWritten = len(rows)

	created, warnings, err := s.materialize(ctx, categoryID, heats, advances)
	if err != nil {
		return nil, err
	}
	out.HeatsCreated = created
	out.Warnings = append(out.Warnings, warnings...)

	s.log.Info("Qualification pass complete", "category", categoryID,
		"computed", len(out.BatchesComputed), "skipped", len(out.BatchesSkipped),
		"rows", out.RowsWritten, "heats_created", out.HeatsCreated)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStandings(categoryID, models.StageQualification)
	}
	return out, nil
}

type resultKey struct {
	riderID int
	stage   models.Stage
}

// eliminationRows collects stage rows, letting rows from raced heats replace
// advancement placeholders.
type eliminationRows struct {
	byKey map[resultKey]models.StageResult
	order []resultKey
}

func (e *eliminationRows) put(sr models.StageResult, placeholder bool) {
	k := resultKey{riderID: sr.RiderID, stage: sr.Stage}
	if _, ok := e.byKey[k]; ok {
		if !placeholder {
			e.byKey[k] = sr
		}
		return
	}
	e.byKey[k] = sr
	e.order = append(e.order, k)
}

func (e *eliminationRows) list() []models.StageResult {
	return lo.Map(e.order, func(k resultKey, _ int) models.StageResult { return e.byKey[k] })
}

// ComputeElimination recomputes every quarter-final, semi-final and final row
// of a category from heat results and creates next-round heats for riders who
// advance out of completed heats.
func (s *BracketService) ComputeElimination(ctx context.Context, categoryID int) (*EliminationOutcome, error) {
	unlock := s.lock(categoryID)
	defer unlock()

	res := s.stages.Resolve(ctx, categoryID)
	out := &EliminationOutcome{CategoryID: categoryID, Stages: res.Stages, Warnings: []string{}}
	if res.Warning != "" {
		out.Warnings = append(out.Warnings, res.Warning)
	}

	heats, err := s.repo.ListHeats(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	byStage := lo.GroupBy(heats, func(h models.Heat) models.Stage { return h.Ident.Stage })
	if len(byStage[models.StageQuarterFinal])+len(byStage[models.StageSemiFinal])+len(byStage[models.StageFinal]) == 0 {
		out.Warnings = append(out.Warnings, WarnNoEliminationHeats)
		return out, nil
	}

	rows := &eliminationRows{byKey: make(map[resultKey]models.StageResult)}
	var advances []advancement

	rounds := []struct {
		stage   models.Stage
		advance func(rank int) (race.Advance, bool)
	}{
		{models.StageQuarterFinal, race.QuarterFinalAdvance},
		{models.StageSemiFinal, race.SemiFinalAdvance},
	}
	for _, round := range rounds {
		for _, h := range byStage[round.stage] {
			ids, results, err := s.heatOutcome(ctx, h.ID)
			if err != nil {
				return nil, err
			}
			complete := len(ids) > 0 && len(results) == len(ids)
			for _, p := range race.RankByFinishOrder(ids, results) {
				sr := models.StageResult{CategoryID: categoryID, RiderID: p.RiderID, Stage: round.stage}
				if complete {
					rank := p.Rank
					sr.Position = &rank
					sr.Points = p.FinishOrder
				}
				rows.put(sr, false)
				if !complete {
					continue
				}
				adv, ok := round.advance(p.Rank)
				ok = ok && res.Stages.Permits(adv.Stage, adv.Class)
				advances = append(advances, advancement{riderID: p.RiderID, from: round.stage, to: adv, ok: ok})
				if ok {
					rows.put(models.StageResult{CategoryID: categoryID, RiderID: p.RiderID, Stage: adv.Stage, FinalClass: adv.Class}, true)
				}
			}
		}
	}

	for _, h := range byStage[models.StageFinal] {
		ids, results, err := s.heatOutcome(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		for _, riderID := range ids {
			sr := models.StageResult{CategoryID: categoryID, RiderID: riderID, Stage: models.StageFinal, FinalClass: h.Ident.FinalClass}
			if r, ok := results[riderID]; ok && r.FinishOrder != nil {
				pos := *r.FinishOrder
				sr.Position = &pos
				sr.Points = &pos
			}
			rows.put(sr, false)
		}
	}

	list := rows.list()
	if err := s.repo.ReplaceEliminationResults(ctx, categoryID, list); err != nil {
		return nil, err
	}
	out.RowsWritten = len(list)

	created, warnings, err := s.materialize(ctx, categoryID, heats, advances)
	if err != nil {
		return nil, err
	}
	out.HeatsCreated = created
	out.Warnings = append(out.Warnings, warnings...)

	s.log.Info("Elimination pass complete", "category", categoryID, "rows", out.RowsWritten, "heats_created", out.HeatsCreated)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStandings(categoryID, models.StageFinal)
	}
	return out, nil
}

// StageResults returns a category's stage rows, optionally for a single stage
func (s *BracketService) StageResults(ctx context.Context, categoryID int, stage *models.Stage) ([]models.StageResult, error) {
	if stage != nil && !stage.Valid() {
		return nil, errors.Validationf("unknown stage %q", *stage)
	}
	return s.repo.ListStageResults(ctx, categoryID, stage)
}

// heatOutcome loads a heat's roster in arrival order and its results by rider
func (s *BracketService) heatOutcome(ctx context.Context, heatID int) ([]int, map[int]models.HeatResult, error) {
	roster, err := s.repo.ListHeatRoster(ctx, heatID)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.repo.ListHeatResults(ctx, heatID)
	if err != nil {
		return nil, nil, err
	}
	ids := lo.Map(roster, func(e models.RosterEntry, _ int) int { return e.RiderID })
	return ids, lo.KeyBy(results, func(r models.HeatResult) int { return r.RiderID }), nil
}

// materialize brings next-round heats in line with the advancements of a
// pass: riders whose destination changed leave UPCOMING heats first, then
// advancing riders are placed in the order they were produced.
func (s *BracketService) materialize(ctx context.Context, categoryID int, heats []models.Heat, advances []advancement) (int, []string, error) {
	created := 0
	freed, warnings, err := s.release(ctx, categoryID, heats, advances)
	if err != nil {
		return created, warnings, err
	}

	advancing := lo.Filter(advances, func(a advancement, _ int) bool { return a.ok })
	for _, stage := range []models.Stage{models.StageQuarterFinal, models.StageSemiFinal} {
		riders := lo.FilterMap(advancing, func(a advancement, _ int) (int, bool) {
			return a.riderID, a.to.Stage == stage
		})
		n, err := s.placeInRound(ctx, categoryID, heats, stage, riders, freed)
		if err != nil {
			return created, warnings, err
		}
		created += n
	}

	finals := lo.Filter(advancing, func(a advancement, _ int) bool { return a.to.Stage == models.StageFinal })
	classes := lo.Uniq(lo.Map(finals, func(a advancement, _ int) models.FinalClass { return a.to.Class }))
	for _, class := range classes {
		riders := lo.FilterMap(finals, func(a advancement, _ int) (int, bool) { return a.riderID, a.to.Class == class })
		n, warning, err := s.placeInFinal(ctx, categoryID, heats, class, riders)
		if err != nil {
			return created, warnings, err
		}
		created += n
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}
	return created, warnings, nil
}

// feederOf returns the stage whose ranking decides whether a rider belongs on
// heat h. Semi-final riders who never raced a quarter final came straight
// from qualification.
func feederOf(h models.Heat, onQuarterFinal bool) (models.Stage, bool) {
	switch h.Ident.Stage {
	case models.StageFinal:
		return race.FinalFeeder(h.Ident.FinalClass), true
	case models.StageQuarterFinal:
		return models.StageQualification, true
	case models.StageSemiFinal:
		if onQuarterFinal {
			return models.StageQuarterFinal, true
		}
		return models.StageQualification, true
	}
	return "", false
}

type feedKey struct {
	riderID int
	from    models.Stage
}

// release removes riders from next-round heats that their latest ranking no
// longer sends them to. Only UPCOMING heats change; others are reported.
// Returns the number of seats freed per heat.
func (s *BracketService) release(ctx context.Context, categoryID int, heats []models.Heat, advances []advancement) (map[int]int, []string, error) {
	if len(advances) == 0 {
		return nil, nil, nil
	}
	decided := lo.KeyBy(advances, func(a advancement) feedKey { return feedKey{riderID: a.riderID, from: a.from} })

	rosters := make(map[int][]int)
	onQuarterFinal := make(map[int]bool)
	for _, h := range heats {
		if h.Ident.Stage == models.StageQualification {
			continue
		}
		roster, err := s.repo.ListHeatRoster(ctx, h.ID)
		if err != nil {
			return nil, nil, err
		}
		rosters[h.ID] = lo.Map(roster, func(e models.RosterEntry, _ int) int { return e.RiderID })
		if h.Ident.Stage == models.StageQuarterFinal {
			for _, id := range rosters[h.ID] {
				onQuarterFinal[id] = true
			}
		}
	}

	freed := make(map[int]int)
	var warnings []string
	for _, h := range heats {
		stale := lo.Filter(rosters[h.ID], func(id int, _ int) bool {
			from, ok := feederOf(h, onQuarterFinal[id])
			if !ok {
				return false
			}
			a, ranked := decided[feedKey{riderID: id, from: from}]
			return ranked && !a.sends(h)
		})
		if len(stale) == 0 {
			continue
		}
		if h.Status != models.HeatUpcoming {
			warnings = append(warnings, fmt.Sprintf("%s is %s; %d riders who no longer advance stay on it", h.Name, h.Status, len(stale)))
			continue
		}
		if err := s.repo.RemoveHeatRiders(ctx, h.ID, stale); err != nil {
			return nil, warnings, err
		}
		if _, err := fillGates(ctx, s.repo, h.ID, identityOrder); err != nil {
			return nil, warnings, err
		}
		freed[h.ID] = len(stale)
		s.log.Info("Riders released from heat", "category", categoryID, "heat", h.Name, "riders", stale)
	}
	return freed, warnings, nil
}

func identityOrder(roster []int) []int { return roster }

// placeInRound seats riders of a quarter- or semi-final round who are not
// already on one, first in seats freed this pass and then in new heats.
// Heat numbers continue after the highest existing one.
func (s *BracketService) placeInRound(ctx context.Context, categoryID int, heats []models.Heat, stage models.Stage, riderIDs []int, freed map[int]int) (int, error) {
	if len(riderIDs) == 0 {
		return 0, nil
	}
	placed := make(map[int]bool)
	number := 0
	for _, h := range heats {
		if h.Ident.Stage != stage {
			continue
		}
		number = max(number, h.Ident.Number)
		roster, err := s.repo.ListHeatRoster(ctx, h.ID)
		if err != nil {
			return 0, err
		}
		for _, e := range roster {
			placed[e.RiderID] = true
		}
	}
	pending := lo.Uniq(lo.Reject(riderIDs, func(id int, _ int) bool { return placed[id] }))

	for _, h := range heats {
		if h.Ident.Stage != stage || freed[h.ID] == 0 || len(pending) == 0 {
			continue
		}
		take := min(freed[h.ID], len(pending))
		if err := s.repo.AddHeatRiders(ctx, h.ID, pending[:take]); err != nil {
			return 0, err
		}
		if _, err := fillGates(ctx, s.repo, h.ID, identityOrder); err != nil {
			return 0, err
		}
		s.log.Info("Riders moved into freed seats", "category", categoryID, "heat", h.Name, "riders", pending[:take])
		pending = pending[take:]
	}

	created := 0
	for _, group := range race.GroupIntoHeats(pending, s.cfg.HeatMaxSize) {
		number++
		ident := models.HeatIdent{Stage: stage, Number: number}
		id, err := s.repo.CreateHeat(ctx, models.Heat{
			CategoryID: categoryID, Name: race.HeatName(ident), Ident: ident, Status: models.HeatUpcoming,
		}, group)
		if err != nil {
			return created, err
		}
		if _, err := fillGates(ctx, s.repo, int(id), identityOrder); err != nil {
			return created, err
		}
		created++
		s.log.Info("Heat created", "category", categoryID, "heat", race.HeatName(ident), "riders", len(group))
	}
	return created, nil
}

// placeInFinal puts riders into the single heat of a final class, creating it
// when missing. Riders are only appended while that heat is still UPCOMING.
func (s *BracketService) placeInFinal(ctx context.Context, categoryID int, heats []models.Heat, class models.FinalClass, riderIDs []int) (int, string, error) {
	for _, h := range heats {
		if h.Ident.Stage != models.StageFinal || h.Ident.FinalClass != class {
			continue
		}
		roster, err := s.repo.ListHeatRoster(ctx, h.ID)
		if err != nil {
			return 0, "", err
		}
		missing := lo.Without(lo.Uniq(riderIDs), lo.Map(roster, func(e models.RosterEntry, _ int) int { return e.RiderID })...)
		if len(missing) == 0 {
			return 0, "", nil
		}
		if h.Status != models.HeatUpcoming {
			return 0, fmt.Sprintf("%s is %s; %d advancing riders not added", h.Name, h.Status, len(missing)), nil
		}
		if err := s.repo.AddHeatRiders(ctx, h.ID, missing); err != nil {
			return 0, "", err
		}
		if _, err := fillGates(ctx, s.repo, h.ID, identityOrder); err != nil {
			return 0, "", err
		}
		s.log.Info("Riders added to final", "category", categoryID, "heat", h.Name, "riders", len(missing))
		return 0, "", nil
	}

	ident := models.HeatIdent{Stage: models.StageFinal, FinalClass: class}
	id, err := s.repo.CreateHeat(ctx, models.Heat{
		CategoryID: categoryID, Name: race.HeatName(ident), Ident: ident, Status: models.HeatUpcoming,
	}, lo.Uniq(riderIDs))
	if err != nil {
		return 0, "", err
	}
	if _, err := fillGates(ctx, s.repo, int(id), identityOrder); err != nil {
		return 0, "", err
	}
	s.log.Info("Heat created", "category", categoryID, "heat", race.HeatName(ident), "riders", len(riderIDs))
	return 1, "", nil
}
