package services

import (
	"cmp"
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/race"
)

// batchRepository is what loading a qualification batch needs
type batchRepository interface {
	ListHeatRoster(ctx context.Context, heatID int) ([]models.RosterEntry, error)
	ListHeatResults(ctx context.Context, heatID int) ([]models.HeatResult, error)
	SumApprovedPenalties(ctx context.Context, heatIDs []int) (map[int]int, error)
	GetRider(ctx context.Context, id int) (*models.Rider, error)
}

// gateRepository is what assigning gates needs
type gateRepository interface {
	ListHeatRoster(ctx context.Context, heatID int) ([]models.RosterEntry, error)
	SetGates(ctx context.Context, heatID int, gates map[int]int) error
}

// batch is one qualification batch loaded for aggregation
type batch struct {
	Number int
	Heats  []models.Heat // by moto
	Roster []int
	Riders []race.BatchRider
	Input  []race.BatchHeat
}

// qualificationBatches groups a category's qualification heats by batch
// number, each sorted by moto. Batch numbers come back ascending.
func qualificationBatches(heats []models.Heat) ([]int, map[int][]models.Heat) {
	qual := lo.Filter(heats, func(h models.Heat, _ int) bool {
		return h.Ident.Stage == models.StageQualification
	})
	grouped := lo.GroupBy(qual, func(h models.Heat) int { return h.Ident.Batch })
	for n := range grouped {
		slices.SortFunc(grouped[n], func(a, b models.Heat) int { return cmp.Compare(a.Ident.Moto, b.Ident.Moto) })
	}
	numbers := lo.Keys(grouped)
	slices.Sort(numbers)
	return numbers, grouped
}

// loadBatch reads rosters, results, penalties and absence for a batch
func loadBatch(ctx context.Context, repo batchRepository, number int, heats []models.Heat) (*batch, error) {
	b := &batch{Number: number, Heats: heats}
	for i, h := range heats {
		roster, err := repo.ListHeatRoster(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		ids := lo.Map(roster, func(e models.RosterEntry, _ int) int { return e.RiderID })
		if i == 0 {
			b.Roster = ids
		}
		results, err := repo.ListHeatResults(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		b.Input = append(b.Input, race.BatchHeat{
			Moto:      h.Ident.Moto,
			FieldSize: len(ids),
			Results:   lo.KeyBy(results, func(r models.HeatResult) int { return r.RiderID }),
		})
	}

	heatIDs := lo.Map(heats, func(h models.Heat, _ int) int { return h.ID })
	penalties, err := repo.SumApprovedPenalties(ctx, heatIDs)
	if err != nil {
		return nil, err
	}
	for _, riderID := range b.Roster {
		rd, err := repo.GetRider(ctx, riderID)
		if err != nil {
			return nil, err
		}
		b.Riders = append(b.Riders, race.BatchRider{RiderID: riderID, Penalty: penalties[riderID], Absent: rd.Absent})
	}
	return b, nil
}

// complete reports whether motos 1 and 2 have a result for every rider
func (b *batch) complete() bool {
	if len(b.Roster) == 0 {
		return false
	}
	reported := 0
	for _, h := range b.Input {
		if h.Moto == 1 || h.Moto == 2 {
			reported += len(h.Results)
		}
	}
	return reported == len(b.Roster)*2
}

// fillGates assigns gates to riders of a heat that have none. A heat without
// any gates gets a full lineup from order; riders added to a gated heat take
// the next free gates in arrival order. Reports whether anything was written.
func fillGates(ctx context.Context, repo gateRepository, heatID int, order func(roster []int) []int) (bool, error) {
	roster, err := repo.ListHeatRoster(ctx, heatID)
	if err != nil {
		return false, err
	}
	missing := lo.Filter(roster, func(e models.RosterEntry, _ int) bool { return e.Gate == nil })
	if len(missing) == 0 {
		return false, nil
	}

	var gates map[int]int
	if len(missing) == len(roster) {
		arrival := lo.Map(roster, func(e models.RosterEntry, _ int) int { return e.RiderID })
		gates = race.GateMap(order(arrival))
	} else {
		next := lo.Max(lo.FilterMap(roster, func(e models.RosterEntry, _ int) (int, bool) {
			if e.Gate == nil {
				return 0, false
			}
			return *e.Gate, true
		})) + 1
		gates = make(map[int]int, len(missing))
		for i, e := range missing {
			gates[e.RiderID] = next + i
		}
	}
	if err := repo.SetGates(ctx, heatID, gates); err != nil {
		return false, err
	}
	return true, nil
}
