package race

import (
	"cmp"
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/abrezinsky/gaterace/internal/models"
)

// DefaultHeatMaxSize is the default rider capacity of an elimination heat
const DefaultHeatMaxSize = 8

// unplaced sorts riders without a usable finish order after everyone else
const unplaced = math.MaxInt

// Advance is the next-stage destination of a ranked rider
type Advance struct {
	Stage models.Stage
	Class models.FinalClass
}

// QualificationAdvance maps a batch rank to its next stage under stages.
// The second return is false when the rank does not advance or the target
// is not enabled. A disabled quarter final with an enabled semi final sends
// the top four straight to the semi final.
func QualificationAdvance(rank int, stages Stages) (Advance, bool) {
	var adv Advance
	switch {
	case rank >= 1 && rank <= 4:
		adv = Advance{Stage: models.StageQuarterFinal}
		if !stages.QuarterFinal && stages.SemiFinal {
			adv.Stage = models.StageSemiFinal
		}
	case rank == 5:
		adv = Advance{Stage: models.StageFinal, Class: models.FinalAcademy}
	case rank == 6:
		adv = Advance{Stage: models.StageFinal, Class: models.FinalAmateur}
	case rank == 7 || rank == 8:
		adv = Advance{Stage: models.StageFinal, Class: models.FinalBeginner}
	default:
		return Advance{}, false
	}
	return adv, stages.Permits(adv.Stage, adv.Class)
}

// QuarterFinalAdvance maps a quarter-final heat rank to its next stage
func QuarterFinalAdvance(rank int) (Advance, bool) {
	switch {
	case rank >= 1 && rank <= 4:
		return Advance{Stage: models.StageSemiFinal}, true
	case rank == 5 || rank == 6:
		return Advance{Stage: models.StageFinal, Class: models.FinalPro}, true
	case rank == 7 || rank == 8:
		return Advance{Stage: models.StageFinal, Class: models.FinalRookie}, true
	}
	return Advance{}, false
}

// SemiFinalAdvance maps a semi-final heat rank to its final class
func SemiFinalAdvance(rank int) (Advance, bool) {
	switch {
	case rank >= 1 && rank <= 4:
		return Advance{Stage: models.StageFinal, Class: models.FinalElite}, true
	case rank >= 5 && rank <= 8:
		return Advance{Stage: models.StageFinal, Class: models.FinalNovice}, true
	}
	return Advance{}, false
}

// FinalFeeder returns the stage whose rankings fill a final class
func FinalFeeder(class models.FinalClass) models.Stage {
	switch class {
	case models.FinalPro, models.FinalRookie:
		return models.StageQuarterFinal
	case models.FinalElite, models.FinalNovice:
		return models.StageSemiFinal
	}
	return models.StageQualification
}

// Placed is a rider's placing within one elimination heat
type Placed struct {
	RiderID     int
	Rank        int
	FinishOrder *int
}

// RankByFinishOrder ranks a heat roster by recorded finish order. Riders
// without a finish order keep roster order behind those who have one.
// DNF/DNS point substitution does not apply here.
func RankByFinishOrder(roster []int, results map[int]models.HeatResult) []Placed {
	key := func(riderID int) int {
		if res, ok := results[riderID]; ok && res.FinishOrder != nil {
			return *res.FinishOrder
		}
		return unplaced
	}
	ordered := slices.Clone(roster)
	slices.SortStableFunc(ordered, func(a, b int) int {
		return cmp.Compare(key(a), key(b))
	})

	placed := make([]Placed, len(ordered))
	for i, riderID := range ordered {
		placed[i] = Placed{RiderID: riderID, Rank: i + 1}
		if res, ok := results[riderID]; ok && res.FinishOrder != nil {
			fo := *res.FinishOrder
			placed[i].FinishOrder = &fo
		}
	}
	return placed
}

// GroupIntoHeats splits advancing riders into heats of at most maxSize,
// keeping production order.
func GroupIntoHeats(riderIDs []int, maxSize int) [][]int {
	if maxSize < 1 {
		maxSize = DefaultHeatMaxSize
	}
	return lo.Chunk(lo.Uniq(riderIDs), maxSize)
}
