package race

import (
	"cmp"
	"slices"

	"github.com/abrezinsky/gaterace/internal/models"
)

// DefaultDQThreshold is the approved penalty total at which a rider is disqualified
const DefaultDQThreshold = 7

// Display classes shown next to batch standings
const (
	DisplayQuarterFinal  = "QUARTER FINAL"
	DisplayFinalAcademy  = "FINAL ACADEMY"
	DisplayFinalAmateur  = "FINAL AMATEUR"
	DisplayFinalBeginner = "FINAL BEGINNER"
)

// BatchRider is one rider's input to batch aggregation
type BatchRider struct {
	RiderID int
	// Penalty is the sum of approved penalties across the batch's heats.
	Penalty int
	// Absent is the externally set ABSENT flag.
	Absent bool
}

// BatchHeat is one moto of a batch with its recorded results
type BatchHeat struct {
	Moto      int
	FieldSize int
	Results   map[int]models.HeatResult // by rider ID
}

// AggregateRow is a rider's derived standing within a batch
type AggregateRow struct {
	RiderID      int                    `json:"rider_id"`
	HeatPoints   []*int                 `json:"heat_points"` // indexed by moto-1
	Penalty      int                    `json:"penalty"`
	TotalPoint   *int                   `json:"total_point"`
	Status       models.AggregateStatus `json:"status"`
	Rank         *int                   `json:"rank"`
	DisplayClass string                 `json:"display_class,omitempty"`
}

// Aggregator sums heat points across a batch and ranks the riders
type Aggregator struct {
	Scorer      Scorer
	DQThreshold int
}

// NewAggregator returns an Aggregator with the standard constants
func NewAggregator() Aggregator {
	return Aggregator{Scorer: NewScorer(), DQThreshold: DefaultDQThreshold}
}

// Aggregate computes standings for riders (in roster order) over heats.
// Rows come back in rank order; unranked riders follow in roster order.
func (a Aggregator) Aggregate(riders []BatchRider, heats []BatchHeat) []AggregateRow {
	motos := 0
	for _, h := range heats {
		motos = max(motos, h.Moto)
	}

	rows := make([]AggregateRow, len(riders))
	tieKeys := make([]int, len(riders))
	for i, rider := range riders {
		row := AggregateRow{
			RiderID:    rider.RiderID,
			HeatPoints: make([]*int, motos),
			Penalty:    rider.Penalty,
		}

		var total int
		var reported bool
		lastMoto := 0
		for _, h := range heats {
			res, ok := h.Results[rider.RiderID]
			var p *int
			if ok {
				p = a.Scorer.Point(&res, h.FieldSize)
			}
			if h.Moto >= 1 {
				row.HeatPoints[h.Moto-1] = p
			}
			if p != nil {
				total += *p
				reported = true
			}
			if ok && h.Moto > lastMoto {
				lastMoto = h.Moto
			}
		}
		if reported {
			total += rider.Penalty
			row.TotalPoint = &total
		}
		row.Status = a.status(rider, heats)
		rows[i] = row
		tieKeys[i] = lastHeatOrder(rider.RiderID, heats, lastMoto)
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(x, y int) int {
		if c := comparePoints(rows[x].TotalPoint, rows[y].TotalPoint); c != 0 {
			return c
		}
		return cmp.Compare(tieKeys[x], tieKeys[y])
	})

	sorted := make([]AggregateRow, 0, len(rows))
	rank := 0
	for _, i := range idx {
		row := rows[i]
		if row.TotalPoint != nil {
			rank++
			r := rank
			row.Rank = &r
			row.DisplayClass = DisplayClass(r)
		}
		sorted = append(sorted, row)
	}
	return sorted
}

// status applies the precedence DQ > ABSENT > any DNS > any DNF > all FINISH > DNS
func (a Aggregator) status(rider BatchRider, heats []BatchHeat) models.AggregateStatus {
	if rider.Penalty >= a.DQThreshold {
		return models.StatusDQ
	}
	if rider.Absent {
		return models.StatusDNS
	}
	var anyDNS, anyDNF bool
	allFinish := len(heats) > 0
	for _, h := range heats {
		res, ok := h.Results[rider.RiderID]
		if !ok {
			allFinish = false
			continue
		}
		switch res.Status {
		case models.ResultDNS:
			anyDNS = true
		case models.ResultDNF:
			anyDNF = true
		}
		if res.Status != models.ResultFinish {
			allFinish = false
		}
	}
	switch {
	case anyDNS:
		return models.StatusDNS
	case anyDNF:
		return models.StatusDNF
	case allFinish:
		return models.StatusFinished
	}
	return models.StatusDNS
}

// lastHeatOrder is the tie-break key: the finish order in the rider's last
// reported moto, or MaxInt when that result is not a finish.
func lastHeatOrder(riderID int, heats []BatchHeat, lastMoto int) int {
	for _, h := range heats {
		if h.Moto != lastMoto {
			continue
		}
		res, ok := h.Results[riderID]
		if ok && res.Status == models.ResultFinish && res.FinishOrder != nil {
			return *res.FinishOrder
		}
	}
	return unplaced
}

// comparePoints orders nil after every value
func comparePoints(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// DisplayClass labels a batch rank for display only; advancement is decided
// by the bracket mapping, not by this label.
func DisplayClass(rank int) string {
	switch {
	case rank >= 1 && rank <= 4:
		return DisplayQuarterFinal
	case rank == 5:
		return DisplayFinalAcademy
	case rank == 6:
		return DisplayFinalAmateur
	case rank == 7 || rank == 8:
		return DisplayFinalBeginner
	}
	return ""
}
