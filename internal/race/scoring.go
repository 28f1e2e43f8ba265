package race

import (
	"fmt"
	"sort"

	"github.com/abrezinsky/gaterace/internal/models"
)

// DefaultDNSPoint is the fixed point value for a did-not-start
const DefaultDNSPoint = 9

// Scorer converts single-heat outcomes into points
type Scorer struct {
	DNSPoint int
}

// NewScorer returns a Scorer using the standard DNS point
func NewScorer() Scorer {
	return Scorer{DNSPoint: DefaultDNSPoint}
}

// Point returns the heat point for a result in a heat of fieldSize riders.
// A nil result (not yet reported) yields nil.
func (s Scorer) Point(result *models.HeatResult, fieldSize int) *int {
	if result == nil {
		return nil
	}
	var p int
	switch result.Status {
	case models.ResultFinish:
		if result.FinishOrder == nil {
			return nil
		}
		p = *result.FinishOrder
	case models.ResultDNF:
		p = fieldSize
	case models.ResultDNS:
		p = s.DNSPoint
	default:
		return nil
	}
	return &p
}

// ValidateSubmission checks one batch of submitted results: FINISH results
// carry a positive order, orders are unique, and non-FINISH results carry none.
func ValidateSubmission(results []models.HeatResult) error {
	_, err := finishOrders(results)
	return err
}

// ValidateFinishOrders applies ValidateSubmission and additionally requires the
// orders to form 1..k with no gaps. Use it on the full set of a heat's results.
func ValidateFinishOrders(results []models.HeatResult) error {
	orders, err := finishOrders(results)
	if err != nil {
		return err
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i+1 {
			return fmt.Errorf("finish orders must be consecutive from 1, missing %d", i+1)
		}
	}
	return nil
}

func finishOrders(results []models.HeatResult) ([]int, error) {
	var orders []int
	seen := make(map[int]int)
	for _, r := range results {
		switch r.Status {
		case models.ResultFinish:
			if r.FinishOrder == nil {
				return nil, fmt.Errorf("rider %d finished without a finish order", r.RiderID)
			}
			o := *r.FinishOrder
			if o < 1 {
				return nil, fmt.Errorf("rider %d has invalid finish order %d", r.RiderID, o)
			}
			if other, dup := seen[o]; dup {
				return nil, fmt.Errorf("finish order %d assigned to riders %d and %d", o, other, r.RiderID)
			}
			seen[o] = r.RiderID
			orders = append(orders, o)
		case models.ResultDNF, models.ResultDNS:
			if r.FinishOrder != nil {
				return nil, fmt.Errorf("rider %d is %s but has a finish order", r.RiderID, r.Status)
			}
		default:
			return nil, fmt.Errorf("rider %d has unknown status %q", r.RiderID, r.Status)
		}
	}
	return orders, nil
}
