package race

import (
	"fmt"

	"github.com/abrezinsky/gaterace/internal/models"
)

type transition struct {
	from, to models.HeatStatus
}

// operatorTransitions are the status changes an operator may request
var operatorTransitions = map[transition]bool{
	{models.HeatProvisional, models.HeatProtestReview}: true,
	{models.HeatProvisional, models.HeatLocked}:        true,
	{models.HeatProtestReview, models.HeatLocked}:      true,
}

// systemTransitions happen as a heat is run: the start gate drops, then
// results arrive. They are not available to the status endpoint.
var systemTransitions = map[transition]bool{
	{models.HeatUpcoming, models.HeatLive}:        true,
	{models.HeatUpcoming, models.HeatProvisional}: true,
	{models.HeatLive, models.HeatProvisional}:     true,
}

// CheckTransition validates an operator-requested status change
func CheckTransition(from, to models.HeatStatus) error {
	if operatorTransitions[transition{from, to}] {
		return nil
	}
	if from == models.HeatLocked {
		return fmt.Errorf("heat is LOCKED; status cannot change from LOCKED to %s", to)
	}
	return fmt.Errorf("transition from %s to %s is not allowed", from, to)
}

// CheckSystemTransition validates a status change driven by race progress
func CheckSystemTransition(from, to models.HeatStatus) error {
	if systemTransitions[transition{from, to}] {
		return nil
	}
	return fmt.Errorf("heat cannot move from %s to %s", from, to)
}

// CheckEditable rejects result, penalty and safety-check writes while the
// heat is locked or under protest review.
func CheckEditable(status models.HeatStatus) error {
	switch status {
	case models.HeatLocked:
		return fmt.Errorf("heat is LOCKED; results and penalties cannot be changed")
	case models.HeatProtestReview:
		return fmt.Errorf("heat is under PROTEST_REVIEW; results and penalties cannot be changed")
	}
	return nil
}

// CheckPublishable allows toggling the published flag only on a locked heat
func CheckPublishable(status models.HeatStatus) error {
	if status != models.HeatLocked {
		return fmt.Errorf("heat must be LOCKED to change published, current status %s", status)
	}
	return nil
}
