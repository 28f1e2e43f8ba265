// Package race holds the scoring and bracket rules for gate-start elimination
// racing. Everything here is pure: callers load rosters and results, hand them
// in, and persist what comes back.
package race

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abrezinsky/gaterace/internal/models"
)

var (
	motoPattern  = regexp.MustCompile(`(?i)^\s*moto\s*(\d+)\s*-\s*batch\s*(\d+)\s*$`)
	qfPattern    = regexp.MustCompile(`(?i)^\s*quarter\s*final\s*-\s*heat\s*(\d+)\s*$`)
	sfPattern    = regexp.MustCompile(`(?i)^\s*semi\s*final\s*-\s*heat\s*(\d+)\s*$`)
	finalPattern = regexp.MustCompile(`(?i)^\s*final\s+([a-z]+)\s*$`)
)

// HeatName renders the legacy display name for a heat identity
func HeatName(id models.HeatIdent) string {
	switch id.Stage {
	case models.StageQualification:
		return fmt.Sprintf("Moto %d - Batch %d", id.Moto, id.Batch)
	case models.StageQuarterFinal:
		return fmt.Sprintf("Quarter Final - Heat %d", id.Number)
	case models.StageSemiFinal:
		return fmt.Sprintf("Semi Final - Heat %d", id.Number)
	case models.StageFinal:
		return "Final " + string(id.FinalClass)
	}
	return ""
}

// ParseHeatName recovers a heat identity from a legacy name. Matching is
// case-insensitive and tolerant of extra whitespace.
func ParseHeatName(name string) (models.HeatIdent, error) {
	if m := motoPattern.FindStringSubmatch(name); m != nil {
		moto, _ := strconv.Atoi(m[1])
		batch, _ := strconv.Atoi(m[2])
		if moto < 1 || moto > 3 || batch < 1 {
			return models.HeatIdent{}, fmt.Errorf("heat name %q out of range", name)
		}
		return models.HeatIdent{Stage: models.StageQualification, Moto: moto, Batch: batch}, nil
	}
	if m := qfPattern.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return models.HeatIdent{Stage: models.StageQuarterFinal, Number: n}, nil
	}
	if m := sfPattern.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return models.HeatIdent{Stage: models.StageSemiFinal, Number: n}, nil
	}
	if m := finalPattern.FindStringSubmatch(name); m != nil {
		return models.HeatIdent{Stage: models.StageFinal, FinalClass: models.FinalClass(strings.ToUpper(m[1]))}, nil
	}
	return models.HeatIdent{}, fmt.Errorf("unrecognized heat name %q", name)
}
