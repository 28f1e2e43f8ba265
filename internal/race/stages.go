package race

import (
	"fmt"
	"slices"

	"github.com/abrezinsky/gaterace/internal/models"
)

// Diagnostic messages returned alongside a disabled stage set
const (
	WarnNoRuleMatched    = "No rule matched"
	WarnCategoryNotFound = "Category not found"
	WarnNoQualifyingData = "No qualifying batches found"
)

// Stages is the set of bracket levels enabled for a category
type Stages struct {
	Qualification bool                `json:"enable_qualification"`
	QuarterFinal  bool                `json:"enable_quarter_final"`
	SemiFinal     bool                `json:"enable_semi_final"`
	FinalClasses  []models.FinalClass `json:"final_classes"`
}

// Permits reports whether rows for stage (and class, for finals) may be written
func (s Stages) Permits(stage models.Stage, class models.FinalClass) bool {
	switch stage {
	case models.StageQualification:
		return s.Qualification
	case models.StageQuarterFinal:
		return s.QuarterFinal
	case models.StageSemiFinal:
		return s.SemiFinal
	case models.StageFinal:
		return slices.Contains(s.FinalClasses, class)
	}
	return false
}

// StagesFromOverride returns the override values verbatim
func StagesFromOverride(o models.StageOverride) Stages {
	return Stages{
		Qualification: o.Qualification,
		QuarterFinal:  o.QuarterFinal,
		SemiFinal:     o.SemiFinal,
		FinalClasses:  slices.Clone(o.FinalClasses),
	}
}

// SelectTier picks the rule with the highest MinRiders not above riderCount.
// When nothing matches it returns all stages disabled and a diagnostic.
func SelectTier(rules []models.StageRule, riderCount int) (Stages, string) {
	var best *models.StageRule
	for i := range rules {
		r := &rules[i]
		if r.MinRiders > riderCount {
			continue
		}
		if best == nil || r.MinRiders > best.MinRiders {
			best = r
		}
	}
	if best == nil {
		return Stages{}, fmt.Sprintf("%s for %d riders", WarnNoRuleMatched, riderCount)
	}
	return Stages{
		Qualification: best.EnableQualification,
		QuarterFinal:  best.EnableQuarterFinal,
		SemiFinal:     best.EnableSemiFinal,
		FinalClasses:  slices.Clone(best.FinalClasses),
	}, ""
}
