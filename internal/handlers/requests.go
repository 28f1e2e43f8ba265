package handlers

import "github.com/abrezinsky/gaterace/internal/models"

// CategoryCreateRequest represents a request to create a category
type CategoryCreateRequest struct {
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	BirthYearMin int    `json:"birth_year_min"`
	BirthYearMax int    `json:"birth_year_max"`
}

// StageRuleCreateRequest represents a request to add a stage rule tier
type StageRuleCreateRequest struct {
	MinRiders           int                 `json:"min_riders"`
	EnableQualification bool                `json:"enable_qualification"`
	EnableQuarterFinal  bool                `json:"enable_quarter_final"`
	EnableSemiFinal     bool                `json:"enable_semi_final"`
	FinalClasses        []models.FinalClass `json:"final_classes"`
}

// RiderCreateRequest represents a request to register a rider
type RiderCreateRequest struct {
	Name      string `json:"name"`
	Plate     string `json:"plate"`
	BirthYear int    `json:"birth_year"`
	Gender    string `json:"gender"`
}

// RiderAbsentRequest represents a request to flag or unflag a rider as absent
type RiderAbsentRequest struct {
	Absent bool `json:"absent"`
}

// BatchCreateRequest represents a request to split riders into batches
type BatchCreateRequest struct {
	RiderIDs  []int `json:"rider_ids"`
	BatchSize int   `json:"batch_size"`
}

// ResultEntryRequest is one rider's result in a submission
type ResultEntryRequest struct {
	RiderID     int    `json:"rider_id"`
	Status      string `json:"status"`
	FinishOrder *int   `json:"finish_order"`
}

// ResultsSubmitRequest represents a request to record heat results
type ResultsSubmitRequest struct {
	Results []ResultEntryRequest `json:"results"`
}

// HeatStatusRequest represents an operator status change
type HeatStatusRequest struct {
	Status string `json:"status"`
}

// HeatPublishedRequest represents a request to toggle a heat's published flag
type HeatPublishedRequest struct {
	Published bool `json:"published"`
}

// PenaltyCreateRequest represents a request to record a penalty
type PenaltyCreateRequest struct {
	RiderID int    `json:"rider_id"`
	Points  int    `json:"points"`
	Reason  string `json:"reason"`
}

// BaseURLRequest represents a request to set the public base URL
type BaseURLRequest struct {
	BaseURL string `json:"base_url"`
}
