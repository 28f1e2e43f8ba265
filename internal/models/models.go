package models

// Stage is one level of the elimination bracket
type Stage string

const (
	StageQualification Stage = "QUALIFICATION"
	StageQuarterFinal  Stage = "QUARTER_FINAL"
	StageSemiFinal     Stage = "SEMI_FINAL"
	StageFinal         Stage = "FINAL"
)

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	switch s {
	case StageQualification, StageQuarterFinal, StageSemiFinal, StageFinal:
		return true
	}
	return false
}

// FinalClass names a sub-bracket within the Final stage
type FinalClass string

const (
	FinalAcademy  FinalClass = "ACADEMY"
	FinalAmateur  FinalClass = "AMATEUR"
	FinalBeginner FinalClass = "BEGINNER"
	FinalPro      FinalClass = "PRO"
	FinalRookie   FinalClass = "ROOKIE"
	FinalElite    FinalClass = "ELITE"
	FinalNovice   FinalClass = "NOVICE"
)

// ResultStatus is a rider's outcome in a single heat
type ResultStatus string

const (
	ResultFinish ResultStatus = "FINISH"
	ResultDNF    ResultStatus = "DNF"
	ResultDNS    ResultStatus = "DNS"
)

// Valid reports whether s is a known result status
func (s ResultStatus) Valid() bool {
	return s == ResultFinish || s == ResultDNF || s == ResultDNS
}

// AggregateStatus is the status derived for a rider across a whole batch
type AggregateStatus string

const (
	StatusFinished AggregateStatus = "FINISHED"
	StatusDNF      AggregateStatus = "DNF"
	StatusDNS      AggregateStatus = "DNS"
	StatusDQ       AggregateStatus = "DQ"
)

// Category is a group of riders competing in one bracket
type Category struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Gender       string `json:"gender"` // "MALE", "FEMALE" or "MIX"
	BirthYearMin int    `json:"birth_year_min"`
	BirthYearMax int    `json:"birth_year_max"`
	// Override, when set, bypasses StageRule lookup entirely.
	Override *StageOverride `json:"override,omitempty"`
}

// StageOverride holds manually forced stage flags for a category
type StageOverride struct {
	Qualification bool         `json:"enable_qualification"`
	QuarterFinal  bool         `json:"enable_quarter_final"`
	SemiFinal     bool         `json:"enable_semi_final"`
	FinalClasses  []FinalClass `json:"final_classes"`
}

// Rider is a registered participant
type Rider struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Plate     string `json:"plate"`
	BirthYear int    `json:"birth_year"`
	Gender    string `json:"gender"`
	Absent    bool   `json:"absent"`
}

// Heat is one run from the start gate
type Heat struct {
	ID         int        `json:"id"`
	CategoryID int        `json:"category_id"`
	Name       string     `json:"name"`
	Ident      HeatIdent  `json:"ident"`
	Order      int        `json:"order"`
	Status     HeatStatus `json:"status"`
	Published  bool       `json:"published"`
}

// HeatIdent is the structured identity of a heat. Qualification heats carry
// Batch and Moto; elimination heats carry Number (QF/SF) or FinalClass.
type HeatIdent struct {
	Stage      Stage      `json:"stage"`
	Batch      int        `json:"batch,omitempty"`
	Moto       int        `json:"moto,omitempty"`
	Number     int        `json:"number,omitempty"`
	FinalClass FinalClass `json:"final_class,omitempty"`
}

// GateAssignment places a rider at a gate in a heat
type GateAssignment struct {
	HeatID  int `json:"heat_id"`
	RiderID int `json:"rider_id"`
	Gate    int `json:"gate"`
}

// RosterEntry is a rider registered to a heat. Gate is nil until assigned.
type RosterEntry struct {
	HeatID  int    `json:"heat_id"`
	RiderID int    `json:"rider_id"`
	Name    string `json:"name,omitempty"`
	Plate   string `json:"plate,omitempty"`
	Gate    *int   `json:"gate"`
}

// HeatResult is a rider's recorded outcome in one heat
type HeatResult struct {
	HeatID      int          `json:"heat_id"`
	RiderID     int          `json:"rider_id"`
	Status      ResultStatus `json:"status"`
	FinishOrder *int         `json:"finish_order"`
}

// Penalty is a points penalty against a rider in a heat
type Penalty struct {
	ID       int    `json:"id"`
	HeatID   int    `json:"heat_id"`
	RiderID  int    `json:"rider_id"`
	Points   int    `json:"points"`
	Reason   string `json:"reason"`
	Approved bool   `json:"approved"`
}

// StageRule is one rider-count tier of a category's stage configuration
type StageRule struct {
	ID                  int          `json:"id"`
	CategoryID          int          `json:"category_id"`
	MinRiders           int          `json:"min_riders"`
	EnableQualification bool         `json:"enable_qualification"`
	EnableQuarterFinal  bool         `json:"enable_quarter_final"`
	EnableSemiFinal     bool         `json:"enable_semi_final"`
	FinalClasses        []FinalClass `json:"final_classes"`
}

// StageResult is one rider's row for a stage they reached
type StageResult struct {
	CategoryID int        `json:"category_id"`
	RiderID    int        `json:"rider_id"`
	Stage      Stage      `json:"stage"`
	Batch      *int       `json:"batch,omitempty"`
	FinalClass FinalClass `json:"final_class,omitempty"`
	Position   *int       `json:"position"`
	Points     *int       `json:"points"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
