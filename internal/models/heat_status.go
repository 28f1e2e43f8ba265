package models

import "fmt"

// HeatStatus is the lifecycle state of a heat
type HeatStatus int

const (
	HeatUpcoming HeatStatus = iota
	HeatLive
	HeatProvisional
	HeatProtestReview
	HeatLocked
)

var heatStatusNames = [...]string{
	HeatUpcoming:      "UPCOMING",
	HeatLive:          "LIVE",
	HeatProvisional:   "PROVISIONAL",
	HeatProtestReview: "PROTEST_REVIEW",
	HeatLocked:        "LOCKED",
}

func (s HeatStatus) String() string {
	if s < 0 || int(s) >= len(heatStatusNames) {
		return fmt.Sprintf("HeatStatus(%d)", int(s))
	}
	return heatStatusNames[s]
}

// ParseHeatStatus converts a status name to a HeatStatus
func ParseHeatStatus(name string) (HeatStatus, error) {
	for i, n := range heatStatusNames {
		if n == name {
			return HeatStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown heat status %q", name)
}

// MarshalText encodes the status by name
func (s HeatStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *HeatStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseHeatStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
