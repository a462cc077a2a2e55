package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActivityType enumerates the workout kinds a user can log.
type ActivityType string

const (
	ActivityRunning       ActivityType = "running"
	ActivityWalking       ActivityType = "walking"
	ActivityCycling       ActivityType = "cycling"
	ActivitySwimming      ActivityType = "swimming"
	ActivityWeightlifting ActivityType = "weightlifting"
	ActivityYoga          ActivityType = "yoga"
	ActivityOther         ActivityType = "other"
)

var knownActivityTypes = map[ActivityType]struct{}{
	ActivityRunning:       {},
	ActivityWalking:       {},
	ActivityCycling:       {},
	ActivitySwimming:      {},
	ActivityWeightlifting: {},
	ActivityYoga:          {},
	ActivityOther:         {},
}

// ParseActivityType normalises raw input into a known ActivityType.
func ParseActivityType(raw string) (ActivityType, error) {
	t := ActivityType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownActivityTypes[t]; !ok {
		return "", fmt.Errorf("unknown activity type %q", raw)
	}
	return t, nil
}

// ActivityRecord is one logged workout.
type ActivityRecord struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Type        ActivityType `json:"type"`
	Date        time.Time    `json:"date"`
	DurationMin int          `json:"duration"`
	Calories    int          `json:"calories"`
	DistanceKm  *float64     `json:"distance,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Validate checks the invariants enforced on every stored record.
func (a ActivityRecord) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return errors.New("user id is required")
	}
	if _, ok := knownActivityTypes[a.Type]; !ok {
		return fmt.Errorf("unknown activity type %q", a.Type)
	}
	if a.Date.IsZero() {
		return errors.New("date is required")
	}
	if a.DurationMin <= 0 {
		return errors.New("duration must be > 0")
	}
	if a.Calories < 0 {
		return errors.New("calories must be >= 0")
	}
	if a.DistanceKm != nil && *a.DistanceKm < 0 {
		return errors.New("distance must be >= 0")
	}
	return nil
}
