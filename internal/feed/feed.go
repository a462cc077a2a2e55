// Package feed turns activity records into display-ready entries for the
// dashboard's recent activity list.
package feed

import (
	"fmt"
	"strconv"
	"time"

	"example.com/dashboard/internal/domain"
)

// HighlightCalories marks activities burning more than this many calories.
const HighlightCalories = 300

var labels = map[domain.ActivityType]string{
	domain.ActivityRunning:       "Morning Run",
	domain.ActivityWalking:       "Walk",
	domain.ActivityCycling:       "Cycling",
	domain.ActivitySwimming:      "Swimming",
	domain.ActivityWeightlifting: "Weight Training",
	domain.ActivityYoga:          "Yoga Session",
	domain.ActivityOther:         "Workout",
}

var colors = map[domain.ActivityType]string{
	domain.ActivityRunning:       "red",
	domain.ActivityWalking:       "orange",
	domain.ActivityCycling:       "yellow",
	domain.ActivitySwimming:      "blue",
	domain.ActivityWeightlifting: "purple",
	domain.ActivityYoga:          "green",
	domain.ActivityOther:         "gray",
}

// Item is one rendered feed entry.
type Item struct {
	ID        string              `json:"id"`
	Type      domain.ActivityType `json:"type"`
	Label     string              `json:"label"`
	Color     string              `json:"color"`
	Stats     string              `json:"stats"`
	Highlight bool                `json:"highlight"`
	When      string              `json:"when"`
	Date      time.Time           `json:"date"`
}

// Build renders records relative to now, preserving order.
func Build(records []domain.ActivityRecord, now time.Time) []Item {
	items := make([]Item, 0, len(records))
	for _, record := range records {
		items = append(items, Item{
			ID:        record.ID,
			Type:      record.Type,
			Label:     Label(record.Type),
			Color:     Color(record.Type),
			Stats:     Stats(record),
			Highlight: record.Calories > HighlightCalories,
			When:      RelativeTime(record.Date, now),
			Date:      record.Date,
		})
	}
	return items
}

// Label returns the display name for an activity type.
func Label(t domain.ActivityType) string {
	if label, ok := labels[t]; ok {
		return label
	}
	return "Workout"
}

// Color returns the colour token for an activity type.
func Color(t domain.ActivityType) string {
	if color, ok := colors[t]; ok {
		return color
	}
	return "red"
}

// Stats prefers distance over duration.
func Stats(record domain.ActivityRecord) string {
	if record.DistanceKm != nil && *record.DistanceKm > 0 {
		return strconv.FormatFloat(*record.DistanceKm, 'f', -1, 64) + " km"
	}
	return fmt.Sprintf("%d min", record.DurationMin)
}

// RelativeTime renders how long ago at was, in whole hours or days.
func RelativeTime(at, now time.Time) string {
	hours := int(now.Sub(at) / time.Hour)
	switch {
	case hours < 1:
		return "Just now"
	case hours == 1:
		return "1 hour ago"
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := hours / 24
	if days == 1 {
		return "Yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}
