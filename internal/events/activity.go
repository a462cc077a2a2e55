// Package events defines the payloads published to Kafka.
package events

import "time"

// EventActivityLogged is the outbox event type for a newly logged workout.
const EventActivityLogged = "activity.logged"

// ActivityLogged is emitted when a user logs a workout.
type ActivityLogged struct {
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	PerformedAt  time.Time `json:"performed_at"`
	DurationMin  int       `json:"duration_min"`
	Calories     int       `json:"calories"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
}

// TopicActivityLogged is the Kafka topic carrying ActivityLogged events.
const TopicActivityLogged = "activity_logged"
