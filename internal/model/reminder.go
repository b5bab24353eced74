package model

import (
	"time"

	"github.com/google/uuid"
)

type ReminderKind string

const (
	ReminderOneHour    ReminderKind = "one_hour"
	ReminderTenMinutes ReminderKind = "ten_minutes"
	ReminderFinalize   ReminderKind = "finalize"
)

// Lead is how long before the contest end_time the job fires.
func (k ReminderKind) Lead() time.Duration {
	switch k {
	case ReminderOneHour:
		return time.Hour
	case ReminderTenMinutes:
		return 10 * time.Minute
	default:
		return 0
	}
}

type ReminderJob struct {
	ID        uuid.UUID
	ContestID int64
	Kind      ReminderKind
	FireAt    time.Time
}
