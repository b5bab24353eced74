package model

import "time"

type ContestStatus string

const (
	ContestActive    ContestStatus = "active"
	ContestPostponed ContestStatus = "postponed"
	ContestCancelled ContestStatus = "cancelled"
	ContestFinished  ContestStatus = "finished"
)

var contestTransitions = map[ContestStatus][]ContestStatus{
	ContestActive:    {ContestPostponed, ContestCancelled, ContestFinished},
	ContestPostponed: {ContestActive, ContestFinished},
}

func (s ContestStatus) IsValid() bool {
	switch s {
	case ContestActive, ContestPostponed, ContestCancelled, ContestFinished:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a contest in status s may move to next.
// Cancelled and finished are terminal.
func (s ContestStatus) CanTransition(next ContestStatus) bool {
	for _, allowed := range contestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type DurationUnit string

const (
	UnitHours DurationUnit = "hours"
	UnitDays  DurationUnit = "days"
)

func (u DurationUnit) Duration(value int) (time.Duration, bool) {
	switch u {
	case UnitHours:
		return time.Duration(value) * time.Hour, true
	case UnitDays:
		return time.Duration(value) * 24 * time.Hour, true
	default:
		return 0, false
	}
}

type Contest struct {
	ID           int64
	Title        string
	Description  string
	EndTime      time.Time
	Status       ContestStatus
	WinnerCount  int
	WinnerIDs    []int64
	WinnerPoints []int64
	FinishedAt   *time.Time
	CreatedAt    time.Time
}

type Winner struct {
	Rank       int
	TelegramID int64
	Username   string
	FullName   string
	Points     int
}
