package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventReferralAwarded    EventType = "referral.awarded"
	EventUserBanned         EventType = "user.banned"
	EventPointsReset        EventType = "points.reset"
	EventContestCreated     EventType = "contest.created"
	EventContestPostponed   EventType = "contest.postponed"
	EventContestResumed     EventType = "contest.resumed"
	EventContestCancelled   EventType = "contest.cancelled"
	EventContestDeleted     EventType = "contest.deleted"
	EventContestFinished    EventType = "contest.finished"
	EventBroadcastCompleted EventType = "broadcast.completed"
)

type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func NewEvent(t EventType, at time.Time, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}
