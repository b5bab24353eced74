package model

import "time"

type CheatType string

const (
	CheatMutualReferral CheatType = "mutual_referral"
	CheatRejoinAbuse    CheatType = "rejoin_abuse"
)

type CheatLog struct {
	ID           int64
	FirstUserID  int64
	SecondUserID *int64
	Type         CheatType
	DetectedAt   time.Time
}
