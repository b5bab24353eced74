package model

import "time"

const UnknownUsername = "unknown"

type User struct {
	TelegramID          int64
	Username            string
	FullName            string
	Points              int
	SuccessfulReferrals int
	FailedReferrals     int
	ReferredBy          *int64
	Banned              bool
	JoinCount           int
	LastJoinTime        *time.Time
	HasVerified         bool
	CreatedAt           time.Time
}

// DisplayHandle returns "@username", or fallback when the handle is unknown.
func (u *User) DisplayHandle(fallback string) string {
	if u.Username == "" || u.Username == UnknownUsername {
		return fallback
	}
	return "@" + u.Username
}

type Profile struct {
	User           *User
	LeaderScore    int
	Percentage     float64
	NextCompetitor *User
	Gap            int
}

type Statistics struct {
	TotalUsers    int
	BannedUsers   int
	TotalPoints   int
	TotalContests int
}

// Verification is the outcome of a user's first-time verification attempt.
// PaidReferrerID is set only when a referrer was actually credited.
type Verification struct {
	FirstTime      bool
	PaidReferrerID *int64
}
