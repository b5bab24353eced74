package service

import (
	"context"
	"errors"
	"time"

	"referral_contest/internal/model"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrContestNotFound     = errors.New("contest not found")
	ErrInvalidDuration     = errors.New("duration must be a positive number")
	ErrInvalidDurationUnit = errors.New("duration unit must be hours or days")
	ErrInvalidWinnerCount  = errors.New("winner count must be a positive number")
	ErrInvalidTransition   = errors.New("contest status does not allow this action")
)

type Service struct {
	*LedgerService
	*ContestService
	*AntiCheatService
	*Dispatcher
}

func NewService(ledger *LedgerService, contests *ContestService, antiCheat *AntiCheatService, dispatcher *Dispatcher) *Service {
	return &Service{
		LedgerService:    ledger,
		ContestService:   contests,
		AntiCheatService: antiCheat,
		Dispatcher:       dispatcher,
	}
}

// Messenger is the chat transport the services talk through.
type Messenger interface {
	// IsChannelMember reports whether the user is subscribed to the required
	// channel. Callers treat an error as "not a member".
	IsChannelMember(ctx context.Context, userID int64) (bool, error)
	SendMessage(ctx context.Context, userID int64, text string, button *model.Button) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.Event) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (bool, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	CompleteVerification(ctx context.Context, telegramID int64, points int) (*model.Verification, error)
	ResetAllPoints(ctx context.Context) error
	GetMaxPoints(ctx context.Context) (int, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	GetNextCompetitor(ctx context.Context, telegramID int64, points int) (*model.User, error)
	GetRecipientIDs(ctx context.Context, exclude []int64) ([]int64, error)
}

type RecipientRepository interface {
	GetRecipientIDs(ctx context.Context, exclude []int64) ([]int64, error)
}

type CheatRepository interface {
	IsReferredBy(ctx context.Context, userID, referrerID int64) (bool, error)
	BanPair(ctx context.Context, first, second int64, cheat model.CheatType, at time.Time) error
	SaveJoinAttempt(ctx context.Context, telegramID int64, joinCount int, at time.Time) error
	BanForRejoinAbuse(ctx context.Context, telegramID int64, joinCount int, at time.Time) error
	GetCheatLogs(ctx context.Context, limit int) ([]*model.CheatLog, error)
}

type ContestRepository interface {
	CreateContestWithReset(ctx context.Context, contest *model.Contest) error
	GetContestByID(ctx context.Context, id int64) (*model.Contest, error)
	GetLatestContest(ctx context.Context) (*model.Contest, error)
	ListContestsByStatus(ctx context.Context, status model.ContestStatus) ([]*model.Contest, error)
	UpdateContest(ctx context.Context, id int64, from []model.ContestStatus, status model.ContestStatus, endTime *time.Time) error
	DeleteContest(ctx context.Context, id int64) error
	FinishContest(ctx context.Context, id int64, at time.Time) (*model.Contest, error)
	GetStatistics(ctx context.Context) (*model.Statistics, error)
}
