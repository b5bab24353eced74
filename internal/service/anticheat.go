package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/repository"
	"referral_contest/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultMaxJoinAttempts = 2
	DefaultCheatLogLimit   = 20
	RejoinWindow           = 24 * time.Hour
)

// JoinDecision is the verdict on one successful channel verification.
type JoinDecision struct {
	Allow        bool
	BanNow       bool
	JoinCount    int
	LastJoinTime time.Time
}

// EdgeDecision is the verdict on a referral link used at /start. Referrer is
// nil when the edge must not be stored.
type EdgeDecision struct {
	Referrer     *int64
	SelfReferral bool
	MutualCheat  bool
}

type AntiCheatConfig struct {
	MaxJoinAttempts int
	AdminIDs        []int64
}

type AntiCheatService struct {
	users      UserRepository
	cheats     CheatRepository
	dispatcher *Dispatcher
	events     EventPublisher

	maxJoinAttempts int
	adminIDs        []int64
	now             func() time.Time
}

func NewAntiCheatService(users UserRepository, cheats CheatRepository, dispatcher *Dispatcher, events EventPublisher, cfg AntiCheatConfig) *AntiCheatService {
	maxJoinAttempts := cfg.MaxJoinAttempts
	if maxJoinAttempts <= 0 {
		maxJoinAttempts = DefaultMaxJoinAttempts
	}

	return &AntiCheatService{
		users:           users,
		cheats:          cheats,
		dispatcher:      dispatcher,
		events:          events,
		maxJoinAttempts: maxJoinAttempts,
		adminIDs:        cfg.AdminIDs,
		now:             time.Now,
	}
}

// EvaluateJoin counts a verification against the rejoin window. Joins less
// than RejoinWindow apart accumulate, otherwise the counter restarts at 1.
func (s *AntiCheatService) EvaluateJoin(user *model.User, now time.Time) JoinDecision {
	if user.Banned {
		return JoinDecision{JoinCount: user.JoinCount}
	}

	decision := JoinDecision{
		Allow:        true,
		JoinCount:    1,
		LastJoinTime: now,
	}

	if user.LastJoinTime != nil && now.Sub(*user.LastJoinTime) < RejoinWindow {
		decision.JoinCount = user.JoinCount + 1
		if decision.JoinCount > s.maxJoinAttempts {
			decision.Allow = false
			decision.BanNow = true
		}
	}

	return decision
}

// ApplyJoin evaluates the join and stores the result. A ban is stored together
// with its cheat log entry.
func (s *AntiCheatService) ApplyJoin(ctx context.Context, user *model.User) (JoinDecision, error) {
	decision := s.EvaluateJoin(user, s.now())
	if !decision.Allow && !decision.BanNow {
		return decision, nil
	}

	if decision.BanNow {
		err := s.cheats.BanForRejoinAbuse(ctx, user.TelegramID, decision.JoinCount, decision.LastJoinTime)
		if err != nil {
			return decision, fmt.Errorf("failed to ban for rejoin abuse: %w", err)
		}

		logger.Logger().Warn("User banned for rejoin abuse",
			zap.Int64("telegram_id", user.TelegramID),
			zap.Int("join_count", decision.JoinCount),
		)
		publish(ctx, s.events, model.EventUserBanned, decision.LastJoinTime, map[string]any{
			"telegram_id": user.TelegramID,
			"reason":      string(model.CheatRejoinAbuse),
		})

		return decision, nil
	}

	err := s.cheats.SaveJoinAttempt(ctx, user.TelegramID, decision.JoinCount, decision.LastJoinTime)
	if err != nil {
		return decision, fmt.Errorf("failed to save join attempt: %w", err)
	}

	return decision, nil
}

// EvaluateReferralEdge decides whether refID may become userID's referrer. It
// does not change any state.
func (s *AntiCheatService) EvaluateReferralEdge(ctx context.Context, userID, refID int64) (EdgeDecision, error) {
	if refID == userID {
		return EdgeDecision{SelfReferral: true}, nil
	}

	_, err := s.users.GetUserByTelegramID(ctx, refID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return EdgeDecision{}, nil
		}
		return EdgeDecision{}, fmt.Errorf("failed to get referrer: %w", err)
	}

	mutual, err := s.cheats.IsReferredBy(ctx, refID, userID)
	if err != nil {
		return EdgeDecision{}, err
	}
	if mutual {
		return EdgeDecision{MutualCheat: true}, nil
	}

	return EdgeDecision{Referrer: &refID}, nil
}

// PunishMutualReferral bans both accounts of a mutual referral pair, tells
// them why and alerts the admins.
func (s *AntiCheatService) PunishMutualReferral(ctx context.Context, userID, refID int64) error {
	now := s.now()

	if err := s.cheats.BanPair(ctx, userID, refID, model.CheatMutualReferral, now); err != nil {
		return fmt.Errorf("failed to ban mutual referral pair: %w", err)
	}

	logger.Logger().Warn("Mutual referral detected",
		zap.Int64("telegram_id", userID),
		zap.Int64("referrer_id", refID),
	)

	text := pick(mutualCheatMessages)
	s.dispatcher.SendTo(ctx, []int64{userID, refID}, text, nil)
	s.dispatcher.SendTo(ctx, s.adminIDs, fmt.Sprintf(msgMutualAdminAlert, userID, refID), nil)

	for _, id := range []int64{userID, refID} {
		publish(ctx, s.events, model.EventUserBanned, now, map[string]any{
			"telegram_id": id,
			"reason":      string(model.CheatMutualReferral),
		})
	}

	return nil
}

// CheatLogs returns the most recent detections, newest first.
func (s *AntiCheatService) CheatLogs(ctx context.Context, limit int) ([]*model.CheatLog, error) {
	if limit <= 0 {
		limit = DefaultCheatLogLimit
	}

	logs, err := s.cheats.GetCheatLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get cheat logs: %w", err)
	}
	return logs, nil
}

// RejoinBanMessage is the text shown to a user banned for rejoin abuse.
func RejoinBanMessage() string {
	return pick(rejoinCheatMessages)
}

func pick(messages []string) string {
	return messages[rand.IntN(len(messages))]
}
