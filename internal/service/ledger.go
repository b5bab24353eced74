package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/repository"
	"referral_contest/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultPointsPerReferral = 5
	DefaultLeaderboardLimit  = 100
	progressBarCells         = 10
)

type LedgerConfig struct {
	PointsPerReferral int
	BotUsername       string
}

type StartRequest struct {
	UserID     int64
	Username   string
	FullName   string
	ReferrerID *int64
}

type StartResult struct {
	User         *model.User
	Created      bool
	Banned       bool
	SelfReferral bool
	MutualCheat  bool
	IsMember     bool
}

type VerifyOutcome string

const (
	VerifyBanned       VerifyOutcome = "banned"
	VerifyNotMember    VerifyOutcome = "not_member"
	VerifyRejoinBanned VerifyOutcome = "rejoin_banned"
	VerifyOK           VerifyOutcome = "verified"
)

type VerifyResult struct {
	Outcome        VerifyOutcome
	FirstTime      bool
	PaidReferrerID *int64
}

// LedgerService owns point accrual. Every ledger write goes through mu so
// scheduler callbacks and update handlers never interleave mutations.
type LedgerService struct {
	mu sync.Mutex

	users      UserRepository
	antiCheat  *AntiCheatService
	messenger  Messenger
	dispatcher *Dispatcher
	events     EventPublisher

	pointsPerReferral int
	botUsername       string
	now               func() time.Time
}

func NewLedgerService(users UserRepository, antiCheat *AntiCheatService, messenger Messenger, dispatcher *Dispatcher, events EventPublisher, cfg LedgerConfig) *LedgerService {
	points := cfg.PointsPerReferral
	if points <= 0 {
		points = DefaultPointsPerReferral
	}

	return &LedgerService{
		users:             users,
		antiCheat:         antiCheat,
		messenger:         messenger,
		dispatcher:        dispatcher,
		events:            events,
		pointsPerReferral: points,
		botUsername:       strings.TrimPrefix(cfg.BotUsername, "@"),
		now:               time.Now,
	}
}

func (s *LedgerService) exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Start registers the user on first contact. The referral edge is checked
// before the row is written; a rejected edge is never stored.
func (s *LedgerService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	result := &StartResult{}

	existing, err := s.users.GetUserByTelegramID(ctx, req.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil && existing.Banned {
		result.User = existing
		result.Banned = true
		return result, nil
	}

	var edge EdgeDecision
	if req.ReferrerID != nil {
		edge, err = s.antiCheat.EvaluateReferralEdge(ctx, req.UserID, *req.ReferrerID)
		if err != nil {
			return nil, err
		}
		result.SelfReferral = edge.SelfReferral
		result.MutualCheat = edge.MutualCheat
	}

	err = s.exclusive(func() error {
		user := &model.User{
			TelegramID: req.UserID,
			Username:   req.Username,
			FullName:   req.FullName,
			ReferredBy: edge.Referrer,
		}

		created, err := s.users.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		result.Created = created

		if edge.MutualCheat {
			return s.antiCheat.PunishMutualReferral(ctx, req.UserID, *req.ReferrerID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if result.Created {
		logger.Logger().Info("User registered",
			zap.Int64("telegram_id", req.UserID),
			zap.Bool("referred", edge.Referrer != nil),
		)
	}

	if result.MutualCheat {
		result.Banned = true
		return result, nil
	}

	user, err := s.users.GetUserByTelegramID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	result.User = user
	result.IsMember = s.isMember(ctx, req.UserID)

	return result, nil
}

// Verify runs the channel verification of a user. The first successful
// verification pays the referrer; repeated ones only feed the rejoin counter.
func (s *LedgerService) Verify(ctx context.Context, userID int64) (*VerifyResult, error) {
	user, err := s.users.GetUserByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Banned {
		return &VerifyResult{Outcome: VerifyBanned}, nil
	}

	if !s.isMember(ctx, userID) {
		return &VerifyResult{Outcome: VerifyNotMember}, nil
	}

	result := &VerifyResult{}
	err = s.exclusive(func() error {
		// The join counter is read again under the lock.
		current, err := s.users.GetUserByTelegramID(ctx, userID)
		if err != nil {
			return err
		}
		if current.Banned {
			result.Outcome = VerifyBanned
			return nil
		}

		decision, err := s.antiCheat.ApplyJoin(ctx, current)
		if err != nil {
			return err
		}
		if decision.BanNow {
			result.Outcome = VerifyRejoinBanned
			return nil
		}

		verification, err := s.users.CompleteVerification(ctx, userID, s.pointsPerReferral)
		if err != nil {
			return err
		}

		result.Outcome = VerifyOK
		result.FirstTime = verification.FirstTime
		result.PaidReferrerID = verification.PaidReferrerID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}

	if result.PaidReferrerID != nil {
		s.notifyReferrer(ctx, userID, *result.PaidReferrerID)
	}

	return result, nil
}

func (s *LedgerService) notifyReferrer(ctx context.Context, userID, referrerID int64) {
	referrer, err := s.users.GetUserByTelegramID(ctx, referrerID)
	if err != nil {
		logger.Logger().Warn("Failed to load referrer for notification",
			zap.Int64("referrer_id", referrerID),
			zap.Error(err),
		)
		return
	}

	logger.Logger().Info("Referral awarded",
		zap.Int64("telegram_id", userID),
		zap.Int64("referrer_id", referrerID),
		zap.Int("points", referrer.Points),
	)

	s.dispatcher.Notify(ctx, referrerID, fmt.Sprintf(msgReferralJoined, referrer.Points), nil)
	publish(ctx, s.events, model.EventReferralAwarded, s.now(), map[string]any{
		"telegram_id": userID,
		"referrer_id": referrerID,
		"points":      referrer.Points,
		"awarded":     s.pointsPerReferral,
	})
}

func (s *LedgerService) isMember(ctx context.Context, userID int64) bool {
	member, err := s.messenger.IsChannelMember(ctx, userID)
	if err != nil {
		logger.Logger().Warn("Channel membership check failed",
			zap.Int64("telegram_id", userID),
			zap.Error(err),
		)
		return false
	}
	return member
}

// ResetAllPoints zeroes points and referral counters of every user.
func (s *LedgerService) ResetAllPoints(ctx context.Context) error {
	err := s.exclusive(func() error {
		return s.users.ResetAllPoints(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to reset points: %w", err)
	}
	return nil
}

// LeaderScore is the best score among non-banned users, never below 1.
func (s *LedgerService) LeaderScore(ctx context.Context) (int, error) {
	points, err := s.users.GetMaxPoints(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get leader score: %w", err)
	}
	if points < 1 {
		return 1, nil
	}
	return points, nil
}

func (s *LedgerService) RankedWinners(ctx context.Context, n int) ([]model.Winner, error) {
	users, err := s.users.GetTopUsers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to rank users: %w", err)
	}

	winners := make([]model.Winner, len(users))
	for i, u := range users {
		winners[i] = model.Winner{
			Rank:       i + 1,
			TelegramID: u.TelegramID,
			Username:   u.Username,
			FullName:   u.FullName,
			Points:     u.Points,
		}
	}
	return winners, nil
}

func (s *LedgerService) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	if limit <= 0 || limit > DefaultLeaderboardLimit {
		limit = DefaultLeaderboardLimit
	}

	users, err := s.users.GetTopUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	return users, nil
}

func (s *LedgerService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *LedgerService) Profile(ctx context.Context, userID int64) (*model.Profile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	leader, err := s.LeaderScore(ctx)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		User:        user,
		LeaderScore: leader,
		Percentage:  Percentage(user.Points, leader),
	}

	next, err := s.users.GetNextCompetitor(ctx, userID, user.Points)
	switch {
	case err == nil:
		profile.NextCompetitor = next
		profile.Gap = next.Points - user.Points
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to get next competitor: %w", err)
	}

	return profile, nil
}

// ReferralLink is the deep link that credits userID as referrer.
func (s *LedgerService) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", s.botUsername, userID)
}

func (s *LedgerService) PointsPerReferral() int {
	return s.pointsPerReferral
}

// Percentage is points relative to the leader, capped at 100.
func Percentage(points, leaderScore int) float64 {
	if leaderScore < 1 {
		leaderScore = 1
	}
	return math.Min(100, float64(points)/float64(leaderScore)*100)
}

// ProgressBar renders a percentage as ten filled or empty cells.
func ProgressBar(percentage float64) string {
	filled := int(percentage / 100 * progressBarCells)
	if filled < 0 {
		filled = 0
	}
	if filled > progressBarCells {
		filled = progressBarCells
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", progressBarCells-filled)
}
