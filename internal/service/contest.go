package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/repository"
	"referral_contest/pkg/logger"

	"go.uber.org/zap"
)

// jobTimeout bounds a scheduler callback, which may broadcast to every user.
const jobTimeout = 10 * time.Minute

type CreateContestRequest struct {
	Title         string
	Description   string
	DurationValue int
	DurationUnit  model.DurationUnit
	WinnerCount   int
}

type ContestService struct {
	mu sync.Mutex

	repo       ContestRepository
	users      UserRepository
	ledger     *LedgerService
	dispatcher *Dispatcher
	scheduler  *Scheduler
	events     EventPublisher

	adminIDs []int64
	now      func() time.Time
}

func NewContestService(repo ContestRepository, users UserRepository, ledger *LedgerService, dispatcher *Dispatcher, scheduler *Scheduler, events EventPublisher, adminIDs []int64) *ContestService {
	return &ContestService{
		repo:       repo,
		users:      users,
		ledger:     ledger,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		events:     events,
		adminIDs:   adminIDs,
		now:        time.Now,
	}
}

func validateDuration(value int, unit model.DurationUnit) (time.Duration, error) {
	if value <= 0 {
		return 0, ErrInvalidDuration
	}
	d, ok := unit.Duration(value)
	if !ok {
		return 0, ErrInvalidDurationUnit
	}
	return d, nil
}

// Create opens a new round. All points are reset in the same transaction
// that stores the contest.
func (s *ContestService) Create(ctx context.Context, req CreateContestRequest) (*model.Contest, error) {
	d, err := validateDuration(req.DurationValue, req.DurationUnit)
	if err != nil {
		return nil, err
	}
	if req.WinnerCount <= 0 {
		return nil, ErrInvalidWinnerCount
	}

	now := s.now()
	contest := &model.Contest{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		EndTime:     now.Add(d),
		WinnerCount: req.WinnerCount,
	}
	if contest.Title == "" {
		contest.Title = fmt.Sprintf("Contest %s (%d %s)", now.Format("02/01"), req.DurationValue, req.DurationUnit)
	}

	s.mu.Lock()
	err = s.ledger.exclusive(func() error {
		return s.repo.CreateContestWithReset(ctx, contest)
	})
	if err == nil {
		s.schedule(contest)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create contest: %w", err)
	}

	logger.Logger().Info("Contest created",
		zap.Int64("contest_id", contest.ID),
		zap.Time("end_time", contest.EndTime),
		zap.Int("winner_count", contest.WinnerCount),
	)

	publish(ctx, s.events, model.EventPointsReset, now, nil)
	publish(ctx, s.events, model.EventContestCreated, now, contestPayload(contest))

	s.broadcast(ctx, msgPointsReset, nil)
	s.broadcast(ctx, msgContestStarted, model.ContestDetailsButton(contest.ID))

	return contest, nil
}

// Postpone moves an active contest's deadline by the given duration.
func (s *ContestService) Postpone(ctx context.Context, id int64, value int, unit model.DurationUnit) (*model.Contest, error) {
	d, err := validateDuration(value, unit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	contest, err := s.transition(ctx, id, model.ContestPostponed, func(c *model.Contest) *time.Time {
		end := c.EndTime.Add(d)
		return &end
	})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, model.EventContestPostponed, s.now(), contestPayload(contest))
	s.broadcast(ctx, fmt.Sprintf(msgContestPostponed, value, unit), nil)

	return contest, nil
}

// Resume reactivates a postponed contest. The deadline is kept.
func (s *ContestService) Resume(ctx context.Context, id int64) (*model.Contest, error) {
	s.mu.Lock()
	contest, err := s.transition(ctx, id, model.ContestActive, nil)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, model.EventContestResumed, s.now(), contestPayload(contest))
	s.broadcast(ctx, fmt.Sprintf(msgContestResumed, contest.EndTime.Format(EndTimeLayout)), nil)

	return contest, nil
}

// Cancel stops an active contest without telling the participants.
func (s *ContestService) Cancel(ctx context.Context, id int64) (*model.Contest, error) {
	s.mu.Lock()
	contest, err := s.transition(ctx, id, model.ContestCancelled, nil)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, model.EventContestCancelled, s.now(), contestPayload(contest))
	return contest, nil
}

// transition moves the contest to next and re-registers its jobs. Must be
// called with s.mu held.
func (s *ContestService) transition(ctx context.Context, id int64, next model.ContestStatus, endTime func(*model.Contest) *time.Time) (*model.Contest, error) {
	contest, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contest.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, contest.Status, next)
	}

	var newEnd *time.Time
	if endTime != nil {
		newEnd = endTime(contest)
	}

	err = s.repo.UpdateContest(ctx, id, []model.ContestStatus{contest.Status}, next, newEnd)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to update contest: %w", err)
	}

	from := contest.Status
	contest.Status = next
	if newEnd != nil {
		contest.EndTime = *newEnd
	}

	s.scheduler.CancelContest(id)
	if next == model.ContestActive || next == model.ContestPostponed {
		s.schedule(contest)
	}

	logger.Logger().Info("Contest status changed",
		zap.Int64("contest_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)

	return contest, nil
}

// Delete purges an active contest.
func (s *ContestService) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contest, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if contest.Status != model.ContestActive {
		return fmt.Errorf("%w: cannot delete a %s contest", ErrInvalidTransition, contest.Status)
	}

	if err := s.repo.DeleteContest(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("failed to delete contest: %w", err)
	}
	s.scheduler.CancelContest(id)

	logger.Logger().Info("Contest deleted", zap.Int64("contest_id", id))
	publish(ctx, s.events, model.EventContestDeleted, s.now(), contestPayload(contest))

	return nil
}

// ResetPoints is the manual admin reset outside of contest creation.
func (s *ContestService) ResetPoints(ctx context.Context) error {
	if err := s.ledger.ResetAllPoints(ctx); err != nil {
		return err
	}

	logger.Logger().Info("Points reset by admin")
	publish(ctx, s.events, model.EventPointsReset, s.now(), nil)
	s.broadcast(ctx, msgAdminPointsReset, nil)

	return nil
}

// Finalize finishes the contest and snapshots its winners. Calling it on a
// finished contest returns the stored snapshot.
func (s *ContestService) Finalize(ctx context.Context, id int64) (*model.Contest, []model.Winner, error) {
	return s.finish(ctx, id, false)
}

// finish finalizes the contest under s.mu. With activeOnly set, a contest
// that is not active when the lock is taken is left alone and finish
// returns a nil contest.
func (s *ContestService) finish(ctx context.Context, id int64, activeOnly bool) (*model.Contest, []model.Winner, error) {
	s.mu.Lock()
	contest, finished, err := s.finalize(ctx, id, activeOnly)
	s.mu.Unlock()
	if err != nil || contest == nil {
		return nil, nil, err
	}

	winners, err := s.winners(ctx, contest)
	if err != nil {
		return nil, nil, err
	}

	if finished {
		logger.Logger().Info("Contest finished",
			zap.Int64("contest_id", id),
			zap.Int("winners", len(winners)),
		)
		payload := contestPayload(contest)
		payload["winner_ids"] = contest.WinnerIDs
		publish(ctx, s.events, model.EventContestFinished, s.now(), payload)
	}

	return contest, winners, nil
}

func (s *ContestService) finalize(ctx context.Context, id int64, activeOnly bool) (*model.Contest, bool, error) {
	contest, err := s.get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if activeOnly && contest.Status != model.ContestActive {
		return nil, false, nil
	}
	if contest.Status == model.ContestFinished {
		return contest, false, nil
	}
	if !contest.Status.CanTransition(model.ContestFinished) {
		return nil, false, fmt.Errorf("%w: cannot finish a %s contest", ErrInvalidTransition, contest.Status)
	}

	err = s.ledger.exclusive(func() error {
		contest, err = s.repo.FinishContest(ctx, id, s.now())
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, false, ErrInvalidTransition
		}
		return nil, false, fmt.Errorf("failed to finish contest: %w", err)
	}
	s.scheduler.CancelContest(id)

	return contest, true, nil
}

func (s *ContestService) Winners(ctx context.Context, id int64) ([]model.Winner, error) {
	_, winners, err := s.Finalize(ctx, id)
	return winners, err
}

// FinalizeLatest finalizes the most recently created contest.
func (s *ContestService) FinalizeLatest(ctx context.Context) (*model.Contest, []model.Winner, error) {
	latest, err := s.repo.GetLatestContest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrContestNotFound
		}
		return nil, nil, fmt.Errorf("failed to get latest contest: %w", err)
	}
	return s.Finalize(ctx, latest.ID)
}

// winners joins the stored snapshot with the current user names. The points
// are the ones frozen at finalization.
func (s *ContestService) winners(ctx context.Context, contest *model.Contest) ([]model.Winner, error) {
	users, err := s.users.GetUsersByIDs(ctx, contest.WinnerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load winners: %w", err)
	}

	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.TelegramID] = u
	}

	winners := make([]model.Winner, 0, len(contest.WinnerIDs))
	for i, id := range contest.WinnerIDs {
		w := model.Winner{
			Rank:       i + 1,
			TelegramID: id,
			Username:   model.UnknownUsername,
			FullName:   model.UnknownUsername,
		}
		if i < len(contest.WinnerPoints) {
			w.Points = int(contest.WinnerPoints[i])
		}
		if u, ok := byID[id]; ok {
			w.Username = u.Username
			w.FullName = u.FullName
		}
		winners = append(winners, w)
	}

	return winners, nil
}

// NotifyWinners congratulates the winners of a finished contest and sends
// the winners list to everybody else.
func (s *ContestService) NotifyWinners(ctx context.Context, id int64) ([]model.Delivery, error) {
	contest, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestFinished {
		return nil, fmt.Errorf("%w: contest is %s", ErrInvalidTransition, contest.Status)
	}

	winners, err := s.winners(ctx, contest)
	if err != nil {
		return nil, err
	}

	deliveries := s.dispatcher.SendTo(ctx, contest.WinnerIDs, msgWinnerCongrats, nil)

	others, err := s.dispatcher.BroadcastExcept(ctx, contest.WinnerIDs, WinnersText(contest.Title, winners), nil)
	if err != nil {
		return deliveries, err
	}

	return append(deliveries, others...), nil
}

// WinnersText lists winners by handle, falling back to the full name.
func WinnersText(title string, winners []model.Winner) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgWinnersHeader, title)
	for _, w := range winners {
		u := model.User{Username: w.Username}
		fmt.Fprintf(&b, "%d. %s\n", w.Rank, u.DisplayHandle(w.FullName))
	}
	return b.String()
}

func (s *ContestService) AnnounceEnded(ctx context.Context) ([]model.Delivery, error) {
	return s.dispatcher.Broadcast(ctx, msgContestEnded, nil)
}

func (s *ContestService) ListByStatus(ctx context.Context, status model.ContestStatus) ([]*model.Contest, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown contest status %q", status)
	}

	contests, err := s.repo.ListContestsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	return contests, nil
}

func (s *ContestService) Active(ctx context.Context) ([]*model.Contest, error) {
	return s.ListByStatus(ctx, model.ContestActive)
}

func (s *ContestService) Get(ctx context.Context, id int64) (*model.Contest, error) {
	return s.get(ctx, id)
}

func (s *ContestService) get(ctx context.Context, id int64) (*model.Contest, error) {
	contest, err := s.repo.GetContestByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return contest, nil
}

func (s *ContestService) Statistics(ctx context.Context) (*model.Statistics, error) {
	stats, err := s.repo.GetStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return stats, nil
}

// RestoreSchedules re-registers the jobs of every active and postponed
// contest. Jobs are kept in memory, so this runs once at startup. Deadlines
// that passed while the process was down fire immediately.
func (s *ContestService) RestoreSchedules(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, status := range []model.ContestStatus{model.ContestActive, model.ContestPostponed} {
		contests, err := s.repo.ListContestsByStatus(ctx, status)
		if err != nil {
			return restored, fmt.Errorf("failed to list %s contests: %w", status, err)
		}
		for _, contest := range contests {
			s.scheduler.CancelContest(contest.ID)
			s.schedule(contest)
			restored++
		}
	}

	logger.Logger().Info("Contest schedules restored", zap.Int("contests", restored))
	return restored, nil
}

// PendingJobs lists the scheduled jobs of a contest.
func (s *ContestService) PendingJobs(id int64) []model.ReminderJob {
	return s.scheduler.Pending(id)
}

// schedule registers the reminders still in the future and the auto-finalize
// job at the deadline.
func (s *ContestService) schedule(contest *model.Contest) {
	now := s.now()
	id := contest.ID

	for _, kind := range []model.ReminderKind{model.ReminderOneHour, model.ReminderTenMinutes} {
		fireAt := contest.EndTime.Add(-kind.Lead())
		if !fireAt.After(now) {
			continue
		}
		s.scheduler.ScheduleAt(id, kind, fireAt, func() {
			s.remind(id, kind)
		})
	}

	s.scheduler.ScheduleAt(id, model.ReminderFinalize, contest.EndTime, func() {
		s.autoFinalize(id)
	})
}

func (s *ContestService) remind(id int64, kind model.ReminderKind) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	contest, err := s.get(ctx, id)
	if err != nil {
		logger.Logger().Warn("Reminder skipped", zap.Int64("contest_id", id), zap.Error(err))
		return
	}
	if contest.Status != model.ContestActive {
		return
	}

	text := msgOneHourLeft
	if kind == model.ReminderTenMinutes {
		text = msgTenMinutesLeft
	}
	s.broadcast(ctx, text, nil)
}

// autoFinalize finishes the contest at its deadline. The status check and the
// finish happen under one s.mu hold, so a contest postponed in the meantime
// is skipped.
func (s *ContestService) autoFinalize(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	contest, winners, err := s.finish(ctx, id, true)
	if err != nil {
		logger.Logger().Error("Failed to auto-finalize contest", zap.Int64("contest_id", id), zap.Error(err))
		return
	}
	if contest == nil {
		logger.Logger().Debug("Auto-finalize skipped, contest is not active", zap.Int64("contest_id", id))
		return
	}

	s.dispatcher.SendTo(ctx, s.adminIDs, fmt.Sprintf(msgAutoFinalized, contest.ID, contest.Title, len(winners)), nil)
}

func (s *ContestService) broadcast(ctx context.Context, text string, button *model.Button) {
	if _, err := s.dispatcher.Broadcast(ctx, text, button); err != nil {
		logger.Logger().Error("Broadcast failed", zap.Error(err))
	}
}

func contestPayload(c *model.Contest) map[string]any {
	return map[string]any{
		"contest_id": c.ID,
		"title":      c.Title,
		"status":     string(c.Status),
		"end_time":   c.EndTime.UTC(),
	}
}
