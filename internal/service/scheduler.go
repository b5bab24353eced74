package service

import (
	"sort"
	"sync"
	"time"

	"referral_contest/internal/model"
	"referral_contest/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type timer interface {
	Stop() bool
}

// Job is a pending single-shot callback registered with the Scheduler.
type Job struct {
	model.ReminderJob
	timer timer
}

// Scheduler runs time-deferred callbacks keyed by contest. Jobs live in memory
// only and are lost on restart.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[int64]map[uuid.UUID]*Job
	stopped bool

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer
}

func NewScheduler() *Scheduler {
	return newScheduler(time.Now, func(d time.Duration, f func()) timer {
		return time.AfterFunc(d, f)
	})
}

func newScheduler(now func() time.Time, afterFunc func(d time.Duration, f func()) timer) *Scheduler {
	return &Scheduler{
		jobs:      make(map[int64]map[uuid.UUID]*Job),
		now:       now,
		afterFunc: afterFunc,
	}
}

// ScheduleAt registers fn to run once at when. A time in the past fires
// immediately. It returns nil after Stop.
func (s *Scheduler) ScheduleAt(contestID int64, kind model.ReminderKind, when time.Time, fn func()) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}

	job := &Job{
		ReminderJob: model.ReminderJob{
			ID:        uuid.New(),
			ContestID: contestID,
			Kind:      kind,
			FireAt:    when,
		},
	}

	delay := when.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	if s.jobs[contestID] == nil {
		s.jobs[contestID] = make(map[uuid.UUID]*Job)
	}
	s.jobs[contestID][job.ID] = job

	job.timer = s.afterFunc(delay, func() {
		if !s.take(job) {
			return
		}

		logger.Logger().Debug("Running scheduled job",
			zap.Int64("contest_id", contestID),
			zap.String("kind", string(kind)),
		)
		fn()
	})

	return job
}

// take removes a due job. False means it was cancelled in the meantime.
func (s *Scheduler) take(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	return s.remove(job)
}

func (s *Scheduler) remove(job *Job) bool {
	byID, ok := s.jobs[job.ContestID]
	if !ok {
		return false
	}
	if _, ok := byID[job.ID]; !ok {
		return false
	}

	delete(byID, job.ID)
	if len(byID) == 0 {
		delete(s.jobs, job.ContestID)
	}
	return true
}

func (s *Scheduler) Cancel(job *Job) bool {
	if job == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remove(job) {
		return false
	}
	job.timer.Stop()
	return true
}

// CancelContest drops every pending job of the contest and returns how many
// were dropped.
func (s *Scheduler) CancelContest(contestID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.jobs[contestID]
	for _, job := range byID {
		job.timer.Stop()
	}
	delete(s.jobs, contestID)

	return len(byID)
}

// Pending lists the contest's jobs ordered by fire time.
func (s *Scheduler) Pending(contestID int64) []model.ReminderJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ReminderJob, 0, len(s.jobs[contestID]))
	for _, job := range s.jobs[contestID] {
		out = append(out, job.ReminderJob)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].FireAt.Before(out[j].FireAt)
	})

	return out
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for _, byID := range s.jobs {
		for _, job := range byID {
			job.timer.Stop()
		}
	}
	s.jobs = make(map[int64]map[uuid.UUID]*Job)
}
