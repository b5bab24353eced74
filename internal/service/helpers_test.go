package service

import (
	"sort"
	"sync"
	"testing"
	"time"

	"referral_contest/internal/service/mocks"

	"github.com/stretchr/testify/mock"
)

type fakeTimer struct {
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock drives scheduler timers by hand. Due callbacks run synchronously
// inside Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.fn()
	}
}

type fixture struct {
	clock     *fakeClock
	users     *mocks.MockUserRepository
	cheats    *mocks.MockCheatRepository
	contests  *mocks.MockContestRepository
	messenger *mocks.MockMessenger
	events    *mocks.MockEventPublisher

	scheduler  *Scheduler
	dispatcher *Dispatcher
	antiCheat  *AntiCheatService
	ledger     *LedgerService
	contest    *ContestService
}

var (
	testNow   = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	testAdmin = int64(900)
)

// newFixture wires every service against mocks. Event publishing and message
// sending succeed unless a test registers its own expectation first.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:     newFakeClock(testNow),
		users:     &mocks.MockUserRepository{},
		cheats:    &mocks.MockCheatRepository{},
		contests:  &mocks.MockContestRepository{},
		messenger: &mocks.MockMessenger{},
		events:    &mocks.MockEventPublisher{},
	}

	f.scheduler = newScheduler(f.clock.Now, f.clock.AfterFunc)

	f.dispatcher = NewDispatcher(f.users, f.messenger, f.events)
	f.dispatcher.now = f.clock.Now

	f.antiCheat = NewAntiCheatService(f.users, f.cheats, f.dispatcher, f.events, AntiCheatConfig{
		MaxJoinAttempts: 2,
		AdminIDs:        []int64{testAdmin},
	})
	f.antiCheat.now = f.clock.Now

	f.ledger = NewLedgerService(f.users, f.antiCheat, f.messenger, f.dispatcher, f.events, LedgerConfig{
		PointsPerReferral: 5,
		BotUsername:       "@contest_bot",
	})
	f.ledger.now = f.clock.Now

	f.contest = NewContestService(f.contests, f.users, f.ledger, f.dispatcher, f.scheduler, f.events, []int64{testAdmin})
	f.contest.now = f.clock.Now

	return f
}

func (f *fixture) allowPublishing() {
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *fixture) allowSending() {
	f.messenger.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *fixture) recipients(ids ...int64) {
	f.users.On("GetRecipientIDs", mock.Anything, mock.Anything).Return(ids, nil).Maybe()
}

func int64Ptr(v int64) *int64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
