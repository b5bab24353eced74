package service

import (
	"testing"
	"time"

	"referral_contest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_ScheduleAt(t *testing.T) {
	clock := newFakeClock(testNow)
	s := newScheduler(clock.Now, clock.AfterFunc)

	var fired []model.ReminderKind
	s.ScheduleAt(1, model.ReminderTenMinutes, testNow.Add(50*time.Minute), func() {
		fired = append(fired, model.ReminderTenMinutes)
	})
	s.ScheduleAt(1, model.ReminderOneHour, testNow.Add(time.Hour), func() {
		fired = append(fired, model.ReminderOneHour)
	})

	pending := s.Pending(1)
	require.Len(t, pending, 2)
	assert.Equal(t, model.ReminderTenMinutes, pending[0].Kind)
	assert.Equal(t, model.ReminderOneHour, pending[1].Kind)
	assert.NotEqual(t, pending[0].ID, pending[1].ID)

	clock.Advance(55 * time.Minute)
	assert.Equal(t, []model.ReminderKind{model.ReminderTenMinutes}, fired)
	assert.Len(t, s.Pending(1), 1)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, []model.ReminderKind{model.ReminderTenMinutes, model.ReminderOneHour}, fired)
	assert.Empty(t, s.Pending(1))
}

func TestScheduler_PastTimeFiresImmediately(t *testing.T) {
	clock := newFakeClock(testNow)
	s := newScheduler(clock.Now, clock.AfterFunc)

	ran := false
	s.ScheduleAt(1, model.ReminderFinalize, testNow.Add(-time.Hour), func() { ran = true })

	clock.Advance(0)
	assert.True(t, ran)
}

func TestScheduler_Cancel(t *testing.T) {
	clock := newFakeClock(testNow)
	s := newScheduler(clock.Now, clock.AfterFunc)

	ran := false
	job := s.ScheduleAt(1, model.ReminderOneHour, testNow.Add(time.Minute), func() { ran = true })

	assert.True(t, s.Cancel(job))
	assert.False(t, s.Cancel(job))
	assert.False(t, s.Cancel(nil))

	clock.Advance(time.Hour)
	assert.False(t, ran)
}

func TestScheduler_CancelContest(t *testing.T) {
	clock := newFakeClock(testNow)
	s := newScheduler(clock.Now, clock.AfterFunc)

	var ran []int64
	for _, id := range []int64{1, 1, 1, 2} {
		s.ScheduleAt(id, model.ReminderFinalize, testNow.Add(time.Minute), func() { ran = append(ran, id) })
	}

	assert.Equal(t, 3, s.CancelContest(1))
	assert.Equal(t, 0, s.CancelContest(1))
	assert.Empty(t, s.Pending(1))
	assert.Len(t, s.Pending(2), 1)

	clock.Advance(time.Minute)
	assert.Equal(t, []int64{2}, ran)
}

func TestScheduler_Stop(t *testing.T) {
	clock := newFakeClock(testNow)
	s := newScheduler(clock.Now, clock.AfterFunc)

	ran := false
	s.ScheduleAt(1, model.ReminderOneHour, testNow.Add(time.Minute), func() { ran = true })
	s.Stop()

	assert.Nil(t, s.ScheduleAt(1, model.ReminderOneHour, testNow.Add(time.Minute), func() { ran = true }))

	clock.Advance(time.Hour)
	assert.False(t, ran)
	assert.Empty(t, s.Pending(1))
}
