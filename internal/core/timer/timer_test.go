package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpace/internal/core/clock"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock *clock.Fake
	timer *Timer
}

// newHarness returns an enabled timer with limit and auto-reset checks on.
// configure runs before Enable.
func newHarness(t *testing.T, configure func(*Timer)) *harness {
	t.Helper()
	fake := clock.NewFake(testStart)
	timer := New("test", Options{TickInterval: time.Second, Clock: fake})
	timer.SetLimitEnabled(true)
	timer.SetAutoResetEnabled(true)
	if configure != nil {
		configure(timer)
	}
	timer.Enable()
	return &harness{clock: fake, timer: timer}
}

func (h *harness) tick(sample ActivityState) Info {
	h.clock.Advance(time.Second)
	return h.timer.Process(sample)
}

func (h *harness) run(n int, sample ActivityState) map[Event]int {
	events := make(map[Event]int)
	for i := 0; i < n; i++ {
		info := h.tick(sample)
		if info.Event != EventNone {
			events[info.Event]++
		}
	}
	return events
}

type stubMonitor struct {
	state ActivityState
}

func (monitor *stubMonitor) ActivityState() ActivityState {
	return monitor.state
}

func TestNew_Defaults(t *testing.T) {
	timer := New("micro", Options{})

	assert.Equal(t, "micro", timer.ID())
	assert.False(t, timer.IsEnabled())
	assert.Equal(t, StateInvalid, timer.State())
	assert.True(t, timer.ActivitySensitive())
	assert.Equal(t, InsensitiveFollowIdle, timer.InsensitiveMode())
	assert.Zero(t, timer.ElapsedTime())
	assert.Zero(t, timer.ElapsedIdleTime())
	assert.False(t, timer.HasActivityMonitor())
}

func TestProcess_DisabledIsNoop(t *testing.T) {
	fake := clock.NewFake(testStart)
	timer := New("micro", Options{Clock: fake})

	for i := 0; i < 5; i++ {
		fake.Advance(time.Second)
		info := timer.Process(ActivityActive)
		assert.Equal(t, Info{Enabled: false, Event: EventNone}, info)
	}
	assert.Equal(t, StateInvalid, timer.State())
}

func TestProcess_FirstTick(t *testing.T) {
	t.Run("active starts", func(t *testing.T) {
		h := newHarness(t, nil)
		info := h.tick(ActivityActive)
		assert.Equal(t, EventStarted, info.Event)
		assert.Equal(t, StateRunning, h.timer.State())
		assert.Equal(t, time.Second, info.ElapsedTime)
	})

	t.Run("idle stops silently", func(t *testing.T) {
		h := newHarness(t, nil)
		info := h.tick(ActivityIdle)
		assert.Equal(t, EventNone, info.Event)
		assert.Equal(t, StateStopped, h.timer.State())
		assert.Equal(t, StateInvalid, h.timer.PreviousState())
		assert.Equal(t, time.Second, info.IdleTime)
	})

	t.Run("unknown waits for a sample", func(t *testing.T) {
		h := newHarness(t, nil)
		events := h.run(3, ActivityUnknown)
		assert.Empty(t, events)
		assert.Equal(t, StateInvalid, h.timer.State())
		assert.Zero(t, h.timer.ElapsedIdleTime())

		info := h.tick(ActivityActive)
		assert.Equal(t, EventStarted, info.Event)
	})

	t.Run("frozen stops silently", func(t *testing.T) {
		h := newHarness(t, func(timer *Timer) { timer.FreezeTimer(true) })
		info := h.tick(ActivityActive)
		assert.Equal(t, EventNone, info.Event)
		assert.Equal(t, StateStopped, h.timer.State())
	})
}

func TestProcess_ActiveIdleAccounting(t *testing.T) {
	h := newHarness(t, nil)

	events := h.run(10, ActivityActive)
	assert.Equal(t, map[Event]int{EventStarted: 1}, events)
	assert.Equal(t, 10*time.Second, h.timer.ElapsedTime())

	info := h.tick(ActivityIdle)
	assert.Equal(t, EventStopped, info.Event)
	assert.Equal(t, StateStopped, h.timer.State())
	assert.Equal(t, time.Second, info.IdleTime)

	h.run(5, ActivityIdle)
	assert.Equal(t, 6*time.Second, h.timer.ElapsedIdleTime())
	assert.Equal(t, 10*time.Second, h.timer.ElapsedTime())

	info = h.tick(ActivitySuspended)
	assert.Equal(t, EventNone, info.Event)
	assert.Equal(t, 7*time.Second, info.IdleTime)

	info = h.tick(ActivityActive)
	assert.Equal(t, EventStarted, info.Event)
	assert.Equal(t, 11*time.Second, info.ElapsedTime)
}

func TestProcess_UnknownActivityHoldsState(t *testing.T) {
	h := newHarness(t, nil)
	h.run(5, ActivityActive)

	events := h.run(10, ActivityUnknown)

	assert.Empty(t, events)
	assert.Equal(t, StateRunning, h.timer.State())
	assert.Equal(t, 5*time.Second, h.timer.ElapsedTime())
}

func TestProcess_LimitRespectsSnooze(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetLimit(60 * time.Second)
		timer.SetSnoozeInterval(30 * time.Second)
	})

	events := h.run(89, ActivityActive)
	assert.Equal(t, map[Event]int{EventStarted: 1, EventLimitReached: 1}, events)
	assert.Equal(t, testStart.Add(60*time.Second), h.timer.LastLimitTime())
	assert.Equal(t, testStart.Add(90*time.Second), h.timer.NextLimitTime())
	assert.Zero(t, h.timer.TotalOverdueTime())

	info := h.tick(ActivityActive)
	assert.Equal(t, EventLimitReached, info.Event)
	assert.Equal(t, 90*time.Second, info.ElapsedTime)
	assert.Equal(t, 30*time.Second, h.timer.TotalOverdueTime())
}

func TestProcess_LimitNotReachedWithoutActivity(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetLimit(10 * time.Second)
	})
	h.run(6, ActivityActive)
	h.tick(ActivityIdle)

	events := h.run(100, ActivityIdle)

	assert.NotContains(t, events, EventLimitReached)
	assert.True(t, h.timer.NextLimitTime().IsZero())
}

func TestProcess_NaturalResetAfterIdleInterval(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetAutoReset(300 * time.Second)
	})
	h.run(11, ActivityActive)
	h.tick(ActivityIdle)
	stoppedAt := h.clock.Now()
	assert.Equal(t, stoppedAt.Add(299*time.Second), h.timer.NextResetTime())

	events := h.run(399, ActivityIdle)

	assert.Equal(t, map[Event]int{EventNaturalReset: 1}, events)
	assert.Zero(t, h.timer.ElapsedTime())
	assert.Equal(t, 100*time.Second, h.timer.ElapsedIdleTime())
	assert.True(t, h.timer.NextResetTime().IsZero())
}

func TestProcess_NaturalResetNeedsContinuousIdle(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetAutoReset(10 * time.Second)
	})
	h.run(3, ActivityActive)

	for round := 0; round < 5; round++ {
		h.run(6, ActivityIdle)
		h.run(2, ActivityActive)
	}

	assert.Equal(t, 3*time.Second+10*time.Second, h.timer.ElapsedTime())
	assert.Equal(t, 30*time.Second, h.timer.ElapsedIdleTime())
}

func TestProcess_PredicateReset(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetAutoResetPredicate(dailyMidnight{})
	})
	h.clock.Set(time.Date(2025, 3, 1, 23, 58, 0, 0, time.UTC))
	h.timer.SetAutoResetPredicate(dailyMidnight{})
	midnight := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, midnight, h.timer.NextResetTime())

	h.run(31, ActivityActive)
	events := h.run(169, ActivityIdle)

	assert.Equal(t, map[Event]int{EventStopped: 1, EventNaturalReset: 1}, events)
	assert.Equal(t, midnight, h.timer.StateData().LastPredResetTime)
	assert.Equal(t, midnight.AddDate(0, 0, 1), h.timer.NextResetTime())
	assert.Zero(t, h.timer.ElapsedTime())
}

func TestProcess_PredicateResetWaitsForStop(t *testing.T) {
	h := newHarness(t, nil)
	h.clock.Set(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC))
	h.timer.SetAutoResetPredicate(dailyMidnight{})

	events := h.run(120, ActivityActive)
	assert.NotContains(t, events, EventNaturalReset)

	info := h.tick(ActivityIdle)
	assert.Equal(t, EventNaturalReset, info.Event)
	assert.Equal(t, StateStopped, h.timer.State())
	assert.Zero(t, h.timer.ElapsedTime())
}

func TestSetAutoResetPredicate_SameRuleKeepsPendingReset(t *testing.T) {
	h := newHarness(t, nil)
	h.clock.Set(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC))
	h.timer.SetAutoResetPredicate(dailyMidnight{})
	midnight := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	h.run(120, ActivityActive)
	h.timer.SetAutoResetPredicate(dailyMidnight{})
	assert.Equal(t, midnight, h.timer.NextResetTime())

	info := h.tick(ActivityIdle)
	assert.Equal(t, EventNaturalReset, info.Event)
	assert.Zero(t, h.timer.ElapsedTime())
	assert.Equal(t, midnight.AddDate(0, 0, 1), h.timer.NextResetTime())
}

func TestSetAutoResetPredicate_NewRuleRecomputes(t *testing.T) {
	h := newHarness(t, nil)
	h.clock.Set(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC))
	h.timer.SetAutoResetPredicate(dailyMidnight{})
	h.run(120, ActivityActive)

	h.timer.SetAutoResetPredicate(dailyNoon{})

	assert.Equal(t, time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC), h.timer.NextResetTime())
}

func TestProcess_ActivityMonitorOverridesSample(t *testing.T) {
	h := newHarness(t, nil)
	monitor := &stubMonitor{state: ActivityActive}
	h.timer.SetActivityMonitor(monitor)
	require.True(t, h.timer.HasActivityMonitor())

	h.run(5, ActivityIdle)
	assert.Equal(t, StateRunning, h.timer.State())

	monitor.state = ActivityIdle
	info := h.tick(ActivityActive)
	assert.Equal(t, EventStopped, info.Event)

	monitor.state = ActivityUnknown
	events := h.run(5, ActivityActive)
	assert.Empty(t, events)
	assert.Equal(t, StateStopped, h.timer.State())

	h.timer.SetActivityMonitor(nil)
	info = h.tick(ActivityActive)
	assert.Equal(t, EventStarted, info.Event)
}

func TestFreezeTimer(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetLimit(5 * time.Second)
	})
	h.run(2, ActivityActive)
	h.timer.FreezeTimer(true)
	assert.True(t, h.timer.IsFrozen())
	assert.True(t, h.timer.NextLimitTime().IsZero())

	events := h.run(20, ActivityActive)
	assert.Empty(t, events)
	assert.Equal(t, 2*time.Second, h.timer.ElapsedTime())
	assert.Equal(t, StateRunning, h.timer.State())

	h.timer.FreezeTimer(false)
	events = h.run(3, ActivityActive)
	assert.Equal(t, map[Event]int{EventLimitReached: 1}, events)
}

func TestFreezeTimer_IdleStillCountsWhenStopped(t *testing.T) {
	h := newHarness(t, nil)
	h.tick(ActivityIdle)
	h.timer.FreezeTimer(true)

	events := h.run(4, ActivityActive)

	assert.Empty(t, events)
	assert.Equal(t, StateStopped, h.timer.State())
	assert.Equal(t, 5*time.Second, h.timer.ElapsedIdleTime())
}

func TestExplicitControls_ReportedOnNextProcess(t *testing.T) {
	h := newHarness(t, nil)
	h.run(11, ActivityActive)

	h.timer.ResetTimer()
	assert.Zero(t, h.timer.ElapsedTime())
	info := h.tick(ActivityActive)
	assert.Equal(t, EventReset, info.Event)
	assert.Equal(t, time.Second, info.ElapsedTime)

	h.timer.StopTimer()
	assert.Equal(t, StateStopped, h.timer.State())
	info = h.tick(ActivityIdle)
	assert.Equal(t, EventStopped, info.Event)

	h.timer.StartTimer()
	assert.Equal(t, StateRunning, h.timer.State())
	info = h.tick(ActivityActive)
	assert.Equal(t, EventStarted, info.Event)

	info = h.tick(ActivityActive)
	assert.Equal(t, EventNone, info.Event)
}

func TestDisable_StopsRunningTimer(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetLimit(time.Minute)
	})
	h.run(3, ActivityActive)
	require.False(t, h.timer.NextLimitTime().IsZero())

	h.timer.Disable()

	assert.Equal(t, StateStopped, h.timer.State())
	assert.True(t, h.timer.NextLimitTime().IsZero())
	info := h.tick(ActivityActive)
	assert.False(t, info.Enabled)
	assert.Equal(t, EventNone, info.Event)
}

func TestDailyResetTimer_ClearsOverdue(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetLimit(5 * time.Second)
		timer.SetSnoozeInterval(5 * time.Second)
	})
	h.run(16, ActivityActive)
	require.Equal(t, 10*time.Second, h.timer.TotalOverdueTime())

	h.timer.ResetTimer()
	h.timer.DailyResetTimer()

	assert.Zero(t, h.timer.TotalOverdueTime())
}

func TestResetTimer_FlushesOverdue(t *testing.T) {
	h := newHarness(t, func(timer *Timer) {
		timer.SetLimit(5 * time.Second)
	})
	h.run(12, ActivityActive)

	h.timer.ResetTimer()

	assert.Equal(t, 7*time.Second, h.timer.TotalOverdueTime())
}

func TestMerge(t *testing.T) {
	tests := []struct {
		current   Event
		candidate Event
		want      Event
	}{
		{EventNone, EventStarted, EventStarted},
		{EventStarted, EventNone, EventStarted},
		{EventStopped, EventStarted, EventStarted},
		{EventReset, EventStarted, EventReset},
		{EventReset, EventNaturalReset, EventNaturalReset},
		{EventLimitReached, EventNaturalReset, EventLimitReached},
		{EventStarted, EventLimitReached, EventLimitReached},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, merge(tt.current, tt.candidate), "%s + %s", tt.current, tt.candidate)
	}
}

// dailyMidnight fires at 00:00 in the location of the given time.
type dailyMidnight struct{}

func (dailyMidnight) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (dailyMidnight) String() string { return "day/00:00" }

// dailyNoon fires at 12:00 in the location of the given time.
type dailyNoon struct{}

func (dailyNoon) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), 12, 0, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (dailyNoon) String() string { return "day/12:00" }
