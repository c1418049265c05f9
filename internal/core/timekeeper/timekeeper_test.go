package timekeeper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpace/internal/core/clock"
	"workpace/internal/core/model"
	"workpace/internal/core/timepred"
	"workpace/internal/core/timer"
	"workpace/internal/storage"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixedMonitor struct {
	state timer.ActivityState
	err   error
}

func (monitor *fixedMonitor) ActivityState() timer.ActivityState {
	return monitor.state
}

func (monitor *fixedMonitor) Err() error {
	return monitor.err
}

func timerConfig(id string, limit time.Duration) model.TimerConfig {
	return model.TimerConfig{
		ID:                id,
		Enabled:           true,
		Limit:             limit,
		LimitEnabled:      true,
		Snooze:            10 * time.Second,
		AutoReset:         5 * time.Second,
		AutoResetEnabled:  true,
		ActivitySensitive: true,
	}
}

func newTestKeeper(t *testing.T, start time.Time, configs ...model.TimerConfig) (*TimeKeeper, *clock.Fake, *fixedMonitor) {
	t.Helper()
	fake := clock.NewFake(start)
	keeper, err := New(model.TimeKeeperConfig{Timers: configs}, Options{Clock: fake})
	require.NoError(t, err)
	monitor := &fixedMonitor{state: timer.ActivityActive}
	keeper.SetActivityMonitor(monitor)
	return keeper, fake, monitor
}

func advance(keeper *TimeKeeper, fake *clock.Fake, n int) {
	for i := 0; i < n; i++ {
		fake.Advance(time.Second)
		keeper.tick(time.Second)
	}
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func ofType(events []Event, eventType EventType) []Event {
	var filtered []Event
	for _, event := range events {
		if event.Type == eventType {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func TestNew_ValidatesTimers(t *testing.T) {
	_, err := New(model.TimeKeeperConfig{
		Timers: []model.TimerConfig{timerConfig("a", time.Minute), timerConfig("a", time.Minute)},
	}, Options{})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New(model.TimeKeeperConfig{
		Timers: []model.TimerConfig{timerConfig("", time.Minute)},
	}, Options{})
	assert.Error(t, err)

	bad := timerConfig("daily", time.Hour)
	bad.AutoResetRule = "monthly/1"
	_, err = New(model.TimeKeeperConfig{Timers: []model.TimerConfig{bad}}, Options{})
	assert.ErrorIs(t, err, timepred.ErrInvalidRule)
}

func TestNew_AppliesTimerConfig(t *testing.T) {
	daily := timerConfig("daily", 4*time.Hour)
	daily.AutoResetRule = "day/00:00"
	disabled := timerConfig("off", time.Minute)
	disabled.Enabled = false

	keeper, _, _ := newTestKeeper(t, testStart, timerConfig("micro", 3*time.Second), daily, disabled)

	assert.Equal(t, []string{"micro", "daily", "off"}, keeper.IDs())
	item, ok := keeper.Timer("daily")
	require.True(t, ok)
	assert.Equal(t, "day/00:00", item.AutoResetPredicate().String())
	assert.Equal(t, 10*time.Second, item.Snooze())

	item, ok = keeper.Timer("off")
	require.True(t, ok)
	assert.False(t, item.IsEnabled())

	_, ok = keeper.Timer("missing")
	assert.False(t, ok)
}

func TestTick_PublishesTimerEvents(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", 3*time.Second))
	events := keeper.Subscribe(64)

	advance(keeper, fake, 5)

	all := drain(events)
	assert.Len(t, ofType(all, EventTick), 5)
	timerEvents := ofType(all, EventTimer)
	require.Len(t, timerEvents, 2)
	assert.Equal(t, timer.EventStarted, timerEvents[0].Timer)
	assert.Equal(t, "micro", timerEvents[0].TimerID)
	assert.Equal(t, timer.EventLimitReached, timerEvents[1].Timer)
	assert.Equal(t, 3*time.Second, timerEvents[1].Info.ElapsedTime)
	assert.Equal(t, testStart.Add(3*time.Second), timerEvents[1].At)
}

func TestTick_WithoutMonitorHoldsTimers(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute))
	keeper.SetActivityMonitor(nil)

	advance(keeper, fake, 5)

	item, _ := keeper.Timer("micro")
	assert.Equal(t, timer.StateInvalid, item.State())
	assert.Zero(t, item.ElapsedTime())
	assert.Zero(t, item.ElapsedIdleTime())
}

func TestTick_DailyReset(t *testing.T) {
	start := time.Date(2025, 3, 1, 23, 59, 58, 0, time.Local)
	keeper, fake, _ := newTestKeeper(t, start, timerConfig("micro", time.Minute))
	item, _ := keeper.Timer("micro")
	item.SetState(0, 0, 10*time.Second)
	events := keeper.Subscribe(64)

	advance(keeper, fake, 1)
	assert.Equal(t, 10*time.Second, item.TotalOverdueTime())

	advance(keeper, fake, 3)

	resets := ofType(drain(events), EventDailyReset)
	require.Len(t, resets, 1)
	assert.Equal(t, "2025-03-02", resets[0].Message)
	assert.Zero(t, item.TotalOverdueTime())
}

func TestTick_BackwardClockJumpShiftsTimers(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute))
	item, _ := keeper.Timer("micro")
	events := keeper.Subscribe(64)

	advance(keeper, fake, 1)
	nextLimit := item.NextLimitTime()
	require.Equal(t, testStart.Add(60*time.Second), nextLimit)

	fake.Advance(time.Second - time.Hour)
	keeper.tick(time.Second)

	shifts := ofType(drain(events), EventClockShift)
	require.Len(t, shifts, 1)
	assert.Equal(t, -time.Hour, shifts[0].Shift)
	assert.Equal(t, nextLimit.Add(-time.Hour), item.NextLimitTime())
	assert.Equal(t, 2*time.Second, item.ElapsedTime())
}

func TestTick_ForwardJumpIsNotShifted(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute))
	events := keeper.Subscribe(64)
	advance(keeper, fake, 1)

	fake.Advance(time.Hour)
	keeper.tick(time.Second)

	assert.Empty(t, ofType(drain(events), EventClockShift))
}

func TestTick_ReportsActivityErrorsOnce(t *testing.T) {
	keeper, fake, monitor := newTestKeeper(t, testStart, timerConfig("micro", time.Minute))
	monitor.state = timer.ActivityUnknown
	monitor.err = errors.New("xprintidle: exit status 1")
	events := keeper.Subscribe(64)

	advance(keeper, fake, 3)
	monitor.err = errors.New("idle detection unsupported")
	advance(keeper, fake, 3)

	reported := ofType(drain(events), EventActivityError)
	require.Len(t, reported, 2)
	assert.Equal(t, "xprintidle: exit status 1", reported[0].Message)
	assert.Equal(t, "idle detection unsupported", reported[1].Message)
}

func TestPauseResume(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute))
	item, _ := keeper.Timer("micro")
	events := keeper.Subscribe(64)
	advance(keeper, fake, 3)

	keeper.Pause()
	keeper.Pause()
	assert.True(t, keeper.IsPaused())
	advance(keeper, fake, 5)
	assert.Equal(t, 3*time.Second, item.ElapsedTime())
	assert.True(t, item.IsFrozen())

	keeper.Resume()
	advance(keeper, fake, 2)
	assert.Equal(t, 5*time.Second, item.ElapsedTime())

	all := drain(events)
	assert.Len(t, ofType(all, EventPaused), 1)
	assert.Len(t, ofType(all, EventResumed), 1)
}

func TestRoutedControls(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", 3*time.Second))
	item, _ := keeper.Timer("micro")
	advance(keeper, fake, 6)

	require.NoError(t, keeper.Snooze("micro"))
	assert.Equal(t, fake.Now(), item.LastLimitTime())

	require.NoError(t, keeper.InhibitSnooze("micro"))
	assert.Equal(t, fake.Now(), item.NextLimitTime())

	require.NoError(t, keeper.Freeze("micro", true))
	assert.True(t, item.IsFrozen())

	require.NoError(t, keeper.Reset("micro"))
	assert.Zero(t, item.ElapsedTime())

	assert.ErrorIs(t, keeper.Snooze("nope"), ErrUnknownTimer)
	assert.ErrorIs(t, keeper.Reset("nope"), ErrUnknownTimer)
}

func TestSnapshot(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", 10*time.Second), timerConfig("rest", time.Minute))
	advance(keeper, fake, 5)

	statuses := keeper.Snapshot()
	require.Len(t, statuses, 2)
	micro := statuses[0]
	assert.Equal(t, "micro", micro.ID)
	assert.Equal(t, timer.StateRunning, micro.State)
	assert.Equal(t, 5*time.Second, micro.Elapsed)
	assert.Equal(t, 5*time.Second, micro.Remaining())
	assert.Equal(t, testStart.Add(10*time.Second), micro.NextLimit)
}

func TestUpdateConfig_KeepsAccounting(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute), timerConfig("rest", time.Hour))
	advance(keeper, fake, 10)

	updated := timerConfig("micro", 2*time.Minute)
	require.NoError(t, keeper.UpdateConfig(model.TimeKeeperConfig{
		Timers: []model.TimerConfig{updated, timerConfig("daily", 4*time.Hour)},
	}))

	assert.Equal(t, []string{"micro", "daily"}, keeper.IDs())
	item, _ := keeper.Timer("micro")
	assert.Equal(t, 2*time.Minute, item.Limit())
	assert.Equal(t, 10*time.Second, item.ElapsedTime())
	fresh, _ := keeper.Timer("daily")
	assert.Zero(t, fresh.ElapsedTime())
}

func TestUpdateConfig_SameRuleKeepsPendingReset(t *testing.T) {
	daily := timerConfig("daily", 4*time.Hour)
	daily.AutoResetRule = "day/09:01"
	keeper, fake, monitor := newTestKeeper(t, testStart, daily)
	item, _ := keeper.Timer("daily")
	fire := time.Date(2025, 3, 1, 9, 1, 0, 0, time.UTC)
	require.Equal(t, fire, item.NextResetTime())
	events := keeper.Subscribe(256)

	advance(keeper, fake, 119)
	require.NoError(t, keeper.UpdateConfig(model.TimeKeeperConfig{Timers: []model.TimerConfig{daily}}))
	assert.Equal(t, fire, item.NextResetTime())

	monitor.state = timer.ActivityIdle
	advance(keeper, fake, 1)

	resets := 0
	for _, event := range ofType(drain(events), EventTimer) {
		if event.Timer == timer.EventNaturalReset {
			resets++
		}
	}
	assert.Equal(t, 1, resets)
	assert.Zero(t, item.ElapsedTime())
}

func TestUpdateConfig_InvalidLeavesTimersUntouched(t *testing.T) {
	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute), timerConfig("rest", time.Hour))
	advance(keeper, fake, 3)

	bad := timerConfig("rest", 2*time.Hour)
	bad.AutoResetRule = "weekday/someday/10:00"
	err := keeper.UpdateConfig(model.TimeKeeperConfig{
		Timers: []model.TimerConfig{timerConfig("micro", 5*time.Minute), bad},
	})

	assert.ErrorIs(t, err, timepred.ErrInvalidRule)
	micro, _ := keeper.Timer("micro")
	assert.Equal(t, time.Minute, micro.Limit())
	rest, _ := keeper.Timer("rest")
	assert.Equal(t, time.Hour, rest.Limit())
	assert.Equal(t, []string{"micro", "rest"}, keeper.IDs())

	err = keeper.UpdateConfig(model.TimeKeeperConfig{
		Timers: []model.TimerConfig{timerConfig("micro", 5*time.Minute), timerConfig("micro", time.Hour)},
	})
	assert.ErrorContains(t, err, "duplicate")
	assert.Equal(t, time.Minute, micro.Limit())
}

func TestPersistRestore(t *testing.T) {
	store, err := storage.OpenStateStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	keeper, fake, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute), timerConfig("rest", time.Hour))
	advance(keeper, fake, 10)
	require.NoError(t, keeper.Persist(ctx, store))

	restored, err := New(model.TimeKeeperConfig{
		Timers: []model.TimerConfig{timerConfig("micro", time.Minute), timerConfig("rest", time.Hour), timerConfig("new", time.Hour)},
	}, Options{Clock: fake})
	require.NoError(t, err)
	require.NoError(t, restored.Restore(ctx, store))

	for _, id := range []string{"micro", "rest"} {
		item, _ := restored.Timer(id)
		assert.Equal(t, 10*time.Second, item.ElapsedTime(), id)
	}
	item, _ := restored.Timer("new")
	assert.Zero(t, item.ElapsedTime())
}

func TestRestore_SkipsMalformedState(t *testing.T) {
	store, err := storage.OpenStateStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "micro", timer.StateVersion, "garbage"))
	require.NoError(t, store.Save(ctx, "rest", 1, "0 42 0"))

	keeper, _, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute), timerConfig("rest", time.Hour))
	err = keeper.Restore(ctx, store)

	assert.ErrorIs(t, err, timer.ErrMalformedState)
	item, _ := keeper.Timer("rest")
	assert.Equal(t, 42*time.Second, item.ElapsedTime())
}

func TestStartStop_ClosesSubscribers(t *testing.T) {
	keeper, _, _ := newTestKeeper(t, testStart, timerConfig("micro", time.Minute))
	events := keeper.Subscribe(1)

	keeper.Start()
	keeper.Start()
	keeper.Stop()
	keeper.Stop()

	for range events {
	}
	_, open := <-events
	assert.False(t, open)
}
