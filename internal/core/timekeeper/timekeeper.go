package timekeeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"workpace/internal/core/clock"
	"workpace/internal/core/model"
	"workpace/internal/core/timepred"
	"workpace/internal/core/timer"
	"workpace/internal/storage"
)

// ErrUnknownTimer indicates an operation on a timer id the keeper does not own.
var ErrUnknownTimer = errors.New("unknown timer")

const dayLayout = "2006-01-02"

// StateStore persists serialized timer states.
type StateStore interface {
	Save(ctx context.Context, id string, version int, payload string) error
	Load(ctx context.Context, id string) (storage.Record, error)
}

// errorReporter is implemented by activity monitors that can explain an
// ActivityUnknown sample.
type errorReporter interface {
	Err() error
}

// Options contains runtime options for TimeKeeper.
type Options struct {
	Clock clock.Clock
}

// TimeKeeper owns a set of timers and drives them on a fixed cadence.
type TimeKeeper struct {
	mu       sync.Mutex
	config   model.TimeKeeperConfig
	options  Options
	timers   []*timer.Timer
	monitor  timer.ActivityMonitor
	events   []chan Event
	stopCh   chan struct{}
	running  bool
	paused   bool
	lastWall time.Time
	lastDay  string
	lastErr  string
}

// New creates a TimeKeeper with one timer per configured entry.
func New(config model.TimeKeeperConfig, options Options) (*TimeKeeper, error) {
	if options.Clock == nil {
		options.Clock = clock.Real{}
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}

	keeper := &TimeKeeper{
		config:  config,
		options: options,
	}
	timers, err := keeper.buildTimers(config.Timers)
	if err != nil {
		return nil, err
	}
	keeper.timers = timers
	return keeper, nil
}

// SetActivityMonitor injects the activity source sampled once per tick.
func (keeper *TimeKeeper) SetActivityMonitor(monitor timer.ActivityMonitor) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	keeper.monitor = monitor
}

// Subscribe registers a new observer channel. Slow observers miss events.
func (keeper *TimeKeeper) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	keeper.mu.Lock()
	keeper.events = append(keeper.events, ch)
	keeper.mu.Unlock()
	return ch
}

// Start launches the ticking loop.
func (keeper *TimeKeeper) Start() {
	keeper.mu.Lock()
	if keeper.running {
		keeper.mu.Unlock()
		return
	}
	keeper.running = true
	keeper.stopCh = make(chan struct{})
	keeper.lastWall = time.Time{}
	stopCh := keeper.stopCh
	keeper.mu.Unlock()

	go keeper.run(stopCh)
}

// Stop terminates the ticking loop and closes observers.
func (keeper *TimeKeeper) Stop() {
	keeper.mu.Lock()
	if !keeper.running {
		keeper.mu.Unlock()
		return
	}
	close(keeper.stopCh)
	keeper.running = false
	events := keeper.events
	keeper.events = nil
	keeper.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Pause freezes every timer. Idle time of stopped timers keeps counting.
func (keeper *TimeKeeper) Pause() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.paused {
		return
	}
	keeper.paused = true
	for _, item := range keeper.timers {
		item.FreezeTimer(true)
	}
	keeper.emitLocked(Event{Type: EventPaused, At: keeper.options.Clock.Now()})
}

// Resume unfreezes every timer.
func (keeper *TimeKeeper) Resume() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if !keeper.paused {
		return
	}
	keeper.paused = false
	for _, item := range keeper.timers {
		item.FreezeTimer(false)
	}
	keeper.emitLocked(Event{Type: EventResumed, At: keeper.options.Clock.Now()})
}

// IsPaused reports whether the keeper froze its timers.
func (keeper *TimeKeeper) IsPaused() bool {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.paused
}

// UpdateConfig applies a new configuration. Timers keep their accounting when
// their id survives; new ids start fresh and missing ids are dropped. An
// invalid configuration leaves every timer untouched.
func (keeper *TimeKeeper) UpdateConfig(config model.TimeKeeperConfig) error {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	predicates, err := parseTimerConfigs(config.Timers)
	if err != nil {
		return err
	}

	existing := make(map[string]*timer.Timer, len(keeper.timers))
	for _, item := range keeper.timers {
		existing[item.ID()] = item
	}

	timers := make([]*timer.Timer, 0, len(config.Timers))
	for i, timerConfig := range config.Timers {
		item, ok := existing[timerConfig.ID]
		if !ok || config.TickInterval != keeper.config.TickInterval {
			item = keeper.newTimer(timerConfig.ID, config.TickInterval)
			if ok {
				item.SetStateData(existing[timerConfig.ID].StateData())
			}
		}
		applyTimerConfig(item, timerConfig, predicates[i])
		if keeper.paused {
			item.FreezeTimer(true)
		}
		timers = append(timers, item)
	}

	keeper.config = config
	keeper.timers = timers
	return nil
}

// IDs returns the ids of owned timers in configuration order.
func (keeper *TimeKeeper) IDs() []string {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	ids := make([]string, 0, len(keeper.timers))
	for _, item := range keeper.timers {
		ids = append(ids, item.ID())
	}
	return ids
}

// Timer returns the owned timer with the given id.
func (keeper *TimeKeeper) Timer(id string) (*timer.Timer, bool) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	item := keeper.findLocked(id)
	return item, item != nil
}

// Snapshot returns the status of every owned timer.
func (keeper *TimeKeeper) Snapshot() []Status {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()

	statuses := make([]Status, 0, len(keeper.timers))
	for _, item := range keeper.timers {
		statuses = append(statuses, statusOf(item))
	}
	return statuses
}

// Snooze postpones the next limit event of one timer.
func (keeper *TimeKeeper) Snooze(id string) error {
	return keeper.withTimer(id, (*timer.Timer).SnoozeTimer)
}

// InhibitSnooze lets the limit of one timer fire on its next check.
func (keeper *TimeKeeper) InhibitSnooze(id string) error {
	return keeper.withTimer(id, (*timer.Timer).InhibitSnooze)
}

// Reset zeroes the accounting of one timer.
func (keeper *TimeKeeper) Reset(id string) error {
	return keeper.withTimer(id, (*timer.Timer).ResetTimer)
}

// Freeze pauses or resumes active-time accumulation of one timer.
func (keeper *TimeKeeper) Freeze(id string, frozen bool) error {
	return keeper.withTimer(id, func(item *timer.Timer) {
		item.FreezeTimer(frozen)
	})
}

// Restore loads stored states into the owned timers. Timers without a stored
// state are left fresh; unreadable states are skipped and reported together.
func (keeper *TimeKeeper) Restore(ctx context.Context, store StateStore) error {
	keeper.mu.Lock()
	timers := append([]*timer.Timer(nil), keeper.timers...)
	keeper.mu.Unlock()

	var errs []error
	for _, item := range timers {
		record, err := store.Load(ctx, item.ID())
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("restore %s: %w", item.ID(), err)
		}
		if err := item.DeserializeState(record.Payload, record.Version); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", item.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Persist writes the state of every owned timer.
func (keeper *TimeKeeper) Persist(ctx context.Context, store StateStore) error {
	keeper.mu.Lock()
	timers := append([]*timer.Timer(nil), keeper.timers...)
	keeper.mu.Unlock()

	for _, item := range timers {
		if err := store.Save(ctx, item.ID(), timer.StateVersion, item.SerializeState()); err != nil {
			return fmt.Errorf("persist %s: %w", item.ID(), err)
		}
	}
	return nil
}

func (keeper *TimeKeeper) run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(keeper.config.TickInterval)
	defer ticker.Stop()

	previous := time.Now()
	for {
		select {
		case <-stopCh:
			return
		case tickTime := <-ticker.C:
			elapsed := tickTime.Sub(previous)
			previous = tickTime
			keeper.tick(elapsed)
		}
	}
}

// tick processes every timer once. elapsed is the monotonic time since the
// previous tick and is compared with the wall clock to detect clock jumps.
func (keeper *TimeKeeper) tick(elapsed time.Duration) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()

	now := keeper.options.Clock.Now()
	keeper.checkClockLocked(now, elapsed)
	keeper.checkDayLocked(now)

	sample := keeper.sampleLocked(now)
	for _, item := range keeper.timers {
		info := item.Process(sample)
		if info.Event == timer.EventNone {
			continue
		}
		keeper.emitLocked(Event{
			Type:    EventTimer,
			TimerID: item.ID(),
			Timer:   info.Event,
			Info:    info,
			At:      now,
		})
	}
	keeper.emitLocked(Event{Type: EventTick, At: now})
}

// checkClockLocked shifts every timer when the wall clock moved back relative
// to monotonic time by more than one tick.
func (keeper *TimeKeeper) checkClockLocked(now time.Time, elapsed time.Duration) {
	previous := keeper.lastWall
	keeper.lastWall = now
	if previous.IsZero() {
		return
	}

	skew := now.Round(0).Sub(previous.Round(0)) - elapsed
	if skew >= -keeper.config.TickInterval {
		return
	}
	for _, item := range keeper.timers {
		item.ShiftTime(skew)
	}
	keeper.emitLocked(Event{
		Type:    EventClockShift,
		Shift:   skew,
		Message: fmt.Sprintf("wall clock moved back by %s", -skew),
		At:      now,
	})
}

// checkDayLocked clears overdue counters once the local date moves forward.
func (keeper *TimeKeeper) checkDayLocked(now time.Time) {
	day := now.Local().Format(dayLayout)
	if keeper.lastDay == "" {
		keeper.lastDay = day
		return
	}
	if day <= keeper.lastDay {
		return
	}
	keeper.lastDay = day
	for _, item := range keeper.timers {
		item.DailyResetTimer()
	}
	keeper.emitLocked(Event{Type: EventDailyReset, Message: day, At: now})
}

func (keeper *TimeKeeper) sampleLocked(now time.Time) timer.ActivityState {
	if keeper.monitor == nil {
		return timer.ActivityUnknown
	}
	sample := keeper.monitor.ActivityState()

	reporter, ok := keeper.monitor.(errorReporter)
	if !ok {
		return sample
	}
	message := ""
	if err := reporter.Err(); err != nil {
		message = err.Error()
	}
	if message != "" && message != keeper.lastErr {
		keeper.emitLocked(Event{
			Type:    EventActivityError,
			Message: message,
			At:      now,
		})
	}
	keeper.lastErr = message
	return sample
}

func (keeper *TimeKeeper) withTimer(id string, action func(*timer.Timer)) error {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	item := keeper.findLocked(id)
	if item == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTimer, id)
	}
	action(item)
	return nil
}

func (keeper *TimeKeeper) findLocked(id string) *timer.Timer {
	for _, item := range keeper.timers {
		if item.ID() == id {
			return item
		}
	}
	return nil
}

func (keeper *TimeKeeper) buildTimers(configs []model.TimerConfig) ([]*timer.Timer, error) {
	predicates, err := parseTimerConfigs(configs)
	if err != nil {
		return nil, err
	}
	timers := make([]*timer.Timer, 0, len(configs))
	for i, timerConfig := range configs {
		item := keeper.newTimer(timerConfig.ID, keeper.config.TickInterval)
		applyTimerConfig(item, timerConfig, predicates[i])
		timers = append(timers, item)
	}
	return timers, nil
}

// parseTimerConfigs validates ids and parses reset rules. The returned slice
// holds one predicate per entry, nil when the entry uses an idle interval.
func parseTimerConfigs(configs []model.TimerConfig) ([]timepred.Predicate, error) {
	predicates := make([]timepred.Predicate, len(configs))
	seen := make(map[string]bool, len(configs))
	for i, timerConfig := range configs {
		if timerConfig.ID == "" {
			return nil, errors.New("timer id is required")
		}
		if seen[timerConfig.ID] {
			return nil, fmt.Errorf("duplicate timer id %q", timerConfig.ID)
		}
		seen[timerConfig.ID] = true

		if timerConfig.AutoResetRule == "" {
			continue
		}
		predicate, err := timepred.Parse(timerConfig.AutoResetRule)
		if err != nil {
			return nil, fmt.Errorf("timer %s: %w", timerConfig.ID, err)
		}
		predicates[i] = predicate
	}
	return predicates, nil
}

func (keeper *TimeKeeper) newTimer(id string, tick time.Duration) *timer.Timer {
	return timer.New(id, timer.Options{
		TickInterval: tick,
		Clock:        keeper.options.Clock,
	})
}

func applyTimerConfig(item *timer.Timer, config model.TimerConfig, predicate timepred.Predicate) {
	item.SetLimit(config.Limit)
	item.SetLimitEnabled(config.LimitEnabled)
	item.SetSnoozeInterval(config.Snooze)
	if predicate != nil {
		item.SetAutoResetPredicate(predicate)
	} else {
		item.SetAutoReset(config.AutoReset)
	}
	item.SetAutoResetEnabled(config.AutoResetEnabled)
	item.SetActivitySensitive(config.ActivitySensitive)
	item.SetInsensitiveMode(timer.InsensitiveMode(config.InsensitiveMode))
	item.SetInsensitiveAutoRestart(config.InsensitiveAutoRestart)

	if config.Enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

func statusOf(item *timer.Timer) Status {
	data := item.StateData()
	return Status{
		ID:        item.ID(),
		Enabled:   item.IsEnabled(),
		State:     item.State(),
		Frozen:    item.IsFrozen(),
		Elapsed:   data.ElapsedTime,
		Idle:      data.ElapsedIdleTime,
		Overdue:   data.TotalOverdueTime,
		Limit:     item.Limit(),
		NextLimit: item.NextLimitTime(),
		NextReset: item.NextResetTime(),
	}
}

func (keeper *TimeKeeper) emitLocked(event Event) {
	events := append([]chan Event(nil), keeper.events...)
	for _, ch := range events {
		select {
		case ch <- event:
		default:
		}
	}
}
