package timer

import "time"

// State represents the lifecycle state of a Timer.
type State string

const (
	StateInvalid State = "invalid"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Event is the single outcome reported by one Process call.
type Event string

const (
	EventNone         Event = "none"
	// EventStarted reports that the timer started counting.
	EventStarted      Event = "started"
	// EventStopped reports that the timer stopped counting.
	EventStopped      Event = "stopped"
	// EventReset reports an explicit administrative reset.
	EventReset        Event = "reset"
	// EventNaturalReset reports a reset caused by idle time or a reset rule.
	EventNaturalReset Event = "natural_reset"
	// EventLimitReached reports that elapsed time reached the limit.
	EventLimitReached Event = "limit_reached"
)

// rank orders events for the one-event-per-tick rule.
func (event Event) rank() int {
	switch event {
	case EventLimitReached:
		return 4
	case EventNaturalReset:
		return 3
	case EventReset:
		return 2
	case EventStarted, EventStopped:
		return 1
	default:
		return 0
	}
}

// merge keeps the higher-ranked event; on a tie the candidate wins.
func merge(current, candidate Event) Event {
	if candidate.rank() > 0 && candidate.rank() >= current.rank() {
		return candidate
	}
	return current
}

// ActivityState is a raw or effective activity classification.
type ActivityState string

const (
	// ActivityUnknown means no usable sample was available.
	ActivityUnknown   ActivityState = ""
	ActivityActive    ActivityState = "active"
	ActivityIdle      ActivityState = "idle"
	// ActivitySuspended means input monitoring is suspended; it counts as idle.
	ActivitySuspended ActivityState = "suspended"
)

// InsensitiveMode selects how a timer that ignores activity decides whether it is active.
type InsensitiveMode string

const (
	// InsensitiveFollowIdle keeps following the activity sample.
	InsensitiveFollowIdle         InsensitiveMode = "follow_idle"
	// InsensitiveIdleOnLimitReached counts continuously until the limit fires, then idles.
	InsensitiveIdleOnLimitReached InsensitiveMode = "idle_on_limit_reached"
	// InsensitiveIdleAlways never starts from activity; only StartTimer runs it.
	InsensitiveIdleAlways         InsensitiveMode = "idle_always"
)

// Valid reports whether the mode is one of the known modes.
func (mode InsensitiveMode) Valid() bool {
	switch mode {
	case InsensitiveFollowIdle, InsensitiveIdleOnLimitReached, InsensitiveIdleAlways:
		return true
	}
	return false
}

// ActivityMonitor is an activity source owned by someone else.
// A monitor that has been shut down should report ActivityUnknown.
type ActivityMonitor interface {
	ActivityState() ActivityState
}

// Info is the per-tick result of Process.
type Info struct {
	Enabled     bool
	Event       Event
	IdleTime    time.Duration
	ElapsedTime time.Duration
}

// StateData is a bulk snapshot of the persisted accounting fields.
type StateData struct {
	CurrentTime       time.Time
	ElapsedTime       time.Duration
	ElapsedIdleTime   time.Duration
	LastPredResetTime time.Time
	TotalOverdueTime  time.Duration
	LastLimitTime     time.Time
	LastLimitElapsed  time.Duration
	SnoozeInhibited   bool
}
