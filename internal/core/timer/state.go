package timer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// StateVersion is the schema version written by SerializeState.
const StateVersion = 3

var (
	// ErrMalformedState indicates a payload with the wrong field count or values.
	ErrMalformedState = errors.New("malformed timer state")
	// ErrUnsupportedVersion indicates a payload schema this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported timer state version")
)

// stateFieldCounts maps each schema version to its number of fields.
//
//	v1: current elapsed idle
//	v2: v1 + last_pred_reset overdue
//	v3: v2 + last_limit last_limit_elapsed snooze_inhibited
var stateFieldCounts = map[int]int{
	1: 3,
	2: 5,
	3: 8,
}

// maxFieldSeconds is the largest value a field may hold before the conversion
// to time.Duration overflows.
const maxFieldSeconds = math.MaxInt64 / int64(time.Second)

// SerializeState encodes the accounting fields as a space separated string
// in the StateVersion schema.
func (timer *Timer) SerializeState() string {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	data := timer.stateDataLocked(timer.options.Clock.Now())

	fields := []string{
		formatInstant(data.CurrentTime),
		formatSeconds(data.ElapsedTime),
		formatSeconds(data.ElapsedIdleTime),
		formatInstant(data.LastPredResetTime),
		formatSeconds(data.TotalOverdueTime),
		formatInstant(data.LastLimitTime),
		formatSeconds(data.LastLimitElapsed),
		"0",
	}
	if data.SnoozeInhibited {
		fields[7] = "1"
	}
	return strings.Join(fields, " ")
}

// DeserializeState restores accounting fields from a payload written with the
// given schema version. On error the timer is left untouched.
func (timer *Timer) DeserializeState(payload string, version int) error {
	data, err := ParseState(payload, version)
	if err != nil {
		return err
	}

	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.setStateDataLocked(data, timer.options.Clock.Now())
	return nil
}

// ParseState decodes a payload without applying it to a timer.
// Fields missing from older schema versions are zero.
func ParseState(payload string, version int) (StateData, error) {
	var data StateData

	count, ok := stateFieldCounts[version]
	if !ok {
		return data, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	fields := strings.Fields(payload)
	if len(fields) != count {
		return data, fmt.Errorf("%w: version %d expects %d fields, got %d", ErrMalformedState, version, count, len(fields))
	}

	values := make([]int64, len(fields))
	for i, field := range fields {
		value, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return data, fmt.Errorf("%w: field %d: %v", ErrMalformedState, i, err)
		}
		if value < 0 {
			return data, fmt.Errorf("%w: field %d is negative", ErrMalformedState, i)
		}
		if value > maxFieldSeconds {
			return data, fmt.Errorf("%w: field %d is out of range", ErrMalformedState, i)
		}
		values[i] = value
	}

	data.CurrentTime = parseInstant(values[0])
	data.ElapsedTime = time.Duration(values[1]) * time.Second
	data.ElapsedIdleTime = time.Duration(values[2]) * time.Second
	if version >= 2 {
		data.LastPredResetTime = parseInstant(values[3])
		data.TotalOverdueTime = time.Duration(values[4]) * time.Second
	}
	if version >= 3 {
		data.LastLimitTime = parseInstant(values[5])
		data.LastLimitElapsed = time.Duration(values[6]) * time.Second
		switch values[7] {
		case 0:
		case 1:
			data.SnoozeInhibited = true
		default:
			return StateData{}, fmt.Errorf("%w: snooze_inhibited must be 0 or 1", ErrMalformedState)
		}
	}
	return data, nil
}

// StateData returns a snapshot of the persisted accounting fields.
func (timer *Timer) StateData() StateData {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.stateDataLocked(timer.options.Clock.Now())
}

// SetStateData restores a snapshot taken by StateData, applying the same
// clock-skew correction as DeserializeState. Negative durations are clamped.
func (timer *Timer) SetStateData(data StateData) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	data.ElapsedTime = clampDuration(data.ElapsedTime)
	data.ElapsedIdleTime = clampDuration(data.ElapsedIdleTime)
	data.TotalOverdueTime = clampDuration(data.TotalOverdueTime)
	data.LastLimitElapsed = clampDuration(data.LastLimitElapsed)
	timer.setStateDataLocked(data, timer.options.Clock.Now())
}

// SetState overrides the elapsed counters and re-arms the limit so it can fire
// again once elapsed time crosses it. A negative overdue leaves the overdue
// counter unchanged.
func (timer *Timer) SetState(elapsed, idle, overdue time.Duration) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.elapsedTime = clampDuration(elapsed)
	timer.elapsedIdleTime = clampDuration(idle)
	if overdue >= 0 {
		timer.totalOverdueTime = overdue
	}
	timer.lastLimitElapsed = 0
	timer.snoozeInhibited = false
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// SetValues overrides the elapsed counters and keeps limit bookkeeping.
func (timer *Timer) SetValues(elapsed, idle time.Duration) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.elapsedTime = clampDuration(elapsed)
	timer.elapsedIdleTime = clampDuration(idle)
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

func (timer *Timer) stateDataLocked(now time.Time) StateData {
	return StateData{
		CurrentTime:       now,
		ElapsedTime:       timer.elapsedTime,
		ElapsedIdleTime:   timer.elapsedIdleTime,
		LastPredResetTime: timer.lastPredResetTime,
		TotalOverdueTime:  timer.totalOverdueTime,
		LastLimitTime:     timer.lastLimitTime,
		LastLimitElapsed:  timer.lastLimitElapsed,
		SnoozeInhibited:   timer.snoozeInhibited,
	}
}

// setStateDataLocked applies a snapshot taken at data.CurrentTime. When the
// wall clock is now earlier than the snapshot, stored instants are moved back
// by the same amount. When a never-processed timer is restored after downtime,
// the downtime counts as idle time.
func (timer *Timer) setStateDataLocked(data StateData, now time.Time) {
	timer.elapsedTime = data.ElapsedTime
	timer.elapsedIdleTime = data.ElapsedIdleTime
	timer.totalOverdueTime = data.TotalOverdueTime
	timer.lastPredResetTime = data.LastPredResetTime
	timer.lastLimitTime = data.LastLimitTime
	timer.lastLimitElapsed = data.LastLimitElapsed
	timer.snoozeInhibited = data.SnoozeInhibited

	var gap time.Duration
	if !data.CurrentTime.IsZero() {
		gap = now.Sub(data.CurrentTime)
	}
	switch {
	case gap < 0:
		timer.lastPredResetTime = shiftInstant(timer.lastPredResetTime, gap)
		timer.lastLimitTime = shiftInstant(timer.lastLimitTime, gap)
	case gap > 0 && timer.state == StateInvalid:
		downtime := gap.Truncate(time.Second)
		timer.elapsedIdleTime += downtime
		timer.idleSpan = downtime
	}

	timer.nextPredResetTime = time.Time{}
	timer.computeSchedulesLocked(now)
}

func shiftInstant(instant time.Time, delta time.Duration) time.Time {
	if instant.IsZero() {
		return instant
	}
	return instant.Add(delta)
}

func formatInstant(instant time.Time) string {
	if instant.IsZero() {
		return "0"
	}
	return strconv.FormatInt(instant.Unix(), 10)
}

func parseInstant(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}

func formatSeconds(value time.Duration) string {
	return strconv.FormatInt(int64(value/time.Second), 10)
}
