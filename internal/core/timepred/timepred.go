// Package timepred implements wall-clock reset rules for timers.
//
// A rule answers one question: given the last time it fired, when does it fire
// next? Rules are evaluated in the location of the time they are given.
package timepred

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRule indicates a rule string that cannot be parsed.
var ErrInvalidRule = errors.New("invalid reset rule")

// Predicate computes fire instants of a recurring wall-clock rule.
type Predicate interface {
	// Next returns the first fire instant strictly after the given time.
	Next(after time.Time) time.Time
	// String returns the rule in the form accepted by Parse.
	String() string
}

// Daily fires once per day at Hour:Minute.
type Daily struct {
	Hour   int
	Minute int
}

// Next returns the first Hour:Minute strictly after the given time.
func (rule Daily) Next(after time.Time) time.Time {
	candidate := time.Date(after.Year(), after.Month(), after.Day(), rule.Hour, rule.Minute, 0, 0, after.Location())
	if !candidate.After(after) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func (rule Daily) String() string {
	return fmt.Sprintf("day/%02d:%02d", rule.Hour, rule.Minute)
}

// Weekly fires once per week on Weekday at Hour:Minute.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Next returns the first matching weekday and time strictly after the given time.
func (rule Weekly) Next(after time.Time) time.Time {
	candidate := time.Date(after.Year(), after.Month(), after.Day(), rule.Hour, rule.Minute, 0, 0, after.Location())
	days := (int(rule.Weekday) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, days)
	if !candidate.After(after) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func (rule Weekly) String() string {
	return fmt.Sprintf("weekday/%s/%02d:%02d", weekdayNames[rule.Weekday], rule.Hour, rule.Minute)
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

// Parse reads a rule of the form "day/HH:MM" or "weekday/<day>/HH:MM".
func Parse(rule string) (Predicate, error) {
	parts := strings.Split(strings.TrimSpace(strings.ToLower(rule)), "/")
	switch {
	case len(parts) == 2 && parts[0] == "day":
		hour, minute, err := parseClock(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRule, rule, err)
		}
		return Daily{Hour: hour, Minute: minute}, nil
	case len(parts) == 3 && parts[0] == "weekday":
		weekday, err := parseWeekday(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRule, rule, err)
		}
		hour, minute, err := parseClock(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRule, rule, err)
		}
		return Weekly{Weekday: weekday, Hour: hour, Minute: minute}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidRule, rule)
	}
}

func parseClock(value string) (int, int, error) {
	hourText, minuteText, found := strings.Cut(value, ":")
	if !found {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour out of range: %q", hourText)
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute out of range: %q", minuteText)
	}
	return hour, minute, nil
}

func parseWeekday(value string) (time.Weekday, error) {
	for weekday, name := range weekdayNames {
		if value == name || value == strings.ToLower(weekday.String()) {
			return weekday, nil
		}
	}
	if number, err := strconv.Atoi(value); err == nil && number >= 0 && number <= 6 {
		return time.Weekday(number), nil
	}
	return 0, fmt.Errorf("unknown weekday %q", value)
}
