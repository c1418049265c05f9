// Package display formats timer values for the tray menu and the limit prompt.
package display

import (
	"fmt"
	"strings"
	"time"

	"workpace/internal/core/timekeeper"
	"workpace/internal/core/timer"
)

// Clock renders a duration as MM:SS, or H:MM:SS from one hour up.
func Clock(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	seconds := int(value / time.Second)
	hours := seconds / 3600
	minutes := seconds / 60 % 60
	seconds = seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// TimerName turns an id such as rest_break into "Rest break".
func TimerName(id string) string {
	name := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(id))
	if name == "" {
		return id
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// StatusLine summarizes one timer for a menu label.
func StatusLine(status timekeeper.Status) string {
	name := TimerName(status.ID)
	if !status.Enabled {
		return name + ": off"
	}

	line := name + " " + Clock(status.Elapsed)
	if status.Limit > 0 {
		line += " / " + Clock(status.Limit)
	}
	if status.Overdue > 0 {
		line += " (+" + Clock(status.Overdue) + ")"
	}
	switch {
	case status.Frozen:
		line += ", paused"
	case status.State == timer.StateStopped:
		line += ", idle"
	}
	return line
}
