package tray

import (
	"slices"

	"workpace/internal/core/timekeeper"
	"workpace/internal/ui/display"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

const menuTitle = "Workpace"

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnPreferences func()
	OnTogglePause func()
	OnSnooze      func(id string)
	OnReset       func(id string)
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app       desktop.App
	callbacks Callbacks
	statuses  []timekeeper.Status
	paused    bool
	labels    []string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}
	manager.refreshMenu()
	return manager
}

// SetStatuses replaces the per-timer status lines.
// The menu is rebuilt only when a visible label changed.
func (manager *Manager) SetStatuses(statuses []timekeeper.Status) {
	manager.statuses = statuses
	labels := statusLabels(statuses)
	if slices.Equal(labels, manager.labels) {
		return
	}
	manager.labels = labels
	manager.refreshMenu()
}

// SetPaused updates pause state.
func (manager *Manager) SetPaused(paused bool) {
	if manager.paused == paused {
		return
	}
	manager.paused = paused
	manager.refreshMenu()
}

// Menu builds the current tray menu.
func (manager *Manager) Menu() *fyne.Menu {
	items := make([]*fyne.MenuItem, 0, len(manager.statuses)+5)
	if len(manager.statuses) == 0 {
		starting := fyne.NewMenuItem("Starting...", nil)
		starting.Disabled = true
		items = append(items, starting)
	}
	for _, status := range manager.statuses {
		items = append(items, manager.timerItem(status))
	}
	items = append(items, fyne.NewMenuItemSeparator())

	pauseLabel := "Pause all"
	if manager.paused {
		pauseLabel = "Resume all"
	}
	items = append(items,
		fyne.NewMenuItem(pauseLabel, func() {
			if manager.callbacks.OnTogglePause != nil {
				manager.callbacks.OnTogglePause()
			}
		}),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	)
	return fyne.NewMenu(menuTitle, items...)
}

func (manager *Manager) timerItem(status timekeeper.Status) *fyne.MenuItem {
	id := status.ID
	item := fyne.NewMenuItem(display.StatusLine(status), nil)

	snooze := fyne.NewMenuItem("Snooze", func() {
		if manager.callbacks.OnSnooze != nil {
			manager.callbacks.OnSnooze(id)
		}
	})
	snooze.Disabled = !status.Enabled || status.Limit <= 0 || status.Elapsed < status.Limit

	reset := fyne.NewMenuItem("Reset", func() {
		if manager.callbacks.OnReset != nil {
			manager.callbacks.OnReset(id)
		}
	})
	reset.Disabled = !status.Enabled

	items := []*fyne.MenuItem{snooze, reset}
	if remaining := status.Remaining(); status.Enabled && remaining > 0 {
		next := fyne.NewMenuItem("Limit in "+display.Clock(remaining), nil)
		next.Disabled = true
		items = append([]*fyne.MenuItem{next}, items...)
	}
	item.ChildMenu = fyne.NewMenu("", items...)
	return item
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.Menu())
	}
}

func statusLabels(statuses []timekeeper.Status) []string {
	labels := make([]string, len(statuses))
	for i, status := range statuses {
		labels[i] = display.StatusLine(status)
	}
	return labels
}
