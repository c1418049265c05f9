package preferences

import (
	"workpace/internal/core/model"
	"workpace/internal/ui/display"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the timer settings UI.
type Window struct {
	window   fyne.Window
	config   model.TimeKeeperConfig
	onSave   func(model.TimeKeeperConfig) error
	rows     []*timerRow
	rowsArea *fyne.Container
}

type timerRow struct {
	id        string
	enabled   *widget.Check
	limit     *widget.Entry
	snooze    *widget.Entry
	autoReset *widget.Entry
	sensitive *widget.Check
}

// New creates a settings window. onSave receives the edited configuration;
// a returned error is shown and keeps the window open.
func New(app fyne.App, config model.TimeKeeperConfig, onSave func(model.TimeKeeperConfig) error) *Window {
	window := app.NewWindow("Workpace Settings")

	prefs := &Window{
		window:   window,
		onSave:   onSave,
		rowsArea: container.NewVBox(),
	}
	prefs.UpdateConfig(config)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", func() {
		prefs.UpdateConfig(prefs.config)
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, container.NewVScroll(prefs.rowsArea))
	window.SetContent(content)
	window.SetCloseIntercept(window.Hide)
	window.Resize(fyne.NewSize(460, 520))

	return prefs
}

// Show displays the settings window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateConfig replaces window values.
func (prefs *Window) UpdateConfig(config model.TimeKeeperConfig) {
	prefs.config = config
	prefs.rows = prefs.rows[:0]
	prefs.rowsArea.RemoveAll()
	for _, settings := range FromConfig(config) {
		row := newTimerRow(settings)
		prefs.rows = append(prefs.rows, row)
		prefs.rowsArea.Add(row.card())
	}
}

// Settings returns the values currently entered in the form.
func (prefs *Window) Settings() []TimerSettings {
	settings := make([]TimerSettings, 0, len(prefs.rows))
	for _, row := range prefs.rows {
		settings = append(settings, row.settings())
	}
	return settings
}

func (prefs *Window) handleSave() {
	updated, err := Apply(prefs.config, prefs.Settings())
	if err == nil && prefs.onSave != nil {
		err = prefs.onSave(updated)
	}
	if err != nil {
		dialog.ShowError(err, prefs.window)
		return
	}
	prefs.config = updated
	prefs.window.Hide()
}

func newTimerRow(settings TimerSettings) *timerRow {
	row := &timerRow{
		id:        settings.ID,
		enabled:   widget.NewCheck("Enabled", nil),
		limit:     widget.NewEntry(),
		snooze:    widget.NewEntry(),
		autoReset: widget.NewEntry(),
		sensitive: widget.NewCheck("Count only while active", nil),
	}
	row.enabled.SetChecked(settings.Enabled)
	row.limit.SetText(settings.Limit)
	row.snooze.SetText(settings.Snooze)
	row.autoReset.SetText(settings.AutoReset)
	row.autoReset.SetPlaceHolder("10m or day/00:00")
	row.sensitive.SetChecked(settings.ActivitySensitive)
	return row
}

func (row *timerRow) card() fyne.CanvasObject {
	form := widget.NewForm(
		widget.NewFormItem("Limit", row.limit),
		widget.NewFormItem("Snooze", row.snooze),
		widget.NewFormItem("Reset after", row.autoReset),
	)
	return widget.NewCard(display.TimerName(row.id), "", container.NewVBox(row.enabled, form, row.sensitive))
}

func (row *timerRow) settings() TimerSettings {
	return TimerSettings{
		ID:                row.id,
		Enabled:           row.enabled.Checked,
		Limit:             row.limit.Text,
		Snooze:            row.snooze.Text,
		AutoReset:         row.autoReset.Text,
		ActivitySensitive: row.sensitive.Checked,
	}
}
