package overlay

import (
	"fmt"
	"image/color"
	"time"

	"workpace/internal/core/timekeeper"
	"workpace/internal/ui/display"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Config defines prompt visuals.
type Config struct {
	Opacity    uint8
	Fullscreen bool
}

// Prompt describes one limit notification.
type Prompt struct {
	TimerID string
	Elapsed time.Duration
	Limit   time.Duration
	Overdue time.Duration
	Snooze  time.Duration
}

// PromptFor builds a prompt from a timer status.
func PromptFor(status timekeeper.Status, snooze time.Duration) Prompt {
	return Prompt{
		TimerID: status.ID,
		Elapsed: status.Elapsed,
		Limit:   status.Limit,
		Overdue: status.Overdue,
		Snooze:  snooze,
	}
}

// Window shows the limit prompt for one timer at a time.
type Window struct {
	window        fyne.Window
	config        Config
	current       Prompt
	visible       bool
	titleLabel    *canvas.Text
	subtitleLabel *canvas.Text
	detailLabel   *canvas.Text
	overdueLabel  *canvas.Text
	snoozeButton  *widget.Button
	resetButton   *widget.Button
	background    *canvas.Rectangle
	onSnooze      func(id string)
	onReset       func(id string)
}

const (
	promptWidthFraction  = float32(0.18)
	promptHeightFraction = float32(0.16)
	defaultScreenWidth   = float32(1920)
	defaultScreenHeight  = float32(1080)
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates a hidden prompt window.
func New(app fyne.App, config Config) *Window {
	window := app.NewWindow("Workpace")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	background := canvas.NewRectangle(color.NRGBA{A: config.Opacity})

	titleLabel := canvas.NewText("", white)
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	titleLabel.TextSize = 21

	subtitleLabel := canvas.NewText("Limit reached", white)
	subtitleLabel.TextStyle = fyne.TextStyle{Bold: true}
	subtitleLabel.TextSize = 14

	detailLabel := canvas.NewText("", white)
	detailLabel.TextSize = 15

	overdueLabel := canvas.NewText("", color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	overdueLabel.TextStyle = fyne.TextStyle{Bold: true}
	overdueLabel.TextSize = 16

	snoozeButton := widget.NewButton("Snooze", nil)
	resetButton := widget.NewButton("Break taken", nil)

	textColumn := container.New(&textLayout{}, titleLabel, subtitleLabel, detailLabel, overdueLabel)
	buttonColumn := container.New(&buttonLayout{}, snoozeButton, resetButton)
	content := container.NewBorder(nil, nil, nil, buttonColumn, textColumn)
	window.SetContent(container.NewStack(background, content))

	prompt := &Window{
		window:        window,
		config:        config,
		titleLabel:    titleLabel,
		subtitleLabel: subtitleLabel,
		detailLabel:   detailLabel,
		overdueLabel:  overdueLabel,
		snoozeButton:  snoozeButton,
		resetButton:   resetButton,
		background:    background,
	}
	snoozeButton.OnTapped = func() { prompt.answer(prompt.onSnooze) }
	resetButton.OnTapped = func() { prompt.answer(prompt.onReset) }
	window.SetCloseIntercept(prompt.Hide)

	return prompt
}

// SetOnSnooze sets the handler for the Snooze button.
func (prompt *Window) SetOnSnooze(handler func(id string)) {
	prompt.onSnooze = handler
}

// SetOnReset sets the handler for the break-taken button.
func (prompt *Window) SetOnReset(handler func(id string)) {
	prompt.onReset = handler
}

// Show displays the prompt, replacing any prompt already visible.
func (prompt *Window) Show(next Prompt) {
	prompt.current = next
	prompt.visible = true
	prompt.render()
	prompt.applyWindowMode()
	prompt.window.Show()
	prompt.window.RequestFocus()
}

// Update refreshes counters while the prompt for the same timer is visible.
func (prompt *Window) Update(status timekeeper.Status) {
	if !prompt.visible || status.ID != prompt.current.TimerID {
		return
	}
	prompt.current = PromptFor(status, prompt.current.Snooze)
	prompt.render()
}

// Visible returns the id of the timer being prompted, if any.
func (prompt *Window) Visible() (string, bool) {
	return prompt.current.TimerID, prompt.visible
}

// Hide closes the prompt.
func (prompt *Window) Hide() {
	prompt.visible = false
	if prompt.config.Fullscreen {
		prompt.window.SetFullScreen(false)
	}
	prompt.window.Hide()
}

// UpdateConfig updates prompt visuals.
func (prompt *Window) UpdateConfig(config Config) {
	prompt.config = config
	prompt.background.FillColor = color.NRGBA{A: config.Opacity}
	canvas.Refresh(prompt.background)
	if prompt.visible {
		prompt.applyWindowMode()
	}
}

func (prompt *Window) answer(handler func(id string)) {
	id := prompt.current.TimerID
	prompt.Hide()
	if handler != nil {
		handler(id)
	}
}

func (prompt *Window) render() {
	prompt.titleLabel.Text = display.TimerName(prompt.current.TimerID)
	prompt.detailLabel.Text = detailText(prompt.current)
	prompt.overdueLabel.Text = overdueText(prompt.current)
	prompt.snoozeButton.SetText(snoozeText(prompt.current))
	if prompt.current.Snooze > 0 {
		prompt.snoozeButton.Enable()
	} else {
		prompt.snoozeButton.Disable()
	}
	prompt.titleLabel.Refresh()
	prompt.detailLabel.Refresh()
	prompt.overdueLabel.Refresh()
}

func (prompt *Window) applyWindowMode() {
	prompt.applyNativeOpacity(prompt.config.Opacity)
	if prompt.config.Fullscreen {
		prompt.window.SetFullScreen(true)
		return
	}
	prompt.window.SetFullScreen(false)
	prompt.resizeToScreenFraction()
}

func (prompt *Window) resizeToScreenFraction() {
	screenSize := fyne.NewSize(defaultScreenWidth, defaultScreenHeight)
	canvasSize := prompt.window.Canvas().Size()
	// Canvas size can be reused as a proxy for monitor size when it is clearly screen-like.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	minSize := prompt.window.Content().MinSize()
	width := max(screenSize.Width*promptWidthFraction, minSize.Width)
	height := max(screenSize.Height*promptHeightFraction, minSize.Height)

	prompt.window.Resize(fyne.NewSize(width, height))
	prompt.window.CenterOnScreen()
}

func detailText(prompt Prompt) string {
	if prompt.Limit <= 0 {
		return fmt.Sprintf("Active for %s", display.Clock(prompt.Elapsed))
	}
	return fmt.Sprintf("Active for %s of %s", display.Clock(prompt.Elapsed), display.Clock(prompt.Limit))
}

func overdueText(prompt Prompt) string {
	if prompt.Overdue <= 0 {
		return ""
	}
	return "Overdue " + display.Clock(prompt.Overdue)
}

func snoozeText(prompt Prompt) string {
	if prompt.Snooze <= 0 {
		return "Snooze"
	}
	return "Snooze " + display.Clock(prompt.Snooze)
}

// textLayout stacks the labels top-down and pins the last one to the bottom edge.
type textLayout struct{}

func (layout *textLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) == 0 {
		return
	}
	pad := size.Height * 0.08
	availableWidth := max(size.Width-pad*2, 0)

	y := pad
	for i, object := range objects[:len(objects)-1] {
		objectSize := object.MinSize()
		object.Move(fyne.NewPos(pad, y))
		object.Resize(fyne.NewSize(availableWidth, objectSize.Height))
		y += objectSize.Height + float32(6+2*i)
	}

	last := objects[len(objects)-1]
	lastSize := last.MinSize()
	last.Move(fyne.NewPos(pad, max(size.Height-pad-lastSize.Height, y)))
	last.Resize(lastSize)
}

func (layout *textLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var width, height float32
	for _, object := range objects {
		objectSize := object.MinSize()
		width = max(width, objectSize.Width)
		height += objectSize.Height
	}
	return fyne.NewSize(width+20, height+40)
}

// buttonLayout stacks equal-width buttons at the bottom right.
type buttonLayout struct{}

func (layout *buttonLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	const gap = float32(6)
	width := layout.MinSize(objects).Width - 2*gap
	y := size.Height - gap
	for i := len(objects) - 1; i >= 0; i-- {
		objectSize := objects[i].MinSize()
		y -= objectSize.Height
		objects[i].Move(fyne.NewPos(gap, max(y, 0)))
		objects[i].Resize(fyne.NewSize(width, objectSize.Height))
		y -= gap
	}
}

func (layout *buttonLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	const gap = float32(6)
	var width, height float32
	for _, object := range objects {
		objectSize := object.MinSize()
		width = max(width, objectSize.Width*1.4)
		height += objectSize.Height + gap
	}
	return fyne.NewSize(width+2*gap, height+gap)
}
