package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workpace/internal/core/timekeeper"
	"workpace/internal/core/timer"
	"workpace/internal/log"
	"workpace/internal/ui/overlay"
	"workpace/internal/ui/preferences"
	"workpace/internal/ui/tray"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const promptOpacity = uint8(217)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the timers with a system tray menu and limit prompts",
	Long: `Tray drives every configured timer like "workpace run" and adds a system
tray menu with each timer's progress plus Snooze, Reset, Pause and Preferences
actions. A prompt window appears whenever a timer reaches its limit.`,
	Args: cobra.NoArgs,
	RunE: runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
}

func runTray(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := log.StartRun()
	d, err := openDriver(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	fyneApp := app.NewWithID("com.workpace.app")
	fyneApp.SetIcon(theme.HistoryIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		return errors.New("system tray unsupported on this platform")
	}

	trayWindow := fyneApp.NewWindow("Workpace")
	trayWindow.SetContent(widget.NewLabel("Workpace is running in the system tray."))
	trayWindow.SetCloseIntercept(trayWindow.Hide)
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	keeper := d.keeper
	prompt := overlay.New(fyneApp, overlay.Config{Opacity: promptOpacity})
	prompt.SetOnSnooze(func(id string) {
		reportAction("snooze", id, keeper.Snooze(id))
	})
	prompt.SetOnReset(func(id string) {
		reportAction("reset", id, keeper.Reset(id))
	})

	prefsWindow := preferences.New(fyneApp, d.config, d.applyConfig)

	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnPreferences: prefsWindow.Show,
		OnTogglePause: func() {
			if keeper.IsPaused() {
				keeper.Resume()
			} else {
				keeper.Pause()
			}
		},
		OnSnooze: func(id string) {
			reportAction("snooze", id, keeper.Snooze(id))
		},
		OnReset: func(id string) {
			reportAction("reset", id, keeper.Reset(id))
		},
		OnQuit: fyneApp.Quit,
	})
	trayManager.SetStatuses(keeper.Snapshot())
	desktopApp.SetSystemTrayIcon(theme.MediaPlayIcon())

	events := keeper.Subscribe(64)
	appDone := make(chan struct{})
	flushCtx, cancelFlush := context.WithCancel(ctx)
	defer cancelFlush()

	group, groupCtx := errgroup.WithContext(flushCtx)
	group.Go(func() error {
		for event := range events {
			logEvent(event)
			select {
			case <-appDone:
				continue
			default:
			}
			fyne.Do(func() {
				handleTrayEvent(event, keeper, prompt, trayManager, desktopApp)
			})
		}
		return nil
	})
	group.Go(func() error {
		return d.flushLoop(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-ctx.Done():
			fyne.Do(fyneApp.Quit)
		case <-appDone:
		}
		return nil
	})

	keeper.Start()
	log.Info("tray running", "run_id", runID)
	fyneApp.Run()

	close(appDone)
	d.shutdown()
	cancelFlush()
	return group.Wait()
}

func handleTrayEvent(event timekeeper.Event, keeper *timekeeper.TimeKeeper, prompt *overlay.Window, trayManager *tray.Manager, desktopApp desktop.App) {
	switch event.Type {
	case timekeeper.EventTick:
		statuses := keeper.Snapshot()
		trayManager.SetStatuses(statuses)
		for _, status := range statuses {
			prompt.Update(status)
		}
	case timekeeper.EventTimer:
		switch event.Timer {
		case timer.EventLimitReached:
			status, snooze, ok := timerStatus(keeper, event.TimerID)
			if ok {
				prompt.Show(overlay.PromptFor(status, snooze))
			}
		case timer.EventNaturalReset, timer.EventReset:
			if id, visible := prompt.Visible(); visible && id == event.TimerID {
				prompt.Hide()
			}
		}
	case timekeeper.EventPaused:
		trayManager.SetPaused(true)
		desktopApp.SetSystemTrayIcon(theme.MediaPauseIcon())
	case timekeeper.EventResumed:
		trayManager.SetPaused(false)
		desktopApp.SetSystemTrayIcon(theme.MediaPlayIcon())
	}
}

func timerStatus(keeper *timekeeper.TimeKeeper, id string) (timekeeper.Status, time.Duration, bool) {
	item, ok := keeper.Timer(id)
	if !ok {
		return timekeeper.Status{}, 0, false
	}
	for _, status := range keeper.Snapshot() {
		if status.ID == id {
			return status, item.Snooze(), true
		}
	}
	return timekeeper.Status{}, 0, false
}

func reportAction(action, id string, err error) {
	if err != nil {
		log.Warn("timer action failed", "action", action, "timer", id, "error", err)
		return
	}
	log.Info("timer action", "action", action, "timer", id)
}
