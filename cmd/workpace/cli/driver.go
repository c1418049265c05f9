package cli

import (
	"context"
	"errors"
	"time"

	"workpace/internal/core/model"
	"workpace/internal/core/timekeeper"
	"workpace/internal/core/timer"
	"workpace/internal/log"
	"workpace/internal/platform"
	"workpace/internal/storage"
)

// driver bundles what a long-running command owns: the instance lock,
// the state store, the activity monitor and the timekeeper itself.
type driver struct {
	config  model.TimeKeeperConfig
	guard   *platform.InstanceGuard
	store   *storage.StateStore
	monitor *platform.ActivityMonitor
	keeper  *timekeeper.TimeKeeper
}

func openDriver(ctx context.Context) (*driver, error) {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		return nil, err
	}
	d := &driver{guard: guard}

	d.config, err = loadConfig()
	if err != nil {
		d.close()
		return nil, err
	}
	d.store, err = openStateStore(d.config)
	if err != nil {
		d.close()
		return nil, err
	}
	d.keeper, err = timekeeper.New(d.config, timekeeper.Options{})
	if err != nil {
		d.close()
		return nil, err
	}
	if err := d.keeper.Restore(ctx, d.store); err != nil {
		// Unreadable rows only cost their timer its history.
		log.Warn("restore timer states", "error", err)
	}

	d.monitor = platform.NewActivityMonitor(platform.NewIdleProvider(), d.config.IdleThreshold)
	d.keeper.SetActivityMonitor(d.monitor)
	log.Info("driver ready", "timers", d.keeper.IDs(), "instance", guard.Address())
	return d, nil
}

// flushLoop persists every timer on the configured interval until ctx ends.
func (d *driver) flushLoop(ctx context.Context) error {
	interval := d.config.FlushInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.keeper.Persist(ctx, d.store); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("persist timer states", "error", err)
			}
		}
	}
}

// applyConfig saves config to disk and hands it to the running keeper.
func (d *driver) applyConfig(config model.TimeKeeperConfig) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := d.keeper.UpdateConfig(config); err != nil {
		return err
	}
	if err := storage.SaveConfig(path, config); err != nil {
		return err
	}
	d.config = config
	log.Info("config updated", "path", path)
	return nil
}

// shutdown stops ticking and writes the final states.
func (d *driver) shutdown() {
	d.keeper.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.keeper.Persist(ctx, d.store); err != nil {
		log.Error("persist timer states on shutdown", "error", err)
		return
	}
	log.Info("timer states saved")
}

func (d *driver) close() {
	if d.monitor != nil {
		d.monitor.Close()
	}
	if d.store != nil {
		d.store.Close()
	}
	_ = d.guard.Release()
}

func logEvent(event timekeeper.Event) {
	switch event.Type {
	case timekeeper.EventTick:
		return
	case timekeeper.EventTimer:
		attrs := []any{
			"timer", event.TimerID,
			"event", string(event.Timer),
			"elapsed", event.Info.ElapsedTime,
			"idle", event.Info.IdleTime,
		}
		if event.Timer == timer.EventLimitReached {
			log.Warn("limit reached", attrs...)
			return
		}
		log.Info("timer event", attrs...)
	case timekeeper.EventClockShift:
		log.Warn("wall clock moved backwards", "shift", event.Shift)
	case timekeeper.EventActivityError:
		log.Warn("activity source", "error", event.Message)
	default:
		log.Info(string(event.Type), "message", event.Message)
	}
}
