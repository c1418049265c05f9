package cli

import (
	"context"
	"errors"
	"fmt"

	"workpace/internal/core/timer"
	"workpace/internal/log"
	"workpace/internal/platform"
	"workpace/internal/storage"

	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset [timer-id...]",
	Short: "Reset the stored accounting of one or more timers",
	Long: `Reset zeroes the elapsed and idle time saved for the named timers, the
same way the tray Reset action does. The driver must not be running, since it
would overwrite the store with its own state on the next save.`,
	RunE: resetTimers,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "reset every stored timer")
	rootCmd.AddCommand(resetCmd)
}

func resetTimers(cmd *cobra.Command, args []string) error {
	if resetAll == (len(args) > 0) {
		return errors.New("name at least one timer id, or use --all")
	}
	if platform.InstanceRunning(appName) {
		return errors.New("a workpace driver is running; use its Reset action or stop it first")
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStateStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	ids := args
	if resetAll {
		records, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("listing timer states: %w", err)
		}
		ids = make([]string, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.ID)
		}
	}

	for _, id := range ids {
		if err := resetStoredTimer(ctx, store, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", id)
	}
	return nil
}

// resetStoredTimer loads the saved state into a detached timer, resets it
// and writes it back in the current schema version.
func resetStoredTimer(ctx context.Context, store *storage.StateStore, id string) error {
	record, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("reset %s: %w", id, err)
	}

	item := timer.New(id, timer.Options{})
	if err := item.DeserializeState(record.Payload, record.Version); err != nil {
		log.Warn("discarding unreadable timer state", "timer", id, "error", err)
	}
	item.ResetTimer()

	if err := store.Save(ctx, id, timer.StateVersion, item.SerializeState()); err != nil {
		return fmt.Errorf("reset %s: %w", id, err)
	}
	log.Info("timer reset", "timer", id, "previous_version", record.Version)
	return nil
}
