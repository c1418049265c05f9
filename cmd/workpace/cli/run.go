package cli

import (
	"os"
	"os/signal"
	"syscall"

	"workpace/internal/core/timekeeper"
	"workpace/internal/log"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timers headless and log their events",
	Long: `Run drives every configured timer from the OS idle time until interrupted.
Limit, reset and activity events are written to the log. Timer states are
saved periodically and once more on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runDriver,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDriver(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := log.StartRun()
	d, err := openDriver(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	events := d.keeper.Subscribe(64)
	d.keeper.Start()
	log.Info("running", "run_id", runID)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		consumeEvents(events)
		return nil
	})
	group.Go(func() error {
		return d.flushLoop(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		d.shutdown()
		return nil
	})
	return group.Wait()
}

// consumeEvents logs events until the keeper closes the channel.
func consumeEvents(events <-chan timekeeper.Event) {
	for event := range events {
		logEvent(event)
	}
}
