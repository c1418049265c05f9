package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"workpace/internal/core/timer"
	"workpace/internal/platform"
	"workpace/internal/storage"
	"workpace/internal/ui/display"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored accounting of every timer",
	Long: `Status reads the saved timer states and prints elapsed, idle and overdue
time per timer. Values reflect the last save of a running driver.`,
	Args: cobra.NoArgs,
	RunE: showStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	DriverRunning bool         `json:"driver_running"`
	Timers        []timerState `json:"timers"`
}

type timerState struct {
	ID             string    `json:"id"`
	Configured     bool      `json:"configured"`
	LimitSeconds   int64     `json:"limit_seconds"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	IdleSeconds    int64     `json:"idle_seconds"`
	OverdueSeconds int64     `json:"overdue_seconds"`
	SavedAt        time.Time `json:"saved_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Error          string    `json:"error,omitempty"`
}

func showStatus(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStateStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing timer states: %w", err)
	}

	limits := make(map[string]time.Duration, len(config.Timers))
	for _, timerConfig := range config.Timers {
		limits[timerConfig.ID] = timerConfig.Limit
	}

	output := statusOutput{
		DriverRunning: platform.InstanceRunning(appName),
		Timers:        make([]timerState, 0, len(records)),
	}
	for _, record := range records {
		output.Timers = append(output.Timers, describeRecord(record, limits))
	}

	if statusJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}
	return printStatus(cmd.OutOrStdout(), output)
}

func describeRecord(record storage.Record, limits map[string]time.Duration) timerState {
	limit, configured := limits[record.ID]
	state := timerState{
		ID:           record.ID,
		Configured:   configured,
		LimitSeconds: int64(limit / time.Second),
		UpdatedAt:    record.UpdatedAt,
	}
	data, err := timer.ParseState(record.Payload, record.Version)
	if err != nil {
		state.Error = err.Error()
		return state
	}
	state.ElapsedSeconds = int64(data.ElapsedTime / time.Second)
	state.IdleSeconds = int64(data.ElapsedIdleTime / time.Second)
	state.OverdueSeconds = int64(data.TotalOverdueTime / time.Second)
	state.SavedAt = data.CurrentTime
	return state
}

func printStatus(w io.Writer, output statusOutput) error {
	driver := "stopped"
	if output.DriverRunning {
		driver = "running"
	}
	fmt.Fprintf(w, "Driver: %s\n", driver)

	if len(output.Timers) == 0 {
		fmt.Fprintln(w, "No saved timer states.")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMER\tELAPSED\tLIMIT\tIDLE\tOVERDUE\tSAVED")
	for _, state := range output.Timers {
		if state.Error != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", state.ID, state.Error)
			continue
		}
		limit := "-"
		if state.Configured && state.LimitSeconds > 0 {
			limit = display.Clock(seconds(state.LimitSeconds))
		}
		saved := "-"
		if !state.SavedAt.IsZero() {
			saved = state.SavedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			state.ID,
			display.Clock(seconds(state.ElapsedSeconds)),
			limit,
			display.Clock(seconds(state.IdleSeconds)),
			display.Clock(seconds(state.OverdueSeconds)),
			saved,
		)
	}
	return tw.Flush()
}

func seconds(value int64) time.Duration {
	return time.Duration(value) * time.Second
}
