// Package cli implements the workpace command-line interface using Cobra.
package cli

import (
	"fmt"

	"workpace/internal/core/model"
	"workpace/internal/log"
	"workpace/internal/storage"

	"github.com/spf13/cobra"
)

const appName = "workpace"

var (
	configPath string
	verbose    bool
	logFormat  string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Workpace - activity timers that nudge you to take breaks",
	Long: `Workpace tracks how long you have been active at the keyboard.
Each configured timer counts active time, resets itself after enough idle
time or at a wall-clock moment, and reports when its limit is reached.

Run it headless with "workpace run" or in the system tray with "workpace tray".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := log.Format(logFormat)
		switch format {
		case log.FormatAuto, log.FormatText, log.FormatJSON:
		default:
			return fmt.Errorf("unknown log format %q", logFormat)
		}
		if err := log.Init(log.Options{
			Verbose: verbose,
			Format:  format,
			File:    logFile,
			Stderr:  cmd.ErrOrStderr(),
		}); err != nil {
			// Log init failure is non-fatal; the default logger stays in place.
			cmd.PrintErrf("Warning: failed to initialize logging: %v\n", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <user config dir>/workpace/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "stderr log format: text or json (default: text on a terminal)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write every log record as JSON to this file")
}

// resolveConfigPath returns the --config value or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return storage.DefaultConfigPath(appName)
}

func loadConfig() (model.TimeKeeperConfig, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return model.TimeKeeperConfig{}, err
	}
	config, err := storage.LoadConfig(path)
	if err != nil {
		return model.TimeKeeperConfig{}, err
	}
	log.Debug("loaded config", "path", path, "timers", len(config.Timers))
	return config, nil
}

func openStateStore(config model.TimeKeeperConfig) (*storage.StateStore, error) {
	path := config.StatePath
	if path == "" {
		var err error
		path, err = storage.DefaultStatePath(appName)
		if err != nil {
			return nil, err
		}
	}
	store, err := storage.OpenStateStore(path)
	if err != nil {
		return nil, err
	}
	log.Debug("opened state store", "path", path)
	return store, nil
}
