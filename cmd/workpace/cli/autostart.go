package cli

import (
	"fmt"
	"os"

	"workpace/internal/platform"

	"github.com/spf13/cobra"
)

const autostartName = "Workpace"

var autostartService = platform.NewAutostart()

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage starting the tray driver at login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start \"workpace tray\" when you log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		executable, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
		launchArgs := []string{"tray"}
		if configPath != "" {
			launchArgs = append(launchArgs, "--config", configPath)
		}
		if err := autostartService.Enable(platform.LaunchEntry{
			Name: autostartName,
			Exec: executable,
			Args: launchArgs,
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Autostart enabled")
		return nil
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop starting workpace at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := autostartService.Disable(autostartName); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Autostart disabled")
		return nil
	},
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether workpace starts at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := autostartService.IsEnabled(autostartName)
		if err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Autostart %s\n", state)
		return nil
	},
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
	rootCmd.AddCommand(autostartCmd)
}
