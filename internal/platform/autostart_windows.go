//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

const registryRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func (service *autostart) Enable(entry LaunchEntry) error {
	if err := entry.validate(); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	output, err := exec.Command(
		"reg", "add", registryRunKey,
		"/v", entry.Name,
		"/t", "REG_SZ",
		"/d", commandLine(entry),
		"/f",
	).CombinedOutput()
	if err != nil {
		return fmt.Errorf("enable autostart: reg add failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (service *autostart) Disable(name string) error {
	enabled, err := service.IsEnabled(name)
	if err != nil || !enabled {
		return err
	}
	output, err := exec.Command("reg", "delete", registryRunKey, "/v", name, "/f").CombinedOutput()
	if err != nil {
		return fmt.Errorf("disable autostart: reg delete failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (service *autostart) IsEnabled(name string) (bool, error) {
	err := exec.Command("reg", "query", registryRunKey, "/v", name).Run()
	if _, ok := err.(*exec.ExitError); ok {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query autostart: %w", err)
	}
	return true, nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}
