//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

func (service *autostart) Enable(entry LaunchEntry) error {
	if err := entry.validate(); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	path, err := service.desktopFilePath(entry.Name)
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("enable autostart: create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(buildDesktopEntry(entry)), 0o644); err != nil {
		return fmt.Errorf("enable autostart: write desktop entry: %w", err)
	}
	return nil
}

func (service *autostart) Disable(name string) error {
	path, err := service.desktopFilePath(name)
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("disable autostart: remove desktop entry: %w", err)
	}
	return nil
}

func (service *autostart) IsEnabled(name string) (bool, error) {
	path, err := service.desktopFilePath(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (service *autostart) desktopFilePath(name string) (string, error) {
	configDir, err := service.baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "autostart", slug(name)+".desktop"), nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

func buildDesktopEntry(entry LaunchEntry) string {
	return fmt.Sprintf(
		`[Desktop Entry]
Type=Application
Name=%s
Comment=Activity timers
Exec=%s
X-GNOME-Autostart-enabled=true
Terminal=false
`,
		entry.Name,
		commandLine(entry),
	)
}
