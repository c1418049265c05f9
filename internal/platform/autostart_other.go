//go:build !linux && !darwin && !windows

package platform

import (
	"errors"
	"path/filepath"
)

var errAutostartUnsupported = errors.New("autostart unsupported on this platform")

func (service *autostart) Enable(LaunchEntry) error { return errAutostartUnsupported }
func (service *autostart) Disable(string) error { return errAutostartUnsupported }
func (service *autostart) IsEnabled(string) (bool, error) { return false, nil }

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}
