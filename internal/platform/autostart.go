package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// LaunchEntry describes a command started when the user logs in.
type LaunchEntry struct {
	Name string
	Exec string
	Args []string
}

func (entry LaunchEntry) validate() error {
	if strings.TrimSpace(entry.Name) == "" {
		return errors.New("launch entry name is empty")
	}
	if entry.Exec == "" {
		return errors.New("launch entry exec path is empty")
	}
	return nil
}

// Autostart registers launch entries with the session manager.
type Autostart interface {
	Enable(entry LaunchEntry) error
	Disable(name string) error
	IsEnabled(name string) (bool, error)
}

type autostart struct {
	// configDir overrides ConfigDir in tests.
	configDir string
}

// NewAutostart returns the implementation for the current OS.
func NewAutostart() Autostart {
	return &autostart{}
}

// ConfigDir returns the OS-standard configuration directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}
	return fallbackConfigDir(homeDir), nil
}

func (service *autostart) baseDir() (string, error) {
	if service.configDir != "" {
		return service.configDir, nil
	}
	return ConfigDir()
}

// slug turns a display name into a file-name friendly identifier.
func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "-")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"") {
		return `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
	}
	return arg
}

func commandLine(entry LaunchEntry) string {
	parts := make([]string, 0, len(entry.Args)+1)
	parts = append(parts, quoteArg(entry.Exec))
	for _, arg := range entry.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}
