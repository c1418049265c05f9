package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpace/internal/storage"
)

type testEnv struct {
	dir       string
	config    string
	statePath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:       dir,
		config:    filepath.Join(dir, "config.yaml"),
		statePath: filepath.Join(dir, "state.db"),
	}
	t.Setenv(storage.EnvStateDB, env.statePath)
	return env
}

func (env testEnv) seed(t *testing.T, records map[string]string) {
	t.Helper()
	store, err := storage.OpenStateStore(env.statePath)
	require.NoError(t, err)
	defer store.Close()
	for id, payload := range records {
		require.NoError(t, store.Save(context.Background(), id, 3, payload))
	}
}

func (env testEnv) load(t *testing.T, id string) storage.Record {
	t.Helper()
	store, err := storage.OpenStateStore(env.statePath)
	require.NoError(t, err)
	defer store.Close()
	record, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	return record
}

func resetFlags() {
	configPath = ""
	verbose = false
	logFormat = ""
	logFile = ""
	statusJSON = false
	resetAll = false
	configForce = false
}

// execute runs the root command with args and returns stdout.
// Flag variables outlive a parse, so they are cleared around every run.
func execute(t *testing.T, env testEnv, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", env.config}, args...))
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestStatus_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Driver: ")
	assert.Contains(t, out, "No saved timer states.")
}

func TestStatus_Table(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{
		"rest_break": "1700000000 120 30 0 15 0 0 0",
		"lunch":      "1700000000 60 0 0 0 0 0 0",
	})

	out, err := execute(t, env, "status")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	var restLine, lunchLine string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "rest_break"):
			restLine = line
		case strings.HasPrefix(line, "lunch"):
			lunchLine = line
		}
	}
	assert.Equal(t, []string{"rest_break", "02:00", "45:00", "00:30", "00:15"}, strings.Fields(restLine)[:5])
	assert.Equal(t, []string{"lunch", "01:00", "-"}, strings.Fields(lunchLine)[:3])
	assert.Contains(t, out, "TIMER")
}

func TestStatus_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{
		"rest_break":  "1700000000 120 30 0 15 0 0 0",
		"micro_pause": "not a payload",
	})

	out, err := execute(t, env, "status", "--json")
	require.NoError(t, err)

	var output statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	require.Len(t, output.Timers, 2)

	micro, rest := output.Timers[0], output.Timers[1]
	assert.Equal(t, "micro_pause", micro.ID)
	assert.NotEmpty(t, micro.Error)

	assert.Equal(t, "rest_break", rest.ID)
	assert.True(t, rest.Configured)
	assert.Equal(t, int64(2700), rest.LimitSeconds)
	assert.Equal(t, int64(120), rest.ElapsedSeconds)
	assert.Equal(t, int64(30), rest.IdleSeconds)
	assert.Equal(t, int64(15), rest.OverdueSeconds)
	assert.Equal(t, int64(1700000000), rest.SavedAt.Unix())
	assert.Empty(t, rest.Error)
}

func TestReset_ZeroesAccounting(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{"rest_break": "1700000000 120 30 0 15 0 0 0"})

	out, err := execute(t, env, "reset", "rest_break")
	require.NoError(t, err)
	assert.Equal(t, "Reset rest_break\n", out)

	record := env.load(t, "rest_break")
	fields := strings.Fields(record.Payload)
	require.Len(t, fields, 8)
	assert.Equal(t, 3, record.Version)
	assert.Equal(t, "0", fields[1], "elapsed")
	assert.Equal(t, "0", fields[2], "idle")
	assert.Equal(t, "15", fields[4], "overdue total survives")
}

func TestReset_UpgradesOldPayload(t *testing.T) {
	env := newTestEnv(t)
	store, err := storage.OpenStateStore(env.statePath)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "micro_pause", 1, "1700000000 90 10"))
	require.NoError(t, store.Close())

	_, err = execute(t, env, "reset", "micro_pause")
	require.NoError(t, err)

	record := env.load(t, "micro_pause")
	assert.Equal(t, 3, record.Version)
	assert.Len(t, strings.Fields(record.Payload), 8)
}

func TestReset_All(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{
		"rest_break":  "1700000000 120 30 0 0 0 0 0",
		"micro_pause": "1700000000 60 5 0 0 0 0 0",
	})

	out, err := execute(t, env, "reset", "--all")
	require.NoError(t, err)

	assert.Equal(t, "Reset micro_pause\nReset rest_break\n", out)
	for _, id := range []string{"micro_pause", "rest_break"} {
		assert.Equal(t, "0", strings.Fields(env.load(t, id).Payload)[1], id)
	}
}

func TestReset_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, env, "reset")
	assert.ErrorContains(t, err, "--all")

	_, err = execute(t, env, "reset", "--all", "rest_break")
	assert.ErrorContains(t, err, "--all")

	_, err = execute(t, env, "reset", "lunch")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, env.config)

	config, err := storage.LoadConfig(env.config)
	require.NoError(t, err)
	assert.Len(t, config.Timers, 3)

	_, err = execute(t, env, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, env, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, env.config+"\n", out)
}

func TestRoot_RejectsUnknownLogFormat(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, env, "--log-format", "xml", "status")

	assert.ErrorContains(t, err, "unknown log format")
	_, statErr := os.Stat(env.statePath)
	assert.True(t, os.IsNotExist(statErr))
}
