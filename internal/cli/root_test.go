package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/themekit/internal/cli/config"
	"github.com/leapstack-labs/themekit/internal/cli/testutil"
	"github.com/leapstack-labs/themekit/internal/compat"
	"github.com/leapstack-labs/themekit/internal/pipeline"
)

func execute(t *testing.T, args ...string) testutil.Result {
	t.Helper()
	config.ResetConfig()
	return testutil.ExecuteCommand(context.Background(), NewRootCmd(), args...)
}

func TestRootCmd_Metadata(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "themekit", cmd.Use)
	for _, flag := range []string{"config", "theme-dir", "mount-dir", "zip-dir", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"build", "build:prod", "zip", "check", "dev", "release", "run", "tasks", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestBuildAndZip(t *testing.T) {
	dir := testutil.SetupTestTheme(t)

	res := execute(t, "build", "--theme-dir", dir, "-o", "markdown")
	require.NoError(t, res.Err, res.ErrOut)

	assert.FileExists(t, filepath.Join(dir, config.DefaultMountDir, "index.hbs"))
	assert.FileExists(t, filepath.Join(dir, config.DefaultMountDir, "assets/built/screen.css"))
	assert.Contains(t, res.Out, "Your theme is compatible")
	assert.Contains(t, res.ErrOut, "Finished 'check' after")

	res = execute(t, "package", "--theme-dir", dir, "--zip-dir", "dist", "-o", "markdown")
	require.NoError(t, res.Err, res.ErrOut)
	assert.FileExists(t, filepath.Join(dir, "dist", "starter.zip"))
}

func TestCheck_JSONOutput(t *testing.T) {
	dir := testutil.SetupTestTheme(t)

	res := execute(t, "check", "--theme-dir", dir, "--check-version", "v4", "-o", "json")
	require.NoError(t, res.Err, res.ErrOut)

	var got compat.Theme
	require.NoError(t, json.Unmarshal([]byte(res.Out), &got), "stdout must hold only the JSON result")
	assert.Equal(t, "4.x", got.CheckedVersion)
	assert.NotEmpty(t, got.Pass)
}

func TestCheck_FatalFails(t *testing.T) {
	dir := testutil.SetupTestTheme(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "package.json")))

	res := execute(t, "test", "--theme-dir", dir, "--fatal", "-o", "markdown")
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, pipeline.ErrFatalFindings)
	assert.Contains(t, res.Out, "package.json")
}

func TestRun_UnknownTask(t *testing.T) {
	dir := testutil.SetupTestTheme(t)

	res := execute(t, "run", "deploy", "--theme-dir", dir)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "deploy")
}

func TestTasks_JSON(t *testing.T) {
	res := execute(t, "tasks", "--theme-dir", t.TempDir(), "-o", "json")
	require.NoError(t, res.Err)

	var got []struct {
		Name  string   `json:"name"`
		Steps []string `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Out), &got))

	steps := map[string][]string{}
	for _, tk := range got {
		steps[tk.Name] = tk.Steps
	}
	assert.Equal(t, []string{"css", "js", "copy", "check"}, steps["build"])
	assert.Equal(t, []string{"build", "archive"}, steps["zip"])
	assert.Equal(t, []string{"dev"}, steps["default"])
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("check:\n  version: v9\n"), 0o600))

	res := execute(t, "build", "--theme-dir", dir)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "check.version")
}

func TestRootCmd_VerboseListsConfigFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("zip_dir: dist\n"), 0o600))

	res := execute(t, "version", "--theme-dir", dir, "-v")
	require.NoError(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Out, "themekit v"+Version))
	assert.Contains(t, res.ErrOut, "Using config file: "+filepath.Join(dir, config.ConfigFileName))
}

func TestCompletionCommand(t *testing.T) {
	res := execute(t, "completion", "bash")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "themekit")
}
