package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/reliefgrid/internal/app"
	"github.com/specialistvlad/reliefgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// runApp provides a standardized harness for running the application against
// job files using a default background context.
func runApp(t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *HarnessResult {
	t.Helper()
	return runAppWithContext(context.Background(), t, files, cfg, opts...)
}

// runAppWithContext writes files (relative path -> content) into a temporary
// config directory, points cfg at it and runs the app. Log output is dumped
// to the test log when RG_TEST_LOGS=true.
func runAppWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "config")
	workDir := filepath.Join(tmpDir, "work")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.MkdirAll(workDir, 0755))

	for name, content := range files {
		filePath := filepath.Join(configDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	cfg.ConfigPath = configDir
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = workDir
	}

	logBuffer := &testutil.SafeBuffer{}
	testApp := app.NewApp(logBuffer, &cfg, opts...)
	runErr := testApp.Run(ctx)

	if os.Getenv("RG_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	require.Empty(t, entries, "working directories must be removed after the run")

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
