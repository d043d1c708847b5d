package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	require.ErrorContains(t, err, "ConfigPath")

	_, err = NewConfig(Config{ConfigPath: "jobs", WorkerCount: -1})
	require.ErrorContains(t, err, "must not be negative")

	_, err = NewConfig(Config{ConfigPath: "jobs", Tiles: []string{"-180X_-090Y"}})
	require.Error(t, err, "non-canonical tile ids are rejected")

	cfg, err := NewConfig(Config{ConfigPath: "jobs", Tiles: []string{"170X_080Y"}, WorkerCount: 3})
	require.NoError(t, err)
	require.Equal(t, "jobs", cfg.ConfigPath)
	require.Equal(t, 3, cfg.WorkerCount)
}

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		level   string
		format  string
		enabled slog.Level
		json    bool
	}{
		{level: "debug", format: "text", enabled: slog.LevelDebug},
		{level: "warn", format: "json", enabled: slog.LevelWarn, json: true},
		{level: "bogus", format: "text", enabled: slog.LevelInfo},
		{level: "", format: "JSON", enabled: slog.LevelInfo, json: true},
	}
	for _, tc := range testCases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			out := &bytes.Buffer{}
			logger := newLogger(tc.level, tc.format, out)

			assert.True(t, logger.Enabled(context.Background(), tc.enabled))
			assert.False(t, logger.Enabled(context.Background(), tc.enabled-1))

			logger.Error("hello", "tile", "170X_080Y")
			if tc.json {
				var line map[string]any
				require.NoError(t, json.Unmarshal(out.Bytes(), &line))
				assert.Equal(t, "170X_080Y", line["tile"])
			} else {
				assert.Contains(t, out.String(), "tile=170X_080Y")
			}
		})
	}
}

func TestSelectTiles(t *testing.T) {
	a := NewApp(&bytes.Buffer{}, &Config{ConfigPath: "x"})
	all, err := a.selectTiles()
	require.NoError(t, err)
	require.Len(t, all, 648)

	a = NewApp(&bytes.Buffer{}, &Config{ConfigPath: "x", Tiles: []string{"170X_080Y", "-180X_-90Y", "170X_080Y"}})
	some, err := a.selectTiles()
	require.NoError(t, err)
	require.Len(t, some, 2)
	require.Equal(t, "-180X_-90Y", some[0].ID, "tiles keep grid order")
	require.Equal(t, "170X_080Y", some[1].ID)
}

func TestHealthHandler(t *testing.T) {
	out := &bytes.Buffer{}
	a := NewApp(out, &Config{ConfigPath: "x", LogLevel: "debug", LogFormat: "text"})

	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, a.progress.Snapshot(), body.Progress)
	require.True(t, strings.Contains(out.String(), "Health check endpoint hit."))
}

func TestHealthCheckServer_Disabled(t *testing.T) {
	a := NewApp(&bytes.Buffer{}, &Config{ConfigPath: "x"})
	a.healthCheckServer()
	require.Nil(t, a.httpServer)
	require.NoError(t, a.closeHealthCheckServer())
}
