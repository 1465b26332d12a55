package main

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keepConfig(t *testing.T) {
	t.Helper()
	saved := config
	t.Cleanup(func() {
		config = saved
		logThreshold = levelInfo
	})
}

func TestValidateAndNormalizeConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty api", func(c *Config) { c.BaseURL = "" }, "-api must not be empty"},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x" }, "-api must be an http(s) URL"},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }, "-timeout must be > 0"},
		{"mode", func(c *Config) { c.GenerateMode = "fast" }, "-mode must be default or random"},
		{"watch without sbox", func(c *Config) { c.Watch = true }, "-watch requires -sbox"},
		{"image without sbox", func(c *Config) { c.ImagePath = "a.png" }, "-image requires -sbox"},
		{"headless without out", func(c *Config) { c.Headless, c.OutDir = true, "" }, "-headless requires -out"},
		{"save-png without out", func(c *Config) { c.SavePNG, c.OutDir = true, "" }, "-save-png requires -out"},
		{"hist width", func(c *Config) { c.HistWidth = -1 }, "-hist-width must be >= 0"},
		{"hist height", func(c *Config) { c.HistHeight = 0 }, "-hist-height must be >= 1"},
		{"radar size", func(c *Config) { c.RadarSize = 0 }, "-radar-size must be >= 1"},
		{"top", func(c *Config) { c.TopOutputs = 0 }, "-top must be >= 1"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "-log-level must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keepConfig(t)
			tt.mutate(&config)
			err := validateAndNormalizeConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateClamps(t *testing.T) {
	keepConfig(t)
	config.PixelRatio = 9
	config.ViewSplit = 5
	config.StatsWindow = 1
	config.LogLevel = "WARN"
	require.NoError(t, validateAndNormalizeConfig())
	assert.Equal(t, 4.0, config.PixelRatio)
	assert.Equal(t, 20, config.ViewSplit)
	assert.Equal(t, 16, config.StatsWindow)
	assert.Equal(t, levelWarn, logThreshold)

	config.PixelRatio = -1
	config.ViewSplit = 95
	require.NoError(t, validateAndNormalizeConfig())
	assert.Equal(t, 1.0, config.PixelRatio)
	assert.Equal(t, 80, config.ViewSplit)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logLevel{
		"debug":   levelDebug,
		"":        levelInfo,
		" Info ":  levelInfo,
		"warning": levelWarn,
		"error":   levelError,
	} {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}

var registerAPIFlag sync.Once

func TestLoadConfigFile(t *testing.T) {
	keepConfig(t)
	registerAPIFlag.Do(func() {
		flag.StringVar(&config.BaseURL, "api", config.BaseURL, "")
	})

	path := filepath.Join(t.TempDir(), "sboxdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://from-file:5000
request_timeout: 5s
top_outputs: 3
hist_height: 200
`), 0o644))

	require.NoError(t, loadConfigFile(""))
	require.NoError(t, loadConfigFile(path))
	assert.Equal(t, "http://from-file:5000", config.BaseURL)
	assert.Equal(t, 5*time.Second, config.RequestTimeout)
	assert.Equal(t, 3, config.TopOutputs)
	assert.Equal(t, 200, config.HistHeight)
	assert.Equal(t, "info", config.LogLevel, "unset keys keep their default")

	require.NoError(t, flag.Set("api", "http://from-flag:5000"))
	require.NoError(t, loadConfigFile(path))
	assert.Equal(t, "http://from-flag:5000", config.BaseURL)

	assert.Error(t, loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestInitialAction(t *testing.T) {
	keepConfig(t)

	a, err := initialAction("")
	require.NoError(t, err)
	assert.Equal(t, actionGenerate, a.kind)
	assert.Equal(t, "default", a.mode)

	config.Sample = "2"
	a, err = initialAction("  \n")
	require.NoError(t, err)
	assert.Equal(t, actionSample, a.kind)

	config.SBoxPath = "sbox.txt"
	a, err = initialAction("")
	require.NoError(t, err)
	assert.Equal(t, actionUpload, a.kind)

	a, err = initialAction(hexList(identitySBox(), ","))
	require.NoError(t, err)
	assert.Equal(t, actionAnalyze, a.kind)
	assert.Equal(t, "stdin", a.label)

	_, err = initialAction("01 02")
	var countErr *CountError
	assert.ErrorAs(t, err, &countErr)
}

func TestRunHeadless(t *testing.T) {
	keepConfig(t)
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathGenerate, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"sbox":    identitySBox(),
			"metrics": map[string]any{"nonlinearity": 112, "sac": 0.5, "bijective": true},
		})
	})
	mux.HandleFunc("POST "+pathExport, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("xlsx"))
	})
	client := newBackend(t, mux)

	config.OutDir = t.TempDir()
	config.Export = true
	config.RadarSize = 120
	config.HistWidth = 200
	stats := newRequestStats(16)
	stats.setEnabled(true)

	var out bytes.Buffer
	require.NoError(t, runHeadless(context.Background(), client, stats, "", &out))

	text := out.String()
	assert.Contains(t, text, "Generated (default)")
	assert.Contains(t, text, "Nonlinearity       112 [success]")
	assert.Contains(t, text, "Bijective          True")
	assert.Contains(t, text, "requests: 1")

	for _, name := range []string{"grid.txt", "grid.csv", "metrics.json", "charts.html", "radar.png", "response.json", exportFileName} {
		assert.FileExists(t, filepath.Join(config.OutDir, name))
	}
}

func TestFormatMetricDuration(t *testing.T) {
	assert.Equal(t, "0.000ms", formatMetricDuration(0))
	assert.Equal(t, "1.500ms", formatMetricDuration(1500*time.Microsecond))
}
