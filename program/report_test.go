package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestWriteReportGenerate(t *testing.T) {
	dir := t.TempDir()
	r := Result{
		Flow:    FlowGenerate,
		Label:   "Generated (random)",
		SBox:    identitySBox(),
		Metrics: MetricSet{MetricNonlinearity: Number(112), MetricBijective: Bool(true)},
		Raw:     []byte(`{"sbox":[]}`),
	}
	files, err := writeReport(context.Background(), dir, r, reportOptions{histWidth: 200, histHeight: 120, radarSize: 160, ratio: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"grid.txt", "grid.csv", "metrics.json", "charts.html", "radar.png", "response.json"}, baseNames(files))

	csv, err := os.ReadFile(filepath.Join(dir, "grid.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "00,01,02"))

	raw, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	var metrics map[string]any
	require.NoError(t, json.Unmarshal(raw, &metrics))
	assert.Equal(t, 112.0, metrics["nonlinearity"])
	assert.Equal(t, true, metrics["bijective"])

	page, err := os.ReadFile(filepath.Join(dir, "charts.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Generated (random)")

	pretty, err := os.ReadFile(filepath.Join(dir, "response.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"sbox\": []\n}", string(pretty))
}

func TestWriteReportUpload(t *testing.T) {
	dir := t.TempDir()
	entropy := 7.99
	r := Result{
		Flow:    FlowUpload,
		Label:   "sbox.txt",
		SBox:    identitySBox(),
		Metrics: MetricSet{MetricNonlinearity: Number(104)},
		Image: &ImageAnalysis{
			Entropy:   &entropy,
			HistPlain: buckets(map[int]int{0: 4, 255: 2}),
			RGBPlain: &RGBHistogram{
				R: buckets(map[int]int{1: 1}),
				G: buckets(nil),
				B: buckets(map[int]int{2: 2}),
			},
		},
	}
	files, err := writeReport(context.Background(), dir, r, reportOptions{histWidth: 200, histHeight: 120, radarSize: 160, ratio: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"grid.txt", "grid.csv", "metrics.json", "hist_plain.png", "hist_rgb_plain.png"}, baseNames(files))
}

func TestWriteReportShortTable(t *testing.T) {
	dir := t.TempDir()
	files, err := writeReport(context.Background(), dir, Result{Flow: FlowGenerate, SBox: SBox{1, 2}}, reportOptions{histWidth: 100, histHeight: 100, radarSize: 100, ratio: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"charts.html"}, baseNames(files))
}

func TestPrettyJSONKeepsInvalidInput(t *testing.T) {
	assert.Equal(t, []byte("not json"), prettyJSON([]byte("not json")))
}
