package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithoutMetricsAnalyzes(t *testing.T) {
	var analyzed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathGenerate, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"sbox": identitySBox()})
	})
	mux.HandleFunc("POST "+pathAnalyze, func(w http.ResponseWriter, r *http.Request) {
		analyzed.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"metrics": map[string]any{"nonlinearity": 0}})
	})
	client := newBackend(t, mux)

	r, err := action{kind: actionGenerate, label: "Generate", mode: "default"}.run(context.Background(), client)
	require.NoError(t, err)
	assert.EqualValues(t, 1, analyzed.Load())
	assert.Equal(t, FlowGenerate, r.Flow)
	assert.Equal(t, identitySBox(), r.SBox)
	_, ok := r.Metrics.Lookup(MetricNonlinearity)
	assert.True(t, ok)
}

func TestGenerateWithMetricsSkipsAnalyze(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pathSample+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"sbox":    identitySBox(),
			"metrics": map[string]any{"nonlinearity": 112},
		})
	})
	mux.HandleFunc("POST "+pathAnalyze, func(w http.ResponseWriter, r *http.Request) {
		t.Error("analyze must not be called")
	})
	client := newBackend(t, mux)

	r, err := action{kind: actionSample, sample: "1"}.run(context.Background(), client)
	require.NoError(t, err)
	assert.Len(t, r.Metrics, 1)
}

func TestGenerateShortTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathGenerate, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"sbox": []int{1, 2}})
	})
	client := newBackend(t, mux)

	_, err := action{kind: actionGenerate}.run(context.Background(), client)
	var countErr *CountError
	require.True(t, errors.As(err, &countErr))
	assert.Equal(t, 2, countErr.Got)
}

func writeSBoxFile(t *testing.T, s SBox) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sbox.txt")
	require.NoError(t, os.WriteFile(path, []byte(hexList(s, " ")), 0o644))
	return path
}

func TestUploadInvalid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathAnalyzeFile, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"valid": false, "message": "not bijective"})
	})
	client := newBackend(t, mux)

	_, err := action{kind: actionUpload, sboxPath: writeSBoxFile(t, identitySBox())}.run(context.Background(), client)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "s-box rejected: not bijective", vErr.Error())
}

func TestUploadBadCountSendsNothing(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	client := newBackend(t, mux)

	_, err := action{kind: actionUpload, sboxPath: writeSBoxFile(t, identitySBox()[:200])}.run(context.Background(), client)
	var countErr *CountError
	require.True(t, errors.As(err, &countErr))
	assert.Equal(t, 200, countErr.Got)
	assert.Zero(t, calls.Load())
}

func TestUploadFallsBackToParsedTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathAnalyzeFile, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"nonlinearity": 112,
			"image_error":  "unsupported format",
		})
	})
	client := newBackend(t, mux)
	path := writeSBoxFile(t, identitySBox())

	r, err := action{kind: actionUpload, sboxPath: path}.run(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, FlowUpload, r.Flow)
	assert.Equal(t, "sbox.txt", r.Label)
	assert.Equal(t, identitySBox(), r.SBox)
	assert.Nil(t, r.Image)
	assert.Len(t, r.Metrics, 1)
}
