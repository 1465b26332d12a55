package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStoreReplace(t *testing.T) {
	var s resultStore
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Zero(t, s.Generation())

	entropy := 7.9
	in := Result{
		Flow:    FlowUpload,
		Label:   "first",
		SBox:    identitySBox(),
		Metrics: MetricSet{MetricNonlinearity: Number(112)},
		Image: &ImageAnalysis{
			Entropy:   &entropy,
			HistPlain: []int{1, 2},
			RGBPlain:  &RGBHistogram{R: []int{3}},
		},
		Raw: []byte(`{}`),
	}
	assert.EqualValues(t, 1, s.Replace(in))

	in.SBox[0] = 99
	in.Metrics[MetricSAC] = Number(0.5)
	in.Image.HistPlain[0] = 42
	in.Image.RGBPlain.R[0] = 42
	in.Raw[0] = '['

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 0, got.SBox[0])
	assert.Len(t, got.Metrics, 1)
	assert.Equal(t, 1, got.Image.HistPlain[0])
	assert.Equal(t, 3, got.Image.RGBPlain.R[0])
	assert.Equal(t, byte('{'), got.Raw[0])

	assert.EqualValues(t, 2, s.Replace(Result{Label: "second"}))
	got, _ = s.Current()
	assert.Equal(t, "second", got.Label)
	assert.Nil(t, got.Image)
}
