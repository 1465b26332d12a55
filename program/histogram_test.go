package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"
)

// capturingFactory records every backing bitmap size it allocates.
func capturingFactory(sizes *[][2]int) rendererFactory {
	return func(w, h int) (chart.Renderer, error) {
		*sizes = append(*sizes, [2]int{w, h})
		return chart.PNG(w, h)
	}
}

func buckets(set map[int]int) []int {
	out := make([]int, histBuckets)
	for i, n := range set {
		out[i] = n
	}
	return out
}

func TestPlanHistogramRGBSkipsEmptyChannel(t *testing.T) {
	series := RGBSeries(&RGBHistogram{
		R: buckets(map[int]int{0: 5}),
		G: buckets(nil),
		B: buckets(map[int]int{1: 3}),
	})
	p, ok := planHistogram(series, ModeRGB, 592, 300)
	require.True(t, ok)

	assert.Equal(t, []string{"r", "b"}, p.Drawn)
	assert.Equal(t, []string{"g"}, p.Skipped)
	require.Len(t, p.Bars, 2)

	barWidth := p.PlotW / histBuckets
	slot := barWidth / 3
	r, b := p.Bars[0], p.Bars[1]
	assert.Equal(t, "r", r.Channel)
	assert.InDelta(t, p.PlotH, r.H, 1e-9)
	assert.InDelta(t, p.PlotX, r.X, 1e-9)
	assert.Equal(t, "b", b.Channel)
	assert.InDelta(t, p.PlotH, b.H, 1e-9)
	assert.InDelta(t, p.PlotX+barWidth+2*slot, b.X, 1e-9)
	assert.InDelta(t, p.PlotY, b.Y, 1e-9)
	assert.Equal(t, 1.0, b.W)
}

func TestPlanHistogramTicks(t *testing.T) {
	p, ok := planHistogram(GraySeries(buckets(map[int]int{10: 1})), ModeGrayscale, 336, 200)
	require.True(t, ok)
	require.Len(t, p.Ticks, len(histTicks))
	assert.Equal(t, "0", p.Ticks[0].Label)
	assert.InDelta(t, histPadding, p.Ticks[0].X, 1e-9)
	assert.Equal(t, "255", p.Ticks[4].Label)
	assert.InDelta(t, histPadding+p.PlotW, p.Ticks[4].X, 1e-9)
	assert.InDelta(t, 190, p.Ticks[2].Y, 1e-9)
}

func TestPlanHistogramAbsent(t *testing.T) {
	_, ok := planHistogram(nil, ModeGrayscale, 300, 300)
	assert.False(t, ok)
	_, ok = planHistogram(GraySeries([]int{1}), ModeRGB, 300, 300)
	assert.False(t, ok)
	_, ok = planHistogram(RGBSeries(&RGBHistogram{}), ModeRGB, 300, 300)
	assert.False(t, ok)
}

func TestHistogramCanvasRender(t *testing.T) {
	var sizes [][2]int
	w, h := 320, 200
	canvas := newHistogramCanvas(func() (int, int) { return w, h }, 2, capturingFactory(&sizes))

	t.Run("all zero gray paints frame", func(t *testing.T) {
		rep, err := canvas.Render(GraySeries(buckets(nil)), "Plain Image", ModeGrayscale)
		require.NoError(t, err)
		assert.True(t, rep.Rendered)
		assert.Empty(t, rep.Drawn)
		assert.Equal(t, []string{"gray"}, rep.Skipped)
		assert.Len(t, rep.Diagnostics, 1)

		var buf bytes.Buffer
		require.NoError(t, canvas.Save(&buf))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
	})

	t.Run("resized per render", func(t *testing.T) {
		w, h = 100, 80
		rep, err := canvas.Render(GraySeries(buckets(map[int]int{3: 9})), "Encrypted Image", ModeGrayscale)
		require.NoError(t, err)
		assert.Equal(t, 100, rep.Width)
		assert.Equal(t, [][2]int{{640, 400}, {200, 160}}, sizes)
	})

	t.Run("absent series", func(t *testing.T) {
		rep, err := canvas.Render(nil, "Plain Image (RGB)", ModeRGB)
		require.NoError(t, err)
		assert.False(t, rep.Rendered)
		assert.Contains(t, rep.String(), "no rgb data")
		assert.Len(t, sizes, 2)
	})

	t.Run("no drawing area", func(t *testing.T) {
		w = 0
		rep, err := canvas.Render(GraySeries(buckets(map[int]int{3: 9})), "x", ModeGrayscale)
		require.NoError(t, err)
		assert.False(t, rep.Rendered)
		assert.Contains(t, rep.Diagnostics[0], "no drawing area")
	})
}

func TestHistogramCanvasSaveBeforeRender(t *testing.T) {
	canvas := newHistogramCanvas(nil, 1, nil)
	var buf bytes.Buffer
	assert.Error(t, canvas.Save(&buf))
}

func TestHistogramTermView(t *testing.T) {
	view := histogramTermView(nil, "Plain Image", ModeGrayscale, 40, 8)
	assert.Contains(t, view, "no data")

	series := RGBSeries(&RGBHistogram{R: buckets(map[int]int{0: 1}), G: buckets(nil), B: buckets(map[int]int{9: 4})})
	view = histogramTermView(series, "Encrypted Image (RGB)", ModeRGB, 40, 10)
	assert.Contains(t, view, "Encrypted Image (RGB)")
	assert.Contains(t, view, "all zero, skipped")
}
