package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type HistogramMode int

const (
	ModeGrayscale HistogramMode = iota
	ModeRGB
)

func (m HistogramMode) String() string {
	if m == ModeRGB {
		return "rgb"
	}
	return "grayscale"
}

type RGBHistogram struct {
	R []int `json:"r"`
	G []int `json:"g"`
	B []int `json:"b"`
}

func (h *RGBHistogram) clone() *RGBHistogram {
	if h == nil {
		return nil
	}
	return &RGBHistogram{R: cloneInts(h.R), G: cloneInts(h.G), B: cloneInts(h.B)}
}

// HistogramSeries holds pixel intensity counts, either one gray channel or
// three color channels.
type HistogramSeries struct {
	Gray []int
	RGB  *RGBHistogram
}

func GraySeries(counts []int) *HistogramSeries {
	if counts == nil {
		return nil
	}
	return &HistogramSeries{Gray: counts}
}

func RGBSeries(h *RGBHistogram) *HistogramSeries {
	if h == nil {
		return nil
	}
	return &HistogramSeries{RGB: h}
}

type histogramChannel struct {
	Name   string
	Counts []int
	Color  drawing.Color
}

var (
	histBackground = drawing.ColorFromHex("0f0a1f")
	histBorder     = drawing.Color{R: 139, G: 92, B: 246, A: 77}
	histGrayBar    = drawing.Color{R: 139, G: 92, B: 246, A: 179}
	histLabel      = drawing.ColorFromHex("a78bfa")
	histRed        = drawing.Color{R: 255, A: 128}
	histGreen      = drawing.Color{G: 255, A: 128}
	histBlue       = drawing.Color{B: 255, A: 128}
)

// channels returns the channels mode selects, or nil when the series is
// absent for that mode.
func (s *HistogramSeries) channels(mode HistogramMode) []histogramChannel {
	if s == nil {
		return nil
	}
	switch mode {
	case ModeGrayscale:
		if len(s.Gray) == 0 {
			return nil
		}
		return []histogramChannel{{Name: "gray", Counts: s.Gray, Color: histGrayBar}}
	case ModeRGB:
		if s.RGB == nil || (len(s.RGB.R) == 0 && len(s.RGB.G) == 0 && len(s.RGB.B) == 0) {
			return nil
		}
		return []histogramChannel{
			{Name: "r", Counts: s.RGB.R, Color: histRed},
			{Name: "g", Counts: s.RGB.G, Color: histGreen},
			{Name: "b", Counts: s.RGB.B, Color: histBlue},
		}
	}
	return nil
}

const (
	histPadding  = 40.0
	histBuckets  = 256
	histFontSize = 12.0
)

var histTicks = []int{0, 64, 128, 192, 255}

type histogramBar struct {
	Channel    string
	Bucket     int
	X, Y, W, H float64
	Color      drawing.Color
}

type histogramTick struct {
	Label string
	X, Y  float64
}

// histogramPlan is everything a paint needs, in logical pixels.
type histogramPlan struct {
	Width, Height float64
	PlotX, PlotY  float64
	PlotW, PlotH  float64
	Bars          []histogramBar
	Ticks         []histogramTick
	Drawn         []string
	Skipped       []string
}

func channelPeak(counts []int) int {
	peak := 0
	for _, n := range counts {
		peak = max(peak, n)
	}
	return peak
}

// planHistogram lays out bars and ticks. Each channel is scaled by its own
// peak so that shapes, not magnitudes, are compared. The second result is
// false when the series is absent.
func planHistogram(series *HistogramSeries, mode HistogramMode, width, height int) (histogramPlan, bool) {
	chans := series.channels(mode)
	if chans == nil {
		return histogramPlan{}, false
	}
	p := histogramPlan{
		Width:  float64(width),
		Height: float64(height),
		PlotX:  histPadding,
		PlotY:  histPadding,
		PlotW:  math.Max(0, float64(width)-2*histPadding),
		PlotH:  math.Max(0, float64(height)-2*histPadding),
	}
	barWidth := p.PlotW / histBuckets
	slot := barWidth
	if len(chans) > 1 {
		slot = barWidth / float64(len(chans))
	}
	drawWidth := math.Max(slot-1, 1)

	for ch, c := range chans {
		peak := channelPeak(c.Counts)
		if peak <= 0 {
			p.Skipped = append(p.Skipped, c.Name)
			continue
		}
		p.Drawn = append(p.Drawn, c.Name)
		for i, n := range c.Counts {
			if i >= histBuckets {
				break
			}
			if n <= 0 {
				continue
			}
			h := float64(n) / float64(peak) * p.PlotH
			x := p.PlotX + float64(i)*barWidth
			if len(chans) > 1 {
				x += slot * float64(ch)
			}
			p.Bars = append(p.Bars, histogramBar{
				Channel: c.Name,
				Bucket:  i,
				X:       x,
				Y:       p.PlotY + p.PlotH - h,
				W:       drawWidth,
				H:       h,
				Color:   c.Color,
			})
		}
	}

	for _, v := range histTicks {
		p.Ticks = append(p.Ticks, histogramTick{
			Label: fmt.Sprint(v),
			X:     p.PlotX + float64(v)/255*p.PlotW,
			Y:     p.Height - 10,
		})
	}
	return p, true
}

// HistogramReport describes what one render did.
type HistogramReport struct {
	Rendered    bool
	Width       int
	Height      int
	Drawn       []string
	Skipped     []string
	Diagnostics []string
}

func (r HistogramReport) String() string {
	if !r.Rendered {
		return "not rendered: " + strings.Join(r.Diagnostics, "; ")
	}
	s := fmt.Sprintf("%dx%d drawn=[%s]", r.Width, r.Height, strings.Join(r.Drawn, ","))
	if len(r.Skipped) > 0 {
		s += fmt.Sprintf(" skipped=[%s]", strings.Join(r.Skipped, ","))
	}
	return s
}

// histogramCanvas paints histograms onto a bitmap. The bitmap is rebuilt on
// every render from the current displayed size and the pixel ratio.
type histogramCanvas struct {
	size    func() (width, height int)
	ratio   float64
	factory rendererFactory

	surface *surface
}

func newHistogramCanvas(size func() (int, int), ratio float64, factory rendererFactory) *histogramCanvas {
	return &histogramCanvas{size: size, ratio: ratio, factory: factory}
}

// Render repaints the canvas. An absent series paints nothing; a series
// whose channels are all zero still gets its frame and axes. Neither case
// is an error.
func (c *histogramCanvas) Render(series *HistogramSeries, title string, mode HistogramMode) (HistogramReport, error) {
	var report HistogramReport
	diag := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		report.Diagnostics = append(report.Diagnostics, msg)
		warnf("histogram %q: %s", title, msg)
	}

	w, h := 0, 0
	if c.size != nil {
		w, h = c.size()
	}
	if w <= 0 || h <= 0 {
		diag("no drawing area (%dx%d)", w, h)
		return report, nil
	}
	plan, ok := planHistogram(series, mode, w, h)
	if !ok {
		diag("no %s data", mode)
		return report, nil
	}

	surf, err := newSurface(c.factory, w, h, c.ratio)
	if err != nil {
		return report, err
	}
	c.surface = surf
	paintHistogram(surf, plan, title)

	report.Rendered = true
	report.Width, report.Height = w, h
	report.Drawn = plan.Drawn
	report.Skipped = plan.Skipped
	for _, name := range plan.Skipped {
		diag("channel %s has no counts, skipped", name)
	}
	return report, nil
}

func (c *histogramCanvas) Save(w io.Writer) error {
	if c.surface == nil {
		return fmt.Errorf("histogram canvas has not been rendered")
	}
	return c.surface.Save(w)
}

func paintHistogram(s *surface, p histogramPlan, title string) {
	s.fillRect(0, 0, p.Width, p.Height, histBackground)
	s.strokeRect(p.PlotX, p.PlotY, p.PlotW, p.PlotH, histBorder, 1)
	for _, b := range p.Bars {
		s.fillRect(b.X, b.Y, b.W, b.H, b.Color)
	}
	for _, t := range p.Ticks {
		s.text(t.Label, t.X, t.Y, histLabel, histFontSize, alignCenter)
	}
	s.rotatedText("Frequency", 16, p.Height/2, histLabel, histFontSize, -math.Pi/2)
	if title != "" {
		s.text(title, p.Width/2, histPadding-14, histLabel, histFontSize, alignCenter)
	}
}

var channelLabelStyles = map[string]styles.Style{
	"gray": styles.NewStyle().Foreground(styles.Color("#8b5cf6")),
	"r":    styles.NewStyle().Foreground(styles.Color("9")),
	"g":    styles.NewStyle().Foreground(styles.Color("10")),
	"b":    styles.NewStyle().Foreground(styles.Color("12")),
}

// histogramTermView draws the series as braille line plots, one per
// channel, each normalized to its own peak.
func histogramTermView(series *HistogramSeries, title string, mode HistogramMode, width, height int) string {
	chans := series.channels(mode)
	if chans == nil {
		return borderFg.Render(title + ": no data")
	}
	highlight := plot.Red
	if !styles.DefaultRenderer().HasDarkBackground() {
		highlight = plot.Black
	}
	rowHeight := max(2, (height-1)/len(chans))
	lines := []string{title}
	for _, c := range chans {
		label := channelLabelStyles[c.Name].Render(fmt.Sprintf("%-4s", c.Name))
		peak := channelPeak(c.Counts)
		if peak <= 0 {
			lines = append(lines, label+borderFg.Render("all zero, skipped"))
			continue
		}
		// the canvas scales from the series minimum, so values[0] pins it to 0
		values := make([]float64, histBuckets+1)
		for i, n := range c.Counts {
			if i >= histBuckets {
				break
			}
			values[i+1] = float64(max(0, n)) / float64(peak)
		}
		p := plot.NewCanvas(max(1, width-5), rowHeight)
		p.NumDataPoints = len(values)
		p.ShowAxis = false
		p.LineColors = []plot.Color{highlight}
		p.Fill([][]float64{values})
		lines = append(lines, styles.JoinHorizontal(styles.Top, label, p.String()))
	}
	return strings.Join(lines, "\n")
}
