package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	radarMax   = 120.0
	radarIdeal = 100.0

	securityFill   = "rgba(16, 185, 129, 0.25)"
	securityBorder = "#10b981"
)

type radarAxis struct {
	Label string
	Value float64
}

// SecurityScores normalizes six metrics so that the reference value of
// each lands on 100. Missing or non-numeric metrics give NaN.
func SecurityScores(set MetricSet) [6]radarAxis {
	ratio := func(key MetricKey, ref float64) float64 {
		v, ok := set.Float(key)
		if !ok {
			return math.NaN()
		}
		return v / ref * 100
	}
	inverted := func(key MetricKey, ref float64) float64 {
		v, ok := set.Float(key)
		if !ok {
			return math.NaN()
		}
		return math.Max(0, (1-v/ref)*100)
	}
	return [6]radarAxis{
		{Label: "NL", Value: ratio(MetricNonlinearity, 112)},
		{Label: "SAC", Value: ratio(MetricSAC, 0.5)},
		{Label: "BIC-NL", Value: ratio(MetricBICNL, 112)},
		{Label: "BIC-SAC", Value: ratio(MetricBICSAC, 0.5)},
		{Label: "LAP", Value: inverted(MetricLAP, 0.25)},
		{Label: "DAP", Value: inverted(MetricDAP, 0.1)},
	}
}

// plotExtent is the radial length actually drawn for a score.
func plotExtent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

type securityChart struct {
	axes  [6]radarAxis
	radar *charts.Radar
}

func newSecurityChart(set MetricSet) (*securityChart, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("no metrics to chart")
	}
	axes := SecurityScores(set)
	return &securityChart{axes: axes, radar: securityRadar(axes)}, nil
}

func securityRadar(axes [6]radarAxis) *charts.Radar {
	indicators := make([]*opts.Indicator, len(axes))
	values := make([]float64, len(axes))
	for i, a := range axes {
		indicators[i] = &opts.Indicator{Name: a.Label, Max: radarMax, Min: 0}
		values[i] = math.Round(plotExtent(a.Value)*100) / 100
	}
	r := charts.NewRadar()
	r.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "480px", ChartID: "security"}),
		charts.WithTitleOpts(opts.Title{Title: "Security Profile"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			Shape:       "polygon",
			SplitNumber: 6,
		}),
	)
	r.AddSeries("Security", []opts.RadarData{{Name: "Security Score", Value: values}},
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: securityFill}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: securityBorder, Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: securityBorder}),
	)
	return r
}

func (c *securityChart) Charter() components.Charter {
	if c.radar == nil {
		return nil
	}
	return c.radar
}

var (
	gaugeFill  = styles.NewStyle().Foreground(styles.Color(securityBorder))
	gaugeOver  = styles.NewStyle().Foreground(warningColor)
	gaugeEmpty = styles.NewStyle().Foreground(borderColor)
)

// View draws one gauge per axis on a fixed 0..120 scale with a tick at 100.
func (c *securityChart) View(width, _ int) string {
	if c.radar == nil {
		return ""
	}
	const labelW, valueW = 8, 7
	barW := max(10, width-labelW-valueW-2)
	ideal := int(math.Round(radarIdeal / radarMax * float64(barW)))
	lines := []string{"SECURITY PROFILE (0-120, | = 100)"}
	for _, a := range c.axes {
		filled := int(math.Round(plotExtent(a.Value) / radarMax * float64(barW)))
		filled = min(filled, barW)
		var bar strings.Builder
		for i := 0; i < barW; i++ {
			switch {
			case i == ideal:
				bar.WriteString(gaugeEmpty.Render("|"))
			case i < filled && i >= ideal:
				bar.WriteString(gaugeOver.Render("█"))
			case i < filled:
				bar.WriteString(gaugeFill.Render("█"))
			default:
				bar.WriteString(gaugeEmpty.Render("·"))
			}
		}
		value := "N/A"
		if !math.IsNaN(a.Value) {
			value = fmt.Sprintf("%.1f", a.Value)
		}
		lines = append(lines, fmt.Sprintf("%-*s%s %*s", labelW, a.Label, bar.String(), valueW, value))
	}
	return strings.Join(lines, "\n")
}

func (c *securityChart) Destroy() {
	c.radar = nil
}

var (
	radarGrid   = drawing.Color{R: 139, G: 92, B: 246, A: 77}
	radarFill   = drawing.Color{R: 16, G: 185, B: 129, A: 64}
	radarStroke = drawing.ColorFromHex("10b981")
)

// paintRadar draws the score polygon over a 0..120 spider web.
func paintRadar(s *surface, axes [6]radarAxis, title string) {
	w, h := float64(s.w), float64(s.h)
	cx, cy := w/2, h/2+10
	radius := math.Min(w, h)/2 - histPadding
	at := func(i int, r float64) point {
		angle := -math.Pi/2 + float64(i)*2*math.Pi/float64(len(axes))
		return point{cx + r*math.Cos(angle), cy + r*math.Sin(angle)}
	}

	s.fillRect(0, 0, w, h, histBackground)
	for ring := 1; ring <= 6; ring++ {
		r := radius * float64(ring) / 6
		pts := make([]point, len(axes))
		for i := range axes {
			pts[i] = at(i, r)
		}
		s.polygon(pts, drawing.ColorTransparent, radarGrid, 1)
	}
	for i, a := range axes {
		s.line(point{cx, cy}, at(i, radius), radarGrid, 1)
		lp := at(i, radius+16)
		s.text(a.Label, lp.x, lp.y+4, histLabel, histFontSize, alignCenter)
	}
	pts := make([]point, len(axes))
	for i, a := range axes {
		pts[i] = at(i, radius*math.Min(plotExtent(a.Value), radarMax)/radarMax)
	}
	s.polygon(pts, radarFill, radarStroke, 2)
	if title != "" {
		s.text(title, w/2, 24, histLabel, histFontSize, alignCenter)
	}
}

// renderRadarPNG paints the scores on a fresh surface and encodes it.
func renderRadarPNG(out io.Writer, axes [6]radarAxis, size int, ratio float64, factory rendererFactory) error {
	s, err := newSurface(factory, size, size, ratio)
	if err != nil {
		return err
	}
	paintRadar(s, axes, "Security Profile")
	return s.Save(out)
}
