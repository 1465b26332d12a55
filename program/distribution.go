package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/keilerkonzept/topk/heap"
)

const distributionColor = "rgba(139, 92, 246, 0.7)"

var errEmptySBox = errors.New("no s-box values to chart")

// Distribution counts how often each output value occurs. It works on any
// input, bijective or not; values outside [0,255] are skipped and counted.
func Distribution(s SBox) (counts [sboxSize]int, skipped int) {
	for _, v := range s {
		if v < 0 || v >= sboxSize {
			skipped++
			continue
		}
		counts[v]++
	}
	return counts, skipped
}

type distributionChart struct {
	counts  [sboxSize]int
	skipped int
	peak    int
	repeats []heap.Item

	bar *charts.Bar
}

func newDistributionChart(s SBox, ranker *repeatRanker) (*distributionChart, error) {
	if len(s) == 0 {
		return nil, errEmptySBox
	}
	c := &distributionChart{}
	c.counts, c.skipped = Distribution(s)
	for _, n := range c.counts {
		c.peak = max(c.peak, n)
	}
	if ranker != nil {
		c.repeats = ranker.Rank(c.counts)
	}
	c.bar = distributionBar(c.counts)
	return c, nil
}

func distributionBar(counts [sboxSize]int) *charts.Bar {
	labels := make([]string, sboxSize)
	data := make([]opts.BarData, sboxSize)
	for i, n := range counts {
		labels[i] = fmt.Sprint(i)
		data[i] = opts.BarData{Name: labels[i], Value: n}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "320px", ChartID: "distribution"}),
		charts.WithTitleOpts(opts.Title{Title: "S-Box Output Distribution"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0}),
	)
	bar.SetXAxis(labels).
		AddSeries("Frequency", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: distributionColor}))
	return bar
}

func (c *distributionChart) Charter() components.Charter {
	if c.bar == nil {
		return nil
	}
	return c.bar
}

func (c *distributionChart) View(width, height int) string {
	if c.bar == nil {
		return ""
	}
	header := fmt.Sprintf("OUTPUT DISTRIBUTION  max=%d", c.peak)
	if c.skipped > 0 {
		header += fmt.Sprintf("  out-of-range=%d", c.skipped)
	}
	lines := []string{header}

	plotHeight := max(1, height-2)
	lines = append(lines, barRows(c.counts[:], c.peak, max(1, width), plotHeight)...)
	lines = append(lines, borderFg.Render(c.repeatSummary()))
	return strings.Join(lines, "\n")
}

func (c *distributionChart) repeatSummary() string {
	if len(c.repeats) == 0 {
		return "no repeated output values"
	}
	parts := make([]string, len(c.repeats))
	for i, it := range c.repeats {
		parts[i] = fmt.Sprintf("%s×%d", it.Item, it.Count)
	}
	return "repeated: " + strings.Join(parts, " ")
}

func (c *distributionChart) Destroy() {
	c.bar = nil
	c.repeats = nil
}

var (
	barLevels    = []rune(" ▁▂▃▄▅▆▇█")
	barFillStyle = styles.NewStyle().Foreground(styles.Color("#8b5cf6"))
)

// barRows draws counts as vertical block bars scaled from 0 to peak. Each
// column shows the largest count among the buckets it covers; a non-zero
// count always gets at least one eighth of a cell.
func barRows(counts []int, peak, width, height int) []string {
	cols := make([]int, width)
	if peak > 0 && len(counts) > 0 {
		for c := range cols {
			lo := c * len(counts) / width
			hi := max(lo+1, (c+1)*len(counts)/width)
			n := 0
			for _, v := range counts[lo:min(hi, len(counts))] {
				n = max(n, v)
			}
			if n <= 0 {
				continue
			}
			cols[c] = max(1, int(math.Round(float64(n)/float64(peak)*float64(height*8))))
		}
	}
	rows := make([]string, height)
	for r := range rows {
		level := (height - 1 - r) * 8
		line := make([]rune, width)
		for c, units := range cols {
			line[c] = barLevels[min(8, max(0, units-level))]
		}
		rows[r] = barFillStyle.Render(string(line))
	}
	return rows
}
