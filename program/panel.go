package main

import (
	"fmt"
	"math"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
)

type Status string

const (
	StatusNeutral Status = ""
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
)

type metricSpec struct {
	Key      MetricKey
	Label    string
	Classify func(float64) Status
}

type metricCard struct {
	Key    MetricKey
	Label  string
	Value  string
	Status Status
}

func classifyNonlinearity(v float64) Status {
	switch {
	case v >= 112:
		return StatusSuccess
	case v >= 100:
		return StatusWarning
	}
	return StatusDanger
}

var analysisMetrics = []metricSpec{
	{Key: MetricNonlinearity, Label: "Nonlinearity", Classify: classifyNonlinearity},
	{Key: MetricSAC, Label: "SAC"},
	{Key: MetricBICNL, Label: "BIC-NL"},
	{Key: MetricBICSAC, Label: "BIC-SAC"},
	{Key: MetricLAP, Label: "LAP"},
	{Key: MetricDAP, Label: "DAP"},
	{Key: MetricAlgebraicDegree, Label: "Alg. Degree"},
	{Key: MetricBijective, Label: "Bijective"},
	{Key: MetricBalanced, Label: "Balanced"},
}

var validationMetrics = []metricSpec{
	{Key: MetricBijective, Label: "Bijective"},
	{Key: MetricBalanced, Label: "Balanced"},
	{Key: MetricSAC, Label: "SAC"},
	{Key: MetricNonlinearity, Label: "Nonlinearity", Classify: classifyNonlinearity},
	{Key: MetricDiffUniformity, Label: "Diff. Uniformity"},
}

// BuildPanel maps each metric in display order to a card. It never
// modifies set.
func BuildPanel(set MetricSet, specs []metricSpec) []metricCard {
	cards := make([]metricCard, 0, len(specs))
	for _, spec := range specs {
		card := metricCard{Key: spec.Key, Label: spec.Label, Value: "N/A"}
		v, ok := set.Lookup(spec.Key)
		if ok {
			card.Value, card.Status = formatMetric(v, spec.Classify)
		}
		cards = append(cards, card)
	}
	return cards
}

func formatMetric(v MetricValue, classify func(float64) Status) (string, Status) {
	if b, ok := v.Bool(); ok {
		if b {
			return "True", StatusNeutral
		}
		return "False", StatusNeutral
	}
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return "N/A", StatusNeutral
	}
	status := StatusNeutral
	if classify != nil {
		status = classify(f)
	}
	return formatNumber(f), status
}

// formatNumber prints fractional metrics with 4 decimals and integer-scaled
// ones with none.
func formatNumber(f float64) string {
	if math.Abs(f) < 1 {
		return fmt.Sprintf("%.4f", f)
	}
	return fmt.Sprintf("%.0f", math.Round(f))
}

func imageCards(img *ImageAnalysis) []metricCard {
	if img == nil {
		return nil
	}
	entropy, npcr := "N/A", "N/A"
	if img.Entropy != nil {
		entropy = fmt.Sprintf("%g", *img.Entropy)
	}
	if img.NPCR != nil {
		npcr = fmt.Sprintf("%g%%", *img.NPCR)
	}
	return []metricCard{
		{Label: "Entropy", Value: entropy},
		{Label: "NPCR", Value: npcr},
	}
}

var (
	cardStyle = styles.NewStyle().
			Border(styles.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			Width(18)
	cardLabelStyle = styles.NewStyle().Foreground(borderColor)
)

func statusColor(s Status) styles.TerminalColor {
	switch s {
	case StatusSuccess:
		return successColor
	case StatusWarning:
		return warningColor
	case StatusDanger:
		return dangerColor
	}
	return styles.NoColor{}
}

func renderCard(c metricCard) string {
	value := styles.NewStyle().Bold(true).Foreground(statusColor(c.Status)).Render(c.Value)
	style := cardStyle
	if c.Status != StatusNeutral {
		style = style.BorderForeground(statusColor(c.Status))
	}
	return style.Render(cardLabelStyle.Render(c.Label) + "\n" + value)
}

// renderPanel lays the cards out in rows that fit width.
func renderPanel(cards []metricCard, width int) string {
	if len(cards) == 0 {
		return ""
	}
	perRow := max(1, width/(cardStyle.GetWidth()+2))
	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := min(len(cards), i+perRow)
		rendered := make([]string, 0, end-i)
		for _, c := range cards[i:end] {
			rendered = append(rendered, renderCard(c))
		}
		rows = append(rows, styles.JoinHorizontal(styles.Top, rendered...))
	}
	return strings.Join(rows, "\n")
}
