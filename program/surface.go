package main

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// rendererFactory allocates a backing bitmap of the given pixel size.
type rendererFactory func(width, height int) (chart.Renderer, error)

// surface draws in logical units onto a backing bitmap that is ratio times
// larger, so output stays sharp on dense displays.
type surface struct {
	r     chart.Renderer
	ratio float64
	w, h  int
	font  *truetype.Font
}

var (
	defaultFontOnce sync.Once
	defaultFont     *truetype.Font
	defaultFontErr  error
)

func loadDefaultFont() (*truetype.Font, error) {
	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = chart.GetDefaultFont()
	})
	return defaultFont, defaultFontErr
}

func newSurface(factory rendererFactory, width, height int, ratio float64) (*surface, error) {
	if factory == nil {
		factory = chart.PNG
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("surface size must be positive (got %dx%d)", width, height)
	}
	if ratio <= 0 || math.IsNaN(ratio) {
		ratio = 1
	}
	r, err := factory(backingSize(width, ratio), backingSize(height, ratio))
	if err != nil {
		return nil, fmt.Errorf("allocate %dx%d surface: %w", width, height, err)
	}
	s := &surface{r: r, ratio: ratio, w: width, h: height}
	// 72 dpi makes font sizes map 1:1 onto logical pixels.
	r.SetDPI(72 * ratio)
	if f, err := loadDefaultFont(); err == nil {
		s.font = f
	} else {
		warnf("surface: no font, labels disabled: %v", err)
	}
	return s, nil
}

func backingSize(logical int, ratio float64) int {
	return max(1, int(math.Round(float64(logical)*ratio)))
}

func (s *surface) px(v float64) int { return int(math.Round(v * s.ratio)) }

func (s *surface) fillRect(x, y, w, h float64, c drawing.Color) {
	s.r.ResetStyle()
	s.r.SetFillColor(c)
	s.r.SetStrokeColor(drawing.ColorTransparent)
	s.path([]point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}})
	s.r.Fill()
}

func (s *surface) strokeRect(x, y, w, h float64, c drawing.Color, width float64) {
	s.r.ResetStyle()
	s.r.SetStrokeColor(c)
	s.r.SetStrokeWidth(width * s.ratio)
	s.path([]point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}})
	s.r.Stroke()
}

func (s *surface) line(a, b point, c drawing.Color, width float64) {
	s.r.ResetStyle()
	s.r.SetStrokeColor(c)
	s.r.SetStrokeWidth(width * s.ratio)
	s.r.MoveTo(s.px(a.x), s.px(a.y))
	s.r.LineTo(s.px(b.x), s.px(b.y))
	s.r.Stroke()
}

func (s *surface) polygon(pts []point, fill, stroke drawing.Color, width float64) {
	if len(pts) < 3 {
		return
	}
	s.r.ResetStyle()
	s.r.SetFillColor(fill)
	s.r.SetStrokeColor(stroke)
	s.r.SetStrokeWidth(width * s.ratio)
	s.path(pts)
	s.r.FillStroke()
}

func (s *surface) path(pts []point) {
	s.r.MoveTo(s.px(pts[0].x), s.px(pts[0].y))
	for _, p := range pts[1:] {
		s.r.LineTo(s.px(p.x), s.px(p.y))
	}
	s.r.Close()
}

type textAlign int

const (
	alignLeft textAlign = iota
	alignCenter
)

func (s *surface) text(body string, x, y float64, c drawing.Color, size float64, align textAlign) {
	if s.font == nil {
		return
	}
	s.r.ResetStyle()
	s.r.SetFont(s.font)
	s.r.SetFontSize(size)
	s.r.SetFontColor(c)
	px := s.px(x)
	if align == alignCenter {
		px -= s.r.MeasureText(body).Width() / 2
	}
	s.r.Text(body, px, s.px(y))
}

// rotatedText draws body turned by radians, anchored so a quarter turn
// counter-clockwise centers it on (x, y).
func (s *surface) rotatedText(body string, x, y float64, c drawing.Color, size, radians float64) {
	if s.font == nil {
		return
	}
	s.r.ResetStyle()
	s.r.SetFont(s.font)
	s.r.SetFontSize(size)
	s.r.SetFontColor(c)
	half := s.r.MeasureText(body).Width() / 2
	s.r.SetTextRotation(radians)
	s.r.Text(body, s.px(x), s.px(y)+half)
	s.r.ClearTextRotation()
}

func (s *surface) Save(w io.Writer) error { return s.r.Save(w) }

type point struct{ x, y float64 }
