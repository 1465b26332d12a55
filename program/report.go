package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const exportFileName = "sbox_analysis.xlsx"

type histogramJob struct {
	file  string
	title string
	mode  HistogramMode
	data  *HistogramSeries
}

func histogramJobs(img *ImageAnalysis) []histogramJob {
	if img == nil {
		return nil
	}
	return []histogramJob{
		{file: "hist_plain.png", title: "Plain Image", mode: ModeGrayscale, data: GraySeries(img.HistPlain)},
		{file: "hist_cipher.png", title: "Encrypted Image", mode: ModeGrayscale, data: GraySeries(img.HistCipher)},
		{file: "hist_rgb_plain.png", title: "Plain Image (RGB)", mode: ModeRGB, data: RGBSeries(img.RGBPlain)},
		{file: "hist_rgb_cipher.png", title: "Encrypted Image (RGB)", mode: ModeRGB, data: RGBSeries(img.RGBCipher)},
	}
}

type reportOptions struct {
	histWidth  int
	histHeight int
	radarSize  int
	ratio      float64
	factory    rendererFactory
}

// writeReport renders everything derivable from r into dir and returns the
// files written. Missing inputs are skipped with a log line.
func writeReport(ctx context.Context, dir string, r Result, o reportOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if grid, err := BuildGrid(r.SBox); err != nil {
		warnf("report: grid skipped: %v", err)
	} else {
		if err := write("grid.txt", []byte(grid.Text())); err != nil {
			return written, err
		}
		if err := write("grid.csv", []byte(r.SBox.CSV())); err != nil {
			return written, err
		}
	}

	if len(r.Metrics) > 0 {
		metrics, err := json.MarshalIndent(r.Metrics, "", "  ")
		if err != nil {
			return written, err
		}
		if err := write("metrics.json", metrics); err != nil {
			return written, err
		}
	}

	type pngOut struct {
		name string
		buf  bytes.Buffer
	}
	var outs []*pngOut
	g, gctx := errgroup.WithContext(ctx)

	if r.Flow == FlowGenerate {
		var charters []components.Charter
		if dist, err := newDistributionChart(r.SBox, newRepeatRanker(config.TopOutputs)); err != nil {
			warnf("report: distribution skipped: %v", err)
		} else {
			charters = append(charters, dist.Charter())
		}
		if len(r.Metrics) > 0 {
			axes := SecurityScores(r.Metrics)
			charters = append(charters, securityRadar(axes))
			out := &pngOut{name: "radar.png"}
			outs = append(outs, out)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return renderRadarPNG(&out.buf, axes, o.radarSize, o.ratio, o.factory)
			})
		} else {
			warnf("report: security radar skipped: no metrics")
		}
		if len(charters) > 0 {
			var page bytes.Buffer
			if err := writeChartsPage(&page, r.Label, charters...); err != nil {
				return written, err
			}
			if err := write("charts.html", page.Bytes()); err != nil {
				return written, err
			}
		}
	}

	for _, job := range histogramJobs(r.Image) {
		out := &pngOut{name: job.file}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			canvas := newHistogramCanvas(func() (int, int) { return o.histWidth, o.histHeight }, o.ratio, o.factory)
			rep, err := canvas.Render(job.data, job.title, job.mode)
			if err != nil {
				return fmt.Errorf("%s: %w", job.file, err)
			}
			infof("report: %s %s", job.file, rep)
			if !rep.Rendered {
				return nil
			}
			return canvas.Save(&out.buf)
		})
		outs = append(outs, out)
	}

	if err := g.Wait(); err != nil {
		return written, err
	}
	for _, out := range outs {
		if out.buf.Len() == 0 {
			continue
		}
		if err := write(out.name, out.buf.Bytes()); err != nil {
			return written, err
		}
	}
	if len(r.Raw) > 0 {
		if err := write("response.json", prettyJSON(r.Raw)); err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeChartsPage(w *bytes.Buffer, title string, charters ...components.Charter) error {
	if title == "" {
		title = "S-Box Analysis"
	}
	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(charters...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts page: %w", err)
	}
	return nil
}

// exportSpreadsheet downloads the backend spreadsheet into dir.
func exportSpreadsheet(ctx context.Context, client *Client, dir string, s SBox) (string, error) {
	if len(s) != sboxSize {
		return "", &LengthError{Got: len(s)}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, exportFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	n, err := client.Export(ctx, s, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("export: %w", err)
	}
	infof("export: wrote %d bytes to %s", n, path)
	return path, nil
}

func prettyJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

var errNoResult = errors.New("no result to export")
