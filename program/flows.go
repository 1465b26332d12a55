package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type actionKind int

const (
	actionGenerate actionKind = iota
	actionSample
	actionAnalyze
	actionUpload
)

// action is one user-initiated request for a new result.
type action struct {
	kind      actionKind
	label     string
	mode      string
	sample    string
	sbox      SBox
	sboxPath  string
	imagePath string
}

// ValidationError is a report the backend marked as invalid.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return "s-box rejected by backend"
	}
	return "s-box rejected: " + e.Message
}

// run performs the requests for a and assembles the result. It does not
// touch any UI state.
func (a action) run(ctx context.Context, client *Client) (Result, error) {
	switch a.kind {
	case actionGenerate:
		resp, err := client.Generate(ctx, a.mode)
		if err != nil {
			return Result{}, fmt.Errorf("generate: %w", err)
		}
		return a.completeGenerate(ctx, client, resp)
	case actionSample:
		resp, err := client.Sample(ctx, a.sample)
		if err != nil {
			return Result{}, fmt.Errorf("sample %s: %w", a.sample, err)
		}
		return a.completeGenerate(ctx, client, resp)
	case actionAnalyze:
		resp, err := client.Analyze(ctx, a.sbox)
		if err != nil {
			return Result{}, fmt.Errorf("analyze: %w", err)
		}
		return Result{Flow: FlowGenerate, Label: a.label, SBox: a.sbox, Metrics: resp.Metrics, Raw: resp.Raw}, nil
	case actionUpload:
		return a.upload(ctx, client)
	}
	return Result{}, fmt.Errorf("unknown action %d", a.kind)
}

// completeGenerate follows up with an analysis when the backend returned a
// table without metrics.
func (a action) completeGenerate(ctx context.Context, client *Client, resp *SBoxResponse) (Result, error) {
	r := Result{Flow: FlowGenerate, Label: a.label, SBox: resp.SBox, Metrics: resp.Metrics, Raw: resp.Raw}
	if len(resp.Metrics) > 0 {
		return r, nil
	}
	if len(resp.SBox) != sboxSize {
		return Result{}, &CountError{Got: len(resp.SBox)}
	}
	analyzed, err := client.Analyze(ctx, resp.SBox)
	if err != nil {
		return Result{}, fmt.Errorf("analyze: %w", err)
	}
	r.Metrics = analyzed.Metrics
	r.Raw = analyzed.Raw
	return r, nil
}

func (a action) upload(ctx context.Context, client *Client) (Result, error) {
	content, err := os.ReadFile(a.sboxPath)
	if err != nil {
		return Result{}, err
	}
	parsed, err := ParseSBox(string(content))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", a.sboxPath, err)
	}

	var image *Upload
	if a.imagePath != "" {
		img, err := os.ReadFile(a.imagePath)
		if err != nil {
			return Result{}, err
		}
		image = &Upload{Name: filepath.Base(a.imagePath), Body: bytes.NewReader(img)}
	}
	report, err := client.AnalyzeFile(ctx, Upload{Name: filepath.Base(a.sboxPath), Body: bytes.NewReader(content)}, image)
	if err != nil {
		return Result{}, fmt.Errorf("upload: %w", err)
	}
	if !report.Valid {
		return Result{}, &ValidationError{Message: report.Message}
	}
	if report.ImageError != "" {
		warnf("upload: image test failed: %s", report.ImageError)
	}
	s := report.SBox
	if len(s) == 0 {
		s = parsed
	}
	label := a.label
	if label == "" {
		label = filepath.Base(a.sboxPath)
	}
	return Result{
		Flow:    FlowUpload,
		Label:   label,
		SBox:    s,
		Metrics: report.Metrics,
		Image:   report.Image,
		Raw:     report.Raw,
	}, nil
}
