package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	pathGenerate    = "/api/generate-sbox"
	pathSample      = "/api/sample-sbox"
	pathAnalyze     = "/api/analyze-sbox"
	pathAnalyzeFile = "/api/analyze"
	pathExport      = "/api/export-excel"

	maxResponseBytes = 64 << 20
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SBoxResponse is the answer of the generate, sample and analyze calls.
// Metrics is nil when the backend sent none.
type SBoxResponse struct {
	SBox    SBox      `json:"sbox"`
	Metrics MetricSet `json:"metrics"`
	Raw     []byte    `json:"-"`
}

func (c *Client) Generate(ctx context.Context, mode string) (*SBoxResponse, error) {
	body, err := json.Marshal(map[string]string{"mode": mode})
	if err != nil {
		return nil, err
	}
	return c.sboxCall(ctx, http.MethodPost, pathGenerate, "application/json", bytes.NewReader(body))
}

func (c *Client) Sample(ctx context.Context, id string) (*SBoxResponse, error) {
	return c.sboxCall(ctx, http.MethodGet, pathSample+"/"+url.PathEscape(id), "", nil)
}

func (c *Client) Analyze(ctx context.Context, s SBox) (*SBoxResponse, error) {
	body, err := json.Marshal(map[string]SBox{"sbox": s})
	if err != nil {
		return nil, err
	}
	return c.sboxCall(ctx, http.MethodPost, pathAnalyze, "application/json", bytes.NewReader(body))
}

func (c *Client) sboxCall(ctx context.Context, method, path, contentType string, body io.Reader) (*SBoxResponse, error) {
	raw, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}
	var out SBoxResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	out.Raw = raw
	return &out, nil
}

// Upload is one file part of a multipart request.
type Upload struct {
	Name string
	Body io.Reader
}

// FileReport is the answer of the file analysis call.
type FileReport struct {
	Valid      bool
	Message    string
	SBox       SBox
	Metrics    MetricSet
	Image      *ImageAnalysis
	ImageError string
	Raw        []byte
}

type fileReportWire struct {
	Valid      *bool          `json:"valid"`
	Message    string         `json:"message"`
	SBox       SBox           `json:"sbox"`
	Image      *ImageAnalysis `json:"image_analysis"`
	ImageError string         `json:"image_error"`
}

// AnalyzeFile sends an S-Box file and an optional sample image for full
// validation. A report with Valid false is not an error.
func (c *Client) AnalyzeFile(ctx context.Context, sbox Upload, image *Upload) (*FileReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writePart(mw, "sbox", sbox); err != nil {
		return nil, err
	}
	if image != nil {
		if err := writePart(mw, "sample_img", *image); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, http.MethodPost, pathAnalyzeFile, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	var wire fileReportWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", pathAnalyzeFile, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", pathAnalyzeFile, err)
	}
	report := &FileReport{
		Valid:      wire.Valid == nil || *wire.Valid,
		Message:    wire.Message,
		SBox:       wire.SBox,
		Metrics:    collectMetrics(fields),
		Image:      wire.Image,
		ImageError: wire.ImageError,
		Raw:        raw,
	}
	return report, nil
}

func writePart(mw *multipart.Writer, field string, u Upload) error {
	if u.Body == nil {
		return fmt.Errorf("%s: no content", field)
	}
	name := u.Name
	if name == "" {
		name = field
	}
	w, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, u.Body); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

// Export downloads the spreadsheet for s into w.
func (c *Client) Export(ctx context.Context, s SBox, w io.Writer) (int64, error) {
	body, err := json.Marshal(map[string]SBox{"sbox": s})
	if err != nil {
		return 0, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, pathExport, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", pathExport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return 0, apiError(resp.StatusCode, raw)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%s: %w", pathExport, err)
	}
	return n, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	debugf("api: %s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, apiError(resp.StatusCode, raw)
	}
	return raw, nil
}

func apiError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
	}
	return e
}
