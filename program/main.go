package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// backend
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// input
	GenerateMode string `yaml:"generate_mode"`
	Sample       string `yaml:"sample"`
	SBoxPath     string `yaml:"sbox"`
	ImagePath    string `yaml:"image"`
	Watch        bool   `yaml:"watch"`

	// output
	Headless   bool    `yaml:"headless"`
	OutDir     string  `yaml:"out_dir"`
	Export     bool    `yaml:"export"`
	SavePNG    bool    `yaml:"save_png"`
	PixelRatio float64 `yaml:"pixel_ratio"`
	HistWidth  int     `yaml:"hist_width"`
	HistHeight int     `yaml:"hist_height"`
	RadarSize  int     `yaml:"radar_size"`

	// render
	TopOutputs int  `yaml:"top_outputs"`
	ViewSplit  int  `yaml:"view_split"`
	ShowRaw    bool `yaml:"show_raw"`

	LogPath  string `yaml:"log"`
	LogLevel string `yaml:"log_level"`

	StatsEnabled bool `yaml:"stats"`
	StatsWindow  int  `yaml:"stats_window"`

	AltScreen bool `yaml:"alt_screen"`
}

var config = Config{
	BaseURL:        "http://127.0.0.1:5000",
	RequestTimeout: 30 * time.Second,

	GenerateMode: "default",

	OutDir:     "sbox-report",
	PixelRatio: 1,
	HistHeight: 300,
	RadarSize:  480,

	TopOutputs: 8,
	ViewSplit:  30,

	LogPath:  "sboxdash.log",
	LogLevel: "info",

	StatsEnabled: true,
	StatsWindow:  64,

	AltScreen: true,
}

var configPath string

var (
	selectedColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor   = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	successColor  = styles.AdaptiveColor{Light: "#047857", Dark: "#10b981"}
	warningColor  = styles.AdaptiveColor{Light: "#b45309", Dark: "#f59e0b"}
	dangerColor   = styles.AdaptiveColor{Light: "1", Dark: "9"}
	selectedFg    = styles.NewStyle().Foreground(selectedColor)
	borderFg      = styles.NewStyle().Foreground(borderColor)
	paneStyle     = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			BorderForeground(borderColor)
)

func main() {
	log.SetOutput(os.Stdout)
	flag.StringVar(&configPath, "config", configPath, "Load settings from this YAML file (flags given explicitly still win)")
	flag.StringVar(&config.BaseURL, "api", config.BaseURL, "Backend base URL")
	flag.DurationVar(&config.RequestTimeout, "timeout", config.RequestTimeout, "Per-request timeout")
	flag.StringVar(&config.GenerateMode, "mode", config.GenerateMode, "Generation mode for the initial request (default, random)")
	flag.StringVar(&config.Sample, "sample", config.Sample, "Load this sample S-Box id instead of generating one")
	flag.StringVar(&config.SBoxPath, "sbox", config.SBoxPath, "S-Box file (256 hex values) to upload for full analysis")
	flag.StringVar(&config.ImagePath, "image", config.ImagePath, "Sample image sent along with -sbox for the image encryption test")
	flag.BoolVar(&config.Watch, "watch", config.Watch, "Re-run the upload whenever -sbox or -image changes")
	flag.BoolVar(&config.Headless, "headless", config.Headless, "Run once without the UI and write a report to -out")
	flag.StringVar(&config.OutDir, "out", config.OutDir, "Directory for reports, PNGs and exports")
	flag.BoolVar(&config.Export, "export", config.Export, "Headless: also download the spreadsheet export")
	flag.BoolVar(&config.SavePNG, "save-png", config.SavePNG, "UI: write histogram PNGs to -out for upload results")
	flag.Float64Var(&config.PixelRatio, "pixel-ratio", config.PixelRatio, "Device pixel ratio for PNG output [1,4]")
	flag.IntVar(&config.HistWidth, "hist-width", config.HistWidth, "Histogram width in logical pixels (0 = follow the pane width)")
	flag.IntVar(&config.HistHeight, "hist-height", config.HistHeight, "Histogram height in logical pixels")
	flag.IntVar(&config.RadarSize, "radar-size", config.RadarSize, "Radar PNG edge length in logical pixels")
	flag.IntVar(&config.TopOutputs, "top", config.TopOutputs, "Show at most this many repeated output values")
	flag.IntVar(&config.ViewSplit, "view-split", config.ViewSplit, "Split the view at this % of the total screen width [20,80]")
	flag.BoolVar(&config.ShowRaw, "raw", config.ShowRaw, "Show the raw backend response below the results")
	flag.StringVar(&config.LogPath, "log", config.LogPath, "UI: write logs to this file (empty = discard)")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level (debug, info, warn, error)")
	flag.BoolVar(&config.StatsEnabled, "stats", config.StatsEnabled, "Show backend request stats")
	flag.IntVar(&config.StatsWindow, "stats-window", config.StatsWindow, "Number of recent request latencies kept")
	flag.BoolVar(&config.AltScreen, "alt-screen", config.AltScreen, "Use the terminal alternate screen buffer (recommended inside IDE terminals)")

	flag.Parse()

	if err := loadConfigFile(configPath); err != nil {
		log.Fatal(err)
	}
	if err := validateAndNormalizeConfig(); err != nil {
		log.Fatal(err)
	}

	client := NewClient(config.BaseURL, config.RequestTimeout)
	stats := newRequestStats(config.StatsWindow)
	stats.setEnabled(config.StatsEnabled)

	piped, err := readPipedInput()
	if err != nil {
		log.Fatal(err)
	}

	if config.Headless {
		if err := runHeadless(context.Background(), client, stats, piped, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if config.LogPath != "" {
		f, err := tui.LogToFile(config.LogPath, "")
		if err != nil {
			log.Fatal(err)
		}
		defer func() { _ = f.Close() }()
	} else {
		log.SetOutput(io.Discard)
	}

	m, err := newModel(client, stats, piped)
	if err != nil {
		log.Fatal(err)
	}
	defer m.close()
	opts := []tui.ProgramOption{tui.WithInputTTY()}
	if config.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	if _, err := tui.NewProgram(m, opts...).Run(); err != nil {
		log.Fatal(err)
	}
}

// loadConfigFile overlays settings from a YAML file. Flags that were set on
// the command line are re-applied afterwards.
func loadConfigFile(path string) error {
	if path == "" {
		return nil
	}
	explicit := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("-config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("-config %s: %w", path, err)
	}
	for name, value := range explicit {
		if err := flag.Set(name, value); err != nil {
			return fmt.Errorf("-%s: %w", name, err)
		}
	}
	return nil
}

func validateAndNormalizeConfig() error {
	if config.BaseURL == "" {
		return fmt.Errorf("-api must not be empty")
	}
	if !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return fmt.Errorf("-api must be an http(s) URL (got %q)", config.BaseURL)
	}
	if config.RequestTimeout <= 0 {
		return fmt.Errorf("-timeout must be > 0")
	}
	switch config.GenerateMode {
	case "default", "random":
	default:
		return fmt.Errorf("-mode must be default or random (got %q)", config.GenerateMode)
	}
	if config.Watch && config.SBoxPath == "" {
		return fmt.Errorf("-watch requires -sbox")
	}
	if config.ImagePath != "" && config.SBoxPath == "" {
		return fmt.Errorf("-image requires -sbox")
	}
	if config.Headless && config.OutDir == "" {
		return fmt.Errorf("-headless requires -out")
	}
	if config.SavePNG && config.OutDir == "" {
		return fmt.Errorf("-save-png requires -out")
	}
	if config.HistWidth < 0 {
		return fmt.Errorf("-hist-width must be >= 0")
	}
	if config.HistHeight < 1 {
		return fmt.Errorf("-hist-height must be >= 1")
	}
	if config.RadarSize < 1 {
		return fmt.Errorf("-radar-size must be >= 1")
	}
	if config.TopOutputs < 1 {
		return fmt.Errorf("-top must be >= 1")
	}
	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}
	logThreshold = level

	if config.PixelRatio <= 0 {
		config.PixelRatio = 1
	}
	config.PixelRatio = min(4, max(1, config.PixelRatio))
	config.ViewSplit = max(20, config.ViewSplit)
	config.ViewSplit = min(80, config.ViewSplit)
	if config.StatsWindow < 16 {
		config.StatsWindow = 16
	}
	return nil
}

func readPipedInput() (string, error) {
	if term.IsTerminal(os.Stdin.Fd()) {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// initialAction picks what to show first: piped values, then an uploaded
// file, then a sample, then a freshly generated table.
func initialAction(piped string) (action, error) {
	switch {
	case strings.TrimSpace(piped) != "":
		s, err := ParseSBox(piped)
		if err != nil {
			return action{}, fmt.Errorf("stdin: %w", err)
		}
		return action{kind: actionAnalyze, label: "stdin", sbox: s}, nil
	case config.SBoxPath != "":
		return action{kind: actionUpload, sboxPath: config.SBoxPath, imagePath: config.ImagePath}, nil
	case config.Sample != "":
		return action{kind: actionSample, sample: config.Sample, label: "Sample " + config.Sample}, nil
	}
	return action{kind: actionGenerate, mode: config.GenerateMode, label: "Generated (" + config.GenerateMode + ")"}, nil
}

func runHeadless(ctx context.Context, client *Client, stats *requestStats, piped string, out io.Writer) error {
	a, err := initialAction(piped)
	if err != nil {
		return err
	}
	start := time.Now()
	r, err := a.run(ctx, client)
	stats.observe(time.Since(start), err, time.Now())
	if err != nil {
		return err
	}

	var store resultStore
	store.Replace(r)
	current, _ := store.Current()

	files, err := writeReport(ctx, config.OutDir, current, reportOptions{
		histWidth:  headlessHistWidth(),
		histHeight: config.HistHeight,
		radarSize:  config.RadarSize,
		ratio:      config.PixelRatio,
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		infof("wrote %s", f)
	}
	if config.Export {
		if _, err := exportSpreadsheet(ctx, client, config.OutDir, current.SBox); err != nil {
			return err
		}
	}

	specs := analysisMetrics
	if current.Flow == FlowUpload {
		specs = validationMetrics
	}
	fmt.Fprintf(out, "%s\n\n", current.Label)
	for _, c := range append(BuildPanel(current.Metrics, specs), imageCards(current.Image)...) {
		status := ""
		if c.Status != StatusNeutral {
			status = " [" + string(c.Status) + "]"
		}
		fmt.Fprintf(out, "%-18s %s%s\n", c.Label, c.Value, status)
	}
	if grid, err := BuildGrid(current.SBox); err == nil {
		fmt.Fprintf(out, "\n%s", grid.Text())
	} else {
		fmt.Fprintf(out, "\n%v\n", err)
	}
	if config.StatsEnabled {
		snap := stats.snapshot()
		fmt.Fprintf(out, "\nrequests: %d  latency: %s\n", snap.requests, formatMetricDuration(snap.latency.last))
	}
	return nil
}

func headlessHistWidth() int {
	if config.HistWidth > 0 {
		return config.HistWidth
	}
	return 720
}

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

var logThreshold = levelInfo

func (l logLevel) String() string {
	switch l {
	case levelDebug:
		return "DEBUG"
	case levelInfo:
		return "INFO"
	case levelWarn:
		return "WARN"
	}
	return "ERROR"
}

func parseLogLevel(s string) (logLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return levelDebug, nil
	case "", "info":
		return levelInfo, nil
	case "warn", "warning":
		return levelWarn, nil
	case "error":
		return levelError, nil
	}
	return levelInfo, fmt.Errorf("-log-level must be one of debug, info, warn, error (got %q)", s)
}

func logf(l logLevel, format string, args ...any) {
	if l < logThreshold {
		return
	}
	log.Printf("["+l.String()+"] "+format, args...)
}

func debugf(format string, args ...any) { logf(levelDebug, format, args...) }
func infof(format string, args ...any)  { logf(levelInfo, format, args...) }
func warnf(format string, args ...any)  { logf(levelWarn, format, args...) }
func errorf(format string, args ...any) { logf(levelError, format, args...) }

func formatMetricDuration(d time.Duration) string {
	if d <= 0 {
		return "0.000ms"
	}
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

func min[T ~int | ~float64](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func max[T ~int | ~float64 | ~uint32](a, b T) T {
	if a > b {
		return a
	}
	return b
}
