package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	"github.com/go-echarts/go-echarts/v2/components"
)

type resultMsg struct {
	action  action
	result  Result
	err     error
	elapsed time.Duration
}

type exportMsg struct {
	path string
	err  error
}

type model struct {
	width, height  int
	leftPaneWidth  int
	rightPaneWidth int
	bodyHeight     int

	client *Client
	stats  *requestStats
	ranker *repeatRanker

	store   resultStore
	charts  chartManager
	watcher *fileWatcher

	list      list.Model
	listStyle styles.Style
	help      help.Model
	viewport  viewport.Model
	input     textarea.Model
	spinner   spinner.Model

	pasting bool
	showRaw bool
	pending int
	last    action
	startup *action

	cards       []metricCard
	gridView    string
	gridErr     error
	histReports []string

	notice string
	err    error
}

type actionItem struct {
	title, desc string
	action      action
	paste       bool
}

func (i actionItem) Title() string       { return i.title }
func (i actionItem) Description() string { return i.desc }
func (i actionItem) FilterValue() string { return i.title }

func actionItems() []list.Item {
	items := []list.Item{
		actionItem{title: "Generate", desc: "default affine matrix", action: action{kind: actionGenerate, mode: "default", label: "Generated (default)"}},
		actionItem{title: "Generate random", desc: "random affine matrix", action: action{kind: actionGenerate, mode: "random", label: "Generated (random)"}},
	}
	for _, id := range []string{"1", "2", "3"} {
		items = append(items, actionItem{
			title:  "Sample " + id,
			desc:   "published S-Box",
			action: action{kind: actionSample, sample: id, label: "Sample " + id},
		})
	}
	if config.SBoxPath != "" {
		desc := filepath.Base(config.SBoxPath)
		if config.ImagePath != "" {
			desc += " + " + filepath.Base(config.ImagePath)
		}
		items = append(items, actionItem{
			title:  "Upload file",
			desc:   desc,
			action: action{kind: actionUpload, sboxPath: config.SBoxPath, imagePath: config.ImagePath},
		})
	}
	items = append(items, actionItem{title: "Paste values", desc: "256 hex values", paste: true})
	return items
}

func newModel(client *Client, stats *requestStats, piped string) (*model, error) {
	const (
		defaultWidth  = 80
		defaultHeight = 20
	)

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = styles.NewStyle().
		Border(styles.NormalBorder(), false, false, false, true).
		BorderForeground(borderColor).
		Foreground(selectedColor).
		Padding(0, 0, 0, 1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.
		Foreground(selectedColor)

	l := list.New(actionItems(), d, defaultWidth/3, defaultHeight)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)

	ta := textarea.New()
	ta.Placeholder = "Paste 256 hex values (63 7c 77 ...)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	m := &model{
		client:   client,
		stats:    stats,
		ranker:   newRepeatRanker(config.TopOutputs),
		list:     l,
		help:     help.New(),
		viewport: viewport.New(defaultWidth, defaultHeight),
		input:    ta,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(selectedFg)),
		showRaw:  config.ShowRaw,
	}
	m.leftPaneWidth, m.rightPaneWidth = computePaneWidths(defaultWidth, config.ViewSplit)

	first, err := initialAction(piped)
	if err != nil {
		// bad piped input is shown, not fatal
		m.err = err
		first, _ = initialAction("")
	}
	m.startup = &first

	if config.Watch {
		w, err := newFileWatcher(config.SBoxPath, config.ImagePath)
		if err != nil {
			return nil, err
		}
		m.watcher = w
	}
	return m, nil
}

func (m *model) close() {
	m.charts.ClearAll()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}

func (m *model) leftWidth() int {
	if m.leftPaneWidth > 0 {
		return m.leftPaneWidth
	}
	left, _ := computePaneWidths(m.width, config.ViewSplit)
	return left
}

func (m *model) rightWidth() int {
	if m.rightPaneWidth > 0 {
		return m.rightPaneWidth
	}
	_, right := computePaneWidths(m.width, config.ViewSplit)
	return right
}

func (m *model) Init() tui.Cmd {
	cmds := []tui.Cmd{m.spinner.Tick}
	if m.startup != nil {
		cmds = append(cmds, m.request(*m.startup))
		m.startup = nil
	}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.next())
	}
	return tui.Batch(cmds...)
}

// request runs a in the background. Requests are never cancelled; when two
// overlap, whichever answers last is displayed.
func (m *model) request(a action) tui.Cmd {
	m.pending++
	m.last = a
	client := m.client
	return func() tui.Msg {
		start := time.Now()
		r, err := a.run(context.Background(), client)
		return resultMsg{action: a, result: r, err: err, elapsed: time.Since(start)}
	}
}

func (m *model) export() tui.Cmd {
	r, ok := m.store.Current()
	if !ok {
		m.err = errNoResult
		return nil
	}
	m.pending++
	client, dir := m.client, config.OutDir
	return func() tui.Msg {
		path, err := exportSpreadsheet(context.Background(), client, dir, r.SBox)
		return exportMsg{path: path, err: err}
	}
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.pending = max(0, m.pending-1)
		m.stats.observe(msg.elapsed, msg.err, time.Now())
		if msg.err != nil {
			m.err = msg.err
			var verr *ValidationError
			if errors.As(msg.err, &verr) {
				warnf("%v", msg.err)
			} else {
				errorf("%v", msg.err)
			}
			return m, nil
		}
		m.err = nil
		m.notice = ""
		m.apply(msg.result)
		return m, nil
	case exportMsg:
		m.pending = max(0, m.pending-1)
		if msg.err != nil {
			m.err = msg.err
			errorf("%v", msg.err)
			return m, nil
		}
		m.notice = "exported " + msg.path
		return m, nil
	case watchErrMsg:
		m.err = msg.err
		errorf("%v", msg.err)
		if m.watcher == nil {
			return m, nil
		}
		return m, m.watcher.next()
	case fileChangedMsg:
		infof("watch: %s changed", msg.path)
		a := action{kind: actionUpload, sboxPath: config.SBoxPath, imagePath: config.ImagePath}
		if m.watcher == nil {
			return m, m.request(a)
		}
		return m, tui.Batch(m.request(a), m.watcher.next())
	case spinner.TickMsg:
		var cmd tui.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tui.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.leftPaneWidth, m.rightPaneWidth = computePaneWidths(m.width, config.ViewSplit)
		statsLines := 0
		if config.StatsEnabled {
			// title + 3 metric lines
			statsLines = 4
		}
		helpLines := 1
		statusLines := 1
		available := max(1, m.height-statsLines-helpLines-statusLines)

		leftW := max(1, m.leftWidth())
		rightW := max(1, m.rightWidth())
		m.list.SetSize(leftW, available)
		m.listStyle = styles.NewStyle().Width(leftW).Height(available)

		// The right pane is wrapped in a border (2 lines, 2 columns).
		m.bodyHeight = max(1, available-2)
		m.viewport.Width = max(1, rightW-2)
		m.viewport.Height = m.bodyHeight
		m.input.SetWidth(max(10, rightW-4))
		m.input.SetHeight(max(3, m.bodyHeight-2))
		m.refresh()
		return m, nil
	case tui.KeyMsg:
		if m.pasting {
			return m.updatePaste(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			m.charts.ClearAll()
			return m, tui.Quit
		case key.Matches(msg, keys.Up):
			m.list.CursorUp()
			return m, nil
		case key.Matches(msg, keys.Down):
			m.list.CursorDown()
			return m, nil
		case key.Matches(msg, keys.Run):
			item, ok := m.list.SelectedItem().(actionItem)
			if !ok {
				return m, nil
			}
			if item.paste {
				return m, m.startPaste()
			}
			return m, m.request(item.action)
		case key.Matches(msg, keys.Retry):
			if m.last.kind == actionAnalyze && len(m.last.sbox) == 0 {
				return m, nil
			}
			return m, m.request(m.last)
		case key.Matches(msg, keys.Paste):
			return m, m.startPaste()
		case key.Matches(msg, keys.Copy):
			m.copyCSV()
			return m, nil
		case key.Matches(msg, keys.Export):
			return m, m.export()
		case key.Matches(msg, keys.Save):
			m.saveCharts()
			return m, nil
		case key.Matches(msg, keys.Raw):
			m.showRaw = !m.showRaw
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.PageUp):
			m.viewport.PageUp()
			return m, nil
		case key.Matches(msg, keys.PageDown):
			m.viewport.PageDown()
			return m, nil
		}
	}
	return m, nil
}

func (m *model) startPaste() tui.Cmd {
	m.pasting = true
	m.input.Reset()
	return m.input.Focus()
}

func (m *model) updatePaste(msg tui.KeyMsg) (tui.Model, tui.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.pasting = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, keys.Submit):
		s, err := ParseSBox(m.input.Value())
		if err != nil {
			// keep the editor open so the input can be fixed
			m.err = err
			return m, nil
		}
		m.err = nil
		m.pasting = false
		m.input.Blur()
		return m, m.request(action{kind: actionAnalyze, label: "Pasted values", sbox: s})
	case msg.Type == tui.KeyCtrlC:
		m.charts.ClearAll()
		return m, tui.Quit
	}
	var cmd tui.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply installs r and re-derives every visual from it.
func (m *model) apply(r Result) {
	gen := m.store.Replace(r)
	m.charts.ClearAll()
	current, _ := m.store.Current()
	debugf("result %d: %s (%s)", gen, current.Label, current.Flow)

	m.histReports = nil
	switch current.Flow {
	case FlowGenerate:
		if err := m.charts.Set(slotDistribution, func() (chartHandle, error) {
			return newDistributionChart(current.SBox, m.ranker)
		}); err != nil {
			warnf("%v", err)
		}
		if err := m.charts.Set(slotSecurity, func() (chartHandle, error) {
			return newSecurityChart(current.Metrics)
		}); err != nil {
			warnf("%v", err)
		}
	case FlowUpload:
		if config.SavePNG {
			m.histReports = m.saveHistograms(current)
		}
	}
	m.refresh()
	m.viewport.GotoTop()
}

func (m *model) histogramSize() (int, int) {
	w := config.HistWidth
	if w <= 0 {
		// roughly 8 pixels per terminal cell
		w = max(320, m.rightWidth()*8)
	}
	return w, config.HistHeight
}

func (m *model) saveHistograms(r Result) []string {
	var lines []string
	for _, job := range histogramJobs(r.Image) {
		canvas := newHistogramCanvas(m.histogramSize, config.PixelRatio, nil)
		rep, err := canvas.Render(job.data, job.title, job.mode)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: %v", job.file, err))
			continue
		}
		if rep.Rendered {
			if err := savePNG(filepath.Join(config.OutDir, job.file), canvas); err != nil {
				lines = append(lines, fmt.Sprintf("%s: %v", job.file, err))
				continue
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %s", job.file, rep))
	}
	return lines
}

func savePNG(path string, c *histogramCanvas) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// saveCharts writes the live charts as one HTML page.
func (m *model) saveCharts() {
	var charters []components.Charter
	for _, slot := range []chartSlot{slotDistribution, slotSecurity} {
		if h, ok := m.charts.Handle(slot).(interface{ Charter() components.Charter }); ok {
			if c := h.Charter(); c != nil {
				charters = append(charters, c)
			}
		}
	}
	if len(charters) == 0 {
		m.err = fmt.Errorf("no charts to save")
		return
	}
	r, _ := m.store.Current()
	if err := os.MkdirAll(config.OutDir, 0o755); err != nil {
		m.err = err
		return
	}
	path := filepath.Join(config.OutDir, "charts.html")
	var page bytes.Buffer
	if err := writeChartsPage(&page, r.Label, charters...); err != nil {
		m.err = err
		return
	}
	if err := os.WriteFile(path, page.Bytes(), 0o644); err != nil {
		m.err = err
		return
	}
	m.notice = "saved " + path
}

func (m *model) copyCSV() {
	r, ok := m.store.Current()
	if !ok || len(r.SBox) == 0 {
		m.err = errNoResult
		return
	}
	if err := clipboard.WriteAll(r.SBox.CSV()); err != nil {
		m.err = fmt.Errorf("copy: %w", err)
		return
	}
	m.notice = "copied S-Box as CSV"
}

// refresh re-renders the result pane from the store.
func (m *model) refresh() {
	m.viewport.SetContent(m.renderResult(max(1, m.viewport.Width)))
}

func (m *model) renderResult(width int) string {
	r, ok := m.store.Current()
	if !ok {
		return borderFg.Render("No result yet. Pick an action and press enter.")
	}
	title := selectedFg.Bold(true).Render(r.Label)
	sections := []string{
		title + borderFg.Render(fmt.Sprintf("  %s #%d", r.Flow, m.store.Generation())),
	}

	specs := analysisMetrics
	if r.Flow == FlowUpload {
		specs = validationMetrics
	}
	m.cards = append(BuildPanel(r.Metrics, specs), imageCards(r.Image)...)
	sections = append(sections, renderPanel(m.cards, width))

	grid, err := BuildGrid(r.SBox)
	m.gridErr = err
	if err != nil {
		m.gridView = ""
		sections = append(sections, errStyle.Render(err.Error()))
	} else {
		m.gridView = renderGrid(grid)
		sections = append(sections, m.gridView)
	}

	for _, slot := range []chartSlot{slotDistribution, slotSecurity} {
		if h := m.charts.Handle(slot); h != nil {
			sections = append(sections, h.View(width, 10))
		}
	}

	if r.Flow == FlowUpload {
		if r.Image == nil {
			sections = append(sections, borderFg.Render("no image test"))
		} else {
			for _, job := range histogramJobs(r.Image) {
				sections = append(sections, histogramTermView(job.data, job.title, job.mode, width, 7))
			}
		}
		if len(m.histReports) > 0 {
			sections = append(sections, borderFg.Render(strings.Join(m.histReports, "\n")))
		}
	}

	if m.showRaw && len(r.Raw) > 0 {
		sections = append(sections, borderFg.Render(string(prettyJSON(r.Raw))))
	}
	return strings.Join(sections, "\n\n")
}

var (
	errStyle    = styles.NewStyle().Foreground(dangerColor)
	noticeStyle = styles.NewStyle().Foreground(successColor)
)

func (m *model) View() string {
	left := m.listStyle.Render(m.list.View())
	body := m.viewport.View()
	if m.pasting {
		body = styles.JoinVertical(styles.Left,
			selectedFg.Render("Paste S-Box values (ctrl+s submit, esc cancel)"),
			m.input.View())
	}
	right := paneStyle.Width(max(1, m.rightWidth()-2)).Render(body)
	view := styles.JoinHorizontal(styles.Top, left, right)

	status := ""
	switch {
	case m.err != nil:
		status = errStyle.Render("ERROR: " + m.err.Error())
	case m.pending > 0:
		status = m.spinner.View() + " waiting for backend"
	case m.notice != "":
		status = noticeStyle.Render(m.notice)
	}

	blocks := []string{view, status}
	if config.StatsEnabled {
		snap := m.stats.snapshot()
		lat := snap.latency
		statsBlock := []string{
			"BACKEND STATS",
			fmt.Sprintf("requests: %d (failed %d, in flight %d)", snap.requests, snap.failures, m.pending),
			fmt.Sprintf("latency last/avg/max: %s / %s / %s", formatMetricDuration(lat.last), formatMetricDuration(lat.avg), formatMetricDuration(lat.max)),
			fmt.Sprintf("result: #%d  live charts: %d", m.store.Generation(), m.charts.Live()),
		}
		blocks = append(blocks, borderFg.Render(strings.Join(statsBlock, "\n")))
	}
	blocks = append(blocks, m.help.View(keys))
	return styles.JoinVertical(styles.Left, blocks...)
}

func computePaneWidths(totalWidth int, splitPercent int) (left, right int) {
	if totalWidth <= 1 {
		return 1, 1
	}
	left = totalWidth * splitPercent / 100
	if left < 1 {
		left = 1
	}
	if left > totalWidth-1 {
		left = totalWidth - 1
	}
	right = totalWidth - left

	// Keep panes readable when the terminal is wide enough.
	const minPane = 18
	if totalWidth >= minPane*2 {
		if left < minPane {
			left = minPane
			right = totalWidth - left
		}
		if right < minPane {
			right = minPane
			left = totalWidth - right
		}
	}
	if left < 1 {
		left = 1
	}
	if right < 1 {
		right = 1
	}
	return left, right
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Run, k.Paste, k.Copy, k.Export, k.Save}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Run, k.Retry},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Paste, k.Submit, k.Cancel},
		{k.Copy, k.Export, k.Save, k.Raw},
	}
}

type keyMap struct {
	Run      key.Binding
	Retry    key.Binding
	Paste    key.Binding
	Submit   key.Binding
	Cancel   key.Binding
	Copy     key.Binding
	Export   key.Binding
	Save     key.Binding
	Raw      key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Run: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "repeat last"),
	),
	Paste: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "paste"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "submit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy csv"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export xlsx"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save charts"),
	),
	Raw: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "raw json"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "b"),
		key.WithHelp("pgup/b", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "f"),
		key.WithHelp("pgdn/f", "scroll down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
