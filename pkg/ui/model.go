package ui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/grapher/internal/datasource"
	"github.com/vanderheijden86/grapher/pkg/config"
	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/export"
	"github.com/vanderheijden86/grapher/pkg/metrics"
	"github.com/vanderheijden86/grapher/pkg/model"
	"github.com/vanderheijden86/grapher/pkg/timeline"
	"github.com/vanderheijden86/grapher/pkg/watcher"
)

// Tab indices. The order is the order of the tab bar.
type tab int

const (
	tabChart tab = iota
	tabTable
	tabSources
)

var tabNames = []string{"Chart", "Table", "Sources"}

// Header is title + tab bar. The footer grows a scrubber row unless the
// config hides the timeline.
const headerRows = 2

// defaultSelectedEntities caps the initial selection when the config
// names none. Matches the series palette so the first pick has distinct
// colors.
const defaultSelectedEntities = 7

// FileChangedMsg is sent when the data file or its sidecar changes on disk
type FileChangedMsg struct{}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// Model is the main Bubble Tea model for gr: one chart, three tab views
// over it, and the timeline scrubber in the footer.
type Model struct {
	ds       *model.Dataset
	cfg      model.ChartConfig
	source   datasource.DataSource
	entities []string

	theme Theme
	keys  KeyMap

	activeTab   tab
	timeline    TimelineModel
	hasTimeline bool
	chart       ChartView
	table       TableView
	sources     SourcesView

	picker        EntityPicker
	showPicker    bool
	editModal     EditModal
	showEditModal bool

	watcher *watcher.Watcher

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool
	showFullHelp  bool

	// Set when the user asked for the export wizard; the program quits
	// and cmd/gr picks the flow up outside the TUI.
	exportRequested bool

	appConfig config.Config
}

// NewModel builds the UI for a loaded chart. The watcher starts here so
// a live reload failure is visible in the very first frame's status bar.
func NewModel(res *datasource.LoadResult, appCfg config.Config) Model {
	theme := ThemeForName(appCfg.UI.Theme, lipgloss.NewRenderer(os.Stdout))
	ds := res.Dataset
	cfg := res.Config

	entities := cfg.ResolveEntities(ds, defaultSelectedEntities)

	chart := NewChartView(theme)
	chart.SetData(ds, cfg, entities)
	table := NewTableView(theme)
	table.SetData(ds, entities)
	sources := NewSourcesView(theme)
	sources.SetData(ds)

	// The sidecar lives next to the data file, so one watcher covers both
	var fw *watcher.Watcher
	var watchErr error
	w, err := watcher.NewWatcher(res.Source.Path,
		watcher.WithDebounceDuration(200*time.Millisecond),
		watcher.WithSidecar(res.Source.ConfigSidecarPath()),
	)
	if err != nil {
		watchErr = err
	} else if err := w.Start(); err != nil {
		watchErr = err
	} else {
		fw = w
	}

	var initialStatus string
	var initialStatusErr bool
	if watchErr != nil {
		initialStatus = fmt.Sprintf("Live reload unavailable: %v", watchErr)
		initialStatusErr = true
	}

	// Default dimensions so the UI is usable before the first
	// WindowSizeMsg arrives (tmux and SSH can delay it).
	const defaultWidth = 120
	const defaultHeight = 40

	m := Model{
		ds:            ds,
		cfg:           cfg,
		source:        res.Source,
		entities:      entities,
		theme:         theme,
		keys:          DefaultKeyMap(),
		hasTimeline:   !cfg.HideTimeline,
		chart:         chart,
		table:         table,
		sources:       sources,
		watcher:       fw,
		ready:         true,
		width:         defaultWidth,
		height:        defaultHeight,
		statusMsg:     initialStatus,
		statusIsError: initialStatusErr,
		appConfig:     appCfg,
	}
	m.timeline = m.newTimeline(cfg.MinTime.Bound, cfg.MaxTime.Bound)

	switch appCfg.UI.DefaultTab {
	case "table":
		m.activeTab = tabTable
	case "sources":
		m.activeTab = tabSources
	}

	m.layout()
	m.syncWindow()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	// Modals get every message type first: text inputs need more than
	// KeyMsg for cursor blink and paste to work.
	if m.showEditModal {
		if size, ok := msg.(tea.WindowSizeMsg); ok {
			m.width, m.height = size.Width, size.Height
			m.layout()
			return m, nil
		}
		m.editModal, cmd = m.editModal.Update(msg)
		cmds = append(cmds, cmd)
		if m.editModal.IsCancelRequested() {
			m.showEditModal = false
			return m, tea.Batch(cmds...)
		}
		if m.editModal.IsSaveRequested() {
			m.showEditModal = false
			m = m.applyConfigEdit(m.editModal.Apply(m.cfg))
			return m, tea.Batch(cmds...)
		}
		return m, tea.Batch(cmds...)
	}

	if m.showPicker {
		if size, ok := msg.(tea.WindowSizeMsg); ok {
			m.width, m.height = size.Width, size.Height
			m.layout()
			return m, nil
		}
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
		if m.picker.Canceled() {
			m.showPicker = false
			return m, tea.Batch(cmds...)
		}
		if m.picker.Applied() {
			m.showPicker = false
			m = m.applyEntitySelection(m.picker.Selected())
			return m, tea.Batch(cmds...)
		}
		return m, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case timelineFrameMsg, playTickMsg:
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)

	case FileChangedMsg:
		m = m.reload("Reloaded")
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case tea.MouseMsg:
		m, cmd = m.handleMouse(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		var quit bool
		m, cmd, quit = m.handleKeys(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)
	}

	m.syncWindow()
	return m, tea.Batch(cmds...)
}

// handleKeys processes global key bindings. Returns quit=true when the
// program should exit.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	// Any keypress clears a lingering status line
	m.statusMsg = ""
	m.statusIsError = false

	var cmd tea.Cmd
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		m.shutdown()
		return m, nil, true

	case key.Matches(msg, k.Help):
		m.showFullHelp = !m.showFullHelp

	case key.Matches(msg, k.NextTab):
		m.activeTab = (m.activeTab + 1) % tab(len(tabNames))

	case key.Matches(msg, k.PrevTab):
		m.activeTab = (m.activeTab - 1 + tab(len(tabNames))) % tab(len(tabNames))

	case key.Matches(msg, k.PlayPause):
		if m.hasTimeline {
			m.timeline, cmd = m.timeline.TogglePlay()
		}

	case key.Matches(msg, k.StepBack):
		if m.hasTimeline {
			m.timeline.StepEnd(-1)
		}

	case key.Matches(msg, k.StepForward):
		if m.hasTimeline {
			m.timeline.StepEnd(1)
		}

	case key.Matches(msg, k.StartBack):
		if m.hasTimeline {
			m.timeline.StepStart(-1)
		}

	case key.Matches(msg, k.StartForward):
		if m.hasTimeline {
			m.timeline.StepStart(1)
		}

	case key.Matches(msg, k.JumpFirst):
		if m.hasTimeline {
			m.timeline.ExpandToEarliest()
		}

	case key.Matches(msg, k.JumpLast):
		if m.hasTimeline {
			m.timeline.ExpandToLatest()
		}

	case key.Matches(msg, k.Edit):
		m.timeline.Stop()
		m.editModal = NewEditModal(m.cfg, m.theme)
		m.editModal.SetSize(m.width, m.height-1)
		m.showEditModal = true

	case key.Matches(msg, k.Entities):
		m.timeline.Stop()
		m.picker = NewEntityPicker(m.ds.Entities(), m.entities, m.theme)
		m.picker.SetSize(m.width, m.height-1)
		m.showPicker = true

	case key.Matches(msg, k.Export):
		m.timeline.Stop()
		m.exportRequested = true
		m.shutdown()
		return m, nil, true

	case key.Matches(msg, k.Yank):
		m = m.yank()

	case key.Matches(msg, k.Reload):
		m = m.reload("Reloaded")
	}

	return m, cmd, false
}

// handleMouse routes mouse events by position: an in-flight drag owns
// everything, the scrubber row and tab bar take presses, the body views
// take the wheel.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.hasTimeline && m.timeline.Dragging() {
		m.timeline, cmd = m.timeline.HandleMouse(msg)
		return m, cmd
	}

	if m.hasTimeline && msg.Y == m.timelineRow() {
		m.timeline, cmd = m.timeline.HandleMouse(msg)
		return m, cmd
	}

	if msg.Y == 1 && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if t, ok := m.tabAt(msg.X); ok {
			m.activeTab = t
		}
		return m, nil
	}

	// Body area
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		switch m.activeTab {
		case tabChart:
			// Scrolling over the chart nudges the window like the
			// scrubber row does
			if m.hasTimeline {
				m.timeline, cmd = m.timeline.HandleMouse(msg)
			}
		case tabTable:
			m.table, cmd = m.table.Update(msg)
		case tabSources:
			m.sources, cmd = m.sources.Update(msg)
		}
	}
	return m, cmd
}

// tabAt maps a tab-bar x position onto a tab index. Each label occupies
// its text plus one padding cell per side.
func (m Model) tabAt(x int) (tab, bool) {
	pos := 0
	for i, name := range tabNames {
		w := lipgloss.Width(name) + 2
		if x >= pos && x < pos+w {
			return tab(i), true
		}
		pos += w
	}
	return 0, false
}

// timelineRow is the scrubber's terminal row: second-to-last, above the
// status line.
func (m Model) timelineRow() int {
	return m.height - 2
}

// newTimeline builds a scrubber over the current dataset and config with
// the given raw bounds carried over.
func (m *Model) newTimeline(start, end timeline.Bound) TimelineModel {
	fps := m.appConfig.Playback.FPS
	if fps <= 0 {
		fps = config.DefaultPlaybackFPS
	}
	return NewTimelineModel(timeline.Options{
		Axis:           m.ds.Axis(),
		Start:          start,
		End:            end,
		SingleYear:     m.cfg.SingleYear(),
		SingleYearPlay: m.cfg.SingleYearPlay,
		DisablePlay:    m.ds.Axis().Len() < 2,
		Loop:           m.appConfig.Experimental.Loop(),
	}, time.Second/time.Duration(fps), m.theme)
}

// syncWindow drains the pending snapped-window change into the data
// views and lets the chart decide whether to re-render now or defer.
func (m *Model) syncWindow() {
	if !m.hasTimeline {
		return
	}
	if start, end, ok := m.timeline.TakeRangeChange(); ok {
		m.chart.SetWindow(start, end)
		m.table.SetWindow(start, end)
	}
	m.chart.Refresh(m.timeline.Live(), m.timeline.Dragging())
}

// reload re-reads the dataset and sidecar from disk. The user's window
// and entity selection survive; presentation fields follow the sidecar.
func (m Model) reload(verb string) Model {
	defer metrics.TimerWithCallback(metrics.WatcherReload, func(d time.Duration) {
		debug.LogTiming("ui.reload", d)
	})()

	res, err := datasource.LoadFromSource(context.Background(), m.source)
	if err != nil {
		m.statusMsg = fmt.Sprintf("Reload error: %v", err)
		m.statusIsError = true
		return m
	}

	cfg := res.Config
	if len(m.cfg.SelectedEntities) > 0 {
		cfg.SelectedEntities = m.cfg.SelectedEntities
	}

	rawStart, rawEnd := m.timeline.RawRange()
	m.timeline.Teardown()

	m.ds = res.Dataset
	m.cfg = cfg
	m.source = res.Source
	m.entities = cfg.ResolveEntities(m.ds, defaultSelectedEntities)
	m.hasTimeline = !cfg.HideTimeline
	m.timeline = m.newTimeline(rawStart, rawEnd)

	m.chart.SetData(m.ds, m.cfg, m.entities)
	m.table.SetData(m.ds, m.entities)
	m.sources.SetData(m.ds)
	m.layout()
	m.syncWindow()

	debug.Log("ui: %s %s (%d entities, %d years)",
		verb, m.ds.Name, len(m.ds.Entities()), len(m.ds.Years()))
	m.statusMsg = fmt.Sprintf("%s %s", verb, m.ds.Name)
	m.statusIsError = false
	return m
}

// applyConfigEdit takes the edit modal's result: presentation fields
// change, the current window is captured into the config, and the
// sidecar is written back.
func (m Model) applyConfigEdit(cfg model.ChartConfig) Model {
	typeChanged := cfg.SingleYear() != m.cfg.SingleYear()
	cfg.MinTime, cfg.MaxTime = m.rawWindow()
	m.cfg = cfg

	if typeChanged {
		rawStart, rawEnd := m.timeline.RawRange()
		m.timeline.Teardown()
		m.timeline = m.newTimeline(rawStart, rawEnd)
		m.layout()
	}

	m.chart.SetData(m.ds, m.cfg, m.entities)
	m.syncWindow()

	path := m.source.ConfigSidecarPath()
	data, err := m.cfg.Marshal()
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		m.statusMsg = fmt.Sprintf("Save failed: %v", err)
		m.statusIsError = true
		return m
	}
	m.statusMsg = fmt.Sprintf("Saved %s", path)
	m.statusIsError = false
	return m
}

// applyEntitySelection takes the picker's result into the config and
// every data view.
func (m Model) applyEntitySelection(selected []string) Model {
	if len(selected) == 0 {
		m.statusMsg = "No entities selected"
		m.statusIsError = true
		return m
	}
	m.entities = selected
	m.cfg.SelectedEntities = append([]string(nil), selected...)
	m.chart.SetData(m.ds, m.cfg, m.entities)
	m.table.SetData(m.ds, m.entities)
	m.chart.Refresh(false, false)
	m.statusMsg = fmt.Sprintf("%d entities selected", len(selected))
	m.statusIsError = false
	return m
}

// yank copies the active tab's content to the clipboard: the citation
// block on the sources tab, the windowed CSV elsewhere.
func (m Model) yank() Model {
	var text, what string
	switch m.activeTab {
	case tabSources:
		text = SourcesMarkdown(m.ds)
		what = "citation"
	default:
		start, end := m.timeline.Window()
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, export.Request{
			Dataset:   m.ds,
			Config:    m.cfg,
			StartYear: start,
			EndYear:   end,
		}); err != nil {
			m.statusMsg = fmt.Sprintf("Yank failed: %v", err)
			m.statusIsError = true
			return m
		}
		text = buf.String()
		what = "CSV window"
	}

	if err := clipboard.WriteAll(text); err != nil {
		m.statusMsg = fmt.Sprintf("Clipboard unavailable: %v", err)
		m.statusIsError = true
		return m
	}
	m.statusMsg = fmt.Sprintf("Copied %s", what)
	m.statusIsError = false
	return m
}

// rawWindow converts the scrubber's raw bounds into config time bounds,
// so a window pinned to the axis edges stays pinned as data grows.
func (m Model) rawWindow() (model.TimeBound, model.TimeBound) {
	rawStart, rawEnd := m.timeline.RawRange()
	snap := func(b timeline.Bound) model.TimeBound {
		if b.IsEarliest() || b.IsLatest() {
			return model.TimeBound{Bound: b}
		}
		return model.YearBound(b.Year())
	}
	return snap(rawStart), snap(rawEnd)
}

// shutdown releases everything that outlives the update loop.
func (m *Model) shutdown() {
	if m.hasTimeline {
		m.timeline.Teardown()
	}
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

func (m Model) footerRows() int {
	if m.hasTimeline {
		return 2
	}
	return 1
}

func (m Model) bodyHeight() int {
	h := m.height - headerRows - m.footerRows()
	if h < 1 {
		h = 1
	}
	return h
}

// layout propagates the current terminal size to every component.
func (m *Model) layout() {
	body := m.bodyHeight()
	m.timeline.SetWidth(m.width)
	m.chart.SetSize(m.width, body)
	m.table.SetSize(m.width, body)
	m.sources.SetSize(m.width, body)
	if m.showPicker {
		m.picker.SetSize(m.width, m.height-1)
	}
	if m.showEditModal {
		m.editModal.SetSize(m.width, m.height-1)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()

	finalStyle := m.theme.Renderer.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	// Overlays replace header and scrubber; only the status line stays.
	if m.showEditModal {
		return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.editModal.View(), m.renderFooter()))
	}
	if m.showPicker {
		overlay := lipgloss.Place(m.width, m.height-1,
			lipgloss.Center, lipgloss.Center, m.picker.View())
		return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			overlay, m.renderFooter()))
	}

	var body string
	switch m.activeTab {
	case tabChart:
		body = m.chart.View()
	case tabTable:
		body = m.table.View()
	case tabSources:
		body = m.sources.View()
	}

	parts := []string{m.renderHeader(), body}
	if m.hasTimeline {
		parts = append(parts, m.timeline.View())
	}
	parts = append(parts, m.renderFooter())

	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderHeader is the title line plus the tab bar.
func (m Model) renderHeader() string {
	title := m.cfg.Title
	if title == "" {
		title = m.ds.Name
	}
	line := m.theme.PrimaryBold.Render(truncate(title, m.width))
	if m.cfg.Subtitle != "" {
		rest := m.width - lipgloss.Width(line) - 2
		if rest > 4 {
			line += "  " + m.theme.MutedText.Render(truncate(m.cfg.Subtitle, rest))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		line,
		RenderTabBar(m.theme, tabNames, int(m.activeTab), m.width),
	)
}

// renderFooter is one row: a prominent status message when set, key
// hints otherwise.
func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		var msgStyle lipgloss.Style
		prefix := "✓ "
		if m.statusIsError {
			prefix = "✗ "
			msgStyle = m.theme.Renderer.NewStyle().
				Background(ColorDangerBg).
				Foreground(ColorDanger).
				Bold(true).
				Padding(0, 1)
		} else {
			msgStyle = m.theme.Renderer.NewStyle().
				Background(ColorSuccessBg).
				Foreground(ColorSuccess).
				Bold(true).
				Padding(0, 1)
		}
		return msgStyle.MaxWidth(m.width).Render(prefix + m.statusMsg)
	}

	if m.appConfig.UI.HideHelp {
		return ""
	}

	type hint struct {
		key   string
		label string
	}
	hints := []hint{
		{"space", "play"},
		{"←/→", "step"},
		{"tab", "view"},
		{"?", "more"},
		{"q", "quit"},
	}
	if m.showFullHelp {
		hints = []hint{
			{"space", "play"},
			{"←/→", "end"},
			{"shift+←/→", "start"},
			{"home/end", "full span"},
			{"e", "edit"},
			{"o", "entities"},
			{"x", "export"},
			{"y", "yank"},
			{"r", "reload"},
			{"q", "quit"},
		}
	}

	keyStyle := m.theme.PrimaryBold
	labelStyle := m.theme.MutedText
	var b bytes.Buffer
	for i, h := range hints {
		if i > 0 {
			b.WriteString(labelStyle.Render("  "))
		}
		b.WriteString(keyStyle.Render(h.key))
		b.WriteString(labelStyle.Render(" " + h.label))
	}
	return m.theme.Renderer.NewStyle().MaxWidth(m.width).Render(b.String())
}

// ExportRequested reports whether the user asked for the export wizard.
// cmd/gr runs it after the program exits, outside the alt screen.
func (m Model) ExportRequested() bool { return m.exportRequested }

// Dataset exposes the loaded dataset for the post-exit export flow.
func (m Model) Dataset() *model.Dataset { return m.ds }

// Config exposes the current chart config, in-session edits included.
func (m Model) Config() model.ChartConfig { return m.cfg }

// Window returns the snapped effective year range.
func (m Model) Window() (start, end int) {
	return m.timeline.Window()
}
