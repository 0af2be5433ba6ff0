package ui

import (
	"math"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/grapher/pkg/timeline"
)

// Motion events are coalesced onto an animation-frame cadence: only the
// latest pointer position is applied per frame.
const frameEvery = 16 * time.Millisecond

// timelineFrameMsg applies the pending coalesced pointer move. A stale
// generation means the gesture it belonged to is already gone.
type timelineFrameMsg struct {
	gen uint64
}

// playTickMsg advances playback. at is the scheduler's fire time.
type playTickMsg struct {
	gen uint64
	at  time.Time
}

// rangeSignal accumulates controller callbacks. It sits behind a pointer
// so the hook closures stay valid while the model value is copied around
// by the bubbletea update loop.
type rangeSignal struct {
	start, end int
	changed    bool
}

// TimelineModel adapts a timeline.Controller to bubbletea: mouse and key
// input in, frame and tick commands out, one scrubber row rendered.
type TimelineModel struct {
	ctrl *timeline.Controller
	sig  *rangeSignal

	theme     Theme
	tickEvery time.Duration

	width      int
	trackX     int
	trackCells int
	labelW     int

	// Coalescing state. pendingX holds the newest motion position while
	// at most one frame message is in flight.
	pendingX    int
	hasPending  bool
	frameQueued bool
}

// NewTimelineModel builds the adapter and its controller. The initial
// snapped range is immediately available through TakeRangeChange.
func NewTimelineModel(opts timeline.Options, tickEvery time.Duration, theme Theme) TimelineModel {
	sig := &rangeSignal{}
	user := opts.Hooks
	opts.Hooks = timeline.Hooks{
		OnTargetChange: func(start, end timeline.Bound) {
			sig.start = start.Year()
			sig.end = end.Year()
			sig.changed = true
			if user.OnTargetChange != nil {
				user.OnTargetChange(start, end)
			}
		},
		OnStartDrag:  user.OnStartDrag,
		OnStopDrag:   user.OnStopDrag,
		OnLiveChange: user.OnLiveChange,
	}
	if tickEvery <= 0 {
		tickEvery = 50 * time.Millisecond
	}
	tm := TimelineModel{
		ctrl:      timeline.New(opts),
		sig:       sig,
		theme:     theme,
		tickEvery: tickEvery,
	}
	tm.labelW = tm.yearLabelWidth()
	return tm
}

// SetWidth lays the scrubber row out for the given total width and
// reports the track geometry to the controller, so pointer positions and
// drawn handle cells agree.
func (tm *TimelineModel) SetWidth(width int) {
	tm.width = width
	tm.labelW = tm.yearLabelWidth()
	tm.trackX = 2 + tm.labelW + 1
	cells := width - tm.trackX - tm.labelW - 1
	if cells < 2 {
		cells = 0
	}
	tm.trackCells = cells
	if cells > 0 {
		tm.ctrl.SetTrackBounds(tm.trackX, cells-1)
	} else {
		tm.ctrl.SetTrackBounds(tm.trackX, 0)
	}
}

func (tm TimelineModel) yearLabelWidth() int {
	w := len(strconv.Itoa(tm.ctrl.MinYear()))
	if n := len(strconv.Itoa(tm.ctrl.MaxYear())); n > w {
		w = n
	}
	return w
}

// Update handles the adapter's own frame and tick messages.
func (tm TimelineModel) Update(msg tea.Msg) (TimelineModel, tea.Cmd) {
	switch msg := msg.(type) {
	case timelineFrameMsg:
		tm.frameQueued = false
		if !tm.ctrl.GenerationValid(msg.gen) {
			// The generation moved on while this frame was in flight.
			// If the gesture survived, re-arm under the new generation
			// so the pending position still lands.
			if tm.hasPending && tm.ctrl.Dragging() {
				tm.frameQueued = true
				return tm, tm.frameCmd()
			}
			return tm, nil
		}
		if tm.hasPending {
			tm.hasPending = false
			tm.ctrl.PointerMove(tm.pendingX)
		}

	case playTickMsg:
		if !tm.ctrl.GenerationValid(msg.gen) {
			return tm, nil
		}
		if tm.ctrl.Tick(msg.at) {
			return tm, tm.playTickCmd()
		}
	}
	return tm, nil
}

// HandleMouse translates a mouse event on the scrubber into controller
// calls. The host routes events here when they land on the timeline row,
// and unconditionally while a drag is in progress so the gesture
// survives leaving the row.
func (tm TimelineModel) HandleMouse(msg tea.MouseMsg) (TimelineModel, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		tm.StepEnd(1)
		return tm, nil
	case tea.MouseButtonWheelDown:
		tm.StepEnd(-1)
		return tm, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			tm.ctrl.PointerDown(msg.X)
		}

	case tea.MouseActionMotion:
		if !tm.ctrl.Dragging() {
			return tm, nil
		}
		tm.pendingX = msg.X
		tm.hasPending = true
		if !tm.frameQueued {
			tm.frameQueued = true
			return tm, tm.frameCmd()
		}

	case tea.MouseActionRelease:
		tm.ctrl.PointerUp()
	}
	return tm, nil
}

// TogglePlay flips playback and arms the tick loop when it starts.
func (tm TimelineModel) TogglePlay() (TimelineModel, tea.Cmd) {
	if tm.ctrl.TogglePlay() {
		return tm, tm.playTickCmd()
	}
	return tm, nil
}

// Stop halts playback without touching the range.
func (tm TimelineModel) Stop() {
	tm.ctrl.Stop()
}

func (tm TimelineModel) frameCmd() tea.Cmd {
	gen := tm.ctrl.Generation()
	return tea.Tick(frameEvery, func(time.Time) tea.Msg {
		return timelineFrameMsg{gen: gen}
	})
}

func (tm TimelineModel) playTickCmd() tea.Cmd {
	gen := tm.ctrl.Generation()
	return tea.Tick(tm.tickEvery, func(t time.Time) tea.Msg {
		return playTickMsg{gen: gen, at: t}
	})
}

// StepEnd moves the end handle to the neighboring axis year. Applied
// only at rest; in single-year mode the whole window steps.
func (tm TimelineModel) StepEnd(delta int) {
	if tm.ctrl.Playing() || tm.ctrl.Dragging() {
		return
	}
	year, ok := tm.neighborYear(tm.ctrl.EndYear(), delta)
	if !ok {
		return
	}
	if tm.ctrl.SingleYear() {
		b := timeline.BoundFromYear(year)
		tm.ctrl.SetRange(b, b)
		return
	}
	if year < tm.ctrl.StartYear() {
		year = tm.ctrl.StartYear()
	}
	start, _ := tm.ctrl.RawRange()
	tm.ctrl.SetRange(start, timeline.BoundFromYear(year))
}

// StepStart moves the start handle to the neighboring axis year.
func (tm TimelineModel) StepStart(delta int) {
	if tm.ctrl.Playing() || tm.ctrl.Dragging() {
		return
	}
	year, ok := tm.neighborYear(tm.ctrl.StartYear(), delta)
	if !ok {
		return
	}
	if tm.ctrl.SingleYear() {
		b := timeline.BoundFromYear(year)
		tm.ctrl.SetRange(b, b)
		return
	}
	if year > tm.ctrl.EndYear() {
		year = tm.ctrl.EndYear()
	}
	_, end := tm.ctrl.RawRange()
	tm.ctrl.SetRange(timeline.BoundFromYear(year), end)
}

func (tm TimelineModel) neighborYear(cur, delta int) (int, bool) {
	if delta > 0 {
		return tm.ctrl.Axis().NextAfter(float64(cur))
	}
	return tm.ctrl.Axis().PrevBefore(float64(cur))
}

// ExpandToEarliest pins the window start to the axis minimum, keeping it
// pinned across reloads via the sentinel bound. Single-year windows jump
// to the first year instead.
func (tm TimelineModel) ExpandToEarliest() {
	if tm.ctrl.SingleYear() {
		b := timeline.BoundFromYear(tm.ctrl.MinYear())
		tm.ctrl.SetRange(b, b)
		return
	}
	_, end := tm.ctrl.RawRange()
	tm.ctrl.SetRange(timeline.Earliest, end)
}

// ExpandToLatest pins the window end to the axis maximum.
func (tm TimelineModel) ExpandToLatest() {
	if tm.ctrl.SingleYear() {
		b := timeline.BoundFromYear(tm.ctrl.MaxYear())
		tm.ctrl.SetRange(b, b)
		return
	}
	start, _ := tm.ctrl.RawRange()
	tm.ctrl.SetRange(start, timeline.Latest)
}

// SetRange applies an external range; ignored mid-gesture or
// mid-playback.
func (tm TimelineModel) SetRange(start, end timeline.Bound) bool {
	return tm.ctrl.SetRange(start, end)
}

// Window returns the snapped effective range.
func (tm TimelineModel) Window() (start, end int) {
	return tm.ctrl.StartYear(), tm.ctrl.EndYear()
}

// RawRange exposes the raw bounds for config round-trips, sentinels
// included.
func (tm TimelineModel) RawRange() (timeline.Bound, timeline.Bound) {
	return tm.ctrl.RawRange()
}

// Live reports whether a gesture or playback is in flight. Hosts defer
// expensive re-rendering while it is up.
func (tm TimelineModel) Live() bool { return tm.ctrl.Live() }

// Playing reports whether playback is running.
func (tm TimelineModel) Playing() bool { return tm.ctrl.Playing() }

// Dragging reports whether a pointer gesture is in progress.
func (tm TimelineModel) Dragging() bool { return tm.ctrl.Dragging() }

// SingleYear reports whether the scrubber is locked to one year.
func (tm TimelineModel) SingleYear() bool { return tm.ctrl.SingleYear() }

// TakeRangeChange reports and clears the pending snapped-window change.
func (tm TimelineModel) TakeRangeChange() (start, end int, ok bool) {
	if tm.sig == nil || !tm.sig.changed {
		return 0, 0, false
	}
	tm.sig.changed = false
	return tm.sig.start, tm.sig.end, true
}

// Teardown invalidates the controller; in-flight frames and ticks become
// stale no-ops.
func (tm TimelineModel) Teardown() {
	tm.ctrl.Teardown()
}

// resolvedRange mirrors the controller's internal resolution: min/max
// ordering plus clamping, with sentinel infinities falling onto the axis
// edges. Rendering needs the fractional values so the handle slides
// smoothly across sparse gaps during playback.
func (tm TimelineModel) resolvedRange() (float64, float64) {
	rs, re := tm.ctrl.RawRange()
	lo, hi := float64(tm.ctrl.MinYear()), float64(tm.ctrl.MaxYear())
	s := math.Min(float64(rs), float64(re))
	e := math.Max(float64(rs), float64(re))
	clamp := func(v float64) float64 { return math.Min(math.Max(v, lo), hi) }
	return clamp(s), clamp(e)
}

// View renders the scrubber row: play control, start label, track with
// handles, end label.
func (tm TimelineModel) View() string {
	if tm.width <= 0 {
		return ""
	}

	btn := tm.theme.PlayText.Render("▶")
	switch {
	case tm.ctrl.PlayDisabled():
		btn = tm.theme.MutedText.Render("▶")
	case tm.ctrl.Playing():
		btn = tm.theme.PlayText.Render("■")
	}

	startStyle, endStyle := tm.theme.MutedText, tm.theme.MutedText
	switch tm.ctrl.Target() {
	case timeline.DragStart:
		startStyle = tm.theme.PrimaryBold
	case timeline.DragEnd:
		endStyle = tm.theme.PrimaryBold
	case timeline.DragBoth:
		startStyle, endStyle = tm.theme.PrimaryBold, tm.theme.PrimaryBold
	}
	startLbl := startStyle.Render(padLeft(strconv.Itoa(tm.ctrl.StartYear()), tm.labelW))
	endLbl := endStyle.Render(padRight(strconv.Itoa(tm.ctrl.EndYear()), tm.labelW))

	return btn + " " + startLbl + " " + tm.renderTrack() + " " + endLbl
}

func (tm TimelineModel) renderTrack() string {
	cells := tm.trackCells
	if cells < 2 {
		return ""
	}
	lo, hi := float64(tm.ctrl.MinYear()), float64(tm.ctrl.MaxYear())
	span := hi - lo
	cellFor := func(year float64) int {
		if span <= 0 {
			return 0
		}
		c := int(math.Round((year - lo) / span * float64(cells-1)))
		if c < 0 {
			c = 0
		}
		if c > cells-1 {
			c = cells - 1
		}
		return c
	}
	start, end := tm.resolvedRange()
	sc, ec := cellFor(start), cellFor(end)

	var b strings.Builder
	if sc > 0 {
		b.WriteString(tm.theme.TrackText.Render(strings.Repeat("─", sc)))
	}
	if sc == ec {
		b.WriteString(tm.theme.HandleText.Render("●"))
	} else {
		b.WriteString(tm.theme.HandleText.Render("●"))
		if ec-sc > 1 {
			b.WriteString(tm.theme.ActiveText.Render(strings.Repeat("━", ec-sc-1)))
		}
		b.WriteString(tm.theme.HandleText.Render("●"))
	}
	if ec < cells-1 {
		b.WriteString(tm.theme.TrackText.Render(strings.Repeat("─", cells-1-ec)))
	}
	return b.String()
}
