package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/grapher/pkg/timeline"
)

// Geometry at width 60 with a 4-digit label: the track starts at x=7 and
// spans 47 positions, so 1990 sits at x=7, 2000 at x≈31, 2010 at x=54.
func newTestTimeline(t *testing.T, opts timeline.Options) TimelineModel {
	t.Helper()
	if opts.Axis.IsEmpty() {
		opts.Axis = timeline.NewAxis([]int{1990, 1995, 2000, 2005, 2010})
	}
	tm := NewTimelineModel(opts, 50*time.Millisecond, TestTheme())
	tm.SetWidth(60)
	return tm
}

func pressAt(x int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func motionAt(x int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func releaseAt(x int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
}

// applyFrame delivers the frame message a motion armed, tagged with the
// current generation.
func applyFrame(t *testing.T, tm TimelineModel) TimelineModel {
	t.Helper()
	tm, _ = tm.Update(timelineFrameMsg{gen: tm.ctrl.Generation()})
	return tm
}

func wantWindow(t *testing.T, tm TimelineModel, start, end int) {
	t.Helper()
	s, e := tm.Window()
	if s != start || e != end {
		t.Fatalf("Window() = (%d, %d), want (%d, %d)", s, e, start, end)
	}
}

func TestTimelineModelInitialRange(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	s, e, ok := tm.TakeRangeChange()
	if !ok {
		t.Fatal("expected the initial snapped range to be pending")
	}
	if s != 1990 || e != 2010 {
		t.Errorf("initial range = (%d, %d), want (1990, 2010)", s, e)
	}
	if _, _, ok := tm.TakeRangeChange(); ok {
		t.Error("TakeRangeChange should clear the pending flag")
	}
}

func TestTimelineModelLayoutWidths(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	if got := lipgloss.Width(tm.View()); got != 60 {
		t.Errorf("View() width = %d, want 60", got)
	}

	// Too narrow for a track: button and labels only.
	tm.SetWidth(12)
	if got := lipgloss.Width(tm.View()); got != 12 {
		t.Errorf("View() width = %d, want 12", got)
	}
	if strings.Contains(StripANSI(tm.View()), "●") {
		t.Error("narrow layout should drop the track")
	}

	tm.SetWidth(0)
	if tm.View() != "" {
		t.Error("View() at zero width should be empty")
	}
}

func TestTimelineModelViewMarks(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	plain := StripANSI(tm.View())
	for _, want := range []string{"▶", "1990", "2010"} {
		if !strings.Contains(plain, want) {
			t.Errorf("View() missing %q in %q", want, plain)
		}
	}
	if got := strings.Count(plain, "●"); got != 2 {
		t.Errorf("full range should render 2 handles, got %d", got)
	}

	// Collapsed range renders a single shared handle.
	tm.SetRange(timeline.BoundFromYear(2000), timeline.BoundFromYear(2000))
	if got := strings.Count(StripANSI(tm.View()), "●"); got != 1 {
		t.Errorf("collapsed range should render 1 handle, got %d", got)
	}

	tm, _ = tm.TogglePlay()
	if !strings.Contains(StripANSI(tm.View()), "■") {
		t.Error("playing timeline should render the stop glyph")
	}
	tm.Stop()
}

func TestTimelineModelDragEndHandle(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})
	tm.TakeRangeChange()

	tm, _ = tm.HandleMouse(pressAt(54))
	if !tm.Dragging() {
		t.Fatal("press on the end handle should start a drag")
	}
	if got := tm.ctrl.Target(); got != timeline.DragEnd {
		t.Fatalf("Target() = %v, want DragEnd", got)
	}

	tm, cmd := tm.HandleMouse(motionAt(31))
	if cmd == nil {
		t.Fatal("first motion should arm a frame")
	}
	// Nothing moves until the frame lands.
	wantWindow(t, tm, 1990, 2010)

	tm = applyFrame(t, tm)
	wantWindow(t, tm, 1990, 2000)
	if s, e, ok := tm.TakeRangeChange(); !ok || s != 1990 || e != 2000 {
		t.Errorf("range change = (%d, %d, %v), want (1990, 2000, true)", s, e, ok)
	}

	tm, _ = tm.HandleMouse(releaseAt(31))
	if tm.Dragging() {
		t.Error("release should end the drag")
	}
	wantWindow(t, tm, 1990, 2000)
}

func TestTimelineModelDragStartCrossesEnd(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start: timeline.BoundFromYear(1995),
		End:   timeline.BoundFromYear(2005),
	})
	tm.TakeRangeChange()

	// Press left of the start handle grabs it.
	tm, _ = tm.HandleMouse(pressAt(7))
	if got := tm.ctrl.Target(); got != timeline.DragStart {
		t.Fatalf("Target() = %v, want DragStart", got)
	}

	tm, _ = tm.HandleMouse(motionAt(7))
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 1990, 2005)

	// Dragging past the other handle inverts the raw pair; the window
	// stays ordered.
	tm, _ = tm.HandleMouse(motionAt(54))
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 2005, 2010)

	tm, _ = tm.HandleMouse(releaseAt(54))
	wantWindow(t, tm, 2005, 2010)
}

func TestTimelineModelDragWholeWindow(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start: timeline.BoundFromYear(1995),
		End:   timeline.BoundFromYear(2005),
	})
	tm.TakeRangeChange()

	// Press between the handles grabs the whole window.
	tm, _ = tm.HandleMouse(pressAt(31))
	if got := tm.ctrl.Target(); got != timeline.DragBoth {
		t.Fatalf("Target() = %v, want DragBoth", got)
	}

	tm, _ = tm.HandleMouse(motionAt(43))
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 2000, 2010)

	// Pinned at the axis edge; the width survives.
	tm, _ = tm.HandleMouse(motionAt(54))
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 2000, 2010)

	tm, _ = tm.HandleMouse(releaseAt(54))
	wantWindow(t, tm, 2000, 2010)
}

func TestTimelineModelMotionCoalescing(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})
	tm.TakeRangeChange()

	tm, _ = tm.HandleMouse(pressAt(54))

	tm, cmd := tm.HandleMouse(motionAt(42))
	if cmd == nil {
		t.Fatal("first motion should arm a frame")
	}
	tm, cmd = tm.HandleMouse(motionAt(31))
	if cmd != nil {
		t.Fatal("second motion before the frame should not arm another")
	}

	// The frame applies only the newest position.
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 1990, 2000)
	if tm.frameQueued {
		t.Error("frameQueued should clear once the frame lands")
	}
	s, e, ok := tm.TakeRangeChange()
	if !ok || s != 1990 || e != 2000 {
		t.Errorf("range change = (%d, %d, %v), want (1990, 2000, true)", s, e, ok)
	}
}

func TestTimelineModelStaleFrameRearmsMidDrag(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start: timeline.Earliest,
		End:   timeline.BoundFromYear(2000),
	})
	tm.TakeRangeChange()

	tm, _ = tm.HandleMouse(pressAt(31))
	tm, _ = tm.HandleMouse(motionAt(47))
	stale := tm.ctrl.Generation()

	// Playback start bumps the generation while the gesture is alive.
	tm, _ = tm.TogglePlay()

	tm, cmd := tm.Update(timelineFrameMsg{gen: stale})
	if cmd == nil {
		t.Fatal("stale frame with a pending position should re-arm")
	}
	wantWindow(t, tm, 1990, 2000)

	tm = applyFrame(t, tm)
	s, e := tm.Window()
	if e != 2005 {
		t.Errorf("Window() = (%d, %d), want end 2005 after the re-armed frame", s, e)
	}
	tm.Stop()
}

func TestTimelineModelReleaseDropsPendingMotion(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})
	tm.TakeRangeChange()

	tm, _ = tm.HandleMouse(pressAt(54))
	tm, _ = tm.HandleMouse(motionAt(31))
	tm, _ = tm.HandleMouse(releaseAt(31))

	// The in-flight frame still matches the generation but the gesture is
	// over, so the pending position must not land.
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 1990, 2010)
	if _, _, ok := tm.TakeRangeChange(); ok {
		t.Error("no range change should fire after release drops the motion")
	}
}

func TestTimelineModelTeardownSilencesFrames(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	tm, _ = tm.HandleMouse(pressAt(54))
	tm, _ = tm.HandleMouse(motionAt(31))
	stale := tm.ctrl.Generation()

	tm.Teardown()
	if tm.Dragging() {
		t.Error("Teardown should clear the drag target")
	}

	tm, cmd := tm.Update(timelineFrameMsg{gen: stale})
	if cmd != nil {
		t.Error("frames after Teardown should not re-arm")
	}
	if tm.SetRange(timeline.BoundFromYear(1995), timeline.BoundFromYear(2000)) {
		t.Error("SetRange should be refused after Teardown")
	}
	tm, cmd = tm.TogglePlay()
	if cmd != nil || tm.Playing() {
		t.Error("TogglePlay should be refused after Teardown")
	}
}

func TestTimelineModelStepKeys(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	tm.StepEnd(-1)
	wantWindow(t, tm, 1990, 2005)
	tm.StepStart(1)
	wantWindow(t, tm, 1995, 2005)
	tm.StepEnd(1)
	wantWindow(t, tm, 1995, 2010)
	tm.StepStart(-1)
	wantWindow(t, tm, 1990, 2010)
}

func TestTimelineModelStepClamping(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start: timeline.BoundFromYear(1990),
		End:   timeline.BoundFromYear(1995),
	})

	// End never crosses start.
	tm.StepEnd(-1)
	wantWindow(t, tm, 1990, 1990)
	tm.StepEnd(-1)
	wantWindow(t, tm, 1990, 1990)

	// Start never crosses end.
	tm.StepStart(1)
	wantWindow(t, tm, 1990, 1990)
	tm.StepStart(-1)
	wantWindow(t, tm, 1990, 1990)
}

func TestTimelineModelStepsIgnoredWhileLive(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	tm, _ = tm.HandleMouse(pressAt(54))
	tm.StepEnd(-1)
	wantWindow(t, tm, 1990, 2010)
	tm, _ = tm.HandleMouse(releaseAt(54))

	tm, _ = tm.TogglePlay()
	tm.StepEnd(1)
	wantWindow(t, tm, 1990, 1990)
	tm.Stop()

	tm.StepEnd(1)
	wantWindow(t, tm, 1990, 1995)
}

func TestTimelineModelExpandPinsSentinels(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start: timeline.BoundFromYear(1995),
		End:   timeline.BoundFromYear(2005),
	})

	tm.ExpandToLatest()
	wantWindow(t, tm, 1995, 2010)
	if _, end := tm.RawRange(); !end.IsLatest() {
		t.Error("ExpandToLatest should store the sentinel, not a concrete year")
	}

	tm.ExpandToEarliest()
	wantWindow(t, tm, 1990, 2010)
	if start, _ := tm.RawRange(); !start.IsEarliest() {
		t.Error("ExpandToEarliest should store the sentinel, not a concrete year")
	}
}

func TestTimelineModelWheelStepsEnd(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start: timeline.BoundFromYear(1990),
		End:   timeline.BoundFromYear(2000),
	})

	tm, _ = tm.HandleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	wantWindow(t, tm, 1990, 2005)

	tm, _ = tm.HandleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelDown})
	tm, _ = tm.HandleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelDown})
	wantWindow(t, tm, 1990, 1995)
}

func TestTimelineModelPressOffTrackIgnored(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})

	tm, _ = tm.HandleMouse(pressAt(2))
	if tm.Dragging() {
		t.Error("press left of the track should not start a drag")
	}

	tm, cmd := tm.HandleMouse(motionAt(31))
	if cmd != nil || tm.hasPending {
		t.Error("motion without a gesture should be ignored")
	}
}

func TestTimelineModelPlaybackRun(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{Start: timeline.Earliest, End: timeline.Latest})
	tm.TakeRangeChange()

	// Starting with the end at the axis maximum rewinds to the top.
	tm, cmd := tm.TogglePlay()
	if cmd == nil || !tm.Playing() {
		t.Fatal("TogglePlay should start playback and arm a tick")
	}
	wantWindow(t, tm, 1990, 1990)
	tm.TakeRangeChange()

	g := tm.ctrl.Generation()
	now := time.Unix(1700000000, 0)

	// The first tick only records time.
	tm, cmd = tm.Update(playTickMsg{gen: g, at: now})
	if cmd == nil {
		t.Fatal("first tick should reschedule")
	}
	wantWindow(t, tm, 1990, 1990)

	// 600ms covers one axis gap at the default rate.
	now = now.Add(600 * time.Millisecond)
	tm, _ = tm.Update(playTickMsg{gen: g, at: now})
	wantWindow(t, tm, 1990, 1995)
	if s, e, ok := tm.TakeRangeChange(); !ok || s != 1990 || e != 1995 {
		t.Errorf("range change = (%d, %d, %v), want (1990, 1995, true)", s, e, ok)
	}

	now = now.Add(600 * time.Millisecond)
	tm, _ = tm.Update(playTickMsg{gen: g, at: now})
	wantWindow(t, tm, 1990, 2000)

	stopped := false
	for i := 0; i < 10; i++ {
		now = now.Add(600 * time.Millisecond)
		tm, cmd = tm.Update(playTickMsg{gen: g, at: now})
		if !tm.Playing() {
			if cmd != nil {
				t.Error("auto-stop should not reschedule")
			}
			stopped = true
			break
		}
	}
	if !stopped {
		t.Fatal("playback never reached the axis maximum")
	}
	wantWindow(t, tm, 1990, 2010)

	// The stop bumped the generation, so a straggler tick is dropped.
	tm, cmd = tm.Update(playTickMsg{gen: g, at: now.Add(600 * time.Millisecond)})
	if cmd != nil {
		t.Error("stale tick should not reschedule")
	}
	wantWindow(t, tm, 1990, 2010)
}

func TestTimelineModelPlaybackSingleYearSweep(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start:          timeline.Earliest,
		End:            timeline.Latest,
		SingleYearPlay: true,
	})

	tm, _ = tm.TogglePlay()
	wantWindow(t, tm, 1990, 1990)

	g := tm.ctrl.Generation()
	now := time.Unix(1700000000, 0)
	tm, _ = tm.Update(playTickMsg{gen: g, at: now})
	tm, _ = tm.Update(playTickMsg{gen: g, at: now.Add(600 * time.Millisecond)})

	// Both bounds sweep together.
	wantWindow(t, tm, 1995, 1995)
	tm.Stop()
}

func TestTimelineModelSingleYearMode(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Start:      timeline.BoundFromYear(2000),
		End:        timeline.BoundFromYear(2000),
		SingleYear: true,
	})
	if !tm.SingleYear() {
		t.Fatal("SingleYear() should report the mode")
	}
	wantWindow(t, tm, 2000, 2000)

	tm.StepEnd(1)
	wantWindow(t, tm, 2005, 2005)
	tm.StepStart(-1)
	wantWindow(t, tm, 2000, 2000)

	// Any grab moves the whole (collapsed) window.
	tm, _ = tm.HandleMouse(pressAt(31))
	if got := tm.ctrl.Target(); got != timeline.DragBoth {
		t.Fatalf("Target() = %v, want DragBoth", got)
	}
	tm, _ = tm.HandleMouse(motionAt(12))
	tm = applyFrame(t, tm)
	wantWindow(t, tm, 1990, 1990)
	tm, _ = tm.HandleMouse(releaseAt(12))

	tm.ExpandToLatest()
	wantWindow(t, tm, 2010, 2010)
	if _, end := tm.RawRange(); !end.IsFinite() {
		t.Error("single-year expand should store a concrete year")
	}
}

func TestTimelineModelPlayDisabled(t *testing.T) {
	tm := newTestTimeline(t, timeline.Options{
		Axis:        timeline.NewAxis([]int{2000}),
		Start:       timeline.Earliest,
		End:         timeline.Latest,
		DisablePlay: true,
	})

	tm, cmd := tm.TogglePlay()
	if cmd != nil || tm.Playing() {
		t.Error("TogglePlay should be inert when playback is disabled")
	}
}
