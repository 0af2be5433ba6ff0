// Package timeline implements the interaction core of the chart time
// scrubber: a dual-handle range slider over a sparse year axis with
// play/pause animation and snap-to-year emission.
//
// The controller is deliberately host-agnostic. It knows nothing about
// terminals or rendering; it consumes pointer positions in track-local x
// units and frame ticks, and reports settled changes through callbacks. The
// bubbletea adapter in pkg/ui owns event translation and per-frame
// coalescing of pointer movement.
//
// All methods must be called from a single goroutine (the host's event
// loop). Scheduled frames are generation-tagged: Generation changes whenever
// pending work must be abandoned, so a host drops any tick message carrying
// a stale generation instead of applying it.
package timeline

import (
	"math"
	"time"

	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/metrics"
)

// DragTarget identifies which handle(s) a pointer gesture controls.
type DragTarget int

const (
	DragNone DragTarget = iota
	DragStart
	DragEnd
	DragBoth
)

// String returns a short name for logging.
func (t DragTarget) String() string {
	switch t {
	case DragStart:
		return "start"
	case DragEnd:
		return "end"
	case DragBoth:
		return "both"
	default:
		return "none"
	}
}

// Hooks carries the callbacks a host registers with a controller. Any field
// may be nil. Callbacks fire synchronously from controller methods and never
// after Teardown.
type Hooks struct {
	// OnTargetChange receives the snapped, resolved range whenever it
	// settles on a new value. Both bounds are concrete axis years.
	OnTargetChange func(start, end Bound)
	// OnStartDrag and OnStopDrag bracket a pointer gesture.
	OnStartDrag func()
	OnStopDrag  func()
	// OnLiveChange reports the live/debounce signal: raised while a drag or
	// playback is in progress so the host can defer expensive downstream
	// recomputation, cleared when the controller returns to rest.
	OnLiveChange func(live bool)
}

// Options configure a controller at construction.
type Options struct {
	Axis Axis

	// Initial range. Zero values would mean year 0; callers that want the
	// full span pass Earliest/Latest explicitly.
	Start Bound
	End   Bound

	// SingleYear locks start == end for the whole lifetime (discrete
	// charts). SingleYearPlay locks start == end only while playing.
	SingleYear     bool
	SingleYearPlay bool

	// DisablePlay makes TogglePlay a no-op.
	DisablePlay bool

	// Loop makes playback restart from the minimum year after reaching
	// the maximum instead of auto-stopping.
	Loop bool

	// HandleHotspot is the distance in x units around a handle center that
	// still counts as grabbing it. Zero means the default of 1.
	HandleHotspot int

	Hooks Hooks
}

// Playback speed shaping. Each tick advances toward the next axis year so
// that a gap is crossed in roughly 600ms, but never slower than one
// year-unit per 200ms-equivalent.
const (
	gapDivisor       = 3.0
	minYearsPerUnit  = 1.0
	speedTicksPerSec = 5.0
)

const defaultHotspot = 1

// Controller owns the scrubber's range state and translates pointer input
// and playback ticks into snapped range emissions.
type Controller struct {
	axis Axis

	// Raw bounds. Sentinel infinities track the axis edges, fractional
	// values appear while playback interpolates, and the pair may invert
	// mid-drag. Resolved accessors reorder and clamp before any use, so
	// raw state never leaks.
	rawStart Bound
	rawEnd   Bound

	singleYear     bool
	singleYearPlay bool
	disablePlay    bool
	loop           bool

	// Gesture state. Offsets are the handles' signed year distances from
	// the grab point, recorded on a both-target press so the interval
	// keeps its width while dragged.
	target      DragTarget
	startOffset float64
	endOffset   float64

	// Playback state. A zero lastTick means the next tick only records
	// time and applies no movement.
	playing  bool
	lastTick time.Time

	// Frame scheduling. Bumping gen abandons whatever frame is in flight;
	// dead stops every entry point after Teardown.
	gen  uint64
	dead bool
	live bool

	// Track geometry in x units. A zero width keeps position math inert
	// until the first layout pass reports real bounds.
	trackX     int
	trackWidth int
	hotspot    int

	hooks Hooks

	// Last emitted snapped pair, to suppress duplicate notifications.
	emittedStart int
	emittedEnd   int
	emittedOnce  bool
}

// New builds a controller and emits the initial snapped range. An empty axis
// is tolerated with a logged warning and the default year span.
func New(opts Options) *Controller {
	if opts.Axis.IsEmpty() {
		debug.Log("timeline: empty year axis, falling back to %d-%d",
			DefaultMinYear, DefaultMaxYear)
	}
	hotspot := opts.HandleHotspot
	if hotspot <= 0 {
		hotspot = defaultHotspot
	}
	c := &Controller{
		axis:           opts.Axis,
		rawStart:       opts.Start,
		rawEnd:         opts.End,
		singleYear:     opts.SingleYear,
		singleYearPlay: opts.SingleYearPlay,
		disablePlay:    opts.DisablePlay,
		loop:           opts.Loop,
		hotspot:        hotspot,
		hooks:          opts.Hooks,
	}
	if c.singleYear {
		c.rawStart = c.rawEnd
	}
	c.emit()
	return c
}

// SetTrackBounds records the track's horizontal geometry from the host's
// layout pass. Until called, the track is a zero-sized box and pointer math
// degrades instead of dividing by zero.
func (c *Controller) SetTrackBounds(x, width int) {
	if c.dead {
		return
	}
	if width < 0 {
		width = 0
	}
	c.trackX = x
	c.trackWidth = width
}

// SetRange applies an externally supplied range. External resets are honored
// only at rest: mid-drag or mid-playback the call is ignored so outside
// state never fights the user's gesture. Reports whether it applied.
func (c *Controller) SetRange(start, end Bound) bool {
	if c.dead || c.playing || c.target != DragNone {
		return false
	}
	c.rawStart = start
	c.rawEnd = end
	if c.singleYear {
		c.rawStart = c.rawEnd
	}
	c.emit()
	return true
}

// MinYear returns the smallest usable year (axis minimum or the default).
func (c *Controller) MinYear() int { return c.axis.Min() }

// MaxYear returns the largest usable year (axis maximum or the default).
func (c *Controller) MaxYear() int { return c.axis.Max() }

// Axis returns the immutable year axis.
func (c *Controller) Axis() Axis { return c.axis }

// Playing reports whether playback is running.
func (c *Controller) Playing() bool { return c.playing }

// Dragging reports whether a pointer gesture is in progress.
func (c *Controller) Dragging() bool { return c.target != DragNone }

// Target returns the handle(s) under pointer control.
func (c *Controller) Target() DragTarget { return c.target }

// Live reports the live/debounce signal (see Hooks.OnLiveChange).
func (c *Controller) Live() bool { return c.live }

// SingleYear reports whether the controller locks start == end.
func (c *Controller) SingleYear() bool { return c.singleYear }

// PlayDisabled reports whether TogglePlay is a no-op.
func (c *Controller) PlayDisabled() bool { return c.disablePlay }

// Generation tags scheduled frames. A host stamps every frame or playback
// tick it schedules with the current generation and drops the message if
// the generation moved on before delivery.
func (c *Controller) Generation() uint64 { return c.gen }

// GenerationValid reports whether a scheduled frame tagged with g is still
// current. Always false after Teardown.
func (c *Controller) GenerationValid(g uint64) bool {
	return !c.dead && g == c.gen
}

// RawRange returns the stored raw bounds, sentinels and fractions included.
// Hosts use it to round-trip external state; rendering and emission go
// through the resolved accessors instead.
func (c *Controller) RawRange() (start, end Bound) {
	return c.rawStart, c.rawEnd
}

// StartYear returns the snapped resolved start: always an axis member (or a
// default-span year when the axis is empty).
func (c *Controller) StartYear() int {
	return c.axis.ClosestTo(c.resolvedStart())
}

// EndYear returns the snapped resolved end.
func (c *Controller) EndYear() int {
	return c.axis.ClosestTo(c.resolvedEnd())
}

// SnapBound snaps a concrete bound to the nearest axis year and passes
// sentinels through unchanged; consumers resolve those dynamically.
func (c *Controller) SnapBound(b Bound) Bound {
	if !b.IsFinite() {
		return b
	}
	return Bound(c.axis.ClosestTo(float64(b)))
}

// resolvedStart is min of the raw pair, sentinel-resolved and clamped into
// the axis span. The pair may be inverted mid-drag; ordering here is what
// lets a drag cross handles without special cases.
func (c *Controller) resolvedStart() float64 {
	return c.clampYear(math.Min(float64(c.rawStart), float64(c.rawEnd)))
}

// resolvedEnd is max of the raw pair, sentinel-resolved and clamped.
func (c *Controller) resolvedEnd() float64 {
	return c.clampYear(math.Max(float64(c.rawStart), float64(c.rawEnd)))
}

// clampYear clamps into [MinYear, MaxYear]. Infinities fall out naturally:
// -Inf clamps to the minimum, +Inf to the maximum, which is exactly the
// sentinel resolution rule.
func (c *Controller) clampYear(y float64) float64 {
	lo, hi := float64(c.MinYear()), float64(c.MaxYear())
	return math.Min(math.Max(y, lo), hi)
}

// --- position math ---

// yearToPos maps a year onto the track's x span by linear interpolation.
func (c *Controller) yearToPos(year float64) float64 {
	lo, hi := float64(c.MinYear()), float64(c.MaxYear())
	if c.trackWidth <= 0 || hi <= lo {
		return float64(c.trackX)
	}
	return float64(c.trackX) + (year-lo)/(hi-lo)*float64(c.trackWidth)
}

// posToYear is the inverse mapping, clamped into the axis span.
func (c *Controller) posToYear(x float64) float64 {
	lo, hi := float64(c.MinYear()), float64(c.MaxYear())
	if c.trackWidth <= 0 || hi <= lo {
		return lo
	}
	year := lo + (x-float64(c.trackX))/float64(c.trackWidth)*(hi-lo)
	return math.Min(math.Max(year, lo), hi)
}

// inputYear converts a pointer x into the clamped year under the pointer.
func (c *Controller) inputYear(x int) float64 {
	return c.posToYear(float64(x))
}

// --- pointer gestures ---

// PointerDown begins a drag if x falls inside the interactive track.
// Reports whether a gesture started.
func (c *Controller) PointerDown(x int) bool {
	if c.dead {
		return false
	}
	if x < c.trackX-c.hotspot || x > c.trackX+c.trackWidth+c.hotspot {
		return false
	}

	start := c.resolvedStart()
	end := c.resolvedEnd()
	startPos := c.yearToPos(start)
	endPos := c.yearToPos(end)
	px := float64(x)
	hitStart := math.Abs(px-startPos) <= float64(c.hotspot)
	hitEnd := math.Abs(px-endPos) <= float64(c.hotspot)

	// Target priority: coincident handles grab both; otherwise a handle
	// hit or an outside press grabs the nearer handle; presses between
	// the handles move the whole interval.
	switch {
	case start == end && (hitStart || hitEnd):
		c.target = DragBoth
	case !c.singleYear && (hitStart || px <= startPos):
		c.target = DragStart
	case !c.singleYear && (hitEnd || px >= endPos):
		c.target = DragEnd
	default:
		c.target = DragBoth
	}

	if c.target == DragBoth {
		input := c.inputYear(x)
		c.startOffset = start - input
		c.endOffset = end - input
	}

	debug.Log("timeline: drag begin target=%s x=%d", c.target, x)
	if c.hooks.OnStartDrag != nil {
		c.hooks.OnStartDrag()
	}
	c.updateLive()
	return true
}

// PointerMove applies one coalesced pointer update while dragging. Hosts
// deliver at most one call per animation frame with the latest position;
// calls outside a gesture are ignored.
func (c *Controller) PointerMove(x int) {
	if c.dead || c.target == DragNone {
		return
	}
	defer metrics.Timer(metrics.FrameApply)()

	input := c.inputYear(x)
	switch {
	case c.singleYear || (c.playing && c.singleYearPlay):
		c.rawStart = Bound(input)
		c.rawEnd = Bound(input)
	case c.target == DragStart:
		c.rawStart = Bound(input)
	case c.target == DragEnd:
		c.rawEnd = Bound(input)
	default:
		c.dragBoth(input)
	}
	c.emit()
}

// dragBoth shifts the whole interval by the recorded grab offsets, pinning
// at the axis edges so the width survives unless the span itself is too
// narrow.
func (c *Controller) dragBoth(input float64) {
	lo, hi := float64(c.MinYear()), float64(c.MaxYear())
	width := c.endOffset - c.startOffset
	newStart := input + c.startOffset
	newEnd := input + c.endOffset
	if newStart < lo {
		newStart = lo
		newEnd = lo + width
	}
	if newEnd > hi {
		newEnd = hi
		newStart = hi - width
	}
	if newStart < lo {
		newStart = lo
	}
	c.rawStart = Bound(newStart)
	c.rawEnd = Bound(newEnd)
}

// PointerUp ends the gesture. Hosts call it on release or pointer-leave
// anywhere, not just over the track: a drag survives leaving the component.
func (c *Controller) PointerUp() {
	if c.dead || c.target == DragNone {
		return
	}
	debug.Log("timeline: drag end target=%s", c.target)
	c.target = DragNone
	if c.hooks.OnStopDrag != nil {
		c.hooks.OnStopDrag()
	}
	c.updateLive()
}

// --- playback ---

// TogglePlay starts or stops playback and returns the new playing state.
// Starting with the end already at the maximum year first rewinds both
// bounds to the minimum, so a finished run replays from the top.
func (c *Controller) TogglePlay() bool {
	if c.dead || c.disablePlay {
		return false
	}
	if c.playing {
		c.Stop()
		return false
	}

	if c.resolvedEnd() >= float64(c.MaxYear()) {
		lo := Bound(c.MinYear())
		c.rawStart = lo
		c.rawEnd = lo
	} else {
		// Playback owns the bounds: fold sentinels and any mid-drag
		// inversion into concrete ordered values before advancing.
		start, end := c.resolvedStart(), c.resolvedEnd()
		c.rawStart = Bound(start)
		c.rawEnd = Bound(end)
	}
	if c.singleYear || c.singleYearPlay {
		c.rawStart = c.rawEnd
	}

	c.playing = true
	c.lastTick = time.Time{}
	c.gen++
	debug.Log("timeline: play from %d", c.EndYear())
	c.updateLive()
	c.emit()
	return true
}

// Stop halts playback. The generation bump abandons the pending frame, so
// no partial tick lands after the stop.
func (c *Controller) Stop() {
	if c.dead || !c.playing {
		return
	}
	c.playing = false
	c.lastTick = time.Time{}
	c.gen++
	debug.Log("timeline: stop at %d", c.EndYear())
	c.updateLive()
}

// Tick advances playback by the real time elapsed since the previous tick
// and reports whether playback is still running. The first tick after a
// start only records time. The advance rate targets the next axis year in
// about 600ms with a floor of one year-unit per 200ms-equivalent, which
// keeps perceived speed steady across gaps in sparse axes.
func (c *Controller) Tick(now time.Time) bool {
	if c.dead || !c.playing {
		return false
	}
	defer metrics.Timer(metrics.PlaybackTick)()

	if c.lastTick.IsZero() {
		c.lastTick = now
		return true
	}
	elapsed := now.Sub(c.lastTick)
	c.lastTick = now
	if elapsed <= 0 {
		return true
	}

	end := c.resolvedEnd()
	gap := minYearsPerUnit
	if next, ok := c.axis.NextAfter(end); ok {
		gap = math.Max((float64(next)-end)/gapDivisor, minYearsPerUnit)
	}
	advance := gap * float64(elapsed.Milliseconds()) * speedTicksPerSec / 1000.0

	newEnd := end + advance
	hi := float64(c.MaxYear())
	if newEnd >= hi {
		if c.loop && end >= hi {
			// The maximum year held for a full tick; replay from the top
			// the same way a manual toggle would. Playback continues, so
			// the generation stays valid.
			lo := Bound(c.MinYear())
			c.rawStart = lo
			c.rawEnd = lo
			debug.Log("timeline: reached %d, loop to %d", c.MaxYear(), c.MinYear())
			c.emit()
			return true
		}
		newEnd = hi
		if !c.loop {
			// Auto-stop the instant the end reaches the axis maximum; a
			// manual toggle is what replays it.
			c.playing = false
			c.lastTick = time.Time{}
			c.gen++
		}
	}
	c.rawEnd = Bound(newEnd)
	if c.singleYear || c.singleYearPlay {
		c.rawStart = c.rawEnd
	}
	if !c.playing {
		debug.Log("timeline: reached %d, auto-stop", c.MaxYear())
		c.updateLive()
	}
	c.emit()
	return c.playing
}

// --- lifecycle ---

// Teardown kills the controller. Every pending frame becomes stale and no
// callback fires afterwards; a torn-down controller ignores all input.
func (c *Controller) Teardown() {
	if c.dead {
		return
	}
	c.dead = true
	c.playing = false
	c.target = DragNone
	c.live = false
	c.gen++
}

// updateLive recomputes the live/debounce signal from the gesture and
// playback state and notifies the host on edges only.
func (c *Controller) updateLive() {
	live := c.playing || c.target != DragNone
	if live == c.live {
		return
	}
	c.live = live
	if c.hooks.OnLiveChange != nil {
		c.hooks.OnLiveChange(live)
	}
}

// emit publishes the snapped resolved range if it settled on a new value.
// Synchronous mutation bursts collapse into one notification because every
// mutating entry point emits exactly once at its end.
func (c *Controller) emit() {
	if c.dead {
		return
	}
	start := c.StartYear()
	end := c.EndYear()
	if c.emittedOnce && start == c.emittedStart && end == c.emittedEnd {
		return
	}
	c.emittedStart = start
	c.emittedEnd = end
	c.emittedOnce = true
	if c.hooks.OnTargetChange != nil {
		c.hooks.OnTargetChange(BoundFromYear(start), BoundFromYear(end))
	}
}
