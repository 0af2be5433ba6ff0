// Package watcher monitors a chart's data source for edits so the UI can
// reload it live. It uses fsnotify where the filesystem supports it and
// falls back to stat polling on remote or forced-poll setups.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the file changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithSidecar also watches the chart config sidecar. Sidecars live next to
// the data file, so the same directory watch covers both.
func WithSidecar(path string) WatcherOption {
	return func(w *Watcher) {
		w.sidecar = path
	}
}

// fileState is the stat snapshot polling compares against.
type fileState struct {
	mtime time.Time
	size  int64
}

func statState(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{mtime: info.ModTime(), size: info.Size()}, nil
}

func (s fileState) differs(o fileState) bool {
	return o.mtime.After(s.mtime) || o.size != s.size
}

// Watcher monitors a data file (and optionally its config sidecar) for
// changes using fsnotify with polling fallback.
type Watcher struct {
	path             string
	sidecar          string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	forcePollEnv     bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        fileState
	sidecarLast fileState

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a new file watcher for the given path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.sidecar != "" {
		if abs, err := filepath.Abs(w.sidecar); err == nil {
			w.sidecar = abs
		}
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())

	// Reset per-start state.
	w.useFallback = false
	w.forcePollEnv = false
	w.fsType = FSTypeUnknown

	if envBool("GR_FORCE_POLLING") || envBool("GR_FORCE_POLL") {
		w.forcePollEnv = true
	}

	w.fsType = DetectFilesystemType(w.path)
	if isRemoteFilesystem(w.fsType) {
		w.useFallback = true
	}

	forcePoll := w.forcePoll || w.forcePollEnv
	if forcePoll {
		w.useFallback = true
	}

	// Get initial file state
	st, err := statState(w.path)
	if err != nil {
		if os.IsPermission(err) {
			return ErrPermission
		}
		// File might not exist yet, that's okay
		w.last = fileState{}
	} else {
		w.last = st
	}
	if w.sidecar != "" {
		// A missing sidecar is the common case
		w.sidecarLast, _ = statState(w.sidecar)
	}

	// Try to use fsnotify
	if !forcePoll && !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the directory containing the file (more reliable for atomic writes)
			dir := filepath.Dir(w.path)
			if err := fsw.Add(dir); err != nil {
				fsw.Close()
				w.useFallback = true
			} else {
				w.fsWatcher = fsw
				w.useFallback = false
				go w.watchFsnotify()
			}
		} else {
			w.useFallback = true
		}
	} else {
		w.useFallback = true
	}

	// Start polling as fallback or primary
	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// Stop stops watching.
// Note: The changeCh channel is intentionally NOT closed here. Closing it would
// cause race conditions with notifyChange() and break consumers blocked on
// Changed() (which would receive immediately and potentially loop). Since
// Stop() is only called at program exit, the goroutine blocked on Changed()
// is cleaned up by process termination.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when the file changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched data file path.
func (w *Watcher) Path() string {
	return w.path
}

// SidecarPath returns the watched config sidecar path, if any.
func (w *Watcher) SidecarPath() string {
	return w.sidecar
}

// FilesystemType returns the best-effort filesystem classification for the watched path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify() {
	targetFile := filepath.Base(w.path)
	sidecarFile := ""
	if w.sidecar != "" {
		sidecarFile = filepath.Base(w.sidecar)
	}

	// Capture channel references to avoid race with Stop() setting fsWatcher to nil
	w.mu.RLock()
	if w.fsWatcher == nil {
		w.mu.RUnlock()
		return
	}
	events := w.fsWatcher.Events
	errors := w.fsWatcher.Errors
	w.mu.RUnlock()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			// Only care about events for the data file or its sidecar
			eventFile := filepath.Base(event.Name)
			isSidecar := sidecarFile != "" && eventFile == sidecarFile
			if eventFile != targetFile && !isSidecar {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0:
				if isSidecar {
					// Config removed: the chart falls back to defaults,
					// which is a reload, not an error.
					w.debouncer.Trigger(w.notifyChange)
				} else {
					w.onError(ErrFileRemoved)
				}

			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// watchPolling monitors using periodic stat checks.
func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			if w.pollOnce() {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// pollOnce stats the watched paths and reports whether anything changed.
func (w *Watcher) pollOnce() bool {
	st, err := statState(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Only report if file existed before
			w.mu.RLock()
			hadFile := !w.last.mtime.IsZero()
			w.mu.RUnlock()
			if hadFile {
				w.onError(ErrFileRemoved)
			}
		} else if os.IsPermission(err) {
			w.onError(ErrPermission)
		} else {
			w.onError(err)
		}
		return false
	}

	w.mu.Lock()
	changed := w.last.differs(st)
	if changed {
		w.last = st
	}
	if w.sidecar != "" {
		scst, scerr := statState(w.sidecar)
		switch {
		case scerr == nil && w.sidecarLast.differs(scst):
			w.sidecarLast = scst
			changed = true
		case os.IsNotExist(scerr) && !w.sidecarLast.mtime.IsZero():
			// Sidecar deleted: reload with defaults
			w.sidecarLast = fileState{}
			changed = true
		}
	}
	w.mu.Unlock()

	return changed
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Don't notify if watcher has been stopped - avoid calling callbacks
	// after Stop() has been called. This is best-effort; there's a small
	// race window, but callbacks are idempotent so it's harmless.
	if !started {
		return
	}

	w.onChange()

	// Non-blocking send to change channel
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
