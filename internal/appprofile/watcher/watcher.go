// Package watcher reports changes to the files behind a configuration.
//
// fsnotify watches directories, not names, so the watcher watches the
// parent of every tracked file and every tracked search path directory,
// then filters events down to the paths that can affect a configuration.
// Bursts of events for one path, such as the write and rename of a save,
// are coalesced into a single Event.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed away.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a change to a tracked path.
type Event struct {
	// Path is the affected file.
	Path string
	// Op is the union of operations seen during the debounce window.
	Op Op
	// Timestamp is when the last operation was seen.
	Timestamp time.Time
}

// Config configures a Watcher.
type Config struct {
	// Debounce is how long a path must be quiet before its event is
	// delivered. Zero delivers every event immediately.
	Debounce time.Duration
	// BufferSize is the capacity of the event and error channels.
	BufferSize int
	Logger     *zap.Logger
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:   100 * time.Millisecond,
		BufferSize: 100,
		Logger:     zap.NewNop(),
	}
}

// Option configures a Watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) { c.Debounce = d }
}

// WithBufferSize sets the channel capacity.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// Watcher delivers Events for tracked files and directories.
type Watcher struct {
	mu sync.Mutex

	fsw    *fsnotify.Watcher
	config Config

	dirs  map[string]bool // directories added to fsnotify
	files map[string]bool // tracked file names
	trees map[string]bool // tracked directories whose entries matter

	pending map[string]*pendingEvent

	events chan Event
	errors chan error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New creates a Watcher.
func New(opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		config:  config,
		dirs:    make(map[string]bool),
		files:   make(map[string]bool),
		trees:   make(map[string]bool),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, config.BufferSize),
		errors:  make(chan error, config.BufferSize),
		closeCh: make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// TrackFile reports changes to the file at path, including its creation.
// The parent directory must exist.
func (w *Watcher) TrackFile(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	path = filepath.Clean(path)
	if err := w.watchDir(filepath.Dir(path)); err != nil {
		return err
	}
	w.files[path] = true
	return nil
}

// TrackDir reports changes to configuration files directly inside the
// directory at path, and to the directory name itself.
func (w *Watcher) TrackDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	path = filepath.Clean(path)
	if err := w.watchDir(path); err != nil {
		return err
	}
	w.trees[path] = true
	if err := w.watchDir(filepath.Dir(path)); err == nil {
		w.files[path] = true
	}
	return nil
}

// TrackConfig tracks every search path entry and the global file of cfg.
// Entries whose parent directory does not exist are skipped and reported
// in the returned error.
func (w *Watcher) TrackConfig(cfg *appprofile.Config) error {
	var err error
	for _, e := range cfg.SearchPath() {
		if e.Kind == loader.EntryDir {
			err = multierr.Append(err, w.TrackDir(e.Path))
		} else {
			err = multierr.Append(err, w.TrackFile(e.Path))
		}
	}
	if g := cfg.GlobalFile(); g.Path != "" {
		err = multierr.Append(err, w.TrackFile(g.Path))
	}
	return err
}

// watchDir adds dir to fsnotify. Caller holds mu.
func (w *Watcher) watchDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPathNotExist, dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// WatchedDirs returns the directories being watched, sorted.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Events returns the event channel. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.closedWg.Wait()

	err := w.fsw.Close()
	close(w.events)
	close(w.errors)
	return err
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.Logger.Warn("file watcher error", zap.Error(err))
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// relevant reports whether path can affect a tracked configuration.
// Caller holds mu.
func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	return w.trees[filepath.Dir(path)] && !loader.SkipName(filepath.Base(path))
}

func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}
	path := filepath.Clean(fsEvent.Name)
	event := Event{Path: path, Op: op, Timestamp: time.Now()}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.relevant(path) {
		return
	}

	if w.config.Debounce <= 0 {
		w.send(event)
		return
	}

	if p, ok := w.pending[path]; ok {
		p.event.Op |= op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(w.config.Debounce)
		return
	}
	p := &pendingEvent{event: event}
	p.timer = time.AfterFunc(w.config.Debounce, func() { w.fire(path) })
	w.pending[path] = p
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok || w.closed {
		return
	}
	delete(w.pending, path)
	w.send(p.event)
}

// send delivers an event without blocking. Caller holds mu.
func (w *Watcher) send(event Event) {
	select {
	case w.events <- event:
		w.config.Logger.Debug("configuration file changed",
			zap.String("path", event.Path),
			zap.Stringer("op", event.Op))
	default:
		w.config.Logger.Warn("event channel full, dropping event",
			zap.String("path", event.Path))
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
