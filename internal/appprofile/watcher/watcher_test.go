package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/appprofile/internal/appprofile"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func waitEvent(t *testing.T, w *Watcher, path string) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				t.Fatal("events channel closed")
			}
			if ev.Path == path {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
		{OpCreate | OpWrite, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
	if !(OpCreate | OpWrite).Has(OpWrite) {
		t.Error("Has(OpWrite) = false")
	}
}

func TestTrackFile_ReportsCreation(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, "rc")
	w := newWatcher(t, WithDebounce(0))

	if err := w.TrackFile(rc); err != nil {
		t.Fatalf("TrackFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rc, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, w, rc)
	if !ev.Op.Has(OpCreate) && !ev.Op.Has(OpWrite) {
		t.Errorf("Op = %v, want create or write", ev.Op)
	}
}

func TestTrackFile_MissingParent(t *testing.T) {
	w := newWatcher(t)
	err := w.TrackFile(filepath.Join(t.TempDir(), "missing", "rc"))
	if !errors.Is(err, ErrPathNotExist) {
		t.Errorf("TrackFile() error = %v, want ErrPathNotExist", err)
	}
}

func TestTrackDir_FiltersNames(t *testing.T) {
	rcd := filepath.Join(t.TempDir(), "rc.d")
	if err := os.Mkdir(rcd, 0o755); err != nil {
		t.Fatal(err)
	}
	w := newWatcher(t, WithDebounce(0))
	if err := w.TrackDir(rcd); err != nil {
		t.Fatalf("TrackDir() error = %v", err)
	}

	for _, name := range []string{".hidden", "a.backup", "editor~"} {
		if err := os.WriteFile(filepath.Join(rcd, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	target := filepath.Join(rcd, "10-games")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Path != target {
				t.Fatalf("unexpected event for %s", ev.Path)
			}
			return
		case <-timeout:
			t.Fatal("no event for tracked directory entry")
		}
	}
}

func TestHandleFSEvent_Debounce(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, "rc")
	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	if err := w.TrackFile(rc); err != nil {
		t.Fatal(err)
	}

	w.handleFSEvent(fsnotify.Event{Name: rc, Op: fsnotify.Create})
	w.handleFSEvent(fsnotify.Event{Name: rc, Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(dir, "other"), Op: fsnotify.Write})

	ev := waitEvent(t, w, rc)
	if ev.Op != OpCreate|OpWrite {
		t.Errorf("Op = %d, want create|write", ev.Op)
	}

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected second event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTrackConfig(t *testing.T) {
	root := t.TempDir()
	rcd := filepath.Join(root, "rc.d")
	if err := os.Mkdir(rcd, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, _ := appprofile.Load(filepath.Join(root, "globals-rc"), []string{
		filepath.Join(root, "rc"),
		rcd,
		filepath.Join(root, "missing", "rc.d"),
	})

	w := newWatcher(t)
	err := w.TrackConfig(cfg)
	if !errors.Is(err, ErrPathNotExist) {
		t.Errorf("TrackConfig() error = %v, want ErrPathNotExist for the missing entry", err)
	}

	got := w.WatchedDirs()
	want := []string{root, rcd}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("WatchedDirs() = %v, want %v", got, want)
	}
}

func TestClose(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("events channel should be closed")
	}
	if err := w.TrackFile("/tmp/x"); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("TrackFile() after Close error = %v, want ErrWatcherClosed", err)
	}
}
