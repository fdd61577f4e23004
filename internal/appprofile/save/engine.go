package save

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile/loader"
)

const (
	defaultFilePerm fs.FileMode = 0o644
	defaultDirPerm  fs.FileMode = 0o755
)

// Engine writes file updates to disk.
type Engine struct {
	fs     loader.FileSystem
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFileSystem sets the file system updates are written to.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(e *Engine) {
		if fsys != nil {
			e.fs = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		fs:     loader.DefaultFS(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileError records a failed step for one file.
type FileError struct {
	// Path is the file being saved.
	Path string
	// Op is "backup", "write" or "delete".
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// Result reports the outcome of SaveUpdates.
type Result struct {
	// Written lists files written successfully.
	Written []string
	// Deleted lists files removed successfully.
	Deleted []string
	// Backups maps each backed-up file to its backup.
	Backups map[string]string
	// Failed lists files that were not saved.
	Failed []*FileError
}

// OK reports whether every update was applied.
func (r *Result) OK() bool {
	return len(r.Failed) == 0
}

// Partial reports whether some updates were applied and others failed.
func (r *Result) Partial() bool {
	return len(r.Failed) > 0 && len(r.Written)+len(r.Deleted) > 0
}

// Err combines all failures, or returns nil.
func (r *Result) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f)
	}
	return err
}

// SaveUpdates applies updates one file at a time. A failure on one file
// does not stop the others. When backup is true the current contents of
// each existing file are copied to BackupFilename first; if that copy
// fails the file is left untouched.
//
// Writes go to a temporary file in the same directory that is then
// renamed over the target, so a file is never left half written. Missing
// parent directories are created.
func (e *Engine) SaveUpdates(updates []FileUpdate, backup bool) *Result {
	res := &Result{Backups: make(map[string]string)}

	for _, u := range updates {
		if backup {
			name, err := e.backup(u.Filename)
			if err != nil {
				e.fail(res, u.Filename, "backup", err)
				continue
			}
			if name != "" {
				res.Backups[u.Filename] = name
			}
		}

		if u.Delete {
			if err := e.fs.Remove(u.Filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
				e.fail(res, u.Filename, "delete", err)
				continue
			}
			res.Deleted = append(res.Deleted, u.Filename)
			e.logger.Info("removed configuration file", zap.String("path", u.Filename))
			continue
		}

		if err := e.write(u.Filename, []byte(u.Text)); err != nil {
			e.fail(res, u.Filename, "write", err)
			continue
		}
		res.Written = append(res.Written, u.Filename)
		e.logger.Info("wrote configuration file", zap.String("path", u.Filename))
	}

	return res
}

func (e *Engine) fail(res *Result, path, op string, err error) {
	res.Failed = append(res.Failed, &FileError{Path: path, Op: op, Err: err})
	e.logger.Error("failed to save configuration file",
		zap.String("path", path),
		zap.String("op", op),
		zap.Error(err))
}

// backup copies path to its backup name. It returns "" when path does not
// exist.
func (e *Engine) backup(path string) (string, error) {
	data, err := e.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	perm := defaultFilePerm
	if info, err := e.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	name := e.BackupFilename(path)
	if err := e.fs.WriteFile(name, data, perm); err != nil {
		return "", err
	}
	return name, nil
}

func (e *Engine) write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := e.fs.MkdirAll(dir, defaultDirPerm); err != nil {
		return err
	}

	perm := defaultFilePerm
	if info, err := e.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	if err := e.fs.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := e.fs.Rename(tmp, path); err != nil {
		_ = e.fs.Remove(tmp)
		return err
	}
	return nil
}

// BackupFilename returns the name a backup of path is written to:
// path + ".backup", or path + ".backup.N" with the smallest N >= 1 that is
// not taken when the plain name already exists.
func (e *Engine) BackupFilename(path string) string {
	name := path + loader.BackupSuffix
	if !e.exists(name) {
		return name
	}
	for n := 1; ; n++ {
		name = path + loader.BackupSuffix + "." + strconv.Itoa(n)
		if !e.exists(name) {
			return name
		}
	}
}

func (e *Engine) exists(path string) bool {
	_, err := e.fs.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
