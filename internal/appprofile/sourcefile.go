package appprofile

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// CheckValidSourceFile reports whether path may hold rules and profiles
// in this configuration. When it may not, reason completes the sentence
// "the file is not valid because ...".
//
// A valid path is a file already in the configuration, a file entry of
// the search path, or a file directly inside a directory entry of the
// search path. Directories, special files, backup names and files that
// failed to load are rejected.
func (c *Config) CheckValidSourceFile(path string) (ok bool, reason string) {
	if strings.TrimSpace(path) == "" {
		return false, "the filename is empty"
	}
	last := path[strings.LastIndexByte(path, filepath.Separator)+1:]
	if last == "" || last == "." || last == ".." {
		return false, "the filename does not name a file"
	}

	p := filepath.Clean(path)
	if loader.IsBackupName(filepath.Base(p)) {
		return false, "the filename is reserved for backup files"
	}
	if _, failed := c.failed[p]; failed {
		return false, "the file could not be loaded and will not be overwritten"
	}

	info, err := c.fs.Stat(p)
	switch {
	case err == nil && info.IsDir():
		return false, "the file is a directory"
	case err == nil && !info.Mode().IsRegular():
		return false, "the file is not a regular file"
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, "the file cannot be accessed: " + err.Error()
	}

	if c.fileIndex(p) >= 0 {
		return true, ""
	}

	parent := filepath.Dir(p)
	for _, e := range c.searchPath {
		if e.Path == p && e.Kind != loader.EntryDir {
			return true, ""
		}
		if e.Path == parent && e.Kind != loader.EntryFile {
			if loader.SkipName(filepath.Base(p)) {
				return false, "files with this name are ignored when loading the directory " + parent
			}
			return true, ""
		}
	}

	return false, "the file is not in the search path"
}

// requireSourceFile validates and cleans a target path.
func (c *Config) requireSourceFile(path string) (string, error) {
	if ok, reason := c.CheckValidSourceFile(path); !ok {
		return "", &SourceFileError{Path: path, Reason: reason}
	}
	return filepath.Clean(path), nil
}

// entryFor returns the index of the search path entry that holds path.
// Paths outside the search path sort after every entry.
func (c *Config) entryFor(path string) int {
	parent := filepath.Dir(path)
	for i, e := range c.searchPath {
		if e.Path == path && e.Kind != loader.EntryDir {
			return i
		}
		if e.Path == parent && e.Kind != loader.EntryFile {
			return i
		}
	}
	return len(c.searchPath)
}
