package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// BackupSuffix is appended to a file name to form its backup name.
const BackupSuffix = ".backup"

// EntryKind describes what a search path entry refers to on disk.
type EntryKind int

const (
	// EntryMissing means nothing exists at the entry's path.
	EntryMissing EntryKind = iota
	// EntryFile means the entry is a regular file.
	EntryFile
	// EntryDir means the entry is a directory of configuration files.
	EntryDir
)

// String returns the entry kind name.
func (k EntryKind) String() string {
	switch k {
	case EntryMissing:
		return "missing"
	case EntryFile:
		return "file"
	case EntryDir:
		return "directory"
	default:
		return "unknown"
	}
}

// SearchEntry is one element of a search path as found on disk.
type SearchEntry struct {
	Path string
	Kind EntryKind
}

// File is a configuration file produced by expanding a search path.
type File struct {
	// Path is the cleaned file path.
	Path string
	// Entry is the index of the search path entry that produced the file.
	Entry int
}

// ExpandSearchPath resolves search path entries into the ordered list of
// files to load.
//
// A regular file entry contributes itself. A directory entry contributes
// its regular files in lexicographic order, skipping hidden files, editor
// backups ending in '~', and backups written by the save engine. Entries
// that do not exist contribute nothing. Entries that cannot be inspected
// are reported in the returned error slice and skipped.
//
// A file reached through more than one entry is loaded once, from the
// first entry that reaches it. Later occurrences are dropped and reported
// as *DuplicateError.
func ExpandSearchPath(fsys FileSystem, paths []string) ([]SearchEntry, []File, []error) {
	var (
		entries []SearchEntry
		files   []File
		errs    []error
	)
	seen := make(map[string]int)
	add := func(f File) {
		if first, ok := seen[f.Path]; ok {
			errs = append(errs, &DuplicateError{Path: f.Path, Entry: f.Entry, FirstEntry: first})
			return
		}
		seen[f.Path] = f.Entry
		files = append(files, f)
	}

	for i, p := range paths {
		p = filepath.Clean(p)
		entry := SearchEntry{Path: p, Kind: EntryMissing}

		info, err := fsys.Stat(p)
		switch {
		case err != nil && errors.Is(err, fs.ErrNotExist):
			// Missing entries are legal; they may be created on save.
		case err != nil:
			errs = append(errs, &ReadError{Path: p, Err: err})
		case info.IsDir():
			entry.Kind = EntryDir
			dirFiles, err := expandDir(fsys, p, i)
			if err != nil {
				errs = append(errs, err)
			}
			for _, f := range dirFiles {
				add(f)
			}
		case info.Mode().IsRegular():
			entry.Kind = EntryFile
			add(File{Path: p, Entry: i})
		default:
			errs = append(errs, &ReadError{Path: p, Err: fmt.Errorf("not a regular file or directory")})
		}

		entries = append(entries, entry)
	}

	return entries, files, errs
}

func expandDir(fsys FileSystem, dir string, index int) ([]File, error) {
	list, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, &ReadError{Path: dir, Err: err}
	}

	names := make([]string, 0, len(list))
	for _, de := range list {
		if SkipName(de.Name()) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	var files []File
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := fsys.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, File{Path: path, Entry: index})
	}
	return files, nil
}

// SkipName reports whether a directory member is ignored when expanding a
// search path directory.
func SkipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || IsBackupName(name)
}

// IsBackupName reports whether name looks like a backup written by the
// save engine: "<name>.backup" or "<name>.backup.<N>".
func IsBackupName(name string) bool {
	if strings.HasSuffix(name, BackupSuffix) {
		return len(name) > len(BackupSuffix)
	}
	i := strings.LastIndex(name, BackupSuffix+".")
	if i <= 0 {
		return false
	}
	n := name[i+len(BackupSuffix)+1:]
	if n == "" {
		return false
	}
	_, err := strconv.ParseUint(n, 10, 64)
	return err == nil
}
