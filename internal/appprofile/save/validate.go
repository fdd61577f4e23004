// Package save decides which configuration files need writing and writes
// them.
//
// Validate compares an edited configuration with the one loaded from
// disk and returns one FileUpdate per file whose serialized contents
// differ. CheckBackingFiles detects files changed by someone else since
// load. An Engine applies updates, optionally keeping backups.
package save

import (
	"errors"
	"fmt"

	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// ErrBackingFilesChanged is returned when files on disk changed since the
// configuration was loaded.
var ErrBackingFilesChanged = errors.New("configuration files changed on disk since they were loaded")

// FileUpdate is the new contents of one file.
type FileUpdate struct {
	// Filename is the file to write.
	Filename string
	// Text is the complete new contents.
	Text string
	// Delete requests removal of the file instead of a write.
	Delete bool
}

// Validate returns the updates that turn baseline's files into current's.
// Validating a configuration against itself returns no updates.
//
// Files that did not exist on disk and hold no rules or profiles produce
// no update. The global file is included when the enabled switch differs
// and the global file was loaded successfully.
func Validate(current, baseline *appprofile.Config) ([]FileUpdate, error) {
	var updates []FileUpdate

	paths := current.SourceFilenames()
	inCurrent := make(map[string]bool, len(paths))
	for _, p := range paths {
		inCurrent[p] = true
	}
	for _, p := range baseline.SourceFilenames() {
		if !inCurrent[p] {
			paths = append(paths, p)
		}
	}

	for _, p := range paths {
		cur, curOK, err := current.FileText(p)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", p, err)
		}
		base, baseOK, err := baseline.FileText(p)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", p, err)
		}

		switch {
		case curOK && baseOK:
			if cur != base {
				updates = append(updates, FileUpdate{Filename: p, Text: cur})
			}
		case curOK:
			if current.FileEmpty(p) && !current.FileExisted(p) {
				continue
			}
			updates = append(updates, FileUpdate{Filename: p, Text: cur})
		case baseOK:
			if baseline.FileExisted(p) {
				updates = append(updates, FileUpdate{Filename: p, Delete: true})
			}
		}
	}

	g := current.GlobalFile()
	if g.Path != "" && !g.Failed {
		cur, err := current.GlobalText()
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", g.Path, err)
		}
		base, err := baseline.GlobalText()
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", g.Path, err)
		}
		if cur != base {
			updates = append(updates, FileUpdate{Filename: g.Path, Text: cur})
		}
	}

	return updates, nil
}

// CheckBackingFiles reports whether any file behind cfg changed on disk
// since it was loaded, and which ones. New files that appeared in search
// path directories count as changes.
func CheckBackingFiles(cfg *appprofile.Config) (bool, []string) {
	fsys := cfg.FileSystem()
	var changed []string

	check := func(path string, want loader.Fingerprint) {
		got, err := loader.TakeFingerprint(fsys, path)
		if err != nil || !got.Equal(want) {
			changed = append(changed, path)
		}
	}

	known := make(map[string]bool)
	for _, f := range cfg.SourceFiles() {
		known[f.Path] = true
		check(f.Path, f.Fingerprint)
	}
	for _, f := range cfg.FailedFiles() {
		known[f.Path] = true
	}

	if g := cfg.GlobalFile(); g.Path != "" && !g.Failed {
		check(g.Path, g.Fingerprint)
	}

	entries := cfg.SearchPath()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	_, files, _ := loader.ExpandSearchPath(fsys, paths)
	for _, f := range files {
		if !known[f.Path] {
			changed = append(changed, f.Path)
		}
	}

	return len(changed) > 0, changed
}
