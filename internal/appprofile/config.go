package appprofile

import (
	"sort"

	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile/loader"
	"github.com/dshills/appprofile/internal/appprofile/notify"
	"github.com/dshills/appprofile/internal/appprofile/registry"
)

var defaultRegistry = registry.NewWithDefaults()

// Config is the aggregate of a global file and every rules and profiles
// file found on a search path.
//
// Rules have a global priority order: the concatenation of each file's
// rules in search path order. Profiles are keyed by name; when several
// files define the same name the one loaded last is effective.
//
// A Config is not safe for concurrent use.
type Config struct {
	fs                  loader.FileSystem
	logger              *zap.Logger
	registry            *registry.Registry
	updateRulesOnRename bool

	searchPath []loader.SearchEntry
	files      []*sourceFile
	failed     map[string]error
	global     globalFile
	nextID     int

	notifier *notify.Notifier
}

// sourceFile is one rules and profiles file.
type sourceFile struct {
	path  string
	entry int
	// existed records whether the file was on disk at load time.
	existed     bool
	fingerprint loader.Fingerprint
	// base is the loaded JSON. Keys other than rules and profiles are
	// written back unchanged.
	base     []byte
	rules    []*rule
	profiles []*profile
}

func (f *sourceFile) clone() *sourceFile {
	c := *f
	c.base = append([]byte(nil), f.base...)
	c.rules = make([]*rule, len(f.rules))
	for i, r := range f.rules {
		c.rules[i] = r.clone()
	}
	c.profiles = make([]*profile, len(f.profiles))
	for i, p := range f.profiles {
		c.profiles[i] = p.clone()
	}
	return &c
}

type globalFile struct {
	path        string
	existed     bool
	failed      bool
	fingerprint loader.Fingerprint
	base        []byte
	enabled     bool
}

// Option configures a Config.
type Option func(*Config)

// WithFileSystem sets the file system used for loading and path checks.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(c *Config) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry sets the registry of known setting keys.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Config) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithUpdateRulesOnProfileNameChange makes RenameProfile repoint rules
// that used the old name.
func WithUpdateRulesOnProfileNameChange(enabled bool) Option {
	return func(c *Config) {
		c.updateRulesOnRename = enabled
	}
}

func newConfig(opts ...Option) *Config {
	c := &Config{
		fs:       loader.DefaultFS(),
		logger:   zap.NewNop(),
		registry: defaultRegistry,
		failed:   make(map[string]error),
		global:   globalFile{enabled: true, base: []byte("{}")},
		notifier: notify.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone returns a deep copy of c. Rule IDs are preserved. The copy has
// its own notifier with no subscribers.
func (c *Config) Clone() *Config {
	out := *c
	out.searchPath = append([]loader.SearchEntry(nil), c.searchPath...)
	out.files = make([]*sourceFile, len(c.files))
	for i, f := range c.files {
		out.files[i] = f.clone()
	}
	out.failed = make(map[string]error, len(c.failed))
	for k, v := range c.failed {
		out.failed[k] = v
	}
	out.global.base = append([]byte(nil), c.global.base...)
	out.notifier = notify.New()
	return &out
}

// SyncFile makes c's copy of path match src's and records fp as its state
// on disk. It is called on a baseline after path was written from src, so
// the file no longer differs. A path src does not hold is dropped from c.
func (c *Config) SyncFile(src *Config, path string, fp loader.Fingerprint) {
	if path == c.global.path && path != "" {
		c.global.enabled = src.global.enabled
		c.global.existed = fp.Exists
		c.global.fingerprint = fp
		return
	}

	j := src.fileIndex(path)
	if j < 0 {
		if i := c.fileIndex(path); i >= 0 {
			c.files = append(c.files[:i], c.files[i+1:]...)
		}
		return
	}
	f := c.ensureFile(path)
	*f = *src.files[j].clone()
	f.existed = fp.Exists
	f.fingerprint = fp
}

// SetFingerprint records fp as the on-disk state of path.
func (c *Config) SetFingerprint(path string, fp loader.Fingerprint) {
	if path == c.global.path && path != "" {
		c.global.existed = fp.Exists
		c.global.fingerprint = fp
		return
	}
	if i := c.fileIndex(path); i >= 0 {
		c.files[i].existed = fp.Exists
		c.files[i].fingerprint = fp
	}
}

// Notifier returns the notifier that publishes changes to c.
func (c *Config) Notifier() *notify.Notifier {
	return c.notifier
}

// FileSystem returns the file system c was loaded from.
func (c *Config) FileSystem() loader.FileSystem {
	return c.fs
}

// Logger returns the configured logger.
func (c *Config) Logger() *zap.Logger {
	return c.logger
}

// Registry returns the registry of known setting keys.
func (c *Config) Registry() *registry.Registry {
	return c.registry
}

// UpdateRulesOnProfileNameChange reports whether renames repoint rules.
func (c *Config) UpdateRulesOnProfileNameChange() bool {
	return c.updateRulesOnRename
}

// SearchPath returns the search path entries as found at load time.
func (c *Config) SearchPath() []loader.SearchEntry {
	return append([]loader.SearchEntry(nil), c.searchPath...)
}

// SourceFile describes a rules and profiles file known to a Config.
type SourceFile struct {
	Path string
	// Entry is the index of the search path entry holding the file.
	Entry int
	// Existed is true when the file was on disk at load time.
	Existed bool
	// Fingerprint is the file state at load time.
	Fingerprint loader.Fingerprint
	Rules       int
	Profiles    int
}

// SourceFiles returns the writable files in search path order. Files that
// failed to load are not included.
func (c *Config) SourceFiles() []SourceFile {
	out := make([]SourceFile, len(c.files))
	for i, f := range c.files {
		out[i] = SourceFile{
			Path:        f.path,
			Entry:       f.entry,
			Existed:     f.existed,
			Fingerprint: f.fingerprint,
			Rules:       len(f.rules),
			Profiles:    len(f.profiles),
		}
	}
	return out
}

// SourceFilenames returns the paths of SourceFiles.
func (c *Config) SourceFilenames() []string {
	out := make([]string, len(c.files))
	for i, f := range c.files {
		out[i] = f.path
	}
	return out
}

// FailedFiles returns the files that could not be loaded, sorted by path.
func (c *Config) FailedFiles() []*LoadError {
	paths := make([]string, 0, len(c.failed))
	for p := range c.failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]*LoadError, len(paths))
	for i, p := range paths {
		out[i] = &LoadError{Path: p, Err: c.failed[p]}
	}
	return out
}

// GlobalFileInfo describes the global settings file.
type GlobalFileInfo struct {
	Path        string
	Existed     bool
	Failed      bool
	Fingerprint loader.Fingerprint
}

// GlobalFile returns information about the global settings file.
func (c *Config) GlobalFile() GlobalFileInfo {
	return GlobalFileInfo{
		Path:        c.global.path,
		Existed:     c.global.existed,
		Failed:      c.global.failed,
		Fingerprint: c.global.fingerprint,
	}
}

// Enabled reports whether application profiles are enabled.
func (c *Config) Enabled() bool {
	return c.global.enabled
}

// SetEnabled turns application profiles on or off.
func (c *Config) SetEnabled(enabled bool) Diff {
	if c.global.enabled == enabled {
		return Diff{}
	}
	c.global.enabled = enabled
	d := Diff{Changes: []notify.Change{{
		Topic:  notify.TopicGlobal,
		Type:   notify.ChangeUpdated,
		Source: c.global.path,
	}}}
	c.publish(d)
	return d
}

// CanonicalKey returns the registry spelling of key, or key unchanged
// with ok false when it is not a known key.
func (c *Config) CanonicalKey(key string) (canonical string, ok bool) {
	return c.registry.Canonical(key)
}

// fileIndex returns the index of the file at path, or -1.
func (c *Config) fileIndex(path string) int {
	for i, f := range c.files {
		if f.path == path {
			return i
		}
	}
	return -1
}

// ensureFile returns the file at path, registering an empty one in search
// path order if it is not yet known. The path must have passed
// CheckValidSourceFile.
func (c *Config) ensureFile(path string) *sourceFile {
	if i := c.fileIndex(path); i >= 0 {
		return c.files[i]
	}

	f := &sourceFile{
		path:  path,
		entry: c.entryFor(path),
		base:  []byte("{}"),
	}

	pos := sort.Search(len(c.files), func(i int) bool {
		g := c.files[i]
		if g.entry != f.entry {
			return g.entry > f.entry
		}
		return g.path > f.path
	})
	c.files = append(c.files, nil)
	copy(c.files[pos+1:], c.files[pos:])
	c.files[pos] = f

	c.logger.Debug("registered source file",
		zap.String("path", path),
		zap.Int("entry", f.entry))
	return f
}
