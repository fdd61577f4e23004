package appprofile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// LoadResult reports what happened while loading a Config.
type LoadResult struct {
	// Loaded lists the files that were read successfully, in order.
	Loaded []string
	// Errors lists files that could not be loaded. Their contents are not
	// part of the Config and they are never written back.
	Errors []*LoadError
	// Warnings lists non-fatal problems.
	Warnings []Warning
}

// Degraded reports whether some files failed to load.
func (r *LoadResult) Degraded() bool {
	return len(r.Errors) > 0
}

// Err combines all load errors, or returns nil.
func (r *LoadResult) Err() error {
	var err error
	for _, e := range r.Errors {
		err = multierr.Append(err, e)
	}
	return err
}

// Load reads the global file and every file on the search path.
//
// Loading never fails as a whole. Files that cannot be read or parsed are
// recorded in the result and excluded from the Config, which is then
// usable but degraded.
func Load(globalPath string, searchPath []string, opts ...Option) (*Config, *LoadResult) {
	c := newConfig(opts...)
	res := &LoadResult{}

	c.loadGlobal(globalPath, res)

	entries, files, errs := loader.ExpandSearchPath(c.fs, searchPath)
	c.searchPath = entries
	for _, err := range errs {
		var dup *loader.DuplicateError
		if errors.As(err, &dup) {
			c.logger.Info("file reached twice on the search path", zap.String("path", dup.Path))
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarnDuplicateFile,
				Path:    dup.Path,
				Message: err.Error(),
			})
			continue
		}
		c.logger.Warn("skipping search path entry", zap.Error(err))
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnUnreadableEntry,
			Message: err.Error(),
		})
	}

	defined := make(map[string]string)
	for _, lf := range files {
		f, err := c.loadSourceFile(lf, res)
		if err != nil {
			c.failed[lf.Path] = err
			res.Errors = append(res.Errors, &LoadError{Path: lf.Path, Err: err})
			c.logger.Warn("failed to load configuration file",
				zap.String("path", lf.Path),
				zap.Error(err))
			continue
		}

		for _, p := range f.profiles {
			if prev, ok := defined[p.name]; ok {
				c.logger.Info("profile shadowed by later definition",
					zap.String("profile", p.name),
					zap.String("previous", prev),
					zap.String("path", f.path))
				res.Warnings = append(res.Warnings, shadowWarning(p.name, prev, f.path))
			}
			defined[p.name] = f.path
		}

		c.files = append(c.files, f)
		res.Loaded = append(res.Loaded, lf.Path)
	}

	c.logger.Debug("configuration loaded",
		zap.Int("files", len(c.files)),
		zap.Int("failed", len(c.failed)),
		zap.Int("rules", c.RuleCount()))

	return c, res
}

func (c *Config) loadSourceFile(lf loader.File, res *LoadResult) (*sourceFile, error) {
	doc, err := loader.Load(c.fs, lf.Path)
	if err != nil {
		return nil, err
	}
	parsed, err := parseSourceFile(lf.Path, doc.JSON)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, parsed.warnings...)

	f := &sourceFile{
		path:        lf.Path,
		entry:       lf.Entry,
		existed:     doc.Exists,
		fingerprint: doc.Fingerprint,
		base:        doc.JSON,
		profiles:    parsed.profiles,
	}
	for _, spec := range parsed.rules {
		f.rules = append(f.rules, &rule{id: c.newID(), spec: spec})
	}
	return f, nil
}

func (c *Config) loadGlobal(path string, res *LoadResult) {
	c.global.path = path
	if path == "" {
		return
	}
	c.global.path = filepath.Clean(path)

	doc, err := loader.Load(c.fs, c.global.path)
	if err == nil {
		err = c.parseGlobal(doc)
	}
	if err != nil {
		c.global.failed = true
		res.Errors = append(res.Errors, &LoadError{Path: c.global.path, Err: err})
		c.logger.Warn("failed to load global configuration",
			zap.String("path", c.global.path),
			zap.Error(err))
		return
	}
}

func (c *Config) parseGlobal(doc *loader.Document) error {
	root := gjson.ParseBytes(doc.JSON)
	if !root.IsObject() {
		return &loader.SchemaError{Path: doc.Path, Message: "the top-level value must be an object"}
	}
	enabled := root.Get("enabled")
	switch {
	case !enabled.Exists():
		c.global.enabled = true
	case enabled.IsBool():
		c.global.enabled = enabled.Bool()
	default:
		return &loader.SchemaError{Path: doc.Path, Where: "enabled", Message: "must be true or false"}
	}

	c.global.existed = doc.Exists
	c.global.fingerprint = doc.Fingerprint
	c.global.base = doc.JSON
	return nil
}

func (c *Config) newID() int {
	c.nextID++
	return c.nextID
}

func shadowWarning(name, prev, path string) Warning {
	return Warning{
		Code:    WarnShadowedProfile,
		Path:    path,
		Profile: name,
		Message: fmt.Sprintf("The profile %q defined in %s is overridden by the definition in %s.", name, prev, path),
	}
}
