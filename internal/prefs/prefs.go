// Package prefs loads the appprofile command's own preferences.
//
// Preferences come from three places, later ones winning: built-in
// defaults derived from the home directory, a TOML file, and APPPROFILE_*
// environment variables. Command-line flags are applied on top by the
// caller.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// EnvPrefix is the prefix of environment variables read by LoadWithEnv.
const EnvPrefix = "APPPROFILE_"

// Environment variables.
const (
	EnvFile        = EnvPrefix + "PREFS"
	EnvSearchPath  = EnvPrefix + "SEARCH_PATH"
	EnvGlobalFile  = EnvPrefix + "GLOBAL_FILE"
	EnvBackup      = EnvPrefix + "BACKUP"
	EnvUpdateRules = EnvPrefix + "UPDATE_RULES"
	EnvLogLevel    = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat   = EnvPrefix + "LOG_FORMAT"
)

// Prefs holds the preferences.
type Prefs struct {
	// SearchPath lists the files and directories rules and profiles are
	// read from, highest priority first.
	SearchPath []string `toml:"search_path"`
	// GlobalFile holds the global enable switch. Empty disables saving it.
	GlobalFile string `toml:"global_file"`
	// Backup keeps a copy of each file before it is overwritten.
	Backup bool `toml:"backup"`
	// UpdateRulesOnProfileNameChange repoints rules when a profile is
	// renamed.
	UpdateRulesOnProfileNameChange bool `toml:"update_rules_on_profile_name_change"`
	Log                            Log  `toml:"log"`
}

// Log holds logging preferences.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns the built-in preferences for the given home directory.
// Without a home directory only the system-wide search path entries are
// used and there is no global file.
func Defaults(home string) Prefs {
	p := Prefs{
		Backup:                         true,
		UpdateRulesOnProfileNameChange: true,
		Log:                            Log{Level: "warn", Format: "console"},
	}
	if home != "" {
		p.GlobalFile = filepath.Join(home, ".nv", "nvidia-application-profile-globals-rc")
		p.SearchPath = append(p.SearchPath,
			filepath.Join(home, ".nv", "nvidia-application-profiles-rc"),
			filepath.Join(home, ".nv", "nvidia-application-profiles-rc.d"))
	}
	p.SearchPath = append(p.SearchPath,
		"/etc/nvidia/nvidia-application-profiles-rc",
		"/etc/nvidia/nvidia-application-profiles-rc.d")
	return p
}

// DefaultPath returns the preferences file for the given home directory,
// or "" without one.
func DefaultPath(home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".nv", "appprofile.toml")
}

// Load reads preferences using the process environment.
func Load(fsys loader.FileSystem, path string) (Prefs, error) {
	home, _ := os.UserHomeDir()
	return LoadWithEnv(fsys, home, path, os.LookupEnv)
}

// LoadWithEnv reads preferences for home from the TOML file at path and
// from lookup. A missing file is not an error. When path is empty the
// file named by APPPROFILE_PREFS, or DefaultPath, is used.
func LoadWithEnv(fsys loader.FileSystem, home, path string, lookup func(string) (string, bool)) (Prefs, error) {
	p := Defaults(home)

	if path == "" {
		if v, ok := lookup(EnvFile); ok && v != "" {
			path = v
		} else {
			path = DefaultPath(home)
		}
	}

	if path != "" {
		if err := p.readFile(fsys, path); err != nil {
			return p, err
		}
	}

	if err := p.applyEnv(lookup); err != nil {
		return p, err
	}

	p.expandHome(home)
	return p, nil
}

func (p *Prefs) readFile(fsys loader.FileSystem, path string) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &loader.ReadError{Path: path, Err: err}
	}

	var f filePrefs
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		perr := &loader.ParseError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}

	if f.SearchPath != nil {
		p.SearchPath = *f.SearchPath
	}
	if f.GlobalFile != nil {
		p.GlobalFile = *f.GlobalFile
	}
	if f.Backup != nil {
		p.Backup = *f.Backup
	}
	if f.UpdateRulesOnProfileNameChange != nil {
		p.UpdateRulesOnProfileNameChange = *f.UpdateRulesOnProfileNameChange
	}
	if f.Log.Level != nil {
		p.Log.Level = *f.Log.Level
	}
	if f.Log.Format != nil {
		p.Log.Format = *f.Log.Format
	}
	return nil
}

// filePrefs mirrors Prefs with every field optional.
type filePrefs struct {
	SearchPath                     *[]string `toml:"search_path"`
	GlobalFile                     *string   `toml:"global_file"`
	Backup                         *bool     `toml:"backup"`
	UpdateRulesOnProfileNameChange *bool     `toml:"update_rules_on_profile_name_change"`
	Log                            struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
}

func (p *Prefs) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSearchPath); ok {
		p.SearchPath = nil
		for _, e := range filepath.SplitList(v) {
			if e != "" {
				p.SearchPath = append(p.SearchPath, e)
			}
		}
	}
	if v, ok := lookup(EnvGlobalFile); ok {
		p.GlobalFile = v
	}
	if err := envBool(lookup, EnvBackup, &p.Backup); err != nil {
		return err
	}
	if err := envBool(lookup, EnvUpdateRules, &p.UpdateRulesOnProfileNameChange); err != nil {
		return err
	}
	if v, ok := lookup(EnvLogLevel); ok {
		p.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		p.Log.Format = v
	}
	return nil
}

func envBool(lookup func(string) (string, bool), name string, dst *bool) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	*dst = b
	return nil
}

func (p *Prefs) expandHome(home string) {
	if home == "" {
		return
	}
	expand := func(s string) string {
		if s == "~" {
			return home
		}
		if strings.HasPrefix(s, "~/") {
			return filepath.Join(home, s[2:])
		}
		return s
	}
	for i, s := range p.SearchPath {
		p.SearchPath[i] = expand(s)
	}
	p.GlobalFile = expand(p.GlobalFile)
}

// Marshal renders p as TOML.
func (p Prefs) Marshal() ([]byte, error) {
	return toml.Marshal(p)
}
