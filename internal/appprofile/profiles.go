package appprofile

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile/notify"
)

// profileRef locates a stored profile definition.
type profileRef struct {
	file int
	idx  int
	p    *profile
}

// effective returns the definition of name that is in effect: the one
// loaded last.
func (c *Config) effective(name string) (profileRef, bool) {
	var (
		ref   profileRef
		found bool
	)
	for fi, f := range c.files {
		for pi, p := range f.profiles {
			if p.name == name {
				ref = profileRef{file: fi, idx: pi, p: p}
				found = true
			}
		}
	}
	return ref, found
}

// definitions counts the definitions of name across all files.
func (c *Config) definitions(name string) int {
	n := 0
	for _, f := range c.files {
		for _, p := range f.profiles {
			if p.name == name {
				n++
			}
		}
	}
	return n
}

func (c *Config) exportProfile(ref profileRef) Profile {
	return Profile{
		Name:     ref.p.name,
		Settings: cloneSettings(ref.p.settings),
		Source:   c.files[ref.file].path,
	}
}

// Profile returns the effective profile with the given name.
func (c *Config) Profile(name string) (Profile, bool) {
	ref, ok := c.effective(name)
	if !ok {
		return Profile{}, false
	}
	return c.exportProfile(ref), true
}

// HasProfile reports whether a profile with the given name exists.
func (c *Config) HasProfile(name string) bool {
	_, ok := c.effective(name)
	return ok
}

// ProfileNames returns the names of all profiles, sorted.
func (c *Config) ProfileNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range c.files {
		for _, p := range f.profiles {
			if !seen[p.name] {
				seen[p.name] = true
				names = append(names, p.name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Profiles returns the effective profiles sorted by name.
func (c *Config) Profiles() []Profile {
	names := c.ProfileNames()
	out := make([]Profile, 0, len(names))
	for _, name := range names {
		if p, ok := c.Profile(name); ok {
			out = append(out, p)
		}
	}
	return out
}

// UpdateProfile creates or replaces the profile name in target.
//
// Known setting keys are stored with their canonical spelling. When the
// profile already exists in target it is replaced in place; otherwise it
// is appended to target. Definitions of the same name in other files are
// removed so the new definition is the only one.
func (c *Config) UpdateProfile(target, name string, settings []Setting) (Diff, error) {
	path, err := c.requireSourceFile(target)
	if err != nil {
		return Diff{}, err
	}
	stored := make([]Setting, len(settings))
	for i, s := range settings {
		if !s.Value.IsValid() {
			return Diff{}, fmt.Errorf("%w: setting %q has no value", ErrInvalidValue, s.Key)
		}
		key, _ := c.registry.Canonical(s.Key)
		stored[i] = Setting{Key: key, Value: s.Value}
	}

	ref, existed := c.effective(name)
	oldPath := ""
	if existed {
		oldPath = c.files[ref.file].path
	}

	f := c.ensureFile(path)
	if existed && oldPath == path {
		ref.p.settings = stored
		c.removeProfileDefinitions(name, ref.p)
	} else {
		c.removeProfileDefinitions(name, nil)
		f.profiles = append(f.profiles, &profile{name: name, settings: stored})
	}

	ct := notify.ChangeInserted
	if existed {
		ct = notify.ChangeUpdated
	}
	d := Diff{Changes: []notify.Change{{
		Topic:     notify.TopicProfiles,
		Type:      ct,
		Profile:   name,
		Source:    path,
		OldSource: oldPath,
	}}}
	c.logger.Debug("profile updated",
		zap.String("profile", name),
		zap.String("path", path),
		zap.Int("settings", len(stored)))
	c.publish(d)
	return d, nil
}

// removeProfileDefinitions deletes every definition of name except keep.
func (c *Config) removeProfileDefinitions(name string, keep *profile) {
	for _, f := range c.files {
		kept := f.profiles[:0]
		for _, p := range f.profiles {
			if p.name != name || p == keep {
				kept = append(kept, p)
			}
		}
		for i := len(kept); i < len(f.profiles); i++ {
			f.profiles[i] = nil
		}
		f.profiles = kept
	}
}

// DeleteProfile removes the profile name, including definitions shadowed
// by the effective one. Rules that reference it are left unchanged.
func (c *Config) DeleteProfile(name string) (Diff, error) {
	ref, ok := c.effective(name)
	if !ok {
		return Diff{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	oldPath := c.files[ref.file].path
	c.removeProfileDefinitions(name, nil)

	d := Diff{Changes: []notify.Change{{
		Topic:     notify.TopicProfiles,
		Type:      notify.ChangeRemoved,
		Profile:   name,
		OldSource: oldPath,
	}}}
	c.publish(d)
	return d, nil
}

// RenameProfile renames a profile, keeping its settings and file. Rules
// are repointed when the Config was created with
// WithUpdateRulesOnProfileNameChange. Renaming onto an existing name
// replaces that profile.
func (c *Config) RenameProfile(oldName, newName string) (Diff, error) {
	ref, ok := c.effective(oldName)
	if !ok {
		return Diff{}, fmt.Errorf("%w: %q", ErrProfileNotFound, oldName)
	}
	if oldName == newName {
		return Diff{}, nil
	}
	path := c.files[ref.file].path
	settings := cloneSettings(ref.p.settings)

	var d Diff
	del, err := c.DeleteProfile(oldName)
	if err != nil {
		return d, err
	}
	d.merge(del)

	if c.updateRulesOnRename {
		_, fix := c.ProfileNameChangeFixup(oldName, newName)
		d.merge(fix)
	}

	upd, err := c.UpdateProfile(path, newName, settings)
	if err != nil {
		return d, err
	}
	d.merge(upd)
	return d, nil
}

// UnusedProfileName returns "profile_N" for the smallest N >= 1 that is
// not the name of an existing profile.
func (c *Config) UnusedProfileName() string {
	for n := 1; ; n++ {
		name := "profile_" + strconv.Itoa(n)
		if !c.HasProfile(name) {
			return name
		}
	}
}

// ProfileNameChangeFixup repoints every rule that references oldName to
// newName. It reports whether any rule changed.
func (c *Config) ProfileNameChangeFixup(oldName, newName string) (bool, Diff) {
	var d Diff
	if oldName == newName {
		return false, d
	}
	pos := 0
	for _, f := range c.files {
		for _, r := range f.rules {
			if r.spec.Profile == oldName {
				r.spec.Profile = newName
				d.add(notify.Change{
					Topic:     notify.TopicRules,
					Type:      notify.ChangeUpdated,
					RuleID:    r.id,
					Index:     pos,
					Source:    f.path,
					OldSource: f.path,
				})
			}
			pos++
		}
	}
	c.publish(d)
	return !d.Empty(), d
}
