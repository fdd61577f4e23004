package appprofile

import (
	"fmt"
)

// CheckRule validates a rule edit before it is applied. A non-nil error
// means the edit must not be applied; warnings may be shown to the user,
// who can proceed anyway.
func (c *Config) CheckRule(target string, spec RuleSpec) ([]Warning, error) {
	if !spec.Pattern.Feature.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFeature, spec.Pattern.Feature)
	}
	if ok, reason := c.CheckValidSourceFile(target); !ok {
		return nil, &SourceFileError{Path: target, Reason: reason}
	}

	var warnings []Warning
	if !c.HasProfile(spec.Profile) {
		warnings = append(warnings, danglingWarning(0, spec.Profile))
	}
	return warnings, nil
}

// CheckProfile validates a profile edit before it is applied. origName is
// the profile's name before the edit and is ignored when isNew is true.
func (c *Config) CheckProfile(target, origName, name string, settings []Setting, isNew bool) ([]Warning, error) {
	if ok, reason := c.CheckValidSourceFile(target); !ok {
		return nil, &SourceFileError{Path: target, Reason: reason}
	}
	for _, s := range settings {
		if !s.Value.IsValid() {
			return nil, fmt.Errorf("%w: setting %q has no value", ErrInvalidValue, s.Key)
		}
	}

	var warnings []Warning
	if name == "" {
		warnings = append(warnings, Warning{
			Code:    WarnEmptyProfileName,
			Message: "The profile name is empty.",
		})
	}
	if isNew && c.HasProfile(name) {
		warnings = append(warnings, Warning{
			Code:    WarnProfileOverwrite,
			Profile: name,
			Message: fmt.Sprintf("A profile with the name %q already exists and will be overwritten.", name),
		})
	} else if !isNew && name != origName && c.HasProfile(name) {
		warnings = append(warnings, Warning{
			Code:    WarnProfileOverwrite,
			Profile: name,
			Message: fmt.Sprintf("Changing the profile name from %q to %q will overwrite an existing profile.", origName, name),
		})
	}
	warnings = append(warnings, c.keyWarnings(name, settings)...)
	return warnings, nil
}

// Warnings returns the non-fatal problems of the configuration as a
// whole: rules naming missing profiles, profiles with unrecognized keys
// and profiles defined in more than one file.
func (c *Config) Warnings() []Warning {
	var warnings []Warning

	for _, r := range c.Rules() {
		if !c.HasProfile(r.Profile) {
			w := danglingWarning(r.ID, r.Profile)
			w.Path = r.Source
			warnings = append(warnings, w)
		}
	}

	for _, name := range c.ProfileNames() {
		if c.definitions(name) > 1 {
			ref, _ := c.effective(name)
			warnings = append(warnings, Warning{
				Code:    WarnShadowedProfile,
				Path:    c.files[ref.file].path,
				Profile: name,
				Message: fmt.Sprintf("The profile %q is defined in more than one file; the definition in %s is used.",
					name, c.files[ref.file].path),
			})
		}
		p, _ := c.Profile(name)
		for _, w := range c.keyWarnings(name, p.Settings) {
			w.Path = p.Source
			warnings = append(warnings, w)
		}
	}

	return warnings
}

func (c *Config) keyWarnings(profileName string, settings []Setting) []Warning {
	var warnings []Warning
	for _, s := range settings {
		if !c.registry.Has(s.Key) {
			warnings = append(warnings, Warning{
				Code:    WarnUnrecognizedKey,
				Profile: profileName,
				Key:     s.Key,
				Message: fmt.Sprintf("The setting %q in profile %q may not be recognized by the graphics driver.",
					s.Key, profileName),
			})
		}
	}
	return warnings
}

func danglingWarning(id int, name string) Warning {
	return Warning{
		Code:    WarnDanglingProfile,
		RuleID:  id,
		Profile: name,
		Message: fmt.Sprintf("The profile %q referenced by this rule does not exist.", name),
	}
}
