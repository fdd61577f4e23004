package appprofile

import (
	"strings"
)

// Feature selects what a rule pattern is compared against.
type Feature string

const (
	// FeatureProcname matches the process name without directories.
	FeatureProcname Feature = "procname"
	// FeatureDSO matches any loaded shared object name.
	FeatureDSO Feature = "dso"
	// FeatureTrue always matches.
	FeatureTrue Feature = "true"
)

// Features returns the supported features in display order.
func Features() []Feature {
	return []Feature{FeatureProcname, FeatureDSO, FeatureTrue}
}

// Valid reports whether f is a supported feature.
func (f Feature) Valid() bool {
	switch f {
	case FeatureProcname, FeatureDSO, FeatureTrue:
		return true
	}
	return false
}

// Label returns a short human-readable name.
func (f Feature) Label() string {
	switch f {
	case FeatureProcname:
		return "Process Name (procname)"
	case FeatureDSO:
		return "Shared Object Name (dso)"
	case FeatureTrue:
		return "Always Applies (true)"
	default:
		return string(f)
	}
}

// Description explains how patterns with this feature match.
func (f Feature) Description() string {
	switch f {
	case FeatureProcname:
		return "Matches when the process path with leading directories removed equals the pattern string."
	case FeatureDSO:
		return "Matches when a library loaded by the process, with leading directories removed, equals the pattern string."
	case FeatureTrue:
		return "Always matches. The pattern string is ignored."
	default:
		return ""
	}
}

// Pattern is the match condition of a rule.
type Pattern struct {
	Feature Feature
	Matches string
}

// RuleSpec is the editable part of a rule.
type RuleSpec struct {
	Pattern Pattern
	Profile string
}

// Rule is a rule as seen from outside the configuration.
type Rule struct {
	// ID is assigned at load or create time and is stable for the
	// lifetime of the Config.
	ID      int
	Pattern Pattern
	Profile string
	// Source is the file the rule is stored in.
	Source string
}

// Spec returns the editable part of r.
func (r Rule) Spec() RuleSpec {
	return RuleSpec{Pattern: r.Pattern, Profile: r.Profile}
}

// Setting is one key/value pair of a profile.
type Setting struct {
	Key   string
	Value Value
}

// Profile is a profile as seen from outside the configuration.
type Profile struct {
	Name     string
	Settings []Setting
	// Source is the file holding the effective definition.
	Source string
}

// Summary renders settings as "key=value, key=value" with values in
// their display form.
func Summary(settings []Setting) string {
	parts := make([]string, len(settings))
	for i, s := range settings {
		parts[i] = s.Key + "=" + s.Value.Display()
	}
	return strings.Join(parts, ", ")
}

// rule is the stored form of a rule.
type rule struct {
	id   int
	spec RuleSpec
	// last is the most recent priority step, so the opposite step can
	// return the rule to the file it came from.
	last trailStep
}

type trailStep struct {
	dir  int
	from string
}

func (r *rule) clone() *rule {
	c := *r
	return &c
}

// profile is the stored form of one profile definition.
type profile struct {
	name     string
	settings []Setting
}

func (p *profile) clone() *profile {
	return &profile{name: p.name, settings: cloneSettings(p.settings)}
}

func cloneSettings(settings []Setting) []Setting {
	if settings == nil {
		return nil
	}
	out := make([]Setting, len(settings))
	copy(out, settings)
	return out
}
