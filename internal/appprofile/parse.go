package appprofile

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/appprofile/internal/appprofile/loader"
)

// parsedFile is the content of one rules and profiles file.
type parsedFile struct {
	rules    []RuleSpec
	profiles []*profile
	warnings []Warning
}

// parseSourceFile extracts rules and profiles from a file's JSON.
func parseSourceFile(path string, js []byte) (*parsedFile, error) {
	root := gjson.ParseBytes(js)
	if !root.IsObject() {
		return nil, &loader.SchemaError{Path: path, Message: "the top-level value must be an object"}
	}

	out := &parsedFile{}

	rules := root.Get("rules")
	if rules.Exists() && !rules.IsArray() {
		return nil, &loader.SchemaError{Path: path, Where: "rules", Message: "must be an array"}
	}
	for i, r := range rules.Array() {
		where := fmt.Sprintf("rules[%d]", i)
		spec, err := parseRule(r)
		if err != nil {
			return nil, &loader.SchemaError{Path: path, Where: where, Message: err.Error()}
		}
		if !spec.Pattern.Feature.Valid() {
			out.warnings = append(out.warnings, Warning{
				Code: WarnUnknownFeature,
				Path: path,
				Message: fmt.Sprintf("%s in %s uses the unknown feature %q and will never match.",
					where, path, spec.Pattern.Feature),
			})
		}
		out.rules = append(out.rules, spec)
	}

	profiles := root.Get("profiles")
	if profiles.Exists() && !profiles.IsArray() {
		return nil, &loader.SchemaError{Path: path, Where: "profiles", Message: "must be an array"}
	}
	for i, p := range profiles.Array() {
		where := fmt.Sprintf("profiles[%d]", i)
		if !p.IsObject() {
			return nil, &loader.SchemaError{Path: path, Where: where, Message: "must be an object"}
		}
		name := p.Get("name")
		if name.Type != gjson.String {
			return nil, &loader.SchemaError{Path: path, Where: where + ".name", Message: "must be a string"}
		}
		settings, err := parseSettings(p.Get("settings"))
		if err != nil {
			return nil, &loader.SchemaError{Path: path, Where: where + ".settings", Message: err.Error()}
		}
		out.profiles = append(out.profiles, &profile{name: name.Str, settings: settings})
	}

	return out, nil
}

func parseRule(r gjson.Result) (RuleSpec, error) {
	if !r.IsObject() {
		return RuleSpec{}, fmt.Errorf("must be an object")
	}
	pattern := r.Get("pattern")
	if !pattern.IsObject() {
		return RuleSpec{}, fmt.Errorf("pattern must be an object")
	}
	feature := pattern.Get("feature")
	if feature.Type != gjson.String {
		return RuleSpec{}, fmt.Errorf("pattern.feature must be a string")
	}
	matches := pattern.Get("matches")
	if matches.Exists() && matches.Type != gjson.String {
		return RuleSpec{}, fmt.Errorf("pattern.matches must be a string")
	}
	name := r.Get("profile")
	if name.Type != gjson.String {
		return RuleSpec{}, fmt.Errorf("profile must be a string")
	}

	return RuleSpec{
		Pattern: Pattern{Feature: Feature(feature.Str), Matches: matches.Str},
		Profile: name.Str,
	}, nil
}

// parseSettings accepts an array of {"key": k, "value": v} objects or the
// legacy flat form [k1, v1, k2, v2, ...].
func parseSettings(r gjson.Result) ([]Setting, error) {
	if !r.Exists() {
		return nil, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("must be an array")
	}

	items := r.Array()
	if len(items) == 0 {
		return []Setting{}, nil
	}

	if items[0].Type == gjson.String {
		if len(items)%2 != 0 {
			return nil, fmt.Errorf("flat settings list has a key without a value")
		}
		settings := make([]Setting, 0, len(items)/2)
		for i := 0; i < len(items); i += 2 {
			if items[i].Type != gjson.String {
				return nil, fmt.Errorf("element %d must be a key string", i)
			}
			v, err := valueFromJSON(items[i+1])
			if err != nil {
				return nil, fmt.Errorf("value of %q: %w", items[i].Str, err)
			}
			settings = append(settings, Setting{Key: items[i].Str, Value: v})
		}
		return settings, nil
	}

	settings := make([]Setting, 0, len(items))
	for i, item := range items {
		s, err := parseSetting(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		settings = append(settings, s)
	}
	return settings, nil
}

func parseSetting(r gjson.Result) (Setting, error) {
	if !r.IsObject() {
		return Setting{}, fmt.Errorf("must be an object")
	}
	key := r.Get("key")
	if key.Type != gjson.String {
		return Setting{}, fmt.Errorf("key must be a string")
	}
	v, err := valueFromJSON(r.Get("value"))
	if err != nil {
		return Setting{}, fmt.Errorf("value of %q: %w", key.Str, err)
	}
	return Setting{Key: key.Str, Value: v}, nil
}

// ParseRuleJSON parses a rule written as
// {"pattern": {"feature": ..., "matches": ...}, "profile": ...}.
func ParseRuleJSON(data []byte) (RuleSpec, error) {
	js, err := loader.Parse("<rule>", data)
	if err != nil {
		return RuleSpec{}, err
	}
	spec, err := parseRule(gjson.ParseBytes(js))
	if err != nil {
		return RuleSpec{}, fmt.Errorf("rule: %w", err)
	}
	if !spec.Pattern.Feature.Valid() {
		return RuleSpec{}, fmt.Errorf("%w: %q", ErrInvalidFeature, spec.Pattern.Feature)
	}
	return spec, nil
}

// ParseProfileJSON parses profile settings written as
// {"settings": [...]} or as a bare settings array.
func ParseProfileJSON(data []byte) ([]Setting, error) {
	js, err := loader.Parse("<profile>", data)
	if err != nil {
		return nil, err
	}
	root := gjson.ParseBytes(js)
	if root.IsObject() {
		root = root.Get("settings")
	}
	settings, err := parseSettings(root)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if settings == nil {
		settings = []Setting{}
	}
	return settings, nil
}
