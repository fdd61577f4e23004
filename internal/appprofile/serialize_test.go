package appprofile

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFileText_PreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, "rc")
	writeFile(t, rc, `{"comment": "kept", "rules": [], "profiles": []}`)
	cfg := loadClean(t, "", rc)

	text, ok, err := cfg.FileText(rc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, text, `"comment": "kept"`)
	assert.Equal(t, byte('\n'), text[len(text)-1])

	_, ok, _ = cfg.FileText(filepath.Join(dir, "other"))
	assert.False(t, ok)
}

func TestFileText_Idempotent(t *testing.T) {
	root := t.TempDir()
	iteration := 0

	keys := rapid.SampledFrom([]string{"GLFSAAMode", "GLYield", "GLDoom3", "Custom Key", `we"ird\key`})
	values := rapid.OneOf(
		rapid.Map(rapid.Int64(), IntValue),
		rapid.Map(rapid.Float64Range(-1e6, 1e6), FloatValue),
		rapid.Map(rapid.Bool(), BoolValue),
		rapid.Map(rapid.StringMatching(`[a-zA-Z0-9 _"\\#.-]{0,12}`), StringValue),
	)

	text := rapid.StringMatching(`[a-zA-Z0-9 _"\\#.-]{0,12}`)

	rapid.Check(t, func(rt *rapid.T) {
		iteration++
		rc := filepath.Join(root, fmt.Sprintf("rc%d", iteration))
		cfg, _ := Load("", []string{rc})

		nProfiles := rapid.IntRange(0, 3).Draw(rt, "profiles")
		for i := 0; i < nProfiles; i++ {
			n := rapid.IntRange(0, 4).Draw(rt, "settings")
			settings := make([]Setting, n)
			for j := range settings {
				settings[j] = Setting{Key: keys.Draw(rt, "key"), Value: values.Draw(rt, "value")}
			}
			name := text.Draw(rt, "name")
			if _, err := cfg.UpdateProfile(rc, name, settings); err != nil {
				rt.Fatalf("UpdateProfile() error = %v", err)
			}
		}
		nRules := rapid.IntRange(0, 3).Draw(rt, "rules")
		for i := 0; i < nRules; i++ {
			spec := RuleSpec{
				Pattern: Pattern{
					Feature: rapid.SampledFrom(Features()).Draw(rt, "feature"),
					Matches: text.Draw(rt, "matches"),
				},
				Profile: text.Draw(rt, "profile"),
			}
			if _, _, err := cfg.CreateRule(rc, spec); err != nil {
				rt.Fatalf("CreateRule() error = %v", err)
			}
		}

		first, ok, err := cfg.FileText(rc)
		if err != nil {
			rt.Fatalf("FileText() error = %v", err)
		}
		if !ok {
			return
		}
		writeFile(rt, rc, first)

		reloaded, res := Load("", []string{rc})
		if res.Degraded() {
			rt.Fatalf("reload failed: %v\n%s", res.Err(), first)
		}
		second, _, err := reloaded.FileText(rc)
		if err != nil {
			rt.Fatalf("FileText() error = %v", err)
		}
		if first != second {
			rt.Fatalf("serialization is not idempotent:\n%s\n---\n%s", first, second)
		}
		if !cfg.Equal(reloaded) {
			rt.Fatalf("reloaded configuration differs")
		}

		want := cfg.Profiles()
		got := reloaded.Profiles()
		if len(want) != len(got) {
			rt.Fatalf("profiles = %d, want %d", len(got), len(want))
		}
		for i := range want {
			for j := range want[i].Settings {
				if !want[i].Settings[j].Value.Equal(got[i].Settings[j].Value) {
					rt.Fatalf("value %v reloaded as %v", want[i].Settings[j].Value, got[i].Settings[j].Value)
				}
			}
		}
	})
}

func TestClone(t *testing.T) {
	cfg, a, _ := twoFileConfig(t)
	clone := cfg.Clone()

	assert.True(t, cfg.Equal(clone))

	_, err := clone.ChangeRulePriority(2, 1)
	require.NoError(t, err)
	_, err = clone.UpdateProfile(a, "p", []Setting{{Key: "GLDoom3", Value: BoolValue(true)}})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, ruleIDs(cfg), "original is unaffected")
	p, _ := cfg.Profile("p")
	assert.Empty(t, p.Settings)
	assert.False(t, cfg.Equal(clone))
}
