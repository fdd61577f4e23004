package appprofile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fatalT is satisfied by *testing.T and *rapid.T.
type fatalT interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

func writeFile(t fatalT, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// loadClean loads a configuration and fails the test on any load error.
func loadClean(t testing.TB, global string, searchPath ...string) *Config {
	t.Helper()
	cfg, res := Load(global, searchPath)
	require.False(t, res.Degraded(), "unexpected load errors: %v", res.Err())
	return cfg
}

func ruleIDs(cfg *Config) []int {
	var ids []int
	for _, r := range cfg.Rules() {
		ids = append(ids, r.ID)
	}
	return ids
}

func ruleSources(cfg *Config) []string {
	var out []string
	for _, r := range cfg.Rules() {
		out = append(out, filepath.Base(r.Source))
	}
	return out
}

func procRule(name, profile string) RuleSpec {
	return RuleSpec{
		Pattern: Pattern{Feature: FeatureProcname, Matches: name},
		Profile: profile,
	}
}
