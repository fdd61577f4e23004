package save

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/loader"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type fixture struct {
	root   string
	global string
	rc     string
	rcd    string
	a      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:   root,
		global: filepath.Join(root, "globals-rc"),
		rc:     filepath.Join(root, "rc"),
		rcd:    filepath.Join(root, "rc.d"),
	}
	f.a = filepath.Join(f.rcd, "a")
	writeFile(t, f.a, `{
		# shipped profiles
		"rules": [{"pattern": {"feature": "procname", "matches": "game"}, "profile": "fast"}],
		"profiles": [{"name": "fast", "settings": [{"key": "GLFSAAMode", "value": 0x4500}]}]
	}`)
	return f
}

func (f fixture) load(t *testing.T) *appprofile.Config {
	t.Helper()
	cfg, res := appprofile.Load(f.global, []string{f.rc, f.rcd})
	require.False(t, res.Degraded(), "load errors: %v", res.Err())
	return cfg
}

func TestValidate_SameConfig(t *testing.T) {
	f := newFixture(t)
	cfg := f.load(t)

	updates, err := Validate(cfg, cfg)
	require.NoError(t, err)
	assert.Empty(t, updates)

	updates, err = Validate(cfg.Clone(), cfg)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestValidate_Changes(t *testing.T) {
	f := newFixture(t)
	gold := f.load(t)
	cur := gold.Clone()

	_, _, err := cur.CreateRule(f.rc, appprofile.RuleSpec{
		Pattern: appprofile.Pattern{Feature: appprofile.FeatureDSO, Matches: "libgl.so"},
		Profile: "fast",
	})
	require.NoError(t, err)
	cur.SetEnabled(false)

	updates, err := Validate(cur, gold)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, f.rc, updates[0].Filename)
	assert.Contains(t, updates[0].Text, `"libgl.so"`)
	assert.False(t, updates[0].Delete)

	assert.Equal(t, f.global, updates[1].Filename)
	assert.Contains(t, updates[1].Text, `"enabled": false`)
}

func TestValidate_NewEmptyFile(t *testing.T) {
	f := newFixture(t)
	gold := f.load(t)
	cur := gold.Clone()

	id, _, err := cur.CreateRule(filepath.Join(f.rcd, "scratch"), appprofile.RuleSpec{
		Pattern: appprofile.Pattern{Feature: appprofile.FeatureTrue},
		Profile: "fast",
	})
	require.NoError(t, err)
	_, err = cur.DeleteRule(id)
	require.NoError(t, err)

	updates, err := Validate(cur, gold)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestValidate_EmptiedFileIsRewritten(t *testing.T) {
	f := newFixture(t)
	gold := f.load(t)
	cur := gold.Clone()

	_, err := cur.DeleteRule(cur.Rules()[0].ID)
	require.NoError(t, err)
	_, err = cur.DeleteProfile("fast")
	require.NoError(t, err)

	updates, err := Validate(cur, gold)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, f.a, updates[0].Filename)
	assert.False(t, updates[0].Delete)
}

func TestValidate_FileMissingFromCurrent(t *testing.T) {
	f := newFixture(t)
	gold := f.load(t)
	other, _ := appprofile.Load(f.global, []string{filepath.Join(f.root, "elsewhere")})

	updates, err := Validate(other, gold)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, FileUpdate{Filename: f.a, Delete: true}, updates[0])
}

func TestSaveUpdates_RoundTrip(t *testing.T) {
	f := newFixture(t)
	gold := f.load(t)
	cur := gold.Clone()

	newFile := filepath.Join(f.root, "fresh.d", "x")
	_, err := cur.UpdateProfile(f.a, "fast", []appprofile.Setting{
		{Key: "GLFSAAMode", Value: appprofile.IntValue(0x4500)},
		{Key: "GLDoom3", Value: appprofile.BoolValue(true)},
	})
	require.NoError(t, err)

	cfgWithFresh, _ := appprofile.Load(f.global, []string{f.rc, f.rcd, filepath.Join(f.root, "fresh.d")})
	_, err = cfgWithFresh.UpdateProfile(newFile, "slow", nil)
	require.NoError(t, err)

	updates, err := Validate(cur, gold)
	require.NoError(t, err)
	more, err := Validate(cfgWithFresh, gold)
	require.NoError(t, err)
	for _, u := range more {
		if u.Filename == newFile {
			updates = append(updates, u)
		}
	}
	require.Len(t, updates, 2)

	before := readFile(t, f.a)
	res := New().SaveUpdates(updates, true)
	require.True(t, res.OK(), "save errors: %v", res.Err())
	assert.False(t, res.Partial())
	assert.ElementsMatch(t, []string{f.a, newFile}, res.Written)

	assert.Equal(t, map[string]string{f.a: f.a + ".backup"}, res.Backups)
	assert.Equal(t, before, readFile(t, f.a+".backup"))
	assert.NoFileExists(t, filepath.Join(f.rcd, ".a.tmp"))

	reloaded, lr := appprofile.Load(f.global, []string{f.rc, f.rcd})
	require.False(t, lr.Degraded(), "reload errors: %v", lr.Err())
	p, ok := reloaded.Profile("fast")
	require.True(t, ok)
	require.Len(t, p.Settings, 2)
	assert.Equal(t, "0x4500", p.Settings[0].Value.Display())

	updates, err = Validate(reloaded, reloaded)
	require.NoError(t, err)
	assert.Empty(t, updates)

	text, _, err := cur.FileText(f.a)
	require.NoError(t, err)
	assert.Equal(t, text, readFile(t, f.a))
}

func TestSaveUpdates_Delete(t *testing.T) {
	f := newFixture(t)
	res := New().SaveUpdates([]FileUpdate{{Filename: f.a, Delete: true}}, true)
	require.True(t, res.OK())
	assert.Equal(t, []string{f.a}, res.Deleted)
	assert.NoFileExists(t, f.a)
	assert.FileExists(t, f.a+".backup")
}

// failingFS fails writes to files whose base name is in fail.
type failingFS struct {
	loader.OSFS
	fail map[string]bool
}

var errInjected = errors.New("injected failure")

func (f failingFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "."), ".tmp")
	if f.fail[base] {
		return errInjected
	}
	return f.OSFS.WriteFile(path, data, perm)
}

func TestSaveUpdates_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	bad := filepath.Join(dir, "bad")
	writeFile(t, bad, "{}\n")

	e := New(WithFileSystem(failingFS{fail: map[string]bool{"bad": true}}))
	res := e.SaveUpdates([]FileUpdate{
		{Filename: bad, Text: "{\"rules\": []}\n"},
		{Filename: good, Text: "{}\n"},
	}, false)

	assert.False(t, res.OK())
	assert.True(t, res.Partial())
	assert.Equal(t, []string{good}, res.Written)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, bad, res.Failed[0].Path)
	assert.Equal(t, "write", res.Failed[0].Op)
	assert.ErrorIs(t, res.Err(), errInjected)

	assert.Equal(t, "{}\n", readFile(t, bad))
	assert.Equal(t, "{}\n", readFile(t, good))
}

func TestSaveUpdates_BackupFailureSkipsFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "rc")
	writeFile(t, target, "old\n")

	e := New(WithFileSystem(failingFS{fail: map[string]bool{"rc.backup": true}}))
	res := e.SaveUpdates([]FileUpdate{{Filename: target, Text: "new\n"}}, true)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "backup", res.Failed[0].Op)
	assert.Empty(t, res.Written)
	assert.Equal(t, "old\n", readFile(t, target))
}

func TestBackupFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rc")
	e := New()

	assert.Equal(t, path+".backup", e.BackupFilename(path))

	writeFile(t, path+".backup", "")
	assert.Equal(t, path+".backup.1", e.BackupFilename(path))

	writeFile(t, path+".backup.1", "")
	writeFile(t, path+".backup.3", "")
	assert.Equal(t, path+".backup.2", e.BackupFilename(path))
}

func TestCheckBackingFiles(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.global, `{"enabled": true}`)
	cfg := f.load(t)

	changed, files := CheckBackingFiles(cfg)
	assert.False(t, changed)
	assert.Empty(t, files)

	writeFile(t, f.a, `{}`)
	changed, files = CheckBackingFiles(cfg)
	assert.True(t, changed)
	assert.Equal(t, []string{f.a}, files)

	cfg = f.load(t)
	writeFile(t, filepath.Join(f.rcd, "b"), `{}`)
	writeFile(t, f.global, `{"enabled": false}`)
	changed, files = CheckBackingFiles(cfg)
	assert.True(t, changed)
	assert.ElementsMatch(t, []string{f.global, filepath.Join(f.rcd, "b")}, files)
}
