package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"hex", `{"a": 0x10}`, `{"a": 16}`},
		{"hex upper", `{"a": 0X4500}`, `{"a": 17664}`},
		{"negative hex", `{"a": -0x1}`, `{"a": -1}`},
		{"octal", `{"a": 010}`, `{"a": 8}`},
		{"zero", `[0, 0.5, -0]`, `[0, 0.5, -0]`},
		{"not octal", `[09]`, `[09]`},
		{"float exponent", `[1e-5, 2.5E+3]`, `[1e-5, 2.5E+3]`},
		{"comment", "{\"a\": 1} # trailing", "{\"a\": 1}           "},
		{"comment keeps newline", "# c\n{}", "   \n{}"},
		{"hash in string", `{"a": "x # 0x10"}`, `{"a": "x # 0x10"}`},
		{"escaped quote", `{"a": "\"# 0x1"}`, `{"a": "\"# 0x1"}`},
		{"digits in word", `[abc0x1]`, `[abc0x1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ToJSON([]byte(tt.in))); got != tt.want {
				t.Errorf("ToJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	js, err := Parse("test", []byte("# only a comment\n\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(js) != "{}" {
		t.Errorf("Parse(blank) = %q, want {}", js)
	}

	_, err = Parse("bad.rc", []byte("{\n  \"rules\": ,\n}"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if perr.Path != "bad.rc" {
		t.Errorf("ParseError.Path = %q, want bad.rc", perr.Path)
	}
	if perr.Line != 2 {
		t.Errorf("ParseError.Line = %d, want 2", perr.Line)
	}
	if !strings.Contains(perr.Error(), "line 2") {
		t.Errorf("Error() = %q, want line number", perr.Error())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	fsys := DefaultFS()

	t.Run("missing", func(t *testing.T) {
		doc, err := Load(fsys, filepath.Join(dir, "nope"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if doc.Exists {
			t.Error("Exists = true for missing file")
		}
		if string(doc.JSON) != "{}" {
			t.Errorf("JSON = %q, want {}", doc.JSON)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(dir, "rc")
		content := "{ \"profiles\": [] } # hi\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		doc, err := Load(fsys, path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !doc.Exists || !doc.Fingerprint.Exists {
			t.Error("document should exist")
		}
		if string(doc.Raw) != content {
			t.Errorf("Raw = %q, want %q", doc.Raw, content)
		}
		if doc.Fingerprint.Size != int64(len(content)) {
			t.Errorf("Fingerprint.Size = %d, want %d", doc.Fingerprint.Size, len(content))
		}
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(fsys, dir)
		var rerr *ReadError
		if !errors.As(err, &rerr) {
			t.Errorf("Load(dir) error = %v, want *ReadError", err)
		}
	})
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	fsys := DefaultFS()
	path := filepath.Join(dir, "rc")

	missing, err := TakeFingerprint(fsys, path)
	if err != nil {
		t.Fatalf("TakeFingerprint() error = %v", err)
	}
	if missing.Exists {
		t.Error("missing file has Exists = true")
	}
	if !missing.Equal(Fingerprint{}) {
		t.Error("two missing fingerprints should be equal")
	}

	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	first, err := TakeFingerprint(fsys, path)
	if err != nil {
		t.Fatalf("TakeFingerprint() error = %v", err)
	}
	if first.Equal(missing) {
		t.Error("created file should differ from missing file")
	}

	again, _ := TakeFingerprint(fsys, path)
	if !first.Equal(again) {
		t.Error("unchanged file should have equal fingerprints")
	}

	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, _ := TakeFingerprint(fsys, path)
	if first.Equal(changed) {
		t.Error("rewritten file should have a different fingerprint")
	}
}

func TestExpandSearchPath(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "rc.d")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b", "a", ".hidden", "c~", "a.backup", "a.backup.1"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	rc := filepath.Join(root, "rc")
	if err := os.WriteFile(rc, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(root, "missing")

	entries, files, errs := ExpandSearchPath(DefaultFS(), []string{rc, dir + "/", missing})
	if len(errs) != 0 {
		t.Fatalf("ExpandSearchPath() errs = %v", errs)
	}

	wantKinds := []EntryKind{EntryFile, EntryDir, EntryMissing}
	if len(entries) != len(wantKinds) {
		t.Fatalf("got %d entries, want %d", len(entries), len(wantKinds))
	}
	for i, k := range wantKinds {
		if entries[i].Kind != k {
			t.Errorf("entries[%d].Kind = %v, want %v", i, entries[i].Kind, k)
		}
	}
	if entries[1].Path != dir {
		t.Errorf("entries[1].Path = %q, want cleaned %q", entries[1].Path, dir)
	}

	want := []File{
		{Path: rc, Entry: 0},
		{Path: filepath.Join(dir, "a"), Entry: 1},
		{Path: filepath.Join(dir, "b"), Entry: 1},
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %v, want %v", i, files[i], want[i])
		}
	}
}

func TestExpandSearchPath_Duplicates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rc.d")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(dir, "a")
	if err := os.WriteFile(a, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, files, errs := ExpandSearchPath(DefaultFS(), []string{dir, a, dir + "/"})
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if len(files) != 1 || files[0] != (File{Path: a, Entry: 0}) {
		t.Fatalf("files = %v, want only %s from entry 0", files, a)
	}
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want 2 duplicates", errs)
	}
	for i, wantEntry := range []int{1, 2} {
		var dup *DuplicateError
		if !errors.As(errs[i], &dup) {
			t.Fatalf("errs[%d] = %v, want *DuplicateError", i, errs[i])
		}
		if dup.Path != a || dup.Entry != wantEntry || dup.FirstEntry != 0 {
			t.Errorf("errs[%d] = %+v", i, dup)
		}
	}
}

func TestIsBackupName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"rc.backup", true},
		{"rc.backup.1", true},
		{"rc.backup.12", true},
		{".backup", false},
		{"rc", false},
		{"rc.backup.", false},
		{"rc.backup.x", false},
		{"rc.backups", false},
	}

	for _, tt := range tests {
		if got := IsBackupName(tt.name); got != tt.want {
			t.Errorf("IsBackupName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
