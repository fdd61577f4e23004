package appprofile

import (
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var prettyOptions = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   "    ",
	SortKeys: false,
}

// jsonBuilder accumulates sjson edits and remembers the first error.
type jsonBuilder struct {
	buf []byte
	err error
}

func newBuilder(doc string) *jsonBuilder {
	return &jsonBuilder{buf: []byte(doc)}
}

func (b *jsonBuilder) set(path string, v any) {
	if b.err != nil {
		return
	}
	b.buf, b.err = sjson.SetBytes(b.buf, path, v)
}

func (b *jsonBuilder) setRaw(path string, raw []byte) {
	if b.err != nil {
		return
	}
	b.buf, b.err = sjson.SetRawBytes(b.buf, path, raw)
}

func (b *jsonBuilder) bytes() ([]byte, error) {
	return b.buf, b.err
}

func renderRule(r *rule) ([]byte, error) {
	b := newBuilder(`{}`)
	b.set("pattern.feature", string(r.spec.Pattern.Feature))
	b.set("pattern.matches", r.spec.Pattern.Matches)
	b.set("profile", r.spec.Profile)
	return b.bytes()
}

func renderProfile(p *profile) ([]byte, error) {
	b := newBuilder(`{}`)
	b.set("name", p.name)
	b.setRaw("settings", []byte("[]"))
	for _, s := range p.settings {
		sb := newBuilder(`{}`)
		sb.set("key", s.Key)
		sb.setRaw("value", []byte(s.Value.JSON()))
		raw, err := sb.bytes()
		if err != nil {
			return nil, err
		}
		b.setRaw("settings.-1", raw)
	}
	return b.bytes()
}

// render produces the file's contents. Top-level keys other than rules
// and profiles are carried over from the loaded document.
func (f *sourceFile) render() ([]byte, error) {
	doc := newBuilder(string(f.base))
	doc.setRaw("rules", []byte("[]"))
	for _, r := range f.rules {
		raw, err := renderRule(r)
		if err != nil {
			return nil, err
		}
		doc.setRaw("rules.-1", raw)
	}

	doc.setRaw("profiles", []byte("[]"))
	for _, p := range f.profiles {
		raw, err := renderProfile(p)
		if err != nil {
			return nil, err
		}
		doc.setRaw("profiles.-1", raw)
	}

	out, err := doc.bytes()
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(out, prettyOptions), nil
}

func (g *globalFile) render() ([]byte, error) {
	b := newBuilder(string(g.base))
	b.set("enabled", g.enabled)
	out, err := b.bytes()
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(out, prettyOptions), nil
}

// FileText returns the serialized contents of the source file at path.
// ok is false when path is not a source file of c.
func (c *Config) FileText(path string) (text string, ok bool, err error) {
	i := c.fileIndex(path)
	if i < 0 {
		return "", false, nil
	}
	out, err := c.files[i].render()
	if err != nil {
		return "", true, err
	}
	return string(out), true, nil
}

// GlobalText returns the serialized contents of the global file.
func (c *Config) GlobalText() (string, error) {
	out, err := c.global.render()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FileEmpty reports whether the source file at path holds no rules and no
// profiles.
func (c *Config) FileEmpty(path string) bool {
	i := c.fileIndex(path)
	if i < 0 {
		return true
	}
	return len(c.files[i].rules) == 0 && len(c.files[i].profiles) == 0
}

// FileExisted reports whether the source file at path was on disk when c
// was loaded.
func (c *Config) FileExisted(path string) bool {
	i := c.fileIndex(path)
	return i >= 0 && c.files[i].existed
}

// Equal reports whether c and other would be written to disk identically.
func (c *Config) Equal(other *Config) bool {
	if len(c.files) != len(other.files) || c.global.enabled != other.global.enabled {
		return false
	}
	for i, f := range c.files {
		if other.files[i].path != f.path {
			return false
		}
		a, errA := f.render()
		b, errB := other.files[i].render()
		if errA != nil || errB != nil || string(a) != string(b) {
			return false
		}
	}
	return true
}
