package registry

import (
	"errors"
	"testing"
)

func TestNewWithDefaults(t *testing.T) {
	r := NewWithDefaults()

	if got := len(r.All()); got != 15 {
		t.Fatalf("len(All()) = %d, want 15", got)
	}
	names := r.Names()
	if names[0] != "GLFSAAMode" || names[len(names)-1] != "GLExtensionStringVersion" {
		t.Errorf("Names() order = %v, want registration order", names)
	}
	for _, k := range r.All() {
		if k.Description == "" {
			t.Errorf("key %s has no description", k.Name)
		}
	}
}

func TestRegistry_Canonical(t *testing.T) {
	r := NewWithDefaults()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"GLFSAAMode", "GLFSAAMode", true},
		{"glfsaamode", "GLFSAAMode", true},
		{"GLSYNCTOVBLANK", "GLSyncToVblank", true},
		{"SomethingElse", "SomethingElse", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := r.Canonical(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Canonical(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()

	if err := r.Register(Key{Name: "GLCustom", Type: TypeInteger}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(Key{Name: "glcustom"})
	if !errors.Is(err, ErrKeyAlreadyRegistered) {
		t.Errorf("Register(duplicate) error = %v, want ErrKeyAlreadyRegistered", err)
	}
	if !r.Has("GLCUSTOM") {
		t.Error("Has() = false for registered key")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegister(duplicate) did not panic")
		}
	}()
	r.MustRegister(Key{Name: "GLCustom"})
}

func TestRegistry_Search(t *testing.T) {
	r := NewWithDefaults()

	got := r.Search("shaderdisk")
	if len(got) != 2 {
		t.Fatalf("Search() returned %d keys, want 2", len(got))
	}
	if got[0].Name != "GLShaderDiskCache" || got[1].Name != "GLShaderDiskCachePath" {
		t.Errorf("Search() = %s, %s", got[0].Name, got[1].Name)
	}

	if got := r.Search("vblank"); len(got) != 2 {
		t.Errorf("Search(vblank) returned %d keys, want 2", len(got))
	}
}

func TestValueType_String(t *testing.T) {
	tests := []struct {
		vt   ValueType
		want string
	}{
		{TypeInteger, "integer"},
		{TypeBoolean, "boolean"},
		{TypeString, "string"},
		{TypeStringOrInteger, "string or integer"},
		{ValueType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.vt.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.vt, got, tt.want)
		}
	}
}
