package serde

import "testing"

func TestFieldSpecWireName(t *testing.T) {
	tests := []struct {
		name string
		spec FieldSpec
		want string
	}{
		{"no rename", FieldSpec{Name: "id"}, "id"},
		{"renamed", FieldSpec{Name: "name", Rename: "displayName"}, "displayName"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.spec.WireName(); got != tc.want {
				t.Errorf("WireName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFieldSpecMatches(t *testing.T) {
	spec := FieldSpec{Name: "name", Rename: "displayName", Alias: "legacyName"}

	for _, key := range []string{"displayName", "legacyName"} {
		if !spec.matches(key) {
			t.Errorf("matches(%q) = false, want true", key)
		}
	}
	if spec.matches("name") {
		t.Error("matches(\"name\") = true, want false once renamed")
	}
	if spec.matches("other") {
		t.Error("matches(\"other\") = true, want false")
	}
}

func TestKindString(t *testing.T) {
	if KindStruct.String() != "struct" {
		t.Errorf("KindStruct.String() = %q", KindStruct.String())
	}
	if Kind(255).String() != "unknown" {
		t.Errorf("unknown kind should stringify to unknown")
	}
}

func TestOption(t *testing.T) {
	n := None[int]()
	if !n.IsNone() {
		t.Error("None() should be none")
	}
	s := Some(42)
	if s.IsNone() {
		t.Error("Some(42) should not be none")
	}
	if v, ok := s.Get(); !ok || v != 42 {
		t.Errorf("Get() = %d, %v", v, ok)
	}
}

func TestErrorKindOf(t *testing.T) {
	if KindOf(nil) != ErrNone {
		t.Error("KindOf(nil) should be ErrNone")
	}
	err := NewError(ErrDuplicateKeys, "boom")
	if KindOf(err) != ErrDuplicateKeys {
		t.Errorf("KindOf(err) = %v", KindOf(err))
	}
	if err.Error() != "duplicate_keys: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
