package gedcom

import (
	"reflect"
	"testing"
)

func TestMatchLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want RawLine
	}{
		{"record with pointer", "0 @I1@ INDI", RawLine{Level: 0, Pointer: "I1", Tag: "INDI"}},
		{"tag and value", "1 NAME John /Doe/", RawLine{Level: 1, Tag: "NAME", Value: "John /Doe/"}},
		{"lower case tag", "2 date 1 JAN 1900", RawLine{Level: 2, Tag: "DATE", Value: "1 JAN 1900"}},
		{"value with at sign", "1 NOTE mail me@example.com", RawLine{Level: 1, Tag: "NOTE", Value: "mail me@example.com"}},
		{"pointer value", "1 FAMS @F1@", RawLine{Level: 1, Tag: "FAMS", Value: "@F1@"}},
		{"surrounding whitespace", "  1 SEX   M  ", RawLine{Level: 1, Tag: "SEX", Value: "M"}},
		{"custom tag", "1 _UID 12AB", RawLine{Level: 1, Tag: "_UID", Value: "12AB"}},
		{"pointer with value", "0 @N1@ NOTE shared text", RawLine{Level: 0, Pointer: "N1", Tag: "NOTE", Value: "shared text"}},
		{"custom tag with hyphen", "1 _MY-TAG x", RawLine{Level: 1, Tag: "_MY-TAG", Value: "x"}},
		{"multi digit level", "12 CONT x", RawLine{Level: 12, Tag: "CONT", Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchLine(tt.in)
			if !ok {
				t.Fatalf("MatchLine(%q) did not match", tt.in)
			}
			if got != tt.want {
				t.Errorf("MatchLine(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchLineRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"NAME John",
		"-1 NAME John",
		"1",
		"1 @I1@",
		"x 1 NAME",
	} {
		if got, ok := MatchLine(in); ok {
			t.Errorf("MatchLine(%q) = %+v, want no match", in, got)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("\ufeff0 HEAD\r\n1 CHAR UTF-8\n0 TRLR")
	want := []string{"0 HEAD", "1 CHAR UTF-8", "0 TRLR"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitLines() = %q, want %q", got, want)
	}
}

func TestPointerValue(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"@S1@", "S1", true},
		{" @F12@ ", "F12", true},
		{"S1", "", false},
		{"@@", "", false},
		{"@a b@", "", false},
		{"Family Bible", "", false},
	}
	for _, tt := range tests {
		got, ok := pointerValue(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("pointerValue(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestScopeStack(t *testing.T) {
	var s scopeStack
	note := "first"
	s.push(1, lifecycleScope{which: lifeBirth})
	s.push(2, textScope{target: &note})

	if s.parent(3) == nil {
		t.Fatal("parent(3) should be the level-2 scope")
	}
	if s.parent(4) != nil {
		t.Error("parent(4) should be nil when a level is skipped")
	}
	if got := s.continuationTarget(3); got != &note {
		t.Error("continuation at level 3 should target the note")
	}
	if got := s.continuationTarget(2); got != nil {
		t.Error("continuation at level 2 targets the lifecycle scope, which has no text")
	}

	s.closeAt(2)
	if len(s.frames) != 1 {
		t.Fatalf("closeAt(2) left %d frames, want 1", len(s.frames))
	}
	s.closeAt(1)
	if len(s.frames) != 0 {
		t.Fatalf("closeAt(1) left %d frames, want 0", len(s.frames))
	}
}
