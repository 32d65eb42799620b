package tui

import (
	"reflect"
	"testing"
)

func TestWrapWordsBreaksOnSpaces(t *testing.T) {
	got := wrapWords("could not save session to disk", 12)
	want := []string{"could not", "save session", "to disk"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapWordsHardWrapsLongWords(t *testing.T) {
	got := wrapWords("ab abcdefgh", 4)
	want := []string{"ab", "abcd", "efgh"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapWordsWideRunes(t *testing.T) {
	got := wrapWords("日本語", 4)
	want := []string{"日本", "語"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapWordsEmpty(t *testing.T) {
	if got := wrapWords("   ", 10); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
	if got := wrapWords("a  b", 0); !reflect.DeepEqual(got, []string{"a b"}) {
		t.Fatalf("expected single line, got %q", got)
	}
}
