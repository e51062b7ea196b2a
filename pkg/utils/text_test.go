package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate=%q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Errorf("short string should be unchanged, got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("maxLen 0 should be unchanged, got %q", got)
	}
}
