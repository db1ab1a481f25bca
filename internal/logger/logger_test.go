package logger

import "testing"

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New("api", "debug", format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !l.Core().Enabled(-1) {
			t.Fatalf("%s: expected debug level enabled", format)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("api", "loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
