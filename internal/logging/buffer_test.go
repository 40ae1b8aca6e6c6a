package logging

import (
	"testing"
	"time"
)

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)

	for i, msg := range []string{"a", "b", "c", "d", "e"} {
		rb.Write(LogEntry{
			Timestamp: time.Unix(int64(i), 0),
			Level:     "info",
			Module:    "test",
			Message:   msg,
		})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}

	all := rb.ReadAll()
	want := []string{"c", "d", "e"}
	for i, entry := range all {
		if entry.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Message, want[i])
		}
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(10)
	for _, msg := range []string{"one", "two", "three"} {
		rb.Write(LogEntry{Message: msg})
	}

	tail := rb.Tail(2)
	if len(tail) != 2 {
		t.Fatalf("Tail(2) returned %d entries", len(tail))
	}
	if tail[0].Message != "two" || tail[1].Message != "three" {
		t.Errorf("Tail(2) = [%q, %q], want [two, three]", tail[0].Message, tail[1].Message)
	}

	if got := rb.Tail(10); len(got) != 3 {
		t.Errorf("Tail(10) returned %d entries, want 3", len(got))
	}
}

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("buffer-test-module")
	b := GetLogger("buffer-test-module")
	if a != b {
		t.Error("GetLogger returned different instances for the same module")
	}
}
