package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestFanoutDeliversToEverySink(t *testing.T) {
	first := NewRingBuffer(10)
	second := NewRingBuffer(10)
	fanout := fanoutHandler{
		NewBufferHandler(first, slog.LevelInfo),
		NewBufferHandler(second, slog.LevelInfo),
	}

	logger := slog.New(fanout)
	logger.Info("hello", "key", "value")

	for i, rb := range []*RingBuffer{first, second} {
		entries := rb.ReadAll()
		if len(entries) != 1 {
			t.Fatalf("sink %d got %d entries, want 1", i, len(entries))
		}
		if entries[0].Message != "hello" {
			t.Errorf("sink %d message = %q", i, entries[0].Message)
		}
		if entries[0].Attributes["key"] != "value" {
			t.Errorf("sink %d attributes = %v", i, entries[0].Attributes)
		}
	}
}

func TestFanoutRespectsSinkLevels(t *testing.T) {
	quiet := NewRingBuffer(10)
	verbose := NewRingBuffer(10)
	fanout := fanoutHandler{
		NewBufferHandler(quiet, slog.LevelError),
		NewBufferHandler(verbose, slog.LevelDebug),
	}

	if !fanout.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("fanout disabled while one sink accepts debug")
	}

	slog.New(fanout).Warn("careful")

	if got := quiet.Count(); got != 0 {
		t.Errorf("error-level sink got %d entries, want 0", got)
	}
	if got := verbose.Count(); got != 1 {
		t.Errorf("debug-level sink got %d entries, want 1", got)
	}
}
