package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan TelemetryEvent, 1)

	unsub := bus.Subscribe(func(e TelemetryEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(TelemetryEvent{StreamName: "live", Bitrate: "2100.3kbits/s"})

	select {
	case got := <-received:
		if got.Bitrate != "2100.3kbits/s" {
			t.Errorf("bitrate = %q", got.Bitrate)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusTypeIsolation(t *testing.T) {
	bus := New()
	stateReceived := make(chan bool, 1)
	telemetryReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(SessionStateChangedEvent) { stateReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(TelemetryEvent) { telemetryReceived <- true })
	defer unsub2()

	bus.Publish(SessionStateChangedEvent{State: "idle"})

	select {
	case <-stateReceived:
	case <-time.After(time.Second):
		t.Fatal("state event not delivered")
	}
	select {
	case <-telemetryReceived:
		t.Fatal("telemetry subscriber received state event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 2)

	unsub := SubscribeToChannel[SessionStateChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(SessionStateChangedEvent{State: "transcoder_running"})

	select {
	case got := <-ch:
		ev, ok := got.(SessionStateChangedEvent)
		if !ok || ev.State != "transcoder_running" {
			t.Errorf("received %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not bridged to channel")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConfigReloadedEvent, 1)

	unsub := bus.Subscribe(func(e ConfigReloadedEvent) { received <- e })

	bus.Publish(ConfigReloadedEvent{Path: "stream.toml"})
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	unsub()
	bus.Publish(ConfigReloadedEvent{Path: "stream.toml"})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}
