package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type captureSender struct {
	events []*Event
}

func (c *captureSender) Name() string { return "capture" }

func (c *captureSender) Send(ctx context.Context, event *Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestDispatcherCooldown(t *testing.T) {
	log := logrus.New()
	capture := &captureSender{}
	d := NewDispatcher(log, time.Hour, capture)

	ctx := context.Background()

	first := NewEvent(KindAnomaly)
	first.Wallet = "0xaaa"
	d.Dispatch(ctx, &first)

	second := NewEvent(KindAnomaly)
	second.Wallet = "0xaaa"
	d.Dispatch(ctx, &second)

	other := NewEvent(KindRetrospective)
	other.Wallet = "0xbbb"
	d.Dispatch(ctx, &other)

	if len(capture.events) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(capture.events))
	}
	if capture.events[0].Wallet != "0xaaa" || capture.events[1].Wallet != "0xbbb" {
		t.Errorf("unexpected delivery order: %s, %s",
			capture.events[0].Wallet, capture.events[1].Wallet)
	}
}

func TestDispatcherZeroCooldown(t *testing.T) {
	log := logrus.New()
	capture := &captureSender{}
	d := NewDispatcher(log, 0, capture)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ev := NewEvent(KindAnomaly)
		ev.Wallet = "0xaaa"
		d.Dispatch(ctx, &ev)
	}

	if len(capture.events) != 3 {
		t.Fatalf("expected 3 deliveries with no cooldown, got %d", len(capture.events))
	}
}

func TestDispatcherNilSafe(t *testing.T) {
	var d *Dispatcher
	ev := NewEvent(KindAnomaly)
	d.Dispatch(context.Background(), &ev) // must not panic
}

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x1234567890abcdef1234", "0x1234…1234"},
		{"0xshort", "0xshort"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Shorten(tt.in); got != tt.want {
			t.Errorf("Shorten(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
