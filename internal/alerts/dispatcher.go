package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/metrics"
)

// Dispatcher fans events out to every configured sender and enforces a
// per-wallet cooldown so a burst of flags from one trader collapses into a
// single notification per window.
type Dispatcher struct {
	senders  []Sender
	cooldown time.Duration
	log      *logrus.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDispatcher creates a dispatcher over the given senders
func NewDispatcher(log *logrus.Logger, cooldown time.Duration, senders ...Sender) *Dispatcher {
	return &Dispatcher{
		senders:  senders,
		cooldown: cooldown,
		log:      log,
		lastSent: make(map[string]time.Time),
	}
}

// Dispatch delivers the event unless the wallet is still cooling down.
// Sender failures are logged and counted, never propagated; alerting is
// best effort and must not stall the pipeline.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) {
	if d == nil || len(d.senders) == 0 {
		return
	}

	if !d.shouldSend(event.Wallet, time.Now()) {
		metrics.AlertsSuppressed.Inc()
		return
	}

	for _, sender := range d.senders {
		err := sender.Send(ctx, event)
		metrics.RecordAlert(sender.Name(), err)
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"sender":   sender.Name(),
				"alert_id": event.ID,
			}).Warn("Alert delivery failed")
		}
	}
}

// shouldSend records the send time when the wallet is clear to notify
func (d *Dispatcher) shouldSend(wallet string, now time.Time) bool {
	if d.cooldown <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSent[wallet]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.lastSent[wallet] = now
	return true
}
