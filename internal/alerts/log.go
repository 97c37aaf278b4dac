package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes events to the application log
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

// Send logs the event
func (s *LogSender) Send(ctx context.Context, event *Event) error {
	s.log.WithFields(logrus.Fields{
		"alert_id": event.ID,
		"kind":     event.Kind,
		"wallet":   event.WalletShort,
		"market":   event.MarketTitle,
		"side":     event.Side,
		"outcome":  event.Outcome,
		"size_usd": event.SizeUSD,
		"price":    event.Price,
		"reasons":  event.Reasons,
	}).Info("Suspicious trade")
	return nil
}
