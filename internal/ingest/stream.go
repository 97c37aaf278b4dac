package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
)

const (
	streamInitialBackoff = time.Second
	streamMaxBackoff     = time.Minute
	streamBackoffFactor  = 2.0
	streamJitter         = 0.2

	streamDialTimeout  = 10 * time.Second
	streamWriteTimeout = 10 * time.Second
	// The gateway pings well inside a minute; a quiet connection past this
	// is dead.
	streamReadTimeout = 70 * time.Second
	streamPingPeriod  = 30 * time.Second
)

// StreamSource subscribes to the market channel over websocket and buffers
// incoming trades until the worker drains them. Run must be started for
// Next to ever yield anything.
type StreamSource struct {
	url     string
	log     *logrus.Logger
	events  chan dataapi.Trade
	backoff time.Duration
}

// NewStreamSource creates a stream source with the given buffer capacity.
// When the buffer is full, new events drop; the poll path catches what the
// stream missed.
func NewStreamSource(url string, buffer int, log *logrus.Logger) *StreamSource {
	if buffer < 1 {
		buffer = 1
	}
	return &StreamSource{
		url:     url,
		log:     log,
		events:  make(chan dataapi.Trade, buffer),
		backoff: streamInitialBackoff,
	}
}

// Next drains whatever the stream buffered since the last cycle. It never
// blocks; an empty batch means nothing arrived.
func (s *StreamSource) Next(ctx context.Context) ([]dataapi.Trade, error) {
	var out []dataapi.Trade
	for {
		select {
		case t := <-s.events:
			out = append(out, t)
			if len(out) >= cap(s.events) {
				return out, nil
			}
		default:
			return out, nil
		}
	}
}

// Run dials and reads until the context is cancelled, reconnecting with
// exponential backoff and jitter.
func (s *StreamSource) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.log.WithError(err).WithField("backoff", s.backoff.String()).Warn("Stream dial failed")
			if !s.waitBackoff(ctx) {
				return
			}
			continue
		}

		s.backoff = streamInitialBackoff
		s.log.WithField("url", s.url).Info("Stream connected")

		if err := s.readLoop(ctx, conn); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("Stream read failed")
		}
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		if !s.waitBackoff(ctx) {
			return
		}
	}
}

func (s *StreamSource) dial(ctx context.Context) (*websocket.Conn, error) {
	metrics.StreamReconnects.Inc()

	dialer := websocket.Dialer{HandshakeTimeout: streamDialTimeout}
	headers := http.Header{}
	headers.Set("Origin", "https://polymarket.com")

	conn, resp, err := dialer.DialContext(ctx, s.url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", s.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}

	// An empty asset list subscribes to the whole channel.
	sub := map[string]interface{}{
		"type":       "market",
		"assets_ids": []string{},
	}
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return conn, nil
}

// readLoop reads until the connection dies. A side goroutine keeps the
// connection pinged and tears it down when the context ends, which is the
// only way to unblock a pending read.
func (s *StreamSource) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	for {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handle(message)
	}
}

func (s *StreamSource) handle(message []byte) {
	trades, ok := decodeStreamTrades(message)
	if !ok {
		metrics.StreamEvents.WithLabelValues("decode_error").Inc()
		return
	}
	for _, t := range trades {
		metrics.StreamEvents.WithLabelValues("received").Inc()
		select {
		case s.events <- t:
		default:
			metrics.StreamEvents.WithLabelValues("dropped").Inc()
			s.log.WithFields(logrus.Fields{
				"wallet": t.ProxyWallet,
				"market": t.ConditionID,
			}).Warn("Stream buffer full, trade dropped")
		}
	}
}

// waitBackoff sleeps the current backoff with jitter and raises it for the
// next attempt. False means the context ended during the wait.
func (s *StreamSource) waitBackoff(ctx context.Context) bool {
	jitter := time.Duration(float64(s.backoff) * streamJitter * (rand.Float64()*2 - 1))
	wait := s.backoff + jitter

	s.backoff = time.Duration(float64(s.backoff) * streamBackoffFactor)
	if s.backoff > streamMaxBackoff {
		s.backoff = streamMaxBackoff
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

// streamMessage is the envelope some gateway versions wrap events in
type streamMessage struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// streamTrade is one trade event off the wire. Numeric fields arrive quoted
// on some gateway versions and bare on others, so they stay raw here and go
// through decimal parsing.
type streamTrade struct {
	ProxyWallet     string          `json:"proxyWallet"`
	Side            string          `json:"side"`
	ConditionID     string          `json:"conditionId"`
	Size            json.RawMessage `json:"size"`
	Price           json.RawMessage `json:"price"`
	Timestamp       json.RawMessage `json:"timestamp"`
	Outcome         string          `json:"outcome"`
	OutcomeIndex    int             `json:"outcomeIndex"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	EventSlug       string          `json:"eventSlug"`
	TransactionHash string          `json:"transactionHash"`
}

func (t streamTrade) usable() bool {
	return t.ProxyWallet != "" && t.ConditionID != ""
}

func (t streamTrade) toTrade() dataapi.Trade {
	return dataapi.Trade{
		ProxyWallet:     t.ProxyWallet,
		Side:            t.Side,
		ConditionID:     t.ConditionID,
		Size:            decimalField(t.Size),
		Price:           decimalField(t.Price),
		Timestamp:       intField(t.Timestamp),
		Outcome:         t.Outcome,
		OutcomeIndex:    t.OutcomeIndex,
		Title:           t.Title,
		Slug:            t.Slug,
		EventSlug:       t.EventSlug,
		TransactionHash: t.TransactionHash,
	}
}

// decodeStreamTrades extracts trade events from one raw message. Book
// updates, price changes, and other channel noise decode fine but carry no
// wallet, so they come back as an empty, valid batch. False means the
// message was not JSON we recognize at all.
func decodeStreamTrades(data []byte) ([]dataapi.Trade, bool) {
	convert := func(raw []streamTrade) []dataapi.Trade {
		var out []dataapi.Trade
		for _, st := range raw {
			if st.usable() {
				out = append(out, st.toTrade())
			}
		}
		return out
	}

	var batch []streamTrade
	if err := json.Unmarshal(data, &batch); err == nil {
		return convert(batch), true
	}

	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}
	body := msg.Payload
	if len(body) == 0 {
		body = data
	}

	if err := json.Unmarshal(body, &batch); err == nil {
		return convert(batch), true
	}
	var single streamTrade
	if err := json.Unmarshal(body, &single); err == nil {
		return convert([]streamTrade{single}), true
	}
	return nil, false
}

// decimalField parses a JSON number that may arrive quoted or bare
func decimalField(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// intField parses a timestamp that may arrive quoted, bare, or fractional
func intField(raw json.RawMessage) int64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.IntPart()
}
