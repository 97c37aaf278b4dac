package ingest

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
)

func TestDecodeStreamTradesBareArray(t *testing.T) {
	msg := []byte(`[
		{"proxyWallet":"0xabc","conditionId":"0xc1","side":"BUY","size":"100.5","price":"0.42","timestamp":"1700000000","outcome":"Yes","transactionHash":"0xtx1"},
		{"proxyWallet":"0xdef","conditionId":"0xc2","side":"SELL","size":"50","price":"0.10","timestamp":"1700000001","outcome":"No","transactionHash":"0xtx2"}
	]`)

	trades, ok := decodeStreamTrades(msg)
	if !ok {
		t.Fatal("expected message to decode")
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].Size != 100.5 || trades[0].Price != 0.42 {
		t.Errorf("quoted numerics not parsed: size=%.2f price=%.2f", trades[0].Size, trades[0].Price)
	}
	if trades[0].Timestamp != 1700000000 {
		t.Errorf("timestamp: got %d", trades[0].Timestamp)
	}
	if trades[1].ProxyWallet != "0xdef" || trades[1].Side != "SELL" {
		t.Errorf("second trade fields not mapped: %+v", trades[1])
	}
}

func TestDecodeStreamTradesEnvelope(t *testing.T) {
	msg := []byte(`{"topic":"activity","type":"trades","payload":{"proxyWallet":"0xabc","conditionId":"0xc1","side":"BUY","size":250,"price":0.8,"timestamp":1700000500,"outcome":"Yes"}}`)

	trades, ok := decodeStreamTrades(msg)
	if !ok {
		t.Fatal("expected message to decode")
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if trades[0].Size != 250 || trades[0].Price != 0.8 {
		t.Errorf("bare numerics not parsed: size=%.2f price=%.2f", trades[0].Size, trades[0].Price)
	}
	if trades[0].Timestamp != 1700000500 {
		t.Errorf("timestamp: got %d", trades[0].Timestamp)
	}
}

func TestDecodeStreamTradesEnvelopeArray(t *testing.T) {
	msg := []byte(`{"topic":"activity","type":"trades","payload":[{"proxyWallet":"0xabc","conditionId":"0xc1","size":"10","price":"0.5","timestamp":"1700000000"}]}`)

	trades, ok := decodeStreamTrades(msg)
	if !ok {
		t.Fatal("expected message to decode")
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
}

func TestDecodeStreamTradesChannelNoise(t *testing.T) {
	// Book updates carry no wallet and should yield an empty, valid batch.
	msg := []byte(`{"market":"0xc1","event_type":"book","bids":[{"price":"0.48","size":"100"}],"asks":[]}`)

	trades, ok := decodeStreamTrades(msg)
	if !ok {
		t.Fatal("book noise should still count as a recognized message")
	}
	if len(trades) != 0 {
		t.Errorf("book noise should yield no trades, got %d", len(trades))
	}
}

func TestDecodeStreamTradesInvalidJSON(t *testing.T) {
	if _, ok := decodeStreamTrades([]byte(`{not json`)); ok {
		t.Error("malformed message should not decode")
	}
}

func TestDecodeStreamTradesFractionalTimestamp(t *testing.T) {
	msg := []byte(`[{"proxyWallet":"0xabc","conditionId":"0xc1","size":"10","price":"0.5","timestamp":"1700000000.75"}]`)

	trades, ok := decodeStreamTrades(msg)
	if !ok || len(trades) != 1 {
		t.Fatalf("decode failed: ok=%v trades=%d", ok, len(trades))
	}
	if trades[0].Timestamp != 1700000000 {
		t.Errorf("fractional timestamp should truncate: got %d", trades[0].Timestamp)
	}
}

func TestStreamSourceNextDrainsBuffer(t *testing.T) {
	s := NewStreamSource("wss://example.test/ws", 8, logrus.New())

	s.events <- dataapi.Trade{ProxyWallet: "0xabc", ConditionID: "0xc1"}
	s.events <- dataapi.Trade{ProxyWallet: "0xdef", ConditionID: "0xc2"}
	s.events <- dataapi.Trade{ProxyWallet: "0xabc", ConditionID: "0xc3"}

	batch, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("got %d trades, want 3", len(batch))
	}

	empty, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("second drain should be empty, got %d", len(empty))
	}
}

func TestStreamSourceDropsWhenFull(t *testing.T) {
	s := NewStreamSource("wss://example.test/ws", 1, logrus.New())

	msg := []byte(`[
		{"proxyWallet":"0xabc","conditionId":"0xc1","size":"10","price":"0.5","timestamp":"1700000000"},
		{"proxyWallet":"0xdef","conditionId":"0xc2","size":"20","price":"0.5","timestamp":"1700000001"}
	]`)
	s.handle(msg)

	batch, _ := s.Next(context.Background())
	if len(batch) != 1 {
		t.Fatalf("full buffer should keep exactly one trade, got %d", len(batch))
	}
	if batch[0].ProxyWallet != "0xabc" {
		t.Errorf("first trade should survive, got %s", batch[0].ProxyWallet)
	}
}
