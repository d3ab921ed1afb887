package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("component", "valuator"))
	l.Info("valuation complete", Float("price", 21450.5), Int("age", 6), Error(errors.New("boom")))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "valuator" || entry["price"] != 21450.5 || entry["age"] != float64(6) {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "autovalue.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("predict failed", String("make", "BMW"))
	}
	l.Error("store failed")
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 || pub.topics[0] != "autovalue.logs" {
		t.Fatalf("expected one batch on autovalue.logs, got %d", len(pub.batches))
	}
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	if counts["predict failed"] != 3 || counts["store failed"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("expected a single batch of 2, got %v", pub.batches)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
