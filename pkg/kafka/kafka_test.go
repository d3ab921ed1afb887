package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type countingHandler struct {
	topic string
	fails int
	calls int
	panic bool
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.panic {
		panic("bad payload")
	}
	if h.calls <= h.fails {
		return errors.New("transient")
	}
	return nil
}

func testConsumer(retries int) (*Consumer, *fakeReader, *fakeWriter) {
	c := newConsumer(&ConsumerConfig{
		WorkerCount: 1,
		BufferSize:  1,
		RetryMax:    retries,
		BackoffMin:  time.Millisecond,
		BackoffMax:  time.Millisecond,
		DLQTopic:    "autovalue.dlq",
	})
	r, dlq := &fakeReader{}, &fakeWriter{}
	c.readers["requests"] = r
	c.dlq = dlq
	return c, r, dlq
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip", nil)

	require.NoError(t, p.Publish(context.Background(), "events", []byte("k1"), map[string]int{"price": 1}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "events", w.msgs[0].Topic)
	assert.Equal(t, []byte("k1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"price":1}`, string(w.msgs[0].Value))
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
}

func TestProducerWrapsWriteError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "gzip", nil)
	err := p.Publish(context.Background(), "events", nil, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events")
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	c, r, dlq := testConsumer(3)
	h := &countingHandler{topic: "requests", fails: 2}
	c.RegisterHandler(h)

	c.process(kafka.Message{Topic: "requests", Value: []byte("{}")})
	assert.Equal(t, 3, h.calls)
	assert.Len(t, r.committed, 1)
	assert.Empty(t, dlq.msgs)
}

func TestConsumerDeadLettersAfterRetries(t *testing.T) {
	c, r, dlq := testConsumer(1)
	h := &countingHandler{topic: "requests", fails: 10}
	c.RegisterHandler(h)

	c.process(kafka.Message{Topic: "requests", Value: []byte("nope")})
	assert.Equal(t, 2, h.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "autovalue.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte("nope"), dlq.msgs[0].Value)
	assert.Len(t, r.committed, 1)
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	c, _, dlq := testConsumer(0)
	c.RegisterHandler(&countingHandler{topic: "requests", panic: true})

	c.process(kafka.Message{Topic: "requests", Value: []byte("x")})
	assert.Len(t, dlq.msgs, 1)
}

func TestConsumerStopDrains(t *testing.T) {
	c, _, _ := testConsumer(0)
	c.RegisterHandler(&countingHandler{topic: "requests"})
	c.run()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestHookChainConvertsPanic(t *testing.T) {
	var after []string
	chain := NewHookChain(
		HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { after = append(after, "first") }},
		HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { after = append(after, "second") }},
		nil,
	)
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	assert.Equal(t, []string{"second", "first"}, after)

	bad := NewHookChain(HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("boom")
	}})
	_, _, _, err := bad.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var herr *HookError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ERR_PANIC", herr.Code)
}

func TestTraceHookCarriesTraceID(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "t", msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.True(t, d > 0 && d <= 100*time.Millisecond, "attempt %d gave %v", attempt, d)
	}
}
