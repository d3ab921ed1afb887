package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "AutoValue/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fans messages from topic readers out to a worker pool. Failed
// messages are retried with backoff, then written to the DLQ and committed.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]messageReader
	handlers map[string]MessageHandler
	msgs     chan kafka.Message
	dlq      messageWriter
	hook     ConsumerHook
	logger   *applogger.Logger
	metrics  *consumerMetrics

	partMu    sync.Mutex
	partLocks map[string]*sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a consumer. Brokers are required.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "autovalue",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := newConsumer(cfg)
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}, AllowAutoTopicCreation: true}
	}
	return c, nil
}

func newConsumer(cfg *ConsumerConfig) *Consumer {
	logger := cfg.Logger
	if logger == nil {
		logger = applogger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		cfg:       cfg,
		readers:   make(map[string]messageReader),
		handlers:  make(map[string]MessageHandler),
		msgs:      make(chan kafka.Message, cfg.BufferSize),
		hook:      NoopHook{},
		logger:    logger,
		metrics:   newConsumerMetrics(cfg.Registerer),
		partLocks: make(map[string]*sync.Mutex),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RegisterHandler registers a handler for its topic. Call before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.logger.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start opens one reader per registered topic and starts the workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	for topic := range c.handlers {
		if _, ok := c.readers[topic]; ok {
			continue
		}
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}
	c.run()
	return nil
}

func (c *Consumer) run() {
	var readers sync.WaitGroup
	for topic, r := range c.readers {
		readers.Add(1)
		go func(topic string, r messageReader) {
			defer readers.Done()
			c.read(topic, r)
		}(topic, r)
	}
	// workers drain msgs until every reader has returned
	go func() {
		readers.Wait()
		close(c.msgs)
	}()
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.work()
	}
	c.logger.Info("kafka consumer started",
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group", c.cfg.GroupID),
	)
}

// Stop stops fetching, waits for in-flight messages and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.logger.Warn("close kafka reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.logger.Warn("close dlq writer", applogger.Error(err))
			}
		}
		c.logger.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) read(topic string, r messageReader) {
	for {
		msg, err := r.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
				continue
			case <-c.ctx.Done():
				return
			}
		}
		select {
		case c.msgs <- msg:
			c.metrics.queueDepth.WithLabelValues(topic).Set(float64(len(c.msgs)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) work() {
	defer c.wg.Done()
	for msg := range c.msgs {
		c.process(msg)
	}
}

// process handles one message. Messages are committed on success or once
// they have been dead-lettered.
func (c *Consumer) process(msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()

	// one in-flight message per partition keeps ordering
	pl := c.partitionLock(msg.Topic, msg.Partition)
	pl.Lock()
	defer pl.Unlock()

	err := c.handleWithRetry(handler, msg)
	result := "ok"
	if err != nil {
		result = "error"
		c.hook.OnError(context.Background(), msg.Topic, msg, msg.Value, err)
		c.logger.Error("kafka message failed", applogger.String("topic", msg.Topic), applogger.Error(err))
		if c.deadLetter(msg, err) {
			result = "dlq"
		}
	}
	if err == nil || result == "dlq" {
		c.commit(msg)
	}
	c.metrics.handled.WithLabelValues(msg.Topic, result).Inc()
	c.metrics.latency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleWithRetry(handler MessageHandler, msg kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = c.handleOnce(handler, msg)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		c.hook.OnError(c.ctx, msg.Topic, msg, msg.Value, err)
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.ctx.Done():
			return err
		}
	}
}

func (c *Consumer) handleOnce(handler MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	hctx, hmsg, data, err := c.hook.BeforeHandle(context.Background(), msg.Topic, msg, msg.Value)
	if err != nil {
		return err
	}
	err = handler.Handle(hctx, data)
	c.hook.AfterHandle(hctx, msg.Topic, hmsg, data, err)
	return err
}

func (c *Consumer) deadLetter(msg kafka.Message, cause error) bool {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.logger.Error("dlq write failed", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(msg kafka.Message) {
	r := c.readers[msg.Topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.logger.Error("kafka commit failed", applogger.String("topic", msg.Topic), applogger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", topic, partition)
	c.partMu.Lock()
	defer c.partMu.Unlock()
	l, ok := c.partLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[key] = l
	}
	return l
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := max
	if attempt < 30 {
		if e := min << uint(attempt-1); e > 0 && e < max {
			exp = e
		}
	}
	// up to 50% jitter
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

type consumerMetrics struct {
	queueDepth *prometheus.GaugeVec
	handled    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newConsumerMetrics(reg prometheus.Registerer) *consumerMetrics {
	f := promauto.With(reg)
	return &consumerMetrics{
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autovalue_kafka_consumer_queue_depth",
			Help: "Messages waiting for a worker",
		}, []string{"topic"}),
		handled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autovalue_kafka_consumer_messages_total",
			Help: "Messages handled by result",
		}, []string{"topic", "result"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "autovalue_kafka_consumer_handle_seconds",
			Help: "Handling time per message",
		}, []string{"topic"}),
	}
}
