package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrNoTopics       = errors.New(errors.ErrCodeValidation, "consumer needs at least one topic")
)

// Header keys set on dead-lettered messages.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
	HeaderAttempts      = "attempts"
)

const maxRetryBackoff = 30 * time.Second

// Reader abstracts kafka.Reader for testing.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerStats is a snapshot of the consumer counters.
type ConsumerStats struct {
	Consumed     int64
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
}

// Consumer reads a consumer group's topics and dispatches each message to the
// handler subscribed for its topic. A failing handler is retried with
// exponential backoff; once retries run out the message is published to the
// topic's dead-letter queue. The offset is committed either way so one bad
// job never blocks a partition.
type Consumer struct {
	reader Reader
	dlq    Publisher
	logger logging.Logger

	maxRetries int
	backoff    time.Duration

	handlers map[string]common.MessageHandler
	mu       sync.RWMutex

	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	consumed     atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
}

// NewConsumer joins cfg.GroupID on topics. dlq may be nil, in which case
// exhausted messages are dropped after logging.
func NewConsumer(cfg config.KafkaConfig, topics []string, dlq Publisher, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group_id required")
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	start := kafka.FirstOffset
	switch cfg.AutoOffsetReset {
	case "", "earliest":
	case "latest":
		start = kafka.LastOffset
	default:
		return nil, errors.New(errors.ErrCodeValidation, "kafka auto_offset_reset must be earliest or latest")
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       topics,
		MinBytes:          1,
		MaxBytes:          10 << 20,
		MaxWait:           500 * time.Millisecond,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		StartOffset:       start,
		Dialer:            &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
	})
	return NewConsumerWithReader(r, cfg, dlq, logger), nil
}

// NewConsumerWithReader wraps an existing reader; only the retry settings of
// cfg are used.
func NewConsumerWithReader(r Reader, cfg config.KafkaConfig, dlq Publisher, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Consumer{
		reader:     r,
		dlq:        dlq,
		logger:     logger,
		maxRetries: retries,
		backoff:    backoff,
		handlers:   make(map[string]common.MessageHandler),
	}
}

// Subscribe routes messages of topic to handler, replacing any previous one.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the fetch loop. It returns immediately; call Close to stop.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.loop(ctx)
	c.logger.Info("kafka consumer started")
	return nil
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		c.consumed.Add(1)
		c.handle(ctx, m)
		if ctx.Err() != nil {
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	msg := fromKafkaMessage(m)

	c.mu.RLock()
	handler, ok := c.handlers[m.Topic]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		return
	}

	attempts, err := c.process(ctx, msg, handler)
	if err == nil {
		c.processed.Add(1)
		return
	}
	if ctx.Err() != nil {
		return
	}
	c.failed.Add(1)
	c.logger.Error("message failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	c.deadLetter(ctx, msg, attempts, err)
}

// process runs handler until it succeeds or maxRetries retries have failed.
func (c *Consumer) process(ctx context.Context, msg *common.Message, handler common.MessageHandler) (int, error) {
	backoff := c.backoff
	attempts := 0
	for {
		attempts++
		err := handler(ctx, msg)
		if err == nil {
			return attempts, nil
		}
		if attempts > c.maxRetries {
			return attempts, err
		}
		c.retried.Add(1)
		if !sleep(ctx, backoff) {
			return attempts, ctx.Err()
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg *common.Message, attempts int, cause error) {
	if c.dlq == nil {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorMessage] = cause.Error()
	headers[HeaderAttempts] = strconv.Itoa(attempts)

	err := c.dlq.Publish(ctx, &common.ProducerMessage{
		Topic:   DLQTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		c.logger.Error("dead-letter publish failed", logging.String("topic", msg.Topic), logging.Err(err))
		return
	}
	c.deadLettered.Add(1)
}

// Stats returns the current counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:     c.consumed.Load(),
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
	}
}

// Close stops the loop, waits for the in-flight message and closes the
// reader. It is idempotent.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		if c.running.CompareAndSwap(true, false) && c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		c.closeErr = c.reader.Close()
		c.logger.Info("kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	})
	return c.closeErr
}

func fromKafkaMessage(m kafka.Message) *common.Message {
	msg := &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// sleep waits d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

//Personal.AI order the ending
