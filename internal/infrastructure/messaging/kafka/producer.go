// Package kafka carries canonicalization jobs and their results over Apache
// Kafka using segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeMessagingError, "producer closed")
	ErrPublishFailed  = errors.New(errors.ErrCodeMessagingError, "publish failed")
)

// maxMessageBytes mirrors the broker default message.max.bytes.
const maxMessageBytes = 1 << 20

// Writer abstracts kafka.Writer for testing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is what the consumer needs to dead-letter a message.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// ProducerStats is a snapshot of the producer counters.
type ProducerStats struct {
	MessagesSent   int64
	MessagesFailed int64
	BytesSent      int64
	LastLatency    time.Duration
}

// Producer publishes messages to Kafka.
type Producer struct {
	writer Writer
	logger logging.Logger
	closed atomic.Bool

	sent    atomic.Int64
	failed  atomic.Int64
	bytes   atomic.Int64
	latency atomic.Int64
}

// NewProducer builds a producer over a hash-balanced kafka.Writer, so jobs
// with the same key land on the same partition.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.ProducerRetries < 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka producer_retries must be >= 0")
	}
	retries := cfg.ProducerRetries
	if retries == 0 {
		retries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 50 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            retries + 1,
		BatchSize:              batchSize,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
		Transport:              &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	return NewProducerWithWriter(w, logger), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w Writer, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, logger: logger}
}

// Publish writes one message and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, msg *common.ProducerMessage) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg == nil || msg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "value required")
	}
	if len(msg.Value) > maxMessageBytes {
		return errors.New(errors.ErrCodeValidation, "message too large")
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.failed.Add(1)
		return ErrPublishFailed.WithDetail(msg.Topic).WithCause(err)
	}
	elapsed := time.Since(start)
	p.sent.Add(1)
	p.bytes.Add(int64(len(msg.Value)))
	p.latency.Store(int64(elapsed))

	p.logger.Debug("message published",
		logging.String("topic", msg.Topic),
		logging.Duration("latency", elapsed))
	return nil
}

// PublishJSON encodes v as JSON and publishes it under key.
func (p *Producer) PublishJSON(ctx context.Context, topic, key string, v any, headers map[string]string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode message")
	}
	return p.Publish(ctx, &common.ProducerMessage{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	})
}

// PublishBatch writes msgs in one call and returns how many failed.
func (p *Producer) PublishBatch(ctx context.Context, msgs []*common.ProducerMessage) (int, error) {
	if p.closed.Load() {
		return 0, ErrProducerClosed
	}
	if len(msgs) == 0 {
		return 0, errors.New(errors.ErrCodeValidation, "messages empty")
	}
	batch := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		batch[i] = toKafkaMessage(m)
	}

	err := p.writer.WriteMessages(ctx, batch...)
	if err == nil {
		p.sent.Add(int64(len(msgs)))
		return 0, nil
	}
	var werrs kafka.WriteErrors
	if !stdliberrors.As(err, &werrs) {
		p.failed.Add(int64(len(msgs)))
		return len(msgs), ErrPublishFailed.WithCause(err)
	}
	failed := werrs.Count()
	p.sent.Add(int64(len(msgs) - failed))
	p.failed.Add(int64(failed))
	p.logger.Warn("batch partially published",
		logging.Int("failed", failed),
		logging.Int("total", len(msgs)))
	return failed, ErrPublishFailed.WithCause(err)
}

// Stats returns the current counters.
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesSent:   p.sent.Load(),
		MessagesFailed: p.failed.Load(),
		BytesSent:      p.bytes.Load(),
		LastLatency:    time.Duration(p.latency.Load()),
	}
}

// Close flushes pending writes and closes the writer. It is idempotent.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}

func toKafkaMessage(msg *common.ProducerMessage) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

//Personal.AI order the ending
