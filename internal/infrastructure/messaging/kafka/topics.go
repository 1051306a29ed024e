package kafka

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
	"github.com/turtacn/smartscanon/pkg/types/canon"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

// Topic names.
const (
	TopicPatternRequested  = "canon.pattern.requested"
	TopicReactionRequested = "canon.reaction.requested"
	TopicResults           = "canon.results"

	DLQSuffix = ".dlq"
)

// Header keys set on job and result messages.
const (
	HeaderJobID  = "job_id"
	HeaderKind   = "kind"
	HeaderSchema = "schema_version"

	schemaVersion = "v1"
)

// DLQTopic returns the dead-letter topic of topic.
func DLQTopic(topic string) string { return topic + DLQSuffix }

// RequestTopic returns the request topic for jobs of kind.
func RequestTopic(kind canon.Kind) string {
	if kind == canon.KindReaction {
		return TopicReactionRequested
	}
	return TopicPatternRequested
}

// JobMessage encodes job for its request topic, keyed by job id.
func JobMessage(job *canon.Job) (*common.ProducerMessage, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job")
	}
	return &common.ProducerMessage{
		Topic: RequestTopic(job.Kind),
		Key:   []byte(job.JobID.String()),
		Value: data,
		Headers: map[string]string{
			HeaderJobID:  job.JobID.String(),
			HeaderKind:   string(job.Kind),
			HeaderSchema: schemaVersion,
		},
		Timestamp: job.CreatedAt,
	}, nil
}

// DecodeJob parses a job received from a request topic.
func DecodeJob(msg *common.Message) (*canon.Job, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty job message")
	}
	var job canon.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode job")
	}
	if job.Kind == "" {
		job.Kind = canon.Kind(msg.Headers[HeaderKind])
	}
	return &job, nil
}

// ResultMessage encodes res for the results topic.
func ResultMessage(res *canon.JobResult) (*common.ProducerMessage, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job result")
	}
	return &common.ProducerMessage{
		Topic: TopicResults,
		Key:   []byte(res.JobID.String()),
		Value: data,
		Headers: map[string]string{
			HeaderJobID:  res.JobID.String(),
			HeaderSchema: schemaVersion,
		},
		Timestamp: res.FinishedAt,
	}, nil
}

// DecodeResult parses a message from the results topic.
func DecodeResult(msg *common.Message) (*canon.JobResult, error) {
	var res canon.JobResult
	if err := json.Unmarshal(msg.Value, &res); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode job result")
	}
	return &res, nil
}

// PublishJob queues job on its request topic.
func (p *Producer) PublishJob(ctx context.Context, job *canon.Job) error {
	msg, err := JobMessage(job)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// PublishResult publishes res on the results topic.
func (p *Producer) PublishResult(ctx context.Context, res *canon.JobResult) error {
	msg, err := ResultMessage(res)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopics lists the request, result and dead-letter topics.
func DefaultTopics(partitions int) []TopicSpec {
	if partitions <= 0 {
		partitions = 3
	}
	const week = 7 * 24 * 3600 * 1000
	var out []TopicSpec
	for _, name := range []string{TopicPatternRequested, TopicReactionRequested, TopicResults} {
		out = append(out,
			TopicSpec{Name: name, NumPartitions: partitions, ReplicationFactor: 1, RetentionMs: week},
			TopicSpec{Name: DLQTopic(name), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 4 * week},
		)
	}
	return out
}

// Conn abstracts kafka.Conn for testing.
type Conn interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates topics on the cluster.
type TopicManager struct {
	conn   Conn
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(ctx context.Context, brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka")
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

// NewTopicManagerWithConn wraps an open connection.
func NewTopicManagerWithConn(conn Conn, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}
}

// EnsureTopics creates every missing topic in specs. Topics that already
// exist are left as they are.
func (m *TopicManager) EnsureTopics(ctx context.Context, specs []TopicSpec) error {
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if spec.Name == "" || spec.NumPartitions <= 0 || spec.ReplicationFactor <= 0 {
			return errors.New(errors.ErrCodeValidation, "invalid topic spec").WithDetail(spec.Name)
		}
		if m.exists(spec.Name) {
			continue
		}
		tc := kafka.TopicConfig{
			Topic:             spec.Name,
			NumPartitions:     spec.NumPartitions,
			ReplicationFactor: spec.ReplicationFactor,
		}
		if spec.RetentionMs > 0 {
			tc.ConfigEntries = append(tc.ConfigEntries, kafka.ConfigEntry{
				ConfigName:  "retention.ms",
				ConfigValue: strconv.FormatInt(spec.RetentionMs, 10),
			})
		}
		if err := m.conn.CreateTopics(tc); err != nil {
			if stdliberrors.Is(err, kafka.TopicAlreadyExists) {
				continue
			}
			return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create topic").WithDetail(spec.Name)
		}
		m.logger.Info("topic created", logging.String("topic", spec.Name))
	}
	return nil
}

func (m *TopicManager) exists(name string) bool {
	parts, err := m.conn.ReadPartitions(name)
	return err == nil && len(parts) > 0
}

// Close closes the connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

//Personal.AI order the ending
