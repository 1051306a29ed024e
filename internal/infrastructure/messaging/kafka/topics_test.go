package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/smartscanon/pkg/types/canon"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

type mockConn struct {
	existing  map[string]bool
	created   []kafka.TopicConfig
	createErr error
}

func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, topics...)
	return nil
}

func (m *mockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if len(topics) == 1 && m.existing[topics[0]] {
		return []kafka.Partition{{Topic: topics[0]}}, nil
	}
	return nil, errors.New("unknown topic")
}

func (m *mockConn) Close() error { return nil }

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "canon.results.dlq", DLQTopic(TopicResults))
	assert.Equal(t, TopicReactionRequested, RequestTopic(canon.KindReaction))
	assert.Equal(t, TopicPatternRequested, RequestTopic(canon.KindPattern))
}

func TestJobMessage_RoundTrip(t *testing.T) {
	job := canon.NewJob(canon.KindReaction, []canon.BatchItem{{ID: "1", Kind: canon.KindReaction, Text: "C>>O"}}, canon.Options{Mapping: canon.Bool(true)})
	pm, err := JobMessage(job)
	require.NoError(t, err)
	assert.Equal(t, TopicReactionRequested, pm.Topic)
	assert.Equal(t, job.JobID.String(), string(pm.Key))
	assert.Equal(t, "reaction", pm.Headers[HeaderKind])

	back, err := DecodeJob(&common.Message{Value: pm.Value, Headers: pm.Headers})
	require.NoError(t, err)
	assert.Equal(t, job.JobID, back.JobID)
	assert.Equal(t, job.Items, back.Items)
	require.NotNil(t, back.Options.Mapping)
	assert.True(t, *back.Options.Mapping)

	_, err = DecodeJob(&common.Message{})
	assert.Error(t, err)
	_, err = DecodeJob(&common.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestResultMessage_RoundTrip(t *testing.T) {
	res := &canon.JobResult{
		JobID:      uuid.New(),
		Results:    []canon.BatchResult{{Kind: canon.KindPattern, Input: "CC", Canonical: "[C][C]"}},
		Succeeded:  1,
		FinishedAt: time.Now().UTC(),
	}
	pm, err := ResultMessage(res)
	require.NoError(t, err)
	assert.Equal(t, TopicResults, pm.Topic)

	back, err := DecodeResult(&common.Message{Value: pm.Value})
	require.NoError(t, err)
	assert.Equal(t, res.JobID, back.JobID)
	assert.Equal(t, res.Results, back.Results)
}

func TestEnsureTopics(t *testing.T) {
	conn := &mockConn{existing: map[string]bool{TopicResults: true}}
	m := NewTopicManagerWithConn(conn, nil)

	specs := DefaultTopics(6)
	require.Len(t, specs, 6)
	require.NoError(t, m.EnsureTopics(context.Background(), specs))
	assert.Len(t, conn.created, 5)
	for _, tc := range conn.created {
		assert.NotEqual(t, TopicResults, tc.Topic)
		assert.Equal(t, "retention.ms", tc.ConfigEntries[0].ConfigName)
	}
	assert.NoError(t, m.Close())
}

func TestEnsureTopics_Errors(t *testing.T) {
	m := NewTopicManagerWithConn(&mockConn{createErr: kafka.TopicAlreadyExists}, nil)
	assert.NoError(t, m.EnsureTopics(context.Background(), DefaultTopics(1)))

	m = NewTopicManagerWithConn(&mockConn{createErr: errors.New("not controller")}, nil)
	assert.Error(t, m.EnsureTopics(context.Background(), DefaultTopics(1)))

	assert.Error(t, m.EnsureTopics(context.Background(), []TopicSpec{{Name: "x"}}))
}

//Personal.AI order the ending
