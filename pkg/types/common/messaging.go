package common

import (
	"context"
	"time"
)

// Message is a record received from the queue.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one message. A non-nil error triggers a retry.
type MessageHandler func(ctx context.Context, msg *Message) error

//Personal.AI order the ending
