package events

import (
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const QueueName = "events"

type Event struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Params    map[string]string `json:"params"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewEvent(name string, params map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Params:    params,
		Timestamp: time.Now(),
	}
}

// Sink records analytics events without blocking the caller on delivery
type Sink interface {
	Log(name string, params map[string]string)
}

type NoopSink struct{}

func (NoopSink) Log(string, map[string]string) {}

// QueueSink publishes events onto the rmq events queue for the events consumer
type QueueSink struct {
	Queue rmq.Queue
}

func NewQueueSink(connection rmq.Connection) (*QueueSink, error) {
	queue, err := connection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}
	return &QueueSink{Queue: queue}, nil
}

func (s *QueueSink) Log(name string, params map[string]string) {
	eventBytes, err := json.Marshal(NewEvent(name, params))
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("Failed to encode event")
		return
	}

	if err := s.Queue.PublishBytes(eventBytes); err != nil {
		log.Error().Err(err).Str("event", name).Msg("Failed to publish event")
	}
}
