package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
)

const indexPrefix = "hkbuseta-events"

// BatchConsumer decodes analytics events and hands each to Index, keyed by a monthly index name
type BatchConsumer struct {
	Debug bool
	Index func(indexName string, document io.ReadSeeker)
}

func NewBatchConsumer(debug bool, index func(indexName string, document io.ReadSeeker)) *BatchConsumer {
	return &BatchConsumer{Debug: debug, Index: index}
}

func IndexName(event Event) string {
	return fmt.Sprintf("%s-%s", indexPrefix, event.Timestamp.UTC().Format("2006-01"))
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()
	counts := map[string]int{}

	for _, payload := range payloads {
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Debug().Err(err).Msg("Skipping malformed event")
			continue
		}
		counts[event.Name]++

		if consumer.Debug {
			pretty.Println(event)
		}

		if consumer.Index != nil {
			consumer.Index(IndexName(event), bytes.NewReader([]byte(payload)))
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to acknowledge event")
		}
	}

	log.Info().Int("size", len(payloads)).Interface("events", counts).Msg("Consumed event batch")
}
