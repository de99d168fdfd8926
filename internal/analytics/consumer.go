package analytics

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/kafka"
)

// HandleMessage returns a kafka handler that records each search event
// published by a search service into aggregator.
func HandleMessage(aggregator *Aggregator) kafka.MessageHandler {
	return func(_ context.Context, _, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			return err
		}
		aggregator.Record(event)
		return nil
	}
}
