package ingest

import (
	"context"
	"fmt"
)

// redriveBatchSize is how many unprocessed events each pass picks up.
const redriveBatchSize = 100

// Redrive re-applies fan-out for events that were persisted but never
// marked processed, e.g. after a crash between the insert and the fan-out
// transaction. Run at startup before accepting new writes.
//
// Winner determinations are not re-derived here: if a crash ate one, the
// state-resolution collaborator re-supplies it through ApplyStateWinner.
// Everything else fan-out writes is reconstructed from the event itself.
func (in *Ingester) Redrive(ctx context.Context) (int, error) {
	total := 0
	for {
		batch, err := in.store.UnprocessedEvents(ctx, redriveBatchSize)
		if err != nil {
			return total, fmt.Errorf("list unprocessed events: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		for _, e := range batch {
			if err := in.fanout(ctx, e, false); err != nil {
				return total, fmt.Errorf("redrive %s: %w", e.EventID, err)
			}
			total++
			in.logger.Info("re-drove unprocessed event", "event_id", e.EventID, "room_id", e.RoomID)
		}

		if len(batch) < redriveBatchSize {
			return total, nil
		}
	}
}
