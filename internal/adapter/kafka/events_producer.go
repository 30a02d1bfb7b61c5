package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.RemovalEventsProducer = (*RemovalEventsProducer)(nil)

type removalEvent struct {
	SKU        string    `json:"sku"`
	ImageID    int64     `json:"image_id"`
	Status     string    `json:"status"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RemovalEventsProducer publishes terminal removal outcomes for
// downstream consumers. Records are keyed by image id.
type RemovalEventsProducer struct {
	cl ProducerClient
}

func NewRemovalEventsProducer(
	opts ...ProducerOpt,
) (RemovalEventsProducer, error) {
	const op = "NewRemovalEventsProducer"

	if len(opts) != 1 {
		panic(opErr(op, ErrTooFewOpts)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return RemovalEventsProducer{}, opErr(op, err)
		}
	}
	return RemovalEventsProducer{options.cl}, nil
}

func (p RemovalEventsProducer) Close() {
	const op = "RemovalEventsProducer.Close"
	log := slog.With("op", op)
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p RemovalEventsProducer) ProduceRemovalEvent(
	ctx context.Context, evt domain.RemovalEvent,
) error {
	const op = "RemovalEventsProducer.ProduceRemovalEvent"

	if err := ctx.Err(); err != nil {
		return opErr(op, err)
	}

	r, err := p.createRecord(evt)
	if err != nil {
		return opErr(op, err)
	}

	res := p.cl.ProduceSync(ctx, r)
	if err := res.FirstErr(); err != nil {
		return opErr(op, err)
	}
	return nil
}

func (p RemovalEventsProducer) createRecord(
	evt domain.RemovalEvent,
) (*kgo.Record, error) {
	v, err := json.Marshal(p.toEvent(evt))
	if err != nil {
		return nil, err
	}
	key := []byte(strconv.FormatInt(evt.ImageID, 10))
	return &kgo.Record{Key: key, Value: v}, nil
}

func (RemovalEventsProducer) toEvent(evt domain.RemovalEvent) removalEvent {
	return removalEvent{
		SKU:        evt.SKU,
		ImageID:    evt.ImageID,
		Status:     string(evt.Status),
		Provider:   evt.Provider,
		OccurredAt: evt.OccurredAt,
	}
}
