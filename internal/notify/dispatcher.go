// README: Outbox dispatcher; drains staged events and publishes them after
// the owning transaction has committed.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Source is the read side of the outbox.
type Source interface {
	PendingBatch(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []string) error
}

type Dispatcher struct {
	source    Source
	publisher Publisher
	log       *logrus.Logger
	tick      time.Duration
	batch     int
	kick      chan struct{}
}

func NewDispatcher(source Source, publisher Publisher, log *logrus.Logger, tick time.Duration, batch int) *Dispatcher {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	if batch <= 0 {
		batch = 100
	}
	return &Dispatcher{
		source:    source,
		publisher: publisher,
		log:       log,
		tick:      tick,
		batch:     batch,
		kick:      make(chan struct{}, 1),
	}
}

// Kick asks the dispatcher to drain soon instead of waiting for the next
// tick. Safe to call from request handlers; never blocks.
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run drains the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		d.drain(ctx)
	}
}

// drain publishes one batch. A failed publish leaves the row pending; it is
// retried on the next pass, so delivery from the outbox is at-least-once.
func (d *Dispatcher) drain(ctx context.Context) {
	events, err := d.source.PendingBatch(ctx, d.batch)
	if err != nil {
		d.log.WithError(err).Warn("outbox read failed")
		return
	}

	published := make([]string, 0, len(events))
	for _, ev := range events {
		if err := d.publisher.Publish(ctx, ev.Channel, ev.Payload); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"event_id": ev.ID,
				"channel":  ev.Channel,
			}).Warn("publish failed, will retry")
			continue
		}
		published = append(published, ev.ID)
	}

	if len(published) == 0 {
		return
	}
	if err := d.source.MarkPublished(ctx, published); err != nil {
		d.log.WithError(err).Warn("outbox settle failed")
	}
}
