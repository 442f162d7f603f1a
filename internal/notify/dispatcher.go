package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/scheduler"
)

type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, p Payload) error
}

type Dispatcher struct {
	events     <-chan scheduler.Event
	deliverers []Deliverer
	logger     zerolog.Logger
	metrics    *Metrics
}

func NewDispatcher(events <-chan scheduler.Event, logger zerolog.Logger, metrics *Metrics, deliverers ...Deliverer) *Dispatcher {
	return &Dispatcher{
		events:     events,
		deliverers: deliverers,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
		metrics:    metrics,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev scheduler.Event) {
	p, err := DecodePayload(ev)
	if err != nil {
		d.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("undecodable notification")
		return
	}
	for _, del := range d.deliverers {
		if err := del.Deliver(ctx, p); err != nil {
			d.metrics.incDelivered(del.Name(), false)
			d.logger.Warn().Err(err).Str("event_id", ev.ID).Str("deliverer", del.Name()).Msg("delivery failed")
			continue
		}
		d.metrics.incDelivered(del.Name(), true)
	}
}

// ChannelDeliverer forwards payloads to an in-process consumer such as
// the terminal UI. Events already seen are not forwarded again. Only the
// newest day's event IDs are remembered.
type ChannelDeliverer struct {
	out  chan Payload
	mu   sync.Mutex
	seen map[string]map[string]bool
}

func NewChannelDeliverer(buffer int) *ChannelDeliverer {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelDeliverer{out: make(chan Payload, buffer), seen: make(map[string]map[string]bool)}
}

func (c *ChannelDeliverer) C() <-chan Payload { return c.out }

func (c *ChannelDeliverer) Name() string { return "ui" }

func (c *ChannelDeliverer) Deliver(ctx context.Context, p Payload) error {
	if !c.markSeen(p.Event) {
		return nil
	}
	select {
	case c.out <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *ChannelDeliverer) markSeen(ev model.NotificationEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for date := range c.seen {
		if model.CompareDateKeys(date, ev.Date) < 0 {
			delete(c.seen, date)
		}
	}
	ids := c.seen[ev.Date]
	if ids == nil {
		ids = make(map[string]bool)
		c.seen[ev.Date] = ids
	}
	if ids[ev.ID] {
		return false
	}
	ids[ev.ID] = true
	return true
}

func (c *ChannelDeliverer) trackedDays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
