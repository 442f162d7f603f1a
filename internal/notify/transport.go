package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/scheduler"
)

type Payload struct {
	Title string                  `json:"title"`
	Body  string                  `json:"body"`
	Event model.NotificationEvent `json:"event"`
}

func PayloadFor(ev model.NotificationEvent) Payload {
	name := ev.Prayer.Title()
	at := ev.PrayerAt.Format("15:04")
	switch ev.Kind {
	case model.EventKindBefore:
		lead := int(ev.PrayerAt.Sub(ev.FiresAt).Round(time.Minute) / time.Minute)
		return Payload{
			Title: fmt.Sprintf("%s in %d minutes", name, lead),
			Body:  fmt.Sprintf("%s starts at %s", name, at),
			Event: ev,
		}
	default:
		return Payload{
			Title: fmt.Sprintf("Have you prayed %s?", name),
			Body:  fmt.Sprintf("%s started at %s", name, at),
			Event: ev,
		}
	}
}

type Transport interface {
	ScheduleOneShot(ctx context.Context, id string, firesAt time.Time, payload Payload) error
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}

type EngineTransport struct {
	engine *scheduler.Engine
}

func NewEngineTransport(engine *scheduler.Engine) *EngineTransport {
	return &EngineTransport{engine: engine}
}

func (t *EngineTransport) ScheduleOneShot(_ context.Context, id string, firesAt time.Time, payload Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return t.engine.Schedule(scheduler.Event{ID: id, TriggerAt: firesAt, Payload: raw})
}

func (t *EngineTransport) Cancel(_ context.Context, id string) error {
	t.engine.Cancel(id)
	return nil
}

func (t *EngineTransport) CancelAll(_ context.Context) error {
	t.engine.CancelAll()
	return nil
}

func DecodePayload(ev scheduler.Event) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload %s: %w", ev.ID, err)
	}
	return p, nil
}
