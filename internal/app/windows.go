package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/scheduler"
)

// WithWindowEngine arms a wake-up at each unmarked prayer instant so the
// reminder window opens on time instead of on the next reconcile.
func WithWindowEngine(engine *scheduler.Engine) Option {
	return func(s *Service) { s.windows = engine }
}

func windowID(date string, p model.PrayerName) string {
	return fmt.Sprintf("%s-%s-window", date, p)
}

func (s *Service) armWindows(instants model.PrayerInstants, rec model.CompletionRecord) int {
	if s.windows == nil {
		return 0
	}
	now := s.now()
	armed := 0
	for _, p := range model.DailyPrayers {
		id := windowID(instants.Date, p)
		at, _ := instants.At(p)
		if rec.Prayers.Get(p) || !at.After(now) {
			s.windows.Cancel(id)
			continue
		}
		if err := s.windows.Schedule(scheduler.Event{ID: id, TriggerAt: at}); err != nil {
			s.logger.Warn().Err(err).Str("event_id", id).Msg("arm prayer window failed")
			continue
		}
		armed++
	}
	return armed
}

func (s *Service) OpenWindow(ctx context.Context) error {
	now := s.now().In(s.zone)
	instants, err := s.provider.PrayerTimes(ctx, s.Location(), now)
	if err != nil {
		return fmt.Errorf("resolve prayer times: %w", err)
	}
	ns, err := s.settings.Notifications(ctx)
	if err != nil {
		return err
	}
	reminders, err := s.notifier.ScheduleReminders(ctx, instants, ns, s.completion.Record(now))
	if err != nil {
		return err
	}
	s.logger.Info().Str("date", instants.Date).Int("reminders", len(reminders)).Msg("prayer window opened")
	return nil
}

func (s *Service) RunWindows(ctx context.Context) {
	if s.windows == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.windows.C():
			if !ok {
				return
			}
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := s.OpenWindow(runCtx); err != nil {
				s.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("open prayer window failed")
			}
			cancel()
		}
	}
}
