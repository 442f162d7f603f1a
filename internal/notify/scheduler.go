package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

const PendingKey = "notifications:pending"

type InstantsLookup interface {
	InstantsFor(ctx context.Context, date time.Time) (model.PrayerInstants, error)
}

type SettingsSource interface {
	Notifications(ctx context.Context) (model.NotificationSettings, error)
}

// Scheduler plans notification events and keeps the persisted pending set
// and the transport in step. The pending set is written before the
// transport is touched, so a restart can always rebuild the armed state
// from storage.
type Scheduler struct {
	transport Transport
	kv        storage.KV
	logger    zerolog.Logger
	metrics   *Metrics
	now       func() time.Time
	zone      *time.Location

	lookup   InstantsLookup
	settings SettingsSource

	mu sync.Mutex
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithZone(zone *time.Location) Option {
	return func(s *Scheduler) {
		if zone != nil {
			s.zone = zone
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithPlanInputs(lookup InstantsLookup, settings SettingsSource) Option {
	return func(s *Scheduler) {
		s.lookup = lookup
		s.settings = settings
	}
}

func NewScheduler(transport Transport, kv storage.KV, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		transport: transport,
		kv:        kv,
		logger:    logger.With().Str("component", "notify").Logger(),
		now:       time.Now,
		zone:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) PlanDay(instants model.PrayerInstants, settings model.NotificationSettings) []model.NotificationEvent {
	if !settings.Enabled {
		return nil
	}
	now := s.now()
	out := make([]model.NotificationEvent, 0, len(model.DailyPrayers))
	for _, p := range model.DailyPrayers {
		at, _ := instants.At(p)
		fires := at.Add(-settings.Lead())
		if !fires.After(now) {
			s.metrics.incSkipped(model.EventKindBefore)
			continue
		}
		out = append(out, model.NewNotificationEvent(p, instants.Date, at, model.EventKindBefore, fires))
	}
	return out
}

func (s *Scheduler) PlanReminders(instants model.PrayerInstants, settings model.NotificationSettings, rec model.CompletionRecord) []model.NotificationEvent {
	if !settings.Enabled || settings.ReminderInterval <= 0 {
		return nil
	}
	now := s.now()
	out := make([]model.NotificationEvent, 0)
	for _, p := range model.DailyPrayers {
		if rec.Prayers.Get(p) {
			continue
		}
		at, _ := instants.At(p)
		end := at.Add(model.ReminderWindow)
		if now.Before(at) || !now.Before(end) {
			continue
		}
		for fires := at.Add(settings.Interval()); !fires.After(end); fires = fires.Add(settings.Interval()) {
			if !fires.After(now) {
				continue
			}
			out = append(out, model.NewNotificationEvent(p, instants.Date, at, model.EventKindReminder, fires))
		}
	}
	return out
}

func (s *Scheduler) ScheduleDay(ctx context.Context, instants model.PrayerInstants, settings model.NotificationSettings) ([]model.NotificationEvent, error) {
	planned := s.PlanDay(instants, settings)

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.loadPending(ctx)
	if err != nil {
		return nil, err
	}
	keep := make([]model.NotificationEvent, 0, len(pending)+len(planned))
	stale := make([]model.NotificationEvent, 0)
	for _, ev := range pending {
		if ev.Date == instants.Date {
			stale = append(stale, ev)
			continue
		}
		keep = append(keep, ev)
	}
	keep = append(keep, planned...)
	if err := s.savePending(ctx, keep); err != nil {
		return nil, err
	}

	for _, ev := range stale {
		s.cancel(ctx, ev)
	}
	for _, ev := range planned {
		s.arm(ctx, ev)
	}
	s.logger.Info().Str("date", instants.Date).Int("scheduled", len(planned)).Int("replaced", len(stale)).Msg("day scheduled")
	return planned, nil
}

func (s *Scheduler) ScheduleReminders(ctx context.Context, instants model.PrayerInstants, settings model.NotificationSettings, rec model.CompletionRecord) ([]model.NotificationEvent, error) {
	planned := s.PlanReminders(instants, settings, rec)
	if len(planned) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.loadPending(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.savePending(ctx, upsert(pending, planned)); err != nil {
		return nil, err
	}
	for _, ev := range planned {
		s.arm(ctx, ev)
	}
	s.logger.Debug().Str("date", instants.Date).Int("reminders", len(planned)).Msg("reminders scheduled")
	return planned, nil
}

func (s *Scheduler) CancelForPrayer(ctx context.Context, prayer model.PrayerName, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.loadPending(ctx)
	if err != nil {
		return 0, err
	}
	keep := make([]model.NotificationEvent, 0, len(pending))
	removed := make([]model.NotificationEvent, 0)
	for _, ev := range pending {
		if ev.Kind == model.EventKindReminder && ev.Prayer == prayer && ev.Date == date {
			removed = append(removed, ev)
			continue
		}
		keep = append(keep, ev)
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.savePending(ctx, keep); err != nil {
		return 0, err
	}
	for _, ev := range removed {
		s.cancel(ctx, ev)
	}
	s.logger.Info().Str("date", date).Str("prayer", string(prayer)).Int("cancelled", len(removed)).Msg("reminders cancelled")
	return len(removed), nil
}

// Reconcile rebuilds the transport state from the persisted pending set
// after a restart or foreground: past events are dropped, the rest are
// re-armed, then reminders are recomputed for the current state.
func (s *Scheduler) Reconcile(ctx context.Context, instants model.PrayerInstants, settings model.NotificationSettings, rec model.CompletionRecord) error {
	s.mu.Lock()
	pending, err := s.loadPending(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.now()
	live := make([]model.NotificationEvent, 0, len(pending))
	for _, ev := range pending {
		if !ev.FiresAt.After(now) {
			continue
		}
		live = append(live, ev)
	}
	if len(live) != len(pending) {
		if err := s.savePending(ctx, live); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if err := s.transport.CancelAll(ctx); err != nil {
		s.metrics.incFailure("cancel_all")
		s.logger.Warn().Err(&model.TransportError{Op: "cancel_all", Err: err}).Msg("transport reset failed")
	}
	for _, ev := range live {
		s.arm(ctx, ev)
	}
	s.mu.Unlock()

	s.logger.Info().Int("rearmed", len(live)).Int("dropped", len(pending)-len(live)).Msg("notifications reconciled")
	_, err = s.ScheduleReminders(ctx, instants, settings, rec)
	return err
}

func (s *Scheduler) Pending(ctx context.Context) ([]model.NotificationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPending(ctx)
}

func (s *Scheduler) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(ctx, PendingKey); err != nil {
		return &model.StorageError{Op: "remove", Key: PendingKey, Err: err}
	}
	if err := s.transport.CancelAll(ctx); err != nil {
		s.metrics.incFailure("cancel_all")
		s.logger.Warn().Err(&model.TransportError{Op: "cancel_all", Err: err}).Msg("transport reset failed")
	}
	return nil
}

func (s *Scheduler) PrayerMarked(ctx context.Context, rec model.CompletionRecord, prayer model.PrayerName, completed bool) error {
	if completed {
		_, err := s.CancelForPrayer(ctx, prayer, rec.Date)
		return err
	}
	if s.lookup == nil || s.settings == nil {
		return nil
	}
	today := model.DateKey(s.now().In(s.zone))
	if rec.Date != today {
		return nil
	}
	day, err := model.ParseDateIn(rec.Date, s.zone)
	if err != nil {
		return err
	}
	instants, err := s.lookup.InstantsFor(ctx, day)
	if err != nil {
		return err
	}
	settings, err := s.settings.Notifications(ctx)
	if err != nil {
		return err
	}
	_, err = s.ScheduleReminders(ctx, instants, settings, rec)
	return err
}

func (s *Scheduler) arm(ctx context.Context, ev model.NotificationEvent) {
	if err := s.transport.ScheduleOneShot(ctx, ev.ID, ev.FiresAt, PayloadFor(ev)); err != nil {
		s.metrics.incFailure("schedule")
		s.logger.Warn().
			Err(&model.TransportError{EventID: ev.ID, Op: "schedule", Err: err}).
			Str("event_id", ev.ID).
			Str("prayer", string(ev.Prayer)).
			Msg("notification registration failed")
		return
	}
	s.metrics.incScheduled(ev.Kind)
}

func (s *Scheduler) cancel(ctx context.Context, ev model.NotificationEvent) {
	if err := s.transport.Cancel(ctx, ev.ID); err != nil {
		s.metrics.incFailure("cancel")
		s.logger.Warn().
			Err(&model.TransportError{EventID: ev.ID, Op: "cancel", Err: err}).
			Str("event_id", ev.ID).
			Msg("notification cancel failed")
		return
	}
	s.metrics.incCancelled(ev.Kind)
}

func (s *Scheduler) loadPending(ctx context.Context) ([]model.NotificationEvent, error) {
	raw, err := s.kv.Get(ctx, PendingKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []model.NotificationEvent{}, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get", Key: PendingKey, Err: err}
	}
	var out []model.NotificationEvent
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt pending notification set")
		return []model.NotificationEvent{}, nil
	}
	valid := out[:0]
	for _, ev := range out {
		if ev.Validate() == nil {
			valid = append(valid, ev)
		}
	}
	return valid, nil
}

func (s *Scheduler) savePending(ctx context.Context, events []model.NotificationEvent) error {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].FiresAt.Before(events[j].FiresAt)
	})
	raw, err := json.Marshal(events)
	if err != nil {
		return &model.StorageError{Op: "encode", Key: PendingKey, Err: err}
	}
	if err := s.kv.Set(ctx, PendingKey, string(raw)); err != nil {
		return &model.StorageError{Op: "set", Key: PendingKey, Err: err}
	}
	return nil
}

func upsert(existing, add []model.NotificationEvent) []model.NotificationEvent {
	seen := make(map[string]int, len(existing))
	out := make([]model.NotificationEvent, 0, len(existing)+len(add))
	for _, ev := range existing {
		seen[ev.ID] = len(out)
		out = append(out, ev)
	}
	for _, ev := range add {
		if i, ok := seen[ev.ID]; ok {
			out[i] = ev
			continue
		}
		seen[ev.ID] = len(out)
		out = append(out, ev)
	}
	return out
}
