// Package app composes the prayer services into the operations the TUI,
// the command palette and the background jobs call.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/backup"
	"github.com/sandeepkv93/salahd/internal/clock"
	"github.com/sandeepkv93/salahd/internal/completion"
	"github.com/sandeepkv93/salahd/internal/content"
	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/notify"
	"github.com/sandeepkv93/salahd/internal/prayertime"
	"github.com/sandeepkv93/salahd/internal/scheduler"
	"github.com/sandeepkv93/salahd/internal/settings"
	"github.com/sandeepkv93/salahd/internal/stats"
)

var ErrBackupDisabled = errors.New("app: backup is not configured")

type Deps struct {
	Provider   *prayertime.Provider
	Completion *completion.Store
	Notifier   *notify.Scheduler
	Settings   *settings.Store
	Content    *content.Provider
	Backup     *backup.Service
}

type Service struct {
	provider   *prayertime.Provider
	completion *completion.Store
	notifier   *notify.Scheduler
	settings   *settings.Store
	content    *content.Provider
	backup     *backup.Service
	logger     zerolog.Logger
	now        func() time.Time
	zone       *time.Location
	policy     stats.StreakPolicy
	windows    *scheduler.Engine

	mu       sync.RWMutex
	location model.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithZone(zone *time.Location) Option {
	return func(s *Service) {
		if zone != nil {
			s.zone = zone
		}
	}
}

func WithStreakPolicy(p stats.StreakPolicy) Option {
	return func(s *Service) {
		if p.IsValid() {
			s.policy = p
		}
	}
}

func NewService(ctx context.Context, deps Deps, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if deps.Provider == nil || deps.Completion == nil || deps.Notifier == nil || deps.Settings == nil {
		return nil, errors.New("app: provider, completion, notifier and settings are required")
	}
	s := &Service{
		provider:   deps.Provider,
		completion: deps.Completion,
		notifier:   deps.Notifier,
		settings:   deps.Settings,
		content:    deps.Content,
		backup:     deps.Backup,
		logger:     logger.With().Str("component", "app").Logger(),
		now:        time.Now,
		zone:       time.Local,
		policy:     stats.StreakTodayGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	loc, err := s.settings.Location(ctx)
	if err != nil {
		return nil, err
	}
	s.location = loc
	return s, nil
}

func (s *Service) Location() model.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

type TodayView struct {
	Date       string
	Instants   model.PrayerInstants
	Source     prayertime.Source
	Stale      bool
	Current    model.PrayerName
	HasCurrent bool
	Next       model.PrayerName
	Until      time.Duration
	HasUntil   bool
	Record     model.CompletionRecord
	Content    *content.Daily
}

func (s *Service) Today(ctx context.Context) (TodayView, error) {
	now := s.now().In(s.zone)
	res, err := s.provider.Resolve(ctx, s.Location(), now)
	if err != nil {
		return TodayView{}, err
	}
	view := TodayView{
		Date:     model.DateKey(now),
		Instants: res.Instants,
		Source:   res.Source,
		Stale:    res.Stale,
		Next:     clock.NextPrayer(res.Instants, now),
		Record:   s.completion.Record(now),
	}
	view.Current, view.HasCurrent = clock.CurrentPrayer(res.Instants, now)
	_, view.Until, view.HasUntil = clock.Until(res.Instants, now)
	if s.content != nil {
		if d, err := s.content.For(view.Date); err == nil {
			view.Content = &d
		}
	}
	return view, nil
}

func (s *Service) Sync(ctx context.Context) error {
	now := s.now().In(s.zone)
	instants, err := s.provider.PrayerTimes(ctx, s.Location(), now)
	if err != nil {
		return fmt.Errorf("resolve prayer times: %w", err)
	}
	ns, err := s.settings.Notifications(ctx)
	if err != nil {
		return err
	}
	before, err := s.notifier.ScheduleDay(ctx, instants, ns)
	if err != nil {
		return err
	}
	rec := s.completion.Record(now)
	reminders, err := s.notifier.ScheduleReminders(ctx, instants, ns, rec)
	if err != nil {
		return err
	}
	windows := s.armWindows(instants, rec)
	s.logger.Info().Str("date", instants.Date).Int("before", len(before)).Int("reminders", len(reminders)).Int("windows", windows).Msg("schedule synced")
	return nil
}

func (s *Service) Foreground(ctx context.Context) error {
	now := s.now().In(s.zone)
	instants, err := s.provider.PrayerTimes(ctx, s.Location(), now)
	if err != nil {
		return fmt.Errorf("resolve prayer times: %w", err)
	}
	ns, err := s.settings.Notifications(ctx)
	if err != nil {
		return err
	}
	rec := s.completion.Record(now)
	if err := s.notifier.Reconcile(ctx, instants, ns, rec); err != nil {
		return err
	}
	s.armWindows(instants, rec)
	return nil
}

func (s *Service) MarkPrayer(ctx context.Context, date string, prayer model.PrayerName, completed bool) error {
	day := s.now().In(s.zone)
	if date != "" {
		parsed, err := model.ParseDateIn(date, s.zone)
		if err != nil {
			return err
		}
		day = parsed
	}
	return s.completion.MarkPrayer(ctx, day, prayer, completed)
}

func (s *Service) Statistics(_ context.Context) (stats.Summary, error) {
	return stats.Summarize(s.completion.AllRecords(), s.completion.Today(), s.policy)
}

func (s *Service) Pending(ctx context.Context) ([]model.NotificationEvent, error) {
	return s.notifier.Pending(ctx)
}

func (s *Service) NotificationSettings(ctx context.Context) (model.NotificationSettings, error) {
	return s.settings.Notifications(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, ns model.NotificationSettings) error {
	if err := s.settings.SetNotifications(ctx, ns); err != nil {
		return err
	}
	return s.Sync(ctx)
}

func (s *Service) SetLocation(ctx context.Context, loc model.Location) error {
	if err := s.settings.SetLocation(ctx, loc); err != nil {
		return err
	}
	s.mu.Lock()
	s.location = loc
	s.mu.Unlock()
	if err := s.provider.InvalidateCache(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("prayer time cache invalidation failed")
	}
	return s.Sync(ctx)
}

func (s *Service) Backup(ctx context.Context) (backup.Snapshot, error) {
	if s.backup == nil {
		return backup.Snapshot{}, ErrBackupDisabled
	}
	return s.backup.Create(ctx)
}

func (s *Service) Restore(ctx context.Context) (backup.RestoreResult, error) {
	if s.backup == nil {
		return backup.RestoreResult{}, ErrBackupDisabled
	}
	res, err := s.backup.Restore(ctx)
	if err != nil {
		return backup.RestoreResult{}, err
	}
	return res, s.Sync(ctx)
}
