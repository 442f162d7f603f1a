package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidEventKind = errors.New("model: invalid notification event kind")
	ErrInvalidSettings  = errors.New("model: invalid notification settings")
)

type EventKind string

const (
	EventKindBefore   EventKind = "before"
	EventKindReminder EventKind = "reminder"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventKindBefore, EventKindReminder:
		return true
	default:
		return false
	}
}

type NotificationEvent struct {
	ID       string     `json:"id"`
	Prayer   PrayerName `json:"prayerName"`
	Date     string     `json:"date"`
	PrayerAt time.Time  `json:"prayerTime"`
	Kind     EventKind  `json:"type"`
	FiresAt  time.Time  `json:"scheduledTime"`
}

func NewNotificationEvent(p PrayerName, date string, prayerAt time.Time, kind EventKind, firesAt time.Time) NotificationEvent {
	return NotificationEvent{
		ID:       EventID(p, date, kind, firesAt),
		Prayer:   p,
		Date:     date,
		PrayerAt: prayerAt,
		Kind:     kind,
		FiresAt:  firesAt,
	}
}

func EventID(p PrayerName, date string, kind EventKind, firesAt time.Time) string {
	if kind == EventKindBefore {
		return fmt.Sprintf("%s-%s-before", date, p)
	}
	return fmt.Sprintf("%s-%s-reminder-%d", date, p, firesAt.UnixMilli())
}

func (e NotificationEvent) Validate() error {
	if e.ID == "" {
		return errors.New("model: notification id is required")
	}
	if !e.Prayer.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPrayer, e.Prayer)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventKind, e.Kind)
	}
	if e.FiresAt.IsZero() {
		return errors.New("model: notification fire time is required")
	}
	return nil
}

const (
	DefaultMinutesBefore    = 15
	DefaultReminderInterval = 30
)

const ReminderWindow = time.Hour

type NotificationSettings struct {
	Enabled          bool `json:"enabled" yaml:"enabled"`
	MinutesBefore    int  `json:"minutesBefore" yaml:"minutes_before"`
	ReminderInterval int  `json:"reminderInterval" yaml:"reminder_interval"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:          true,
		MinutesBefore:    DefaultMinutesBefore,
		ReminderInterval: DefaultReminderInterval,
	}
}

func (s NotificationSettings) Validate() error {
	if s.MinutesBefore <= 0 {
		return fmt.Errorf("%w: minutesBefore must be > 0, got %d", ErrInvalidSettings, s.MinutesBefore)
	}
	if s.ReminderInterval <= 0 {
		return fmt.Errorf("%w: reminderInterval must be > 0, got %d", ErrInvalidSettings, s.ReminderInterval)
	}
	return nil
}

func (s NotificationSettings) Lead() time.Duration {
	return time.Duration(s.MinutesBefore) * time.Minute
}

func (s NotificationSettings) Interval() time.Duration {
	return time.Duration(s.ReminderInterval) * time.Minute
}

type PrayerStreak struct {
	Current           int    `json:"currentStreak"`
	Longest           int    `json:"longestStreak"`
	LastCompletedDate string `json:"lastCompletedDate,omitempty"`
}
