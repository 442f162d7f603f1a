package settings

import (
	"errors"
	"testing"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

func TestNotificationsDefaultUntilSet(t *testing.T) {
	s := NewStore(storage.NewMemoryRepository(), model.DefaultNotificationSettings(), model.Location{})
	got, err := s.Notifications(t.Context())
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if got != model.DefaultNotificationSettings() {
		t.Fatalf("unexpected defaults %+v", got)
	}

	want := model.NotificationSettings{Enabled: false, MinutesBefore: 5, ReminderInterval: 10}
	if err := s.SetNotifications(t.Context(), want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ = s.Notifications(t.Context())
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestSetNotificationsValidates(t *testing.T) {
	s := NewStore(storage.NewMemoryRepository(), model.DefaultNotificationSettings(), model.Location{})
	err := s.SetNotifications(t.Context(), model.NotificationSettings{MinutesBefore: 10})
	if !errors.Is(err, model.ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestLocationRoundTrip(t *testing.T) {
	def := model.Location{Latitude: 21.4225, Longitude: 39.8262}
	s := NewStore(storage.NewMemoryRepository(), model.DefaultNotificationSettings(), def)
	got, _ := s.Location(t.Context())
	if got != def {
		t.Fatalf("expected default location, got %+v", got)
	}
	ist := model.Location{Latitude: 41.0082, Longitude: 28.9784}
	if err := s.SetLocation(t.Context(), ist); err != nil {
		t.Fatalf("set location: %v", err)
	}
	got, _ = s.Location(t.Context())
	if got != ist {
		t.Fatalf("got %+v", got)
	}
	if err := s.SetLocation(t.Context(), model.Location{Latitude: 100}); !errors.Is(err, model.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}
