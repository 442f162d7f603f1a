package model

import (
	"errors"
	"testing"
	"time"
)

func istanbulInstants(t *testing.T) PrayerInstants {
	t.Helper()
	loc := time.FixedZone("TRT", 3*60*60)
	at := func(h, m int) time.Time { return time.Date(2024, 6, 1, h, m, 0, 0, loc) }
	return PrayerInstants{
		Date:    "2024-06-01",
		Fajr:    at(5, 30),
		Sunrise: at(6, 0),
		Dhuhr:   at(13, 3),
		Asr:     at(16, 47),
		Maghrib: at(19, 45),
		Isha:    at(21, 15),
	}
}

func TestPrayerInstantsValidate(t *testing.T) {
	pi := istanbulInstants(t)
	if err := pi.Validate(); err != nil {
		t.Fatalf("expected valid instants, got %v", err)
	}

	noSunrise := pi
	noSunrise.Sunrise = time.Time{}
	if err := noSunrise.Validate(); err != nil {
		t.Fatalf("sunrise should be optional, got %v", err)
	}

	swapped := pi
	swapped.Asr, swapped.Maghrib = swapped.Maghrib, swapped.Asr
	if err := swapped.Validate(); !errors.Is(err, ErrUnorderedInstants) {
		t.Fatalf("expected ErrUnorderedInstants, got %v", err)
	}

	otherDay := pi
	otherDay.Isha = otherDay.Isha.Add(24 * time.Hour)
	if err := otherDay.Validate(); err == nil {
		t.Fatal("expected error for instant outside the date")
	}
}

func TestParsePrayerName(t *testing.T) {
	got, err := ParsePrayerName("  Maghrib ")
	if err != nil || got != Maghrib {
		t.Fatalf("parse maghrib = %q, %v", got, err)
	}
	if _, err := ParsePrayerName("sunrise"); !errors.Is(err, ErrInvalidPrayer) {
		t.Fatalf("sunrise must not be a trackable prayer, got %v", err)
	}
}

func TestLocationNearAndKey(t *testing.T) {
	a := Location{Latitude: 41.0082, Longitude: 28.9784}
	b := Location{Latitude: 41.0151, Longitude: 28.9790}
	c := Location{Latitude: 41.0300, Longitude: 28.9784}
	if !a.Near(b) {
		t.Fatal("expected locations within tolerance to be near")
	}
	if a.Near(c) {
		t.Fatal("expected distant locations not to be near")
	}
	if a.Key() != "41.01:28.98" {
		t.Fatalf("unexpected key %q", a.Key())
	}
	if err := (Location{Latitude: 91}).Validate(); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected invalid location, got %v", err)
	}
}

func TestAddDaysCrossesMonth(t *testing.T) {
	got, err := AddDays("2024-05-31", 1)
	if err != nil || got != "2024-06-01" {
		t.Fatalf("add days = %q, %v", got, err)
	}
	if _, err := AddDays("2024/05/31", 1); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
