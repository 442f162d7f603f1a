package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidPrayer     = errors.New("model: invalid prayer name")
	ErrUnorderedInstants = errors.New("model: prayer instants are not strictly increasing")
	ErrInvalidLocation   = errors.New("model: invalid location")
)

type PrayerName string

const (
	Fajr    PrayerName = "fajr"
	Sunrise PrayerName = "sunrise"
	Dhuhr   PrayerName = "dhuhr"
	Asr     PrayerName = "asr"
	Maghrib PrayerName = "maghrib"
	Isha    PrayerName = "isha"
)

// DailyPrayers are the five obligatory prayers in day order. Sunrise is a
// time marker only and is never tracked or reminded.
var DailyPrayers = []PrayerName{Fajr, Dhuhr, Asr, Maghrib, Isha}

func (p PrayerName) IsValid() bool {
	switch p {
	case Fajr, Dhuhr, Asr, Maghrib, Isha:
		return true
	default:
		return false
	}
}

func (p PrayerName) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

func ParsePrayerName(raw string) (PrayerName, error) {
	p := PrayerName(strings.ToLower(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrayer, raw)
	}
	return p, nil
}

type PrayerInstants struct {
	Date    string    `json:"date"`
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise,omitzero"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`
}

func (pi PrayerInstants) At(p PrayerName) (time.Time, bool) {
	switch p {
	case Fajr:
		return pi.Fajr, true
	case Sunrise:
		return pi.Sunrise, !pi.Sunrise.IsZero()
	case Dhuhr:
		return pi.Dhuhr, true
	case Asr:
		return pi.Asr, true
	case Maghrib:
		return pi.Maghrib, true
	case Isha:
		return pi.Isha, true
	default:
		return time.Time{}, false
	}
}

func (pi PrayerInstants) Ordered() []PrayerName {
	out := make([]PrayerName, 0, 6)
	out = append(out, Fajr)
	if !pi.Sunrise.IsZero() {
		out = append(out, Sunrise)
	}
	return append(out, Dhuhr, Asr, Maghrib, Isha)
}

func (pi PrayerInstants) Validate() error {
	if _, err := ParseDateKey(pi.Date); err != nil {
		return err
	}
	var prev time.Time
	for i, name := range pi.Ordered() {
		at, _ := pi.At(name)
		if at.IsZero() {
			return fmt.Errorf("model: %s instant is required", name)
		}
		if DateKey(at) != pi.Date {
			return fmt.Errorf("model: %s instant %s is outside %s", name, at.Format(time.RFC3339), pi.Date)
		}
		if i > 0 && !at.After(prev) {
			return fmt.Errorf("%w: %s at %s", ErrUnorderedInstants, name, at.Format("15:04"))
		}
		prev = at
	}
	return nil
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidLocation, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// LocationTolerance is roughly 1.1 km at the equator.
const LocationTolerance = 0.01

func (l Location) Near(other Location) bool {
	return math.Abs(l.Latitude-other.Latitude) < LocationTolerance &&
		math.Abs(l.Longitude-other.Longitude) < LocationTolerance
}

func (l Location) Key() string {
	return fmt.Sprintf("%.2f:%.2f", l.Latitude, l.Longitude)
}
