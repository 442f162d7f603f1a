package prayertime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/salahd/internal/model"
)

var ErrInvalidClock = errors.New("prayertime: invalid HH:mm value")

func parseClock(raw string) (hour, minute int, err error) {
	v := strings.TrimSpace(raw)
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	hh, mm, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return hour, minute, nil
}

func at(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

func Normalize(t Timings, day time.Time) (model.PrayerInstants, error) {
	out := model.PrayerInstants{Date: model.DateKey(day)}
	fields := []struct {
		raw      string
		dst      *time.Time
		optional bool
	}{
		{t.Fajr, &out.Fajr, false},
		{t.Sunrise, &out.Sunrise, true},
		{t.Dhuhr, &out.Dhuhr, false},
		{t.Asr, &out.Asr, false},
		{t.Maghrib, &out.Maghrib, false},
		{t.Isha, &out.Isha, false},
	}
	for _, f := range fields {
		if f.optional && strings.TrimSpace(f.raw) == "" {
			continue
		}
		h, m, err := parseClock(f.raw)
		if err != nil {
			return model.PrayerInstants{}, err
		}
		*f.dst = at(day, h, m)
	}
	if err := out.Validate(); err != nil {
		return model.PrayerInstants{}, err
	}
	return out, nil
}

// reanchor moves every instant onto day keeping the wall-clock time it was
// cached with.
func reanchor(in model.PrayerInstants, day time.Time) (model.PrayerInstants, error) {
	move := func(t time.Time) time.Time {
		if t.IsZero() {
			return t
		}
		return at(day, t.Hour(), t.Minute())
	}
	out := model.PrayerInstants{
		Date:    model.DateKey(day),
		Fajr:    move(in.Fajr),
		Sunrise: move(in.Sunrise),
		Dhuhr:   move(in.Dhuhr),
		Asr:     move(in.Asr),
		Maghrib: move(in.Maghrib),
		Isha:    move(in.Isha),
	}
	if err := out.Validate(); err != nil {
		return model.PrayerInstants{}, err
	}
	return out, nil
}

var FallbackTimings = Timings{
	Fajr:    "05:30",
	Dhuhr:   "12:30",
	Asr:     "16:00",
	Maghrib: "19:00",
	Isha:    "20:30",
}
