package clock

import (
	"time"

	"github.com/sandeepkv93/salahd/internal/model"
)

// CurrentPrayer returns the prayer whose window contains now. Windows run
// from one daily prayer to the next, so sunrise does not end fajr. After
// isha the result stays isha; before fajr there is no current prayer.
func CurrentPrayer(instants model.PrayerInstants, now time.Time) (model.PrayerName, bool) {
	current := model.PrayerName("")
	for _, p := range model.DailyPrayers {
		at, _ := instants.At(p)
		if now.Before(at) {
			break
		}
		current = p
	}
	return current, current != ""
}

func NextPrayer(instants model.PrayerInstants, now time.Time) model.PrayerName {
	for _, p := range model.DailyPrayers {
		at, _ := instants.At(p)
		if at.After(now) {
			return p
		}
	}
	return model.Fajr
}

func Until(instants model.PrayerInstants, now time.Time) (model.PrayerName, time.Duration, bool) {
	next := NextPrayer(instants, now)
	at, _ := instants.At(next)
	if !at.After(now) {
		return next, 0, false
	}
	return next, at.Sub(now), true
}

func Passed(instants model.PrayerInstants, p model.PrayerName, now time.Time) bool {
	at, ok := instants.At(p)
	return ok && !now.Before(at)
}
