package model

import (
	"fmt"
	"time"
)

type PrayerMarks struct {
	Fajr    bool `json:"fajr"`
	Dhuhr   bool `json:"dhuhr"`
	Asr     bool `json:"asr"`
	Maghrib bool `json:"maghrib"`
	Isha    bool `json:"isha"`
}

func (m PrayerMarks) Get(p PrayerName) bool {
	switch p {
	case Fajr:
		return m.Fajr
	case Dhuhr:
		return m.Dhuhr
	case Asr:
		return m.Asr
	case Maghrib:
		return m.Maghrib
	case Isha:
		return m.Isha
	default:
		return false
	}
}

func (m *PrayerMarks) Set(p PrayerName, done bool) error {
	switch p {
	case Fajr:
		m.Fajr = done
	case Dhuhr:
		m.Dhuhr = done
	case Asr:
		m.Asr = done
	case Maghrib:
		m.Maghrib = done
	case Isha:
		m.Isha = done
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPrayer, p)
	}
	return nil
}

func (m PrayerMarks) Count() int {
	n := 0
	for _, p := range DailyPrayers {
		if m.Get(p) {
			n++
		}
	}
	return n
}

type CompletionRecord struct {
	Date     string                   `json:"date"`
	Prayers  PrayerMarks              `json:"prayers"`
	MarkedAt map[PrayerName]time.Time `json:"markedAt,omitempty"`
}

func NewCompletionRecord(date string) CompletionRecord {
	return CompletionRecord{Date: date}
}

func (r CompletionRecord) CompletedCount() int {
	return r.Prayers.Count()
}

func (r CompletionRecord) IsComplete() bool {
	return r.CompletedCount() == len(DailyPrayers)
}

func (r CompletionRecord) WithMark(p PrayerName, done bool, at time.Time) (CompletionRecord, error) {
	out := r.Clone()
	if err := out.Prayers.Set(p, done); err != nil {
		return CompletionRecord{}, err
	}
	if done {
		if out.MarkedAt == nil {
			out.MarkedAt = make(map[PrayerName]time.Time, 1)
		}
		out.MarkedAt[p] = at
	} else {
		delete(out.MarkedAt, p)
		if len(out.MarkedAt) == 0 {
			out.MarkedAt = nil
		}
	}
	return out, nil
}

func (r CompletionRecord) Clone() CompletionRecord {
	out := r
	if r.MarkedAt != nil {
		out.MarkedAt = make(map[PrayerName]time.Time, len(r.MarkedAt))
		for k, v := range r.MarkedAt {
			out.MarkedAt[k] = v
		}
	}
	return out
}

func (r CompletionRecord) Validate() error {
	if _, err := ParseDateKey(r.Date); err != nil {
		return err
	}
	for p := range r.MarkedAt {
		if !p.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidPrayer, p)
		}
		if !r.Prayers.Get(p) {
			return fmt.Errorf("model: markedAt present for unmarked prayer %s on %s", p, r.Date)
		}
	}
	return nil
}

type CompletionIndex map[string]CompletionRecord

func (idx CompletionIndex) Record(date string) CompletionRecord {
	if rec, ok := idx[date]; ok {
		return rec.Clone()
	}
	return NewCompletionRecord(date)
}

func (idx CompletionIndex) Clone() CompletionIndex {
	out := make(CompletionIndex, len(idx))
	for k, v := range idx {
		out[k] = v.Clone()
	}
	return out
}
