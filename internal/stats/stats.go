package stats

import (
	"time"

	"github.com/sandeepkv93/salahd/internal/model"
)

const HistoryWindow = 365

type StreakPolicy string

const (
	// StreakTodayGrace lets an unfinished today neither count nor break
	// the streak.
	StreakTodayGrace StreakPolicy = "today-grace"
	// StreakStrict breaks the streak as soon as today is incomplete.
	StreakStrict StreakPolicy = "strict"
)

func (p StreakPolicy) IsValid() bool {
	switch p {
	case StreakTodayGrace, StreakStrict:
		return true
	default:
		return false
	}
}

type Period struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Days      int     `json:"days"`
	Completed int     `json:"completed"`
	Possible  int     `json:"possible"`
	Rate      float64 `json:"rate"`
}

type Summary struct {
	Today  float64            `json:"today"`
	Week   Period             `json:"week"`
	Month  Period             `json:"month"`
	Streak model.PrayerStreak `json:"streak"`
}

func Daily(idx model.CompletionIndex, date string) float64 {
	return float64(idx.Record(date).CompletedCount()) / float64(len(model.DailyPrayers))
}

func Weekly(idx model.CompletionIndex, today string) (Period, error) {
	t, err := model.ParseDateKey(today)
	if err != nil {
		return Period{}, err
	}
	offset := (int(t.Weekday()) + 6) % 7
	start := t.AddDate(0, 0, -offset)
	return period(idx, start, t), nil
}

func Monthly(idx model.CompletionIndex, today string) (Period, error) {
	t, err := model.ParseDateKey(today)
	if err != nil {
		return Period{}, err
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return period(idx, start, t), nil
}

func period(idx model.CompletionIndex, start, end time.Time) Period {
	p := Period{Start: model.DateKey(start), End: model.DateKey(end)}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		p.Days++
		p.Completed += idx.Record(model.DateKey(d)).CompletedCount()
	}
	p.Possible = p.Days * len(model.DailyPrayers)
	if p.Possible > 0 {
		p.Rate = float64(p.Completed) / float64(p.Possible)
	}
	return p
}

func Streak(idx model.CompletionIndex, today string, policy StreakPolicy) (model.PrayerStreak, error) {
	t, err := model.ParseDateKey(today)
	if err != nil {
		return model.PrayerStreak{}, err
	}
	if !policy.IsValid() {
		policy = StreakTodayGrace
	}
	complete := make([]bool, HistoryWindow)
	for i := range complete {
		complete[i] = idx.Record(model.DateKey(t.AddDate(0, 0, -i))).IsComplete()
	}

	var out model.PrayerStreak
	start := 0
	if !complete[0] && policy == StreakTodayGrace {
		start = 1
	}
	if complete[0] || policy == StreakTodayGrace {
		for i := start; i < len(complete) && complete[i]; i++ {
			out.Current++
		}
	}

	run := 0
	for i, done := range complete {
		if !done {
			run = 0
			continue
		}
		if out.LastCompletedDate == "" {
			out.LastCompletedDate = model.DateKey(t.AddDate(0, 0, -i))
		}
		run++
		if run > out.Longest {
			out.Longest = run
		}
	}
	return out, nil
}

func Summarize(idx model.CompletionIndex, today string, policy StreakPolicy) (Summary, error) {
	week, err := Weekly(idx, today)
	if err != nil {
		return Summary{}, err
	}
	month, err := Monthly(idx, today)
	if err != nil {
		return Summary{}, err
	}
	streak, err := Streak(idx, today, policy)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Today:  Daily(idx, today),
		Week:   week,
		Month:  month,
		Streak: streak,
	}, nil
}
