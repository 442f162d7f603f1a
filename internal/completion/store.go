package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

const IndexKey = "completion:index"

type InstantsLookup interface {
	InstantsFor(ctx context.Context, date time.Time) (model.PrayerInstants, error)
}

type Listener interface {
	PrayerMarked(ctx context.Context, rec model.CompletionRecord, prayer model.PrayerName, completed bool) error
}

// Store owns the completion index. Mutations are serialized and the
// in-memory index only changes after the new index has been persisted.
type Store struct {
	kv     storage.KV
	lookup InstantsLookup
	logger zerolog.Logger
	now    func() time.Time
	zone   *time.Location

	mu        sync.RWMutex
	index     model.CompletionIndex
	listeners []Listener

	// notifyMu keeps listener calls in mark order without holding mu.
	notifyMu sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithZone(zone *time.Location) Option {
	return func(s *Store) {
		if zone != nil {
			s.zone = zone
		}
	}
}

func Open(ctx context.Context, kv storage.KV, lookup InstantsLookup, logger zerolog.Logger, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("completion: nil kv")
	}
	if lookup == nil {
		return nil, errors.New("completion: nil instants lookup")
	}
	s := &Store{
		kv:     kv,
		lookup: lookup,
		logger: logger.With().Str("component", "completion").Logger(),
		now:    time.Now,
		zone:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.index = idx
	return s, nil
}

func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) load(ctx context.Context) (model.CompletionIndex, error) {
	raw, err := s.kv.Get(ctx, IndexKey)
	if errors.Is(err, storage.ErrNotFound) {
		return model.CompletionIndex{}, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get", Key: IndexKey, Err: err}
	}
	idx := model.CompletionIndex{}
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		return nil, &model.StorageError{Op: "decode", Key: IndexKey, Err: err}
	}
	for key, rec := range idx {
		if rec.Date == "" {
			rec.Date = key
			idx[key] = rec
		}
	}
	return idx, nil
}

func (s *Store) persist(ctx context.Context, idx model.CompletionIndex) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return &model.StorageError{Op: "encode", Key: IndexKey, Err: err}
	}
	if err := s.kv.Set(ctx, IndexKey, string(raw)); err != nil {
		return &model.StorageError{Op: "set", Key: IndexKey, Err: err}
	}
	return nil
}

func (s *Store) Today() string {
	return model.DateKey(s.now().In(s.zone))
}

// MarkPrayer sets prayer on the day of date. Dates after today are always
// rejected. Marking today's prayer complete requires its instant to have
// been reached; earlier dates and un-marking are not time gated.
func (s *Store) MarkPrayer(ctx context.Context, date time.Time, prayer model.PrayerName, completed bool) error {
	if !prayer.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidPrayer, prayer)
	}
	now := s.now().In(s.zone)
	day := model.StartOfDay(date.In(s.zone))
	key := model.DateKey(day)
	today := model.DateKey(now)

	if model.CompareDateKeys(key, today) > 0 {
		return fmt.Errorf("%w: %s is after %s", model.ErrFutureDate, key, today)
	}
	if completed && key == today {
		instants, err := s.lookup.InstantsFor(ctx, day)
		if err != nil {
			return fmt.Errorf("resolve prayer times for %s: %w", key, err)
		}
		at, _ := instants.At(prayer)
		if now.Before(at) {
			return fmt.Errorf("%w: %s starts at %s", model.ErrPrematureMark, prayer, at.In(s.zone).Format("15:04"))
		}
	}

	s.mu.Lock()
	rec, err := s.index.Record(key).WithMark(prayer, completed, now)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next := s.index.Clone()
	next[key] = rec
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.index = next
	listeners := append([]Listener(nil), s.listeners...)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, l := range listeners {
		if err := l.PrayerMarked(ctx, rec.Clone(), prayer, completed); err != nil {
			s.logger.Warn().Err(err).Str("date", key).Str("prayer", string(prayer)).Msg("completion listener failed")
		}
	}
	s.logger.Info().Str("date", key).Str("prayer", string(prayer)).Bool("completed", completed).Msg("prayer marked")
	return nil
}

func (s *Store) Record(date time.Time) model.CompletionRecord {
	return s.RecordByKey(model.DateKey(date.In(s.zone)))
}

func (s *Store) RecordByKey(key string) model.CompletionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Record(key)
}

func (s *Store) AllRecords() model.CompletionIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Clone()
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(ctx, IndexKey); err != nil {
		return &model.StorageError{Op: "remove", Key: IndexKey, Err: err}
	}
	s.index = model.CompletionIndex{}
	s.logger.Info().Msg("completion index cleared")
	return nil
}

func (s *Store) Restore(ctx context.Context, remote model.CompletionIndex, m Merger) (int, error) {
	if m == nil {
		m = MostCompletedMerger{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := m.Merge(s.index.Clone(), remote.Clone())
	for key, rec := range merged {
		if rec.Date == "" {
			rec.Date = key
			merged[key] = rec
		}
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("restore %s: %w", key, err)
		}
	}
	if err := s.persist(ctx, merged); err != nil {
		return 0, err
	}
	s.index = merged
	s.logger.Info().Int("records", len(merged)).Msg("completion index restored")
	return len(merged), nil
}
