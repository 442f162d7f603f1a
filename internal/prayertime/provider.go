package prayertime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	CacheValidity = 24 * time.Hour
	cachePrefix   = "prayertimes:"
)

type Source string

const (
	SourceCache    Source = "cache"
	SourceNetwork  Source = "network"
	SourceStale    Source = "stale-cache"
	SourceFallback Source = "fallback"
)

type Resolution struct {
	Instants model.PrayerInstants
	Source   Source
	Stale    bool
}

type cacheEntry struct {
	Location model.Location       `json:"location"`
	Date     string               `json:"date"`
	CachedAt time.Time            `json:"cachedAt"`
	Instants model.PrayerInstants `json:"prayerTimes"`
}

type Provider struct {
	source   TimeSource
	kv       storage.KV
	conn     Connectivity
	logger   zerolog.Logger
	now      func() time.Time
	zone     *time.Location
	timeout  time.Duration
	fallback bool
	group    singleflight.Group
}

type Option func(*Provider)

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func WithZone(zone *time.Location) Option {
	return func(p *Provider) {
		if zone != nil {
			p.zone = zone
		}
	}
}

func WithConnectivity(c Connectivity) Option {
	return func(p *Provider) { p.conn = c }
}

func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithoutFallback disables the fixed schedule so exhausting every source
// yields model.ErrUnavailable.
func WithoutFallback() Option {
	return func(p *Provider) { p.fallback = false }
}

func NewProvider(source TimeSource, kv storage.KV, logger zerolog.Logger, opts ...Option) *Provider {
	p := &Provider{
		source:   source,
		kv:       kv,
		conn:     StaticConnectivity(true),
		logger:   logger.With().Str("component", "prayertime").Logger(),
		now:      time.Now,
		zone:     time.Local,
		timeout:  DefaultFetchTimeout,
		fallback: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Zone() *time.Location { return p.zone }

func (p *Provider) PrayerTimes(ctx context.Context, loc model.Location, date time.Time) (model.PrayerInstants, error) {
	res, err := p.Resolve(ctx, loc, date)
	if err != nil {
		return model.PrayerInstants{}, err
	}
	return res.Instants, nil
}

func (p *Provider) Resolve(ctx context.Context, loc model.Location, date time.Time) (Resolution, error) {
	if err := loc.Validate(); err != nil {
		return Resolution{}, err
	}
	day := model.StartOfDay(date.In(p.zone))
	flightKey := cacheKey(model.DateKey(day), loc)
	// Callers share the flight, so one caller's cancellation must not decide
	// the result for the others. fetch still applies p.timeout.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do(flightKey, func() (any, error) {
		return p.resolve(flightCtx, loc, day)
	})
	if err != nil {
		return Resolution{}, err
	}
	return v.(Resolution), nil
}

func (p *Provider) resolve(ctx context.Context, loc model.Location, day time.Time) (Resolution, error) {
	dateKey := model.DateKey(day)
	key := cacheKey(dateKey, loc)

	if entry, ok := p.readEntry(ctx, key); ok && p.isFresh(entry, loc, dateKey) {
		p.logger.Debug().Str("date", dateKey).Msg("using cached prayer times")
		return Resolution{Instants: entry.Instants, Source: SourceCache}, nil
	}

	if p.source != nil && p.conn != nil && p.conn.Online() {
		instants, err := p.fetch(ctx, loc, day)
		if err == nil {
			p.writeEntry(ctx, key, cacheEntry{Location: loc, Date: dateKey, CachedAt: p.now(), Instants: instants})
			return Resolution{Instants: instants, Source: SourceNetwork}, nil
		}
		p.logger.Warn().Err(err).Str("date", dateKey).Msg("prayer time fetch failed")
	}

	for _, entry := range p.staleEntries(ctx, loc, dateKey) {
		instants, err := reanchor(entry.Instants, day)
		if err != nil {
			p.logger.Warn().Err(err).Str("cached_date", entry.Date).Msg("skipping stale prayer times")
			continue
		}
		p.logger.Warn().Str("date", dateKey).Str("cached_date", entry.Date).Msg("using stale prayer times")
		return Resolution{Instants: instants, Source: SourceStale, Stale: true}, nil
	}

	if !p.fallback {
		return Resolution{}, fmt.Errorf("%w: %s at %s", model.ErrUnavailable, dateKey, loc.Key())
	}
	instants, err := Normalize(FallbackTimings, day)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	p.logger.Warn().Str("date", dateKey).Msg("using fallback prayer schedule")
	return Resolution{Instants: instants, Source: SourceFallback, Stale: true}, nil
}

func (p *Provider) fetch(ctx context.Context, loc model.Location, day time.Time) (model.PrayerInstants, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	// Midday keeps the requested timestamp inside the day for any offset.
	timings, err := p.source.FetchTimings(fetchCtx, loc.Latitude, loc.Longitude, day.Add(12*time.Hour))
	if err != nil {
		return model.PrayerInstants{}, err
	}
	return Normalize(timings, day)
}

func (p *Provider) isFresh(e cacheEntry, loc model.Location, dateKey string) bool {
	return e.Date == dateKey && e.Location.Near(loc) && p.now().Sub(e.CachedAt) < CacheValidity
}

func (p *Provider) readEntry(ctx context.Context, key string) (cacheEntry, bool) {
	if p.kv == nil {
		return cacheEntry{}, false
	}
	raw, err := p.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn().Err(err).Str("key", key).Msg("prayer time cache read failed")
		}
		return cacheEntry{}, false
	}
	var e cacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("corrupt prayer time cache entry")
		return cacheEntry{}, false
	}
	if e.Instants.Validate() != nil {
		return cacheEntry{}, false
	}
	return e, true
}

func (p *Provider) writeEntry(ctx context.Context, key string, e cacheEntry) {
	if p.kv == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("encode prayer time cache entry")
		return
	}
	if err := p.kv.Set(ctx, key, string(raw)); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("prayer time cache write failed")
	}
}

func (p *Provider) staleEntries(ctx context.Context, loc model.Location, dateKey string) []cacheEntry {
	if p.kv == nil {
		return nil
	}
	keys, err := p.kv.KeysWithPrefix(ctx, cachePrefix)
	if err != nil {
		p.logger.Warn().Err(err).Msg("list prayer time cache failed")
		return nil
	}
	entries := make([]cacheEntry, 0, len(keys))
	for _, k := range keys {
		if e, ok := p.readEntry(ctx, k); ok {
			entries = append(entries, e)
		}
	}
	exact := func(e cacheEntry) bool { return e.Date == dateKey && e.Location.Near(loc) }
	sort.SliceStable(entries, func(i, j int) bool {
		if ei, ej := exact(entries[i]), exact(entries[j]); ei != ej {
			return ei
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries
}

func (p *Provider) InvalidateCache(ctx context.Context) error {
	if p.kv == nil {
		return nil
	}
	keys, err := p.kv.KeysWithPrefix(ctx, cachePrefix)
	if err != nil {
		return &model.StorageError{Op: "list", Key: cachePrefix, Err: err}
	}
	for _, k := range keys {
		if err := p.kv.Remove(ctx, k); err != nil {
			return &model.StorageError{Op: "remove", Key: k, Err: err}
		}
	}
	return nil
}

func cacheKey(dateKey string, loc model.Location) string {
	return cachePrefix + dateKey + ":" + loc.Key()
}

type LocationFunc func() model.Location

type Lookup struct {
	provider *Provider
	location LocationFunc
}

func NewLookup(p *Provider, location LocationFunc) *Lookup {
	return &Lookup{provider: p, location: location}
}

func (l *Lookup) InstantsFor(ctx context.Context, date time.Time) (model.PrayerInstants, error) {
	return l.provider.PrayerTimes(ctx, l.location(), date)
}
