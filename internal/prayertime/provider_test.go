package prayertime

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

var (
	istanbul   = model.Location{Latitude: 41.0082, Longitude: 28.9784}
	istanbulTZ = time.FixedZone("TRT", 3*60*60)
)

var istanbulTimings = Timings{
	Fajr:    "05:30",
	Sunrise: "05:33 (+03)",
	Dhuhr:   "13:03",
	Asr:     "16:47",
	Maghrib: "19:45",
	Isha:    "21:15",
}

type fakeSource struct {
	timings Timings
	err     error
	calls   atomic.Int32
}

func (f *fakeSource) FetchTimings(ctx context.Context, _, _ float64, _ time.Time) (Timings, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return Timings{}, err
	}
	return f.timings, f.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestProvider(src TimeSource, kv storage.KV, c *clock, opts ...Option) *Provider {
	base := []Option{WithClock(c.now), WithZone(istanbulTZ)}
	return NewProvider(src, kv, zerolog.Nop(), append(base, opts...)...)
}

func TestResolveFetchesAndCaches(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	kv := storage.NewMemoryRepository()
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, kv, c)

	res, err := p.Resolve(t.Context(), istanbul, c.t)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceNetwork || res.Stale {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if got := res.Instants.Dhuhr.Format("2006-01-02 15:04"); got != "2024-06-01 13:03" {
		t.Fatalf("dhuhr = %s", got)
	}
	if got := res.Instants.Sunrise.Format("15:04"); got != "05:33" {
		t.Fatalf("sunrise suffix not stripped: %s", got)
	}

	nearby := model.Location{Latitude: 41.0101, Longitude: 28.9801}
	again, err := p.Resolve(t.Context(), nearby, c.t.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.Source != SourceCache {
		t.Fatalf("expected cache hit, got %s", again.Source)
	}
	if src.calls.Load() != 1 {
		t.Fatalf("expected one fetch, got %d", src.calls.Load())
	}
}

func TestResolveRefetchesAfterCacheExpires(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	kv := storage.NewMemoryRepository()
	c := &clock{t: time.Date(2024, 6, 1, 0, 30, 0, 0, istanbulTZ)}
	p := newTestProvider(src, kv, c)

	day := time.Date(2024, 6, 1, 12, 0, 0, 0, istanbulTZ)
	if _, err := p.Resolve(t.Context(), istanbul, day); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c.t = c.t.Add(CacheValidity + time.Minute)
	res, err := p.Resolve(t.Context(), istanbul, day)
	if err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if res.Source != SourceNetwork || src.calls.Load() != 2 {
		t.Fatalf("expected refetch, source=%s calls=%d", res.Source, src.calls.Load())
	}
}

func TestResolveOfflineUsesStaleCacheReanchored(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	kv := storage.NewMemoryRepository()
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	online := newTestProvider(src, kv, c)
	if _, err := online.Resolve(t.Context(), istanbul, c.t); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	offline := newTestProvider(src, kv, c, WithConnectivity(StaticConnectivity(false)))
	next := time.Date(2024, 6, 3, 8, 0, 0, 0, istanbulTZ)
	res, err := offline.Resolve(t.Context(), istanbul, next)
	if err != nil {
		t.Fatalf("offline resolve: %v", err)
	}
	if res.Source != SourceStale || !res.Stale {
		t.Fatalf("expected stale cache, got %+v", res)
	}
	if res.Instants.Date != "2024-06-03" {
		t.Fatalf("expected re-anchored date, got %s", res.Instants.Date)
	}
	if got := res.Instants.Asr.Format("2006-01-02 15:04"); got != "2024-06-03 16:47" {
		t.Fatalf("asr = %s", got)
	}
	if err := res.Instants.Validate(); err != nil {
		t.Fatalf("re-anchored instants invalid: %v", err)
	}
	if src.calls.Load() != 1 {
		t.Fatalf("offline provider must not fetch, calls=%d", src.calls.Load())
	}
}

func TestResolveOfflineAfterZoneChangeKeepsOrder(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	kv := storage.NewMemoryRepository()
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	online := newTestProvider(src, kv, c)
	if _, err := online.Resolve(t.Context(), istanbul, c.t); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	est := time.FixedZone("EST", -5*60*60)
	c.t = time.Date(2024, 6, 3, 12, 0, 0, 0, est)
	offline := newTestProvider(src, kv, c, WithZone(est), WithConnectivity(StaticConnectivity(false)))
	res, err := offline.Resolve(t.Context(), istanbul, c.t)
	if err != nil {
		t.Fatalf("offline resolve: %v", err)
	}
	if res.Source != SourceStale {
		t.Fatalf("expected stale cache, got %s", res.Source)
	}
	if err := res.Instants.Validate(); err != nil {
		t.Fatalf("instants out of order after zone change: %v", err)
	}
	if got := res.Instants.Fajr.Format("2006-01-02 15:04 MST"); got != "2024-06-03 05:30 EST" {
		t.Fatalf("fajr = %s", got)
	}
	if got := res.Instants.Isha.Format("15:04"); got != "21:15" {
		t.Fatalf("isha = %s", got)
	}
}

func TestResolveSkipsStaleEntryThatCannotBeReanchored(t *testing.T) {
	kv := storage.NewMemoryRepository()
	west := time.FixedZone("W", -5*60*60)
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, istanbulTZ)
	// Ordered in absolute time but not in each instant's own wall clock.
	mixed := cacheEntry{
		Location: istanbul,
		Date:     "2024-06-01",
		CachedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Instants: model.PrayerInstants{
			Date:    "2024-06-01",
			Fajr:    day.Add(5 * time.Hour),
			Dhuhr:   time.Date(2024, 6, 1, 2, 0, 0, 0, west),
			Asr:     day.Add(16 * time.Hour),
			Maghrib: day.Add(19 * time.Hour),
			Isha:    day.Add(21 * time.Hour),
		},
	}
	c := &clock{t: time.Date(2024, 6, 3, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(nil, kv, c, WithConnectivity(StaticConnectivity(false)))
	p.writeEntry(t.Context(), cacheKey(mixed.Date, istanbul), mixed)

	res, err := p.Resolve(t.Context(), istanbul, c.t)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("expected fallback after skipping the bad entry, got %s", res.Source)
	}

	good := cacheEntry{Location: istanbul, Date: "2024-05-30", CachedAt: mixed.CachedAt.Add(-time.Hour)}
	good.Instants, err = Normalize(istanbulTimings, time.Date(2024, 5, 30, 0, 0, 0, 0, istanbulTZ))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	p.writeEntry(t.Context(), cacheKey(good.Date, istanbul), good)
	res, err = p.Resolve(t.Context(), istanbul, c.t)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceStale || res.Instants.Dhuhr.Format("15:04") != "13:03" {
		t.Fatalf("expected the older valid entry, got %s dhuhr=%s", res.Source, res.Instants.Dhuhr.Format("15:04"))
	}
}

func TestResolveIgnoresCallerCancellation(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, storage.NewMemoryRepository(), c)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	res, err := p.Resolve(ctx, istanbul, c.t)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceNetwork {
		t.Fatalf("expected network result despite cancelled caller, got %s", res.Source)
	}
}

func TestResolveFallsBackToFixedSchedule(t *testing.T) {
	src := &fakeSource{err: errors.New("dial tcp: timeout")}
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, storage.NewMemoryRepository(), c)

	res, err := p.Resolve(t.Context(), istanbul, c.t)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("expected fallback, got %s", res.Source)
	}
	if got := res.Instants.Maghrib.Format("15:04"); got != "19:00" {
		t.Fatalf("fallback maghrib = %s", got)
	}
}

func TestResolveWithoutFallbackIsUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, storage.NewMemoryRepository(), c, WithoutFallback())

	if _, err := p.Resolve(t.Context(), istanbul, c.t); !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolveRejectsUnorderedTimings(t *testing.T) {
	bad := istanbulTimings
	bad.Asr = "12:00"
	src := &fakeSource{timings: bad}
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, storage.NewMemoryRepository(), c, WithoutFallback())

	_, err := p.Resolve(t.Context(), istanbul, c.t)
	if !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("unordered source data should not be cached or returned, got %v", err)
	}
}

func TestInvalidateCache(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	kv := storage.NewMemoryRepository()
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, kv, c)
	if _, err := p.Resolve(t.Context(), istanbul, c.t); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := p.InvalidateCache(t.Context()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	keys, _ := kv.KeysWithPrefix(t.Context(), "prayertimes:")
	if len(keys) != 0 {
		t.Fatalf("expected empty cache, got %v", keys)
	}
}

func TestLookupUsesConfiguredLocation(t *testing.T) {
	src := &fakeSource{timings: istanbulTimings}
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, istanbulTZ)}
	p := newTestProvider(src, storage.NewMemoryRepository(), c)
	l := NewLookup(p, func() model.Location { return istanbul })

	got, err := l.InstantsFor(t.Context(), c.t)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Date != "2024-06-01" {
		t.Fatalf("unexpected date %s", got.Date)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{"05:30", 5, 30, false},
		{"21:15 (EEST)", 21, 15, false},
		{"24:00", 0, 0, true},
		{"noon", 0, 0, true},
	}
	for _, tc := range cases {
		h, m, err := parseClock(tc.in)
		if tc.wantErr {
			if err == nil || !strings.Contains(err.Error(), "HH:mm") {
				t.Fatalf("parse %q expected error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || h != tc.h || m != tc.m {
			t.Fatalf("parse %q = %d:%d, %v", tc.in, h, m, err)
		}
	}
}
