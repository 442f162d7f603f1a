// Package backup pushes completion history and settings to a remote KV
// and restores them through a pluggable merge strategy.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/completion"
	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

const (
	Version        = "1.0.0"
	LatestKey      = "backup:latest"
	snapshotPrefix = "backup:snapshots:"
)

var ErrNoBackup = errors.New("backup: no snapshot found")

type Snapshot struct {
	ID        string                     `json:"id"`
	Prayers   model.CompletionIndex      `json:"prayers"`
	Settings  model.NotificationSettings `json:"settings"`
	Timestamp time.Time                  `json:"timestamp"`
	Version   string                     `json:"version"`
}

type Records interface {
	AllRecords() model.CompletionIndex
	Restore(ctx context.Context, remote model.CompletionIndex, m completion.Merger) (int, error)
}

type Preferences interface {
	Notifications(ctx context.Context) (model.NotificationSettings, error)
	SetNotifications(ctx context.Context, ns model.NotificationSettings) error
}

type RestoreResult struct {
	SnapshotID string
	Records    int
}

type Service struct {
	records Records
	prefs   Preferences
	remote  storage.KV
	merger  completion.Merger
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

func NewService(records Records, prefs Preferences, remote storage.KV, merger completion.Merger, logger zerolog.Logger) *Service {
	if merger == nil {
		merger = completion.MostCompletedMerger{}
	}
	return &Service{
		records: records,
		prefs:   prefs,
		remote:  remote,
		merger:  merger,
		logger:  logger.With().Str("component", "backup").Logger(),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (s *Service) Create(ctx context.Context) (Snapshot, error) {
	ns, err := s.prefs.Notifications(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		ID:        s.newID(),
		Prayers:   s.records.AllRecords(),
		Settings:  ns,
		Timestamp: s.now().UTC(),
		Version:   Version,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := snapshotPrefix + snap.ID
	if err := s.remote.Set(ctx, key, string(raw)); err != nil {
		return Snapshot{}, &model.StorageError{Op: "set", Key: key, Err: err}
	}
	if err := s.remote.Set(ctx, LatestKey, snap.ID); err != nil {
		return Snapshot{}, &model.StorageError{Op: "set", Key: LatestKey, Err: err}
	}
	s.logger.Info().Str("snapshot_id", snap.ID).Int("records", len(snap.Prayers)).Msg("backup created")
	return snap, nil
}

func (s *Service) Latest(ctx context.Context) (Snapshot, error) {
	id, err := s.remote.Get(ctx, LatestKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, ErrNoBackup
	}
	if err != nil {
		return Snapshot{}, &model.StorageError{Op: "get", Key: LatestKey, Err: err}
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (Snapshot, error) {
	key := snapshotPrefix + id
	raw, err := s.remote.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoBackup, id)
	}
	if err != nil {
		return Snapshot{}, &model.StorageError{Op: "get", Key: key, Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, &model.StorageError{Op: "decode", Key: key, Err: err}
	}
	return snap, nil
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	keys, err := s.remote.KeysWithPrefix(ctx, snapshotPrefix)
	if err != nil {
		return nil, &model.StorageError{Op: "list", Key: snapshotPrefix, Err: err}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, snapshotPrefix))
	}
	return out, nil
}

func (s *Service) Restore(ctx context.Context) (RestoreResult, error) {
	snap, err := s.Latest(ctx)
	if err != nil {
		return RestoreResult{}, err
	}
	n, err := s.records.Restore(ctx, snap.Prayers, s.merger)
	if err != nil {
		return RestoreResult{}, err
	}
	if snap.Settings.Validate() == nil {
		if err := s.prefs.SetNotifications(ctx, snap.Settings); err != nil {
			return RestoreResult{}, err
		}
	}
	s.logger.Info().Str("snapshot_id", snap.ID).Int("records", n).Msg("backup restored")
	return RestoreResult{SnapshotID: snap.ID, Records: n}, nil
}
