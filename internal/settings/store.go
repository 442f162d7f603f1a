package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/storage"
)

const (
	NotificationsKey = "settings:notifications"
	LocationKey      = "settings:location"
)

type Store struct {
	kv               storage.KV
	notifDefaults    model.NotificationSettings
	locationDefaults model.Location
}

func NewStore(kv storage.KV, notif model.NotificationSettings, loc model.Location) *Store {
	return &Store{kv: kv, notifDefaults: notif, locationDefaults: loc}
}

func (s *Store) Notifications(ctx context.Context) (model.NotificationSettings, error) {
	out := s.notifDefaults
	if err := s.read(ctx, NotificationsKey, &out); err != nil {
		return model.NotificationSettings{}, err
	}
	return out, nil
}

func (s *Store) SetNotifications(ctx context.Context, ns model.NotificationSettings) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	return s.write(ctx, NotificationsKey, ns)
}

func (s *Store) Location(ctx context.Context) (model.Location, error) {
	out := s.locationDefaults
	if err := s.read(ctx, LocationKey, &out); err != nil {
		return model.Location{}, err
	}
	return out, nil
}

func (s *Store) SetLocation(ctx context.Context, loc model.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return s.write(ctx, LocationKey, loc)
}

func (s *Store) read(ctx context.Context, key string, dst any) error {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &model.StorageError{Op: "get", Key: key, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return &model.StorageError{Op: "decode", Key: key, Err: err}
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &model.StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return &model.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}
