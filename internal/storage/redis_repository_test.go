package storage

import (
	"errors"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestOpenRedisRejectsInvalidURL(t *testing.T) {
	if _, err := OpenRedis("ftp://nowhere", "salahd"); err == nil {
		t.Fatal("expected invalid scheme to be rejected")
	}
}

func TestRedisRepositoryNamespacesKeys(t *testing.T) {
	r := NewRedisRepository(nil, "salahd")
	if got := r.key("backup:latest"); got != "salahd:backup:latest" {
		t.Fatalf("unexpected namespaced key %q", got)
	}
	bare := NewRedisRepository(nil, "")
	if got := bare.key("backup:latest"); got != "backup:latest" {
		t.Fatalf("unexpected bare key %q", got)
	}
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	url := os.Getenv("SALAHD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SALAHD_TEST_REDIS_URL not set")
	}
	ns := "salahd-test-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	repo, err := OpenRedis(url, ns)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer repo.Close()
	ctx := t.Context()

	if _, err := repo.Get(ctx, "backup:latest"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, k := range []string{"backup:snapshots:b", "backup:snapshots:a", "backup:latest"} {
		if err := repo.Set(ctx, k, "v"); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	keys, err := repo.KeysWithPrefix(ctx, "backup:snapshots:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "backup:snapshots:a" {
		t.Fatalf("unexpected keys %v", keys)
	}
	for _, k := range []string{"backup:snapshots:a", "backup:snapshots:b", "backup:latest"} {
		if err := repo.Remove(ctx, k); err != nil {
			t.Fatalf("remove %s: %v", k, err)
		}
	}
}
