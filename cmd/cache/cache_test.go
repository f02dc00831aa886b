package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haught/akips-inventory/internal/config"
)

func TestOpenStoreDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Cache: config.CacheConfig{Enabled: false, Dir: dir, TTL: time.Hour},
	}

	if _, err := openStore(cfg); err == nil {
		t.Fatal("openStore() should fail when the cache is disabled")
	}
	if _, err := os.Stat(filepath.Join(dir, "akips-cache.db")); !os.IsNotExist(err) {
		t.Error("A disabled cache must not create the database file")
	}
}

func TestOpenStoreEnabled(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{Enabled: true, Dir: t.TempDir(), TTL: time.Hour},
	}

	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("Database file missing: %v", err)
	}
}
