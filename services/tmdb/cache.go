package tmdb

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache is a TTL'd JSON-on-disk cache. It is passed explicitly into the
// fetch layer rather than living as package state, so each consumer owns its
// cache directory and lifetime.
type FileCache struct {
	dir string
	ttl time.Duration
}

func NewFileCache(dir string, ttlHours int) *FileCache {
	return &FileCache{dir: dir, ttl: time.Duration(ttlHours) * time.Hour}
}

// jitteredTTL returns a TTL for the given key that is deterministically
// staggered between the base TTL and base TTL + 6 hours. The jitter is
// derived from the key hash so the same key always gets the same TTL,
// preventing cache churn.
func (c *FileCache) jitteredTTL(key string) time.Duration {
	h := sha256.Sum256([]byte(key))
	n := binary.BigEndian.Uint64(h[:8])
	jitter := time.Duration(n % uint64(6*time.Hour))
	return c.ttl + jitter
}

func (c *FileCache) Get(key string, v any) (bool, error) {
	if key == "" {
		return false, errors.New("empty key")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return false, err
	}
	path := filepath.Join(c.dir, key+".json")
	fi, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	if time.Since(fi.ModTime()) > c.jitteredTTL(key) {
		_ = os.Remove(path)
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, nil
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(v); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *FileCache) Set(key string, v any) error {
	if key == "" {
		return errors.New("empty key")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(c.dir, key+".json")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes all cached entries. Used when the API key changes so fresh
// data is fetched with the new credentials.
func (c *FileCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".json" {
			_ = os.Remove(filepath.Join(c.dir, entry.Name()))
		}
	}
	return nil
}

// CacheKey builds a filesystem-safe cache key from its parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(joined))
	return hex.EncodeToString(sum[:])
}
