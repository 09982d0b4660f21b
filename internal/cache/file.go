package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"
)

// fileStore keeps one JSON file per entry under dir/<namespace>/<sha1(key)>.json.
// The logical key is stored inside the envelope so Keys can recover it.
type fileStore struct {
	dir string
}

type fileEnvelope struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

// NewFileStore returns a file-backed Store rooted at dir.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(namespace, key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(s.dir, namespace, hex.EncodeToString(sum[:])+".json")
}

func (s *fileStore) read(namespace, key string) (*fileEnvelope, bool) {
	data, err := os.ReadFile(s.path(namespace, key))
	if err != nil {
		return nil, false
	}
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt entry, treat as a miss and reclaim the file.
		_ = os.Remove(s.path(namespace, key))
		return nil, false
	}
	return &env, true
}

func (s *fileStore) Get(ctx context.Context, namespace, key string, dest any) bool {
	env, ok := s.read(namespace, key)
	if !ok {
		return false
	}
	if env.ExpiresAt != nil && time.Now().After(*env.ExpiresAt) {
		_ = os.Remove(s.path(namespace, key))
		return false
	}
	if err := json.Unmarshal(env.Value, dest); err != nil {
		log.Printf("[cache] decode %s:%s: %v", namespace, key, err)
		return false
	}
	return true
}

func (s *fileStore) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[cache] encode %s:%s: %v", namespace, key, err)
		return false
	}
	env := fileEnvelope{Key: key, Value: raw}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		env.ExpiresAt = &expires
	}
	return s.write(namespace, key, &env)
}

func (s *fileStore) write(namespace, key string, env *fileEnvelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	path := s.path(namespace, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[cache] mkdir %s: %v", filepath.Dir(path), err)
		return false
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("[cache] write %s:%s: %v", namespace, key, err)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Printf("[cache] rename %s:%s: %v", namespace, key, err)
		return false
	}
	return true
}

func (s *fileStore) Delete(ctx context.Context, namespace, key string) bool {
	err := os.Remove(s.path(namespace, key))
	if err != nil && !os.IsNotExist(err) {
		log.Printf("[cache] delete %s:%s: %v", namespace, key, err)
		return false
	}
	return true
}

func (s *fileStore) Exists(ctx context.Context, namespace, key string) bool {
	env, ok := s.read(namespace, key)
	if !ok {
		return false
	}
	return env.ExpiresAt == nil || time.Now().Before(*env.ExpiresAt)
}

func (s *fileStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, namespace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, namespace, entry.Name()))
		if err != nil {
			continue
		}
		var env fileEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		keys = append(keys, env.Key)
	}
	return keys, nil
}

func (s *fileStore) TTL(ctx context.Context, namespace, key string) (time.Duration, error) {
	env, ok := s.read(namespace, key)
	if !ok {
		return TTLMissing, nil
	}
	if env.ExpiresAt == nil {
		return TTLPersistent, nil
	}
	remaining := time.Until(*env.ExpiresAt)
	if remaining <= 0 {
		return TTLMissing, nil
	}
	return remaining, nil
}

func (s *fileStore) Expire(ctx context.Context, namespace, key string, ttl time.Duration) bool {
	env, ok := s.read(namespace, key)
	if !ok {
		return false
	}
	// An expired entry counts as gone, matching EXPIRE on a missing Redis
	// key; re-arming it would resurrect stale data.
	if env.ExpiresAt != nil && time.Now().After(*env.ExpiresAt) {
		return false
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		env.ExpiresAt = &expires
	} else {
		env.ExpiresAt = nil
	}
	return s.write(namespace, key, env)
}

func (s *fileStore) Close() error { return nil }
