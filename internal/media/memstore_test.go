package media

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artifold/service/internal/storage"
)

// memStore is an in-memory Storage with per-operation call counters, used to
// assert idempotence (zero extra writes on retry) and failure behavior.
type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	calls   map[string]int

	walkErr  error            // returned by Walk when set, before any entries
	copyFail map[string]error // srcKey → error
}

type memObject struct {
	data         []byte
	contentType  string
	cacheControl string
	lastModified time.Time
}

var _ storage.Storage = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		objects: make(map[string]memObject),
		calls:   make(map[string]int),
	}
}

// seed inserts an object directly, bypassing counters.
func (m *memStore) seed(key string, data []byte, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, lastModified: lastModified}
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStore) bytes(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key].data
}

func (m *memStore) keysWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) Stat(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["stat"]++
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get object %q: not found", key)
	}
	return obj.data, nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType, cacheControl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["put"]++
	m.objects[key] = memObject{
		data:         data,
		contentType:  contentType,
		cacheControl: cacheControl,
		lastModified: time.Now(),
	}
	return nil
}

func (m *memStore) Copy(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["copy"]++
	if err := m.copyFail[srcKey]; err != nil {
		return err
	}
	src, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("copy object %q: not found", srcKey)
	}
	src.lastModified = time.Now()
	m.objects[dstKey] = src
	return nil
}

func (m *memStore) RemoveBatch(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["remove"]++
	for _, k := range keys {
		delete(m.objects, k) // missing keys are tolerated, like S3
	}
	return nil
}

func (m *memStore) Walk(_ context.Context, prefix string, fn func(storage.Entry) error) error {
	m.mu.Lock()
	var entries []storage.Entry
	for k, obj := range m.objects {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, storage.Entry{Key: k, LastModified: obj.lastModified})
		}
	}
	walkErr := m.walkErr
	m.calls["walk"]++
	m.mu.Unlock()

	if walkErr != nil {
		return walkErr
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["presign"]++
	return fmt.Sprintf("https://store.test/%s?sig=abc&type=%s&ttl=%s", key, contentType, ttl), nil
}
