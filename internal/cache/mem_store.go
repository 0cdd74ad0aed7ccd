package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowcache/flowcache/internal/cachekey"
)

// memStore 仅存活于进程内，适用于测试或只需要会话级复用的场景。
// 条目以编码后的字节保存，读取路径与磁盘后端共用同一套解码逻辑。
type memStore struct {
	mu      sync.RWMutex
	entries map[cachekey.Key][]byte
}

// NewMemoryStore 返回一个空的内存 Store。
func NewMemoryStore() Store {
	return &memStore{entries: make(map[cachekey.Key][]byte)}
}

func (s *memStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok, nil
}

func (s *memStore) Read(ctx context.Context, key cachekey.Key) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	payload, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeEntry(payload)
}

func (s *memStore) Write(ctx context.Context, key cachekey.Key, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	payload, err := EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteFailed, err)
	}
	s.mu.Lock()
	s.entries[key] = payload
	s.mu.Unlock()
	return nil
}

func (s *memStore) Keys(ctx context.Context, fn func(cachekey.Key) error) error {
	s.mu.RLock()
	keys := make([]cachekey.Key, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) Describe() StoreInfo {
	return StoreInfo{Backend: BackendMemory}
}

func (s *memStore) Close() error {
	return nil
}
