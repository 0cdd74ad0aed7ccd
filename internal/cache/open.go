package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowcache/flowcache/internal/cachekey"
)

// 支持的后端名称，对应配置项 Cache.Backend。
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends 返回所有受支持的后端名称，供配置校验使用。
func Backends() []string {
	return []string{BackendFS, BackendSQLite, BackendMemory}
}

// Open 根据后端名称构建 Store。backend 为空时默认使用文件系统。
func Open(backend, dir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFS:
		return NewFileStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(dir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStoreUnavailable, backend)
	}
}

// Count 统计 Store 中已落盘的条目数量。
func Count(ctx context.Context, store Store) (int, error) {
	n := 0
	err := store.Keys(ctx, func(cachekey.Key) error {
		n++
		return nil
	})
	return n, err
}
