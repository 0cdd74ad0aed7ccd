package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/flowcache/flowcache/internal/cachekey"
)

// Store 负责缓存条目的持久化。磁盘布局（文件系统后端）遵循：
//
//	<CacheDir>/<hex-key>.cache    # codec 编码后的完整条目
//
// 实现需保证 Read/Exists 永远看不到写了一半的条目。
type Store interface {
	// Exists 当且仅当 key 对应的完整条目已落盘时返回 true。
	Exists(ctx context.Context, key cachekey.Key) (bool, error)

	// Read 返回解码后的条目；不存在返回 ErrNotFound，无法解码返回 ErrCorruptEntry。
	Read(ctx context.Context, key cachekey.Key) (*Entry, error)

	// Write 原子地写入条目，失败时返回包裹 ErrWriteFailed 的错误。
	// Store 层允许覆盖已有 key，“只写一次”的策略由上层控制器负责。
	Write(ctx context.Context, key cachekey.Key, entry *Entry) error

	// Keys 依次回调所有已落盘的 key，fn 返回错误时提前结束。
	Keys(ctx context.Context, fn func(cachekey.Key) error) error

	// Describe 返回后端类型与位置，供诊断接口输出。
	Describe() StoreInfo

	Close() error
}

// StoreInfo 描述一个 Store 实例。
type StoreInfo struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
}

// HeaderField 是一条保持原始大小写的响应头。
type HeaderField struct {
	Name  string
	Value string
}

// Entry 表示一条缓存的响应：状态码、原始正文以及按插入顺序排列的响应头。
type Entry struct {
	Status int
	Body   []byte
	Header []HeaderField
}

// HeaderValue 按 HTTP 约定大小写不敏感地查找第一个同名响应头。
func (e *Entry) HeaderValue(name string) (string, bool) {
	for _, field := range e.Header {
		if strings.EqualFold(field.Name, name) {
			return field.Value, true
		}
	}
	return "", false
}

var (
	// ErrNotFound 表示缓存不存在，属于正常未命中。
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorruptEntry 表示持久化字节无法解码。
	ErrCorruptEntry = errors.New("cache entry corrupt")
	// ErrWriteFailed 表示条目未能完整落盘。
	ErrWriteFailed = errors.New("cache write failed")
	// ErrStoreUnavailable 表示后端在启动阶段不可用（例如无法创建缓存目录）。
	ErrStoreUnavailable = errors.New("cache store unavailable")
)
