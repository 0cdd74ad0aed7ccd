package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/flowcache/flowcache/internal/cachekey"
)

const (
	entrySuffix = ".cache"
	tempSuffix  = ".tmp"
)

// NewFileStore 以 basePath 为根目录构建磁盘缓存，整个进程复用一份实例。
// 目录无法创建时返回包裹 ErrStoreUnavailable 的错误。
func NewFileStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: cache dir required", ErrStoreUnavailable)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve cache dir: %w", ErrStoreUnavailable, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %w", ErrStoreUnavailable, err)
	}

	store := &fileStore{basePath: abs}
	store.sweepTemp()
	return store, nil
}

// fileStore 每个 key 对应一个 <hex>.cache 文件；写入先落到同目录的
// .<hex>.<uuid>.tmp，再 rename 到最终位置。
type fileStore struct {
	basePath string
}

func (s *fileStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filePath, err := s.entryPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *fileStore) Read(ctx context.Context, key cachekey.Key) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return DecodeEntry(data)
}

func (s *fileStore) Write(ctx context.Context, key cachekey.Key, entry *Entry) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	payload, err := EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteFailed, err)
	}

	if err := s.writeAtomic(ctx, filePath, key, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (s *fileStore) writeAtomic(ctx context.Context, filePath string, key cachekey.Key, payload []byte) error {
	tempName := filepath.Join(s.basePath, "."+key.String()+"."+uuid.NewString()+tempSuffix)
	tempFile, err := os.OpenFile(tempName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	_, err = copyWithContext(ctx, tempFile, bytes.NewReader(payload))
	if err == nil {
		err = tempFile.Sync()
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return syncDir(s.basePath)
}

func (s *fileStore) Keys(ctx context.Context, fn func(cachekey.Key) error) error {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return err
	}
	for _, dirEntry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := dirEntry.Name()
		if !dirEntry.Type().IsRegular() || !strings.HasSuffix(name, entrySuffix) {
			continue
		}
		key, err := cachekey.ParseKey(strings.TrimSuffix(name, entrySuffix))
		if err != nil {
			continue
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *fileStore) Describe() StoreInfo {
	return StoreInfo{Backend: BackendFS, Location: s.basePath}
}

func (s *fileStore) Close() error {
	return nil
}

func (s *fileStore) entryPath(key cachekey.Key) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.basePath, key.String()+entrySuffix), nil
}

// sweepTemp 清理上次进程崩溃遗留的临时文件，它们从未对读者可见。
func (s *fileStore) sweepTemp() {
	matches, err := filepath.Glob(filepath.Join(s.basePath, ".*"+tempSuffix))
	if err != nil {
		return
	}
	for _, match := range matches {
		_ = os.Remove(match)
	}
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
