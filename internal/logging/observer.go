package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/flowcache/flowcache/internal/cachectl"
)

// CacheObserver 将缓存事件写成结构化日志：命中/写入为 info，读写错误为 warn。
type CacheObserver struct {
	logger logrus.FieldLogger
}

// NewCacheObserver 基于 logger 构建缓存事件观察者。
func NewCacheObserver(logger logrus.FieldLogger) *CacheObserver {
	return &CacheObserver{logger: logger}
}

func (o *CacheObserver) CacheHit(url string) {
	o.logger.WithFields(CacheFields("hit", url)).Info("cache_hit")
}

func (o *CacheObserver) CacheStored(url string) {
	o.logger.WithFields(CacheFields("store", url)).Info("cache_store")
}

func (o *CacheObserver) CacheError(op cachectl.Op, url string, err error) {
	fields := CacheFields(string(op), url)
	fields["kind"] = cachectl.ErrorKind(err)
	msg := "cache_read_failed"
	if op == cachectl.OpWrite {
		msg = "cache_write_failed"
	}
	o.logger.WithFields(fields).WithError(err).Warn(msg)
}
