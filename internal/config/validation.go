package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/flowcache/flowcache/internal/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别: "+g.LogLevel)
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if err := validateHost(g.DiagnosticsHost); err != nil {
		return newFieldError("Global.DiagnosticsHost", err.Error())
	}

	cc := c.Cache
	if !supportedBackend(cc.Backend) {
		return newFieldError(cacheField("Backend"), "仅支持 "+strings.Join(cache.Backends(), "|"))
	}
	if cc.Backend != cache.BackendMemory && strings.TrimSpace(cc.Dir) == "" {
		return newFieldError(cacheField("Dir"), "不能为空")
	}
	if cc.StoreTimeout.DurationValue() <= 0 {
		return newFieldError(cacheField("StoreTimeout"), "必须大于 0")
	}

	return nil
}

func supportedBackend(backend string) bool {
	for _, name := range cache.Backends() {
		if backend == name {
			return true
		}
	}
	return false
}

func validateHost(host string) error {
	if host == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(host, "/ ") {
		return errors.New("只能是主机名，不允许包含路径或空格")
	}
	return nil
}
