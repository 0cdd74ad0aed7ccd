package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供请求方法/URL/命中状态字段，供代理请求日志复用。
func RequestFields(requestID, method, url string, status int, cacheStatus string) logrus.Fields {
	fields := logrus.Fields{
		"method":       method,
		"url":          url,
		"status":       status,
		"cache_status": cacheStatus,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// CacheFields 描述一次缓存事件涉及的 URL 与操作。
func CacheFields(op, url string) logrus.Fields {
	return logrus.Fields{
		"action": "cache",
		"op":     op,
		"url":    url,
	}
}
