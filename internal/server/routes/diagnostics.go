package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/flowcache/flowcache/internal/cache"
	"github.com/flowcache/flowcache/internal/cachectl"
	"github.com/flowcache/flowcache/internal/proxy/hooks"
)

// countTimeout 限制 /-/cache 统计条目数量时遍历存储的耗时。
const countTimeout = 3 * time.Second

// Diagnostics 汇总诊断接口需要读取的运行时组件；Store 为 nil 表示缓存已降级为直通。
type Diagnostics struct {
	Store      cache.Store
	Controller *cachectl.Controller
	Pipeline   *hooks.Pipeline
}

// RegisterDiagnosticsRoutes 暴露 /-/cache 与 /-/addons 诊断接口，供运维查询缓存状态。
// 路由仅在 server.NewApp 判定请求 Host 为诊断域名时可达。
func RegisterDiagnosticsRoutes(app *fiber.App, diag Diagnostics) {
	if app == nil {
		return
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		parent := c.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, countTimeout)
		defer cancel()
		return c.JSON(buildCachePayload(ctx, diag))
	})

	app.Get("/-/addons", func(c fiber.Ctx) error {
		return c.JSON(buildAddonsPayload(diag.Pipeline))
	})
}

type cachePayload struct {
	Enabled    bool             `json:"enabled"`
	Store      *cache.StoreInfo `json:"store,omitempty"`
	Entries    *int             `json:"entries,omitempty"`
	CountError string           `json:"count_error,omitempty"`
	Stats      cachectl.Stats   `json:"stats"`
}

type addonsPayload struct {
	Addons []string          `json:"addons"`
	Status map[string]string `json:"status"`
}

func buildCachePayload(ctx context.Context, diag Diagnostics) cachePayload {
	payload := cachePayload{}
	if diag.Controller != nil {
		payload.Stats = diag.Controller.Stats()
		payload.Enabled = payload.Stats.Enabled
	}
	if diag.Store == nil {
		return payload
	}

	info := diag.Store.Describe()
	payload.Store = &info
	n, err := cache.Count(ctx, diag.Store)
	if err != nil {
		payload.CountError = err.Error()
		return payload
	}
	payload.Entries = &n
	return payload
}

func buildAddonsPayload(pipeline *hooks.Pipeline) addonsPayload {
	if pipeline == nil {
		return addonsPayload{Addons: []string{}, Status: map[string]string{}}
	}
	names := pipeline.Names()
	status := pipeline.Snapshot(names)
	return addonsPayload{Addons: names, Status: status}
}
