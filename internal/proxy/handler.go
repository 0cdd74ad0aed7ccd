package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/flowcache/flowcache/internal/cachectl"
	"github.com/flowcache/flowcache/internal/flow"
	"github.com/flowcache/flowcache/internal/logging"
	"github.com/flowcache/flowcache/internal/proxy/hooks"
	"github.com/flowcache/flowcache/internal/server"
	"github.com/flowcache/flowcache/internal/version"
)

// Handler 是正向代理入口：把 Fiber 请求包装成 flow.Flow，依次执行 addon 的
// request hook、回源（仅在响应槽为空时）、response hook，最后写回客户端。
type Handler struct {
	client   *http.Client
	logger   *logrus.Logger
	pipeline *hooks.Pipeline
}

// NewHandler constructs a proxy handler with shared HTTP client/logger/pipeline.
func NewHandler(client *http.Client, logger *logrus.Logger, pipeline *hooks.Pipeline) *Handler {
	if pipeline == nil {
		pipeline = hooks.NewPipeline()
	}
	return &Handler{
		client:   client,
		logger:   logger,
		pipeline: pipeline,
	}
}

// Handle 实现 server.ProxyHandler。上游失败返回 502，CONNECT 隧道不受支持。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)

	if c.Method() == fiber.MethodConnect {
		h.logger.WithFields(logging.RequestFields(requestID, c.Method(), getHost(c), fiber.StatusMethodNotAllowed, "")).
			Warn("connect_unsupported")
		return h.writeError(c, fiber.StatusMethodNotAllowed, "connect_unsupported")
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f := buildFlow(c, requestID)
	h.pipeline.RunRequest(ctx, f)

	if !f.Responded() {
		resp, err := h.fetchUpstream(ctx, c, f)
		if err != nil {
			h.logResult(f, 0, started, err)
			return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
		}
		f.Response = resp
	}

	h.pipeline.RunResponse(ctx, f)
	h.logResult(f, f.Response.StatusCode, started, nil)
	return writeResponse(c, f.Response)
}

// buildFlow 复制请求视图；fasthttp 会复用底层缓冲区，因此所有字段都转换为独立字符串。
func buildFlow(c fiber.Ctx, requestID string) *flow.Flow {
	f := flow.New(c.Method(), string(c.Request().URI().FullURI()))
	f.ID = requestID
	c.Request().Header.VisitAll(func(key, value []byte) {
		f.Request.Header.Add(string(key), string(value))
	})
	return f
}

func (h *Handler) fetchUpstream(ctx context.Context, c fiber.Ctx, f *flow.Flow) (*flow.Response, error) {
	req, err := buildUpstreamRequest(ctx, c, f)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &flow.Response{
		StatusCode: resp.StatusCode,
		Header:     headerFromHTTP(resp.Header),
		Body:       body,
	}, nil
}

func buildUpstreamRequest(ctx context.Context, c fiber.Ctx, f *flow.Flow) (*http.Request, error) {
	target, err := url.Parse(f.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("request url %q has no host", f.Request.URL)
	}

	req, err := http.NewRequestWithContext(ctx, f.Request.Method, target.String(), bytesReader(c.Body()))
	if err != nil {
		return nil, err
	}

	src := make(http.Header, f.Request.Header.Len())
	for _, field := range f.Request.Header.Fields() {
		src.Add(field.Name, field.Value)
	}
	server.CopyHeaders(req.Header, src)
	// 由 Transport 协商压缩并透明解压，缓存中保存的始终是明文 body。
	req.Header.Del("Accept-Encoding")
	req.Header.Del("Host")
	req.Host = target.Host
	req.Header.Add("Via", version.Via())
	if ip := c.IP(); ip != "" {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			req.Header.Set("X-Forwarded-For", prior+", "+ip)
		} else {
			req.Header.Set("X-Forwarded-For", ip)
		}
	}
	return req, nil
}

// headerFromHTTP 按名称排序展开 http.Header，保证同一响应每次得到相同的字段顺序。
func headerFromHTTP(src http.Header) flow.Header {
	names := make([]string, 0, len(src))
	for name := range src {
		if server.IsHopByHopHeader(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var header flow.Header
	for _, name := range names {
		for _, value := range src[name] {
			header.Add(name, value)
		}
	}
	return header
}

// writeResponse 将响应槽写回客户端；Content-Length 由 fasthttp 根据 body 重新计算。
func writeResponse(c fiber.Ctx, resp *flow.Response) error {
	c.Status(resp.StatusCode)
	for _, field := range resp.Header.Fields() {
		if server.IsHopByHopHeader(field.Name) || http.CanonicalHeaderKey(field.Name) == fiber.HeaderContentLength {
			continue
		}
		c.Response().Header.Add(field.Name, field.Value)
	}
	return c.Send(resp.Body)
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(f *flow.Flow, status int, started time.Time, err error) {
	cacheStatus := ""
	if f.Response != nil {
		cacheStatus = f.Response.Header.Get(cachectl.MarkerHeader)
	}
	fields := logging.RequestFields(f.ID, f.Request.Method, f.Request.URL, status, cacheStatus)
	fields["action"] = "proxy"
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}

func getHost(c fiber.Ctx) string {
	if raw := c.Request().Header.Peek(fiber.HeaderHost); len(raw) > 0 {
		return string(raw)
	}
	return c.Hostname()
}

func bytesReader(b []byte) io.Reader {
	if len(b) == 0 {
		return http.NoBody
	}
	return bytes.NewReader(append([]byte(nil), b...))
}
