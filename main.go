package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flowcache/flowcache/internal/cache"
	"github.com/flowcache/flowcache/internal/cachectl"
	"github.com/flowcache/flowcache/internal/config"
	"github.com/flowcache/flowcache/internal/logging"
	"github.com/flowcache/flowcache/internal/proxy"
	"github.com/flowcache/flowcache/internal/proxy/hooks"
	"github.com/flowcache/flowcache/internal/server"
	"github.com/flowcache/flowcache/internal/server/routes"
	"github.com/flowcache/flowcache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

// defaultConfigFile 在未显式指定配置时，若当前目录存在则自动加载。
const defaultConfigFile = "config.toml"

const shutdownTimeout = 10 * time.Second

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["backend"] = cfg.Cache.Backend
		fields["cache_dir"] = cfg.Cache.Dir
		fields["listen_port"] = cfg.Global.ListenPort
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 日志 → 缓存存储 → 缓存 addon → addon 流水线 → Fiber server。
	// 存储不可用时降级为直通代理，而不是拒绝启动。
	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	controller := cachectl.New(cachectl.Options{
		Store:        store,
		Observer:     logging.NewCacheObserver(logger),
		StoreTimeout: cfg.Cache.StoreTimeout.DurationValue(),
	})
	pipeline := hooks.NewPipeline()
	pipeline.MustRegister("cache", controller)

	httpClient := server.NewUpstreamClient(cfg)
	proxyHandler := proxy.NewHandler(httpClient, logger, pipeline)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_enabled"] = controller.Enabled()
	fields["diagnostics_host"] = cfg.Global.DiagnosticsHost
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	diag := routes.Diagnostics{Store: store, Controller: controller, Pipeline: pipeline}
	if err := startHTTPServer(cfg, proxyHandler, diag, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// openStore 按配置打开缓存存储；失败时记录告警并返回 nil，由调用方进入直通模式。
func openStore(cfg *config.Config, logger *logrus.Logger) cache.Store {
	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Dir)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"action":  "cache_open",
			"backend": cfg.Cache.Backend,
			"dir":     cfg.Cache.Dir,
		}).Warn("cache_store_unavailable")
		return nil
	}
	info := store.Describe()
	logger.WithFields(logrus.Fields{
		"action":   "cache_open",
		"backend":  info.Backend,
		"location": info.Location,
	}).Info("cache_store_ready")
	return store
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("flowcache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 FLOWCACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("FLOWCACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, proxyHandler server.ProxyHandler, diag routes.Diagnostics, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:          logger,
		Proxy:           proxyHandler,
		DiagnosticsHost: cfg.Global.DiagnosticsHost,
		ListenPort:      port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, diag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.WithField("action", "shutdown").Info("收到退出信号，停止接收新连接")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.WithError(err).WithField("action", "shutdown").Warn("shutdown_incomplete")
		}
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
