package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"trading-sim-go/api"
	"trading-sim-go/config"
	"trading-sim-go/engine"
	"trading-sim-go/hub"
	"trading-sim-go/infrastructure/logger"
	"trading-sim-go/infrastructure/monitor"
	"trading-sim-go/order"
	"trading-sim-go/scheduler"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	addr := flag.String("addr", "", "HTTP 监听地址，覆盖配置文件")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	watch := flag.Bool("watch", true, "监听配置文件变更，热更新模拟延迟参数")
	flag.Parse()

	// .env 可选，缺失时静默跳过
	_ = godotenv.Load()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Close() }()

	mon := monitor.New(monitor.DefaultConfig())

	store := order.NewStore()
	h := hub.New(cfg.Hub.SendBuffer, zlog, mon)

	autoMin, autoMax := cfg.Sim.AutoExecuteBounds()
	sched, err := scheduler.New(autoMin, autoMax, zlog)
	if err != nil {
		log.Fatalf("初始化调度器失败: %v", err)
	}

	eng, err := engine.New(engine.Components{
		Store:    store,
		Notifier: h,
		Trigger:  sched,
		Logger:   zlog,
		Monitor:  mon,
	})
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}
	sched.Bind(eng.AutoExecute)

	latMin, latMax := cfg.Sim.LatencyBounds()
	server := api.NewServer(api.Config{
		LatencyMin:   latMin,
		LatencyMax:   latMax,
		WriteTimeout: cfg.Hub.WriteTimeout(),
	}, eng, h, zlog, mon)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prometheus metrics 独立端口
	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(cfg.Server.MetricsAddr, mon, zlog)
	}

	// 配置热更新：只下发模拟延迟参数
	if *watch {
		go watchConfig(ctx, *cfgPath, sched, server, zlog)
	}

	go func() {
		zlog.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("env", cfg.Env))
		if err := server.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zlog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}
}

// loadConfig 配置文件缺失时退回默认配置（本地跑无需任何文件）。
func loadConfig(path string) (config.AppConfig, error) {
	cfg, err := config.LoadWithEnvOverrides(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		config.ApplyEnvOverrides(&cfg)
		return cfg, config.Validate(cfg)
	}
	return cfg, err
}

func serveMetrics(addr string, mon *monitor.Monitor, zlog *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mon.Handler())
	zlog.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		zlog.Error("metrics server failed", zap.Error(err))
	}
}

func watchConfig(ctx context.Context, path string, sched *scheduler.Scheduler, server *api.Server, zlog *logger.Logger) {
	w := &config.Watcher{Path: path, Cooldown: time.Second}
	err := w.Start(ctx, func(cfg config.AppConfig) {
		autoMin, autoMax := cfg.Sim.AutoExecuteBounds()
		if err := sched.SetDelayBounds(autoMin, autoMax); err != nil {
			zlog.Warn("reload rejected", zap.Error(err))
			return
		}
		latMin, latMax := cfg.Sim.LatencyBounds()
		server.SetLatencyBounds(latMin, latMax)
		zlog.Info("sim parameters reloaded",
			zap.Duration("auto_execute_min", autoMin),
			zap.Duration("auto_execute_max", autoMax),
			zap.Duration("latency_min", latMin),
			zap.Duration("latency_max", latMax))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		zlog.Warn("config watcher stopped", zap.Error(err))
	}
}
