package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trading-sim-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env    string        `yaml:"env"`
	Server ServerConfig  `yaml:"server"`
	Sim    SimConfig     `yaml:"sim"`
	Hub    HubConfig     `yaml:"hub"`
	Log    logger.Config `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// SimConfig 模拟参数：请求处理延迟与自动成交延迟区间（毫秒）。
type SimConfig struct {
	LatencyMinMs     int `yaml:"latencyMinMs"`     // 请求处理延迟下界
	LatencyMaxMs     int `yaml:"latencyMaxMs"`     // 请求处理延迟上界
	AutoExecuteMinMs int `yaml:"autoExecuteMinMs"` // 自动成交延迟下界
	AutoExecuteMaxMs int `yaml:"autoExecuteMaxMs"` // 自动成交延迟上界
}

type HubConfig struct {
	SendBuffer     int `yaml:"sendBuffer"`     // 每个订阅者的事件缓冲
	WriteTimeoutMs int `yaml:"writeTimeoutMs"` // 单次 WS 写超时
}

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9100",
		},
		Sim: SimConfig{
			LatencyMinMs:     100,
			LatencyMaxMs:     1000,
			AutoExecuteMinMs: 100,
			AutoExecuteMaxMs: 1000,
		},
		Hub: HubConfig{
			SendBuffer:     64,
			WriteTimeoutMs: 5000,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads YAML config from path and applies basic validation.
// Fields absent from the file keep their defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides listen addresses from env
// vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	ApplyEnvOverrides(&cfg)
	return cfg, Validate(cfg)
}

// ApplyEnvOverrides 用环境变量覆盖监听地址与日志级别。
func ApplyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("TRADESIM_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TRADESIM_METRICS_ADDR"); v != "" {
		cfg.Server.MetricsAddr = v
	}
	if v := os.Getenv("TRADESIM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate ensures required fields are present and ranges are sane.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Sim.LatencyMinMs < 0 {
		return errors.New("sim.latencyMinMs must be >= 0")
	}
	if cfg.Sim.LatencyMaxMs < cfg.Sim.LatencyMinMs {
		return errors.New("sim.latencyMaxMs must be >= sim.latencyMinMs")
	}
	if cfg.Sim.AutoExecuteMinMs <= 0 {
		return errors.New("sim.autoExecuteMinMs must be > 0")
	}
	if cfg.Sim.AutoExecuteMaxMs < cfg.Sim.AutoExecuteMinMs {
		return errors.New("sim.autoExecuteMaxMs must be >= sim.autoExecuteMinMs")
	}
	if cfg.Hub.SendBuffer <= 0 {
		return errors.New("hub.sendBuffer must be > 0")
	}
	if cfg.Hub.WriteTimeoutMs <= 0 {
		return errors.New("hub.writeTimeoutMs must be > 0")
	}
	return nil
}

// AutoExecuteBounds 返回自动成交延迟区间。
func (s SimConfig) AutoExecuteBounds() (time.Duration, time.Duration) {
	return time.Duration(s.AutoExecuteMinMs) * time.Millisecond,
		time.Duration(s.AutoExecuteMaxMs) * time.Millisecond
}

// LatencyBounds 返回请求处理延迟区间。
func (s SimConfig) LatencyBounds() (time.Duration, time.Duration) {
	return time.Duration(s.LatencyMinMs) * time.Millisecond,
		time.Duration(s.LatencyMaxMs) * time.Millisecond
}

// WriteTimeout returns the WS write timeout as a duration.
func (h HubConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutMs) * time.Millisecond
}
