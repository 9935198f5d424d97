package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 配置热更新器：监听配置文件写入，重新加载并回调。
// 只有通过校验的配置才会下发；冷却时间避免编辑器多次写入造成抖动。
type Watcher struct {
	Path     string
	Cooldown time.Duration

	mu         sync.Mutex
	lastReload time.Time
}

// Start watches the config file until ctx is cancelled. onUpdate receives
// every successfully reloaded config. Runs in the calling goroutine.
func (w *Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	if w.Cooldown <= 0 {
		w.Cooldown = time.Second
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.reload(onUpdate)
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// 监听错误不致命，继续等下一个事件
		}
	}
}

func (w *Watcher) reload(onUpdate func(AppConfig)) {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.Cooldown {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.Path)
	if err != nil {
		// 坏配置忽略，保留当前生效参数
		return
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}
}
